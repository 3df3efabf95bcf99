package game

// TableView is a point-in-time copy of the table.
type TableView struct {
	// Slots holds the card per slot, -1 when empty.
	Slots           []int   `json:"slots"`
	Tokens          [][]int `json:"tokens"`
	PendingRequests int     `json:"pendingRequests"`
	GateOpen        bool    `json:"gateOpen"`
}

// PlayerView is the client-facing representation of a player.
type PlayerView struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Human    bool   `json:"human"`
	Score    int    `json:"score"`
	Tokens   []int  `json:"tokens"`
	Pending  int    `json:"pending"`
	FrozenMS int64  `json:"frozenMs,omitempty"`
}

// Snapshot is the full game state served to spectators and the HTTP API.
type Snapshot struct {
	GameID   string       `json:"gameId"`
	Rows     int          `json:"rows"`
	Columns  int          `json:"columns"`
	Round    int          `json:"round"`
	DeckSize int          `json:"deckSize"`
	Table    TableView    `json:"table"`
	Players  []PlayerView `json:"players"`
	// CountdownMS is the time left in the round; omitted when rounds are untimed.
	CountdownMS int64 `json:"countdownMs,omitempty"`
	Finished    bool  `json:"finished"`
	Winners     []int `json:"winners,omitempty"`
}
