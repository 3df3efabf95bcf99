package ws

import "set-game-server/game"

// --- Server-to-Client messages ---
//
// Spectators never send game actions; every inbound message is answered with
// an ErrorMsg.

// SnapshotMsg is the full game state, sent once when a spectator connects.
type SnapshotMsg struct {
	Type  string        `json:"type"`
	State game.Snapshot `json:"state"`
}

// CardMsg reports a card placed on a slot.
type CardMsg struct {
	Type string `json:"type"`
	Card int    `json:"card"`
	Slot int    `json:"slot"`
}

// SlotMsg reports a slot that was cleared.
type SlotMsg struct {
	Type string `json:"type"`
	Slot int    `json:"slot"`
}

// TokenMsg reports a token placed or removed.
type TokenMsg struct {
	Type   string `json:"type"`
	Player int    `json:"player"`
	Slot   int    `json:"slot"`
}

// ScoreMsg reports a player's new score.
type ScoreMsg struct {
	Type   string `json:"type"`
	Player int    `json:"player"`
	Score  int    `json:"score"`
}

// CountdownMsg is the time left in the round, in whole seconds.
type CountdownMsg struct {
	Type    string `json:"type"`
	Seconds int64  `json:"seconds"`
	Warn    bool   `json:"warn"`
}

// ElapsedMsg is the time since the round started, in whole seconds.
type ElapsedMsg struct {
	Type    string `json:"type"`
	Seconds int64  `json:"seconds"`
}

// FreezeMsg is a player's remaining freeze in whole seconds; 0 means not frozen.
type FreezeMsg struct {
	Type    string `json:"type"`
	Player  int    `json:"player"`
	Seconds int64  `json:"seconds"`
}

// WinnersMsg is sent once when the game ends.
type WinnersMsg struct {
	Type    string `json:"type"`
	Players []int  `json:"players"`
}

// ErrorMsg is sent when a client message is rejected.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
