package game

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"set-game-server/config"
)

const (
	// MaxTokens is how many tokens a player may hold; placing the last one submits a set.
	MaxTokens = 3

	empty = -1
)

// SetRequest is a claimed triple waiting for the dealer.
type SetRequest struct {
	Cards  [MaxTokens]int
	Player int
}

// Hint is one set currently on the table.
type Hint struct {
	Slots    []int   `json:"slots"`
	Cards    []int   `json:"cards"`
	Features [][]int `json:"features"`
}

// Table holds all state shared between the dealer and the players.
//
// Invariant: slotToCard[s] == c iff cardToSlot[c] == s.
//
// Lock order is mu, then layoutMu. Nothing acquires mu while holding layoutMu.
type Table struct {
	sink   Sink
	oracle Oracle
	delay  time.Duration
	log    *slog.Logger

	// mu guards tokens, pending and tested.
	mu      sync.Mutex
	tokens  [][]int
	pending []SetRequest
	tested  []bool

	// layoutMu guards the gate and both layout arrays. Kept apart from mu so
	// gate checks on every key press never wait behind token operations.
	layoutMu   sync.Mutex
	gateClosed bool
	slotToCard []int
	cardToSlot []int
}

// NewTable returns an empty table sized from cfg. The gate starts closed; the
// dealer opens it after the first deal.
func NewTable(cfg *config.Config, oracle Oracle, sink Sink) *Table {
	if sink == nil {
		sink = NopSink{}
	}
	t := &Table{
		sink:       sink,
		oracle:     oracle,
		delay:      cfg.TableDelay(),
		log:        slog.With("tag", "table"),
		tokens:     make([][]int, cfg.Players()),
		tested:     make([]bool, cfg.Players()),
		gateClosed: true,
		slotToCard: make([]int, cfg.TableSize()),
		cardToSlot: make([]int, cfg.DeckSize()),
	}
	for i := range t.tokens {
		t.tokens[i] = make([]int, 0, MaxTokens)
		t.tested[i] = true
	}
	for i := range t.slotToCard {
		t.slotToCard[i] = empty
	}
	for i := range t.cardToSlot {
		t.cardToSlot[i] = empty
	}
	return t
}

// Size returns the number of slots.
func (t *Table) Size() int { return len(t.slotToCard) }

// ValidSlot reports whether slot is on the table.
func (t *Table) ValidSlot(slot int) bool { return slot >= 0 && slot < len(t.slotToCard) }

func (t *Table) validPlayer(player int) bool { return player >= 0 && player < len(t.tokens) }

// simulateDelay stands in for the latency of a physical table. Callers hold mu,
// so every visible board change is serialized behind it.
func (t *Table) simulateDelay() {
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
}

// PlaceCard puts card on an empty slot. It returns false, changing nothing, if
// the slot is taken or the card is already on the table.
func (t *Table) PlaceCard(card, slot int) bool {
	if !t.ValidSlot(slot) || card < 0 || card >= len(t.cardToSlot) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.simulateDelay()

	t.layoutMu.Lock()
	if t.slotToCard[slot] != empty || t.cardToSlot[card] != empty {
		t.layoutMu.Unlock()
		return false
	}
	t.slotToCard[slot] = card
	t.cardToSlot[card] = slot
	t.layoutMu.Unlock()

	t.sink.PlaceCard(card, slot)
	return true
}

// RemoveCard clears slot, first releasing every player's token on it. It
// returns the players that lost a token. Removing from an empty slot is a no-op.
func (t *Table) RemoveCard(slot int) []int {
	if !t.ValidSlot(slot) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cardAt(slot) == empty {
		return nil
	}
	t.simulateDelay()

	var affected []int
	for player := range t.tokens {
		if t.removeTokenLocked(player, slot) {
			affected = append(affected, player)
		}
	}

	t.layoutMu.Lock()
	card := t.slotToCard[slot]
	t.slotToCard[slot] = empty
	t.cardToSlot[card] = empty
	t.layoutMu.Unlock()

	t.sink.RemoveCard(slot)
	return affected
}

// KeyPressed toggles player's token on slot: a held token is released,
// otherwise a token is placed if the player holds fewer than MaxTokens and the
// slot has a card.
func (t *Table) KeyPressed(player, slot int) {
	if !t.validPlayer(player) || !t.ValidSlot(slot) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.tokens[player], slot) {
		t.removeTokenLocked(player, slot)
		return
	}
	t.placeTokenLocked(player, slot)
}

// PlaceToken places player's token on slot. It fails if the slot is empty,
// already held by player, or player already holds MaxTokens.
func (t *Table) PlaceToken(player, slot int) bool {
	if !t.validPlayer(player) || !t.ValidSlot(slot) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.placeTokenLocked(player, slot)
}

// RemoveToken releases player's token on slot and reports whether one was held.
func (t *Table) RemoveToken(player, slot int) bool {
	if !t.validPlayer(player) || !t.ValidSlot(slot) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeTokenLocked(player, slot)
}

func (t *Table) placeTokenLocked(player, slot int) bool {
	held := t.tokens[player]
	if len(held) >= MaxTokens || slices.Contains(held, slot) || t.cardAt(slot) == empty {
		return false
	}
	t.tokens[player] = append(held, slot)
	t.sink.PlaceToken(player, slot)

	if len(t.tokens[player]) == MaxTokens {
		t.submitLocked(player)
	}
	return true
}

func (t *Table) removeTokenLocked(player, slot int) bool {
	held := t.tokens[player]
	i := slices.Index(held, slot)
	if i < 0 {
		return false
	}
	t.tokens[player] = slices.Delete(held, i, i+1)
	t.sink.RemoveToken(player, slot)

	// A queued request no longer matches the player's tokens; take it back so
	// a player never has more than one request outstanding.
	if !t.tested[player] && t.withdrawLocked(player) {
		t.tested[player] = true
	}
	return true
}

func (t *Table) submitLocked(player int) {
	var req SetRequest
	req.Player = player

	t.layoutMu.Lock()
	for i, slot := range t.tokens[player] {
		req.Cards[i] = t.slotToCard[slot]
	}
	t.layoutMu.Unlock()

	t.tested[player] = false
	t.pending = append(t.pending, req)
	t.log.Debug("set submitted", "player", player, "cards", req.Cards)
}

func (t *Table) withdrawLocked(player int) bool {
	i := slices.IndexFunc(t.pending, func(r SetRequest) bool { return r.Player == player })
	if i < 0 {
		return false
	}
	t.pending = slices.Delete(t.pending, i, i+1)
	return true
}

// NextRequest pops the oldest pending set request.
func (t *Table) NextRequest() (SetRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return SetRequest{}, false
	}
	req := t.pending[0]
	t.pending = slices.Delete(t.pending, 0, 1)
	return req, true
}

// PendingRequests returns the number of queued set requests.
func (t *Table) PendingRequests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Validate reports whether req still describes the cards under its player's tokens.
func (t *Table) Validate(req SetRequest) bool {
	if !t.validPlayer(req.Player) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	held := t.tokens[req.Player]
	if len(held) != MaxTokens {
		return false
	}
	current := make([]int, 0, MaxTokens)
	t.layoutMu.Lock()
	for _, slot := range held {
		current = append(current, t.slotToCard[slot])
	}
	t.layoutMu.Unlock()

	want := slices.Clone(req.Cards[:])
	slices.Sort(current)
	slices.Sort(want)
	return slices.Equal(current, want)
}

// Discard resolves a dropped request: player is tested again unless another
// request of theirs is still queued.
func (t *Table) Discard(player int) {
	if !t.validPlayer(player) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !slices.ContainsFunc(t.pending, func(r SetRequest) bool { return r.Player == player }) {
		t.tested[player] = true
	}
}

// MarkTested records that player's request has been resolved.
func (t *Table) MarkTested(player int) {
	if !t.validPlayer(player) {
		return
	}
	t.mu.Lock()
	t.tested[player] = true
	t.mu.Unlock()
}

// Tested reports whether player has no request in flight.
func (t *Table) Tested(player int) bool {
	if !t.validPlayer(player) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tested[player]
}

// CanAct reports whether player may change tokens: fewer than MaxTokens held,
// or a full hand whose request has been resolved.
func (t *Table) CanAct(player int) bool {
	if !t.validPlayer(player) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tokens[player]) < MaxTokens || t.tested[player]
}

// Tokens returns a copy of player's token slots in placement order.
func (t *Table) Tokens(player int) []int {
	if !t.validPlayer(player) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.tokens[player])
}

// TokenCount returns how many tokens player holds.
func (t *Table) TokenCount(player int) int {
	if !t.validPlayer(player) {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tokens[player])
}

// CloseGate makes every player drop new key presses until OpenGate.
func (t *Table) CloseGate() {
	t.layoutMu.Lock()
	t.gateClosed = true
	t.layoutMu.Unlock()
}

// OpenGate lets key presses through again.
func (t *Table) OpenGate() {
	t.layoutMu.Lock()
	t.gateClosed = false
	t.layoutMu.Unlock()
}

// GateOpen reports whether key presses are currently accepted.
func (t *Table) GateOpen() bool {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	return !t.gateClosed
}

// Admit runs enqueue under the gate lock if the gate is open and returns its
// result. A press admitted this way can never land after CloseGate returns.
func (t *Table) Admit(enqueue func() bool) bool {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	if t.gateClosed {
		return false
	}
	return enqueue()
}

// cardAt must be called with mu held.
func (t *Table) cardAt(slot int) int {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	return t.slotToCard[slot]
}

// CardAt returns the card on slot, if any.
func (t *Table) CardAt(slot int) (int, bool) {
	if !t.ValidSlot(slot) {
		return 0, false
	}
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	c := t.slotToCard[slot]
	return c, c != empty
}

// SlotOf returns the slot holding card, if it is on the table.
func (t *Table) SlotOf(card int) (int, bool) {
	if card < 0 || card >= len(t.cardToSlot) {
		return 0, false
	}
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	s := t.cardToSlot[card]
	return s, s != empty
}

// CountCards returns the number of occupied slots.
func (t *Table) CountCards() int {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	n := 0
	for _, c := range t.slotToCard {
		if c != empty {
			n++
		}
	}
	return n
}

// EmptySlots returns the unoccupied slots in ascending order.
func (t *Table) EmptySlots() []int {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	var out []int
	for s, c := range t.slotToCard {
		if c == empty {
			out = append(out, s)
		}
	}
	return out
}

// DealtCards returns the cards on the table in slot order.
func (t *Table) DealtCards() []int {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	var out []int
	for _, c := range t.slotToCard {
		if c != empty {
			out = append(out, c)
		}
	}
	return out
}

// SlotCards returns a copy of the layout: the card per slot, -1 when empty.
func (t *Table) SlotCards() []int {
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()
	return slices.Clone(t.slotToCard)
}

// Hints lists every set among the dealt cards. It does not change the table.
func (t *Table) Hints() []Hint {
	layout := t.SlotCards()
	slotOf := make(map[int]int, len(layout))
	var cards []int
	for slot, c := range layout {
		if c != empty {
			cards = append(cards, c)
			slotOf[c] = slot
		}
	}

	var hints []Hint
	for _, set := range t.oracle.FindSets(cards, 0) {
		h := Hint{Cards: set, Features: t.oracle.CardsToFeatures(set)}
		for _, c := range set {
			h.Slots = append(h.Slots, slotOf[c])
		}
		slices.Sort(h.Slots)
		hints = append(hints, h)
		t.log.Info("hint: set found", "slots", h.Slots, "features", h.Features)
	}
	return hints
}

// View returns a consistent copy of the layout, tokens and queue.
func (t *Table) View() TableView {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layoutMu.Lock()
	defer t.layoutMu.Unlock()

	v := TableView{
		Slots:           slices.Clone(t.slotToCard),
		Tokens:          make([][]int, len(t.tokens)),
		PendingRequests: len(t.pending),
		GateOpen:        !t.gateClosed,
	}
	for i, held := range t.tokens {
		v.Tokens[i] = slices.Clone(held)
	}
	return v
}
