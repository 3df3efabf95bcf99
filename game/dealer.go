package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"set-game-server/config"
	"set-game-server/matcherrors"
)

// Result is the outcome of a finished game.
type Result struct {
	Winners []int
	Scores  []int
	Rounds  int
}

// Dealer runs the game: it owns the deck and the round clock, deals and clears
// the table, and is the only consumer of set requests.
type Dealer struct {
	ID      string
	cfg     *config.Config
	table   *Table
	players []*Player
	oracle  Oracle
	sink    Sink
	log     *slog.Logger

	// Owned by the Run goroutine.
	deck       []int
	reset      bool
	roundStart time.Time
	started    []*Player

	terminate   atomic.Bool
	reshuffleAt atomic.Int64 // unix nanos, read by Snapshot
	deckLen     atomic.Int64
	rounds      atomic.Int64

	mu     sync.Mutex
	result *Result
}

// NewDealer creates a dealer holding the full deck.
func NewDealer(id string, cfg *config.Config, table *Table, players []*Player, oracle Oracle, sink Sink) *Dealer {
	if sink == nil {
		sink = NopSink{}
	}
	deck := make([]int, cfg.DeckSize())
	for i := range deck {
		deck[i] = i
	}
	d := &Dealer{
		ID:      id,
		cfg:     cfg,
		table:   table,
		players: players,
		oracle:  oracle,
		sink:    sink,
		log:     slog.With("tag", "dealer", "game", id),
		deck:    deck,
	}
	d.deckLen.Store(int64(len(deck)))
	return d
}

// Terminate ends the game at the next tick.
func (d *Dealer) Terminate() {
	d.terminate.Store(true)
}

// Run plays rounds until no set is left in the deck, the game is terminated,
// or ctx is cancelled. It then stops every player and announces the winners.
func (d *Dealer) Run(ctx context.Context) Result {
	d.log.Info("dealer starting", "players", len(d.players), "deck", len(d.deck))
	for _, p := range d.players {
		d.started = append(d.started, p)
		p.Start()
	}

	for !d.shouldFinish(ctx) {
		d.placeCardsOnTable()
		d.timerLoop(ctx)
		d.updateTimerDisplay(false)
		d.removeAllCardsFromTable()
		d.rounds.Add(1)
	}

	d.terminatePlayers()
	res := d.announceWinners()
	d.log.Info("dealer terminated", "rounds", res.Rounds, "winners", res.Winners, "scores", res.Scores)
	return res
}

func (d *Dealer) shouldFinish(ctx context.Context) bool {
	return ctx.Err() != nil || d.terminate.Load() || len(d.oracle.FindSets(d.deck, 1)) == 0
}

// timerLoop runs one round: it ticks until the countdown expires, resolving at
// most one set request and refilling the table on every tick.
func (d *Dealer) timerLoop(ctx context.Context) {
	d.resetCountdown()
	if d.cfg.Hints {
		d.table.Hints()
	}

	ticker := time.NewTicker(d.cfg.Tick())
	defer ticker.Stop()

	for !d.terminate.Load() && d.roundRunning() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.updateTimerDisplay(d.reset)
		d.reset = false
		d.testSet()
		d.placeCardsOnTable()

		if d.cfg.TurnTimeoutMS <= 0 && !d.terminate.Load() && len(d.oracle.FindSets(d.table.DealtCards(), 1)) == 0 {
			d.log.Info("no set on the table, reshuffling")
			return
		}
	}
}

func (d *Dealer) roundRunning() bool {
	if d.cfg.TurnTimeoutMS <= 0 {
		return true
	}
	return time.Now().UnixNano() < d.reshuffleAt.Load()
}

func (d *Dealer) resetCountdown() {
	now := time.Now()
	d.roundStart = now
	if d.cfg.TurnTimeoutMS > 0 {
		d.reshuffleAt.Store(now.Add(d.cfg.TurnTimeout()).UnixNano())
	}
}

// testSet resolves the oldest set request, if any.
func (d *Dealer) testSet() {
	req, ok := d.table.NextRequest()
	if !ok {
		return
	}
	p := d.players[req.Player]

	// The player's tokens may have changed since the request was queued.
	if !d.table.Validate(req) {
		d.log.Debug("dropping stale set request", "player", req.Player, "cards", req.Cards)
		d.table.Discard(req.Player)
		p.Wake()
		return
	}

	cards := req.Cards[:]
	if !d.oracle.TestSet(cards) {
		d.log.Info("not a set", "player", p.ID, "cards", cards)
		d.resolve(p, AwardPenalty)
		return
	}

	d.log.Info("set found", "player", p.ID, "cards", cards)
	if d.cfg.ResetCountdownOnSet && len(d.deck) > 0 {
		d.reset = true
	}
	d.resolve(p, AwardPoint)
	d.removeCards(cards)
	d.checkRemainingSets()
}

// resolve awards p before marking it tested so p is already frozen when it may act again.
func (d *Dealer) resolve(p *Player, kind AwardKind) {
	p.Award(kind)
	d.table.MarkTested(p.ID)
	p.Wake()
}

func (d *Dealer) removeCards(cards []int) {
	d.table.CloseGate()
	var slots []int
	for _, c := range cards {
		if slot, ok := d.table.SlotOf(c); ok {
			slots = append(slots, slot)
		}
	}
	rand.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	for _, slot := range slots {
		d.wakeAll(d.table.RemoveCard(slot))
	}
}

// checkRemainingSets ends an untimed game once neither the deck nor the table can form a set.
func (d *Dealer) checkRemainingSets() {
	cards := append(slices.Clone(d.deck), d.table.DealtCards()...)
	if len(d.oracle.FindSets(cards, 1)) > 0 {
		return
	}
	d.log.Info("no sets remain", "cards", len(cards))
	if d.cfg.TurnTimeoutMS <= 0 {
		d.terminate.Store(true)
	}
}

// placeCardsOnTable deals random deck cards onto random empty slots until the
// table is full or the deck is empty, then opens the gate. Nothing is dealt
// once the dealer is terminating.
func (d *Dealer) placeCardsOnTable() {
	if !d.terminate.Load() && d.table.CountCards() < d.table.Size() && len(d.deck) > 0 {
		d.table.CloseGate()
		slots := d.table.EmptySlots()
		rand.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
		for _, slot := range slots {
			if len(d.deck) == 0 {
				break
			}
			i := rand.Intn(len(d.deck))
			if d.table.PlaceCard(d.deck[i], slot) {
				last := len(d.deck) - 1
				d.deck[i] = d.deck[last]
				d.deck = d.deck[:last]
			}
		}
		d.deckLen.Store(int64(len(d.deck)))
	}
	d.table.OpenGate()
}

// removeAllCardsFromTable returns every dealt card to the deck, in random slot order.
func (d *Dealer) removeAllCardsFromTable() {
	d.table.CloseGate()
	for _, slot := range rand.Perm(d.table.Size()) {
		card, ok := d.table.CardAt(slot)
		if !ok {
			continue
		}
		d.deck = append(d.deck, card)
		d.wakeAll(d.table.RemoveCard(slot))
	}
	d.deckLen.Store(int64(len(d.deck)))
	d.reset = true
	d.table.OpenGate()
}

func (d *Dealer) wakeAll(ids []int) {
	for _, id := range ids {
		d.players[id].Wake()
	}
}

// updateTimerDisplay refreshes the round clock and every player's freeze. With
// reset the countdown restarts from the full turn timeout.
func (d *Dealer) updateTimerDisplay(reset bool) {
	now := time.Now()
	switch {
	case d.cfg.TurnTimeoutMS > 0:
		if reset {
			d.resetCountdown()
			d.sink.SetCountdown(d.cfg.TurnTimeout(), false)
			break
		}
		remaining := max(time.Duration(d.reshuffleAt.Load()-now.UnixNano()), 0)
		d.sink.SetCountdown(remaining, remaining < d.cfg.TurnTimeoutWarning())
	case d.cfg.TurnTimeoutMS == 0:
		if reset {
			d.roundStart = now
		}
		d.sink.SetElapsed(now.Sub(d.roundStart))
	}

	for _, p := range d.players {
		if remaining := p.FrozenUntil().Sub(now); remaining > 0 {
			d.sink.SetFreeze(p.ID, remaining+d.cfg.FreezeDisplayPad())
		} else {
			d.sink.SetFreeze(p.ID, 0)
		}
	}
}

// terminatePlayers stops players one at a time, most recently started first,
// waiting for each to exit before signalling the next.
func (d *Dealer) terminatePlayers() {
	d.terminate.Store(true)
	for i := len(d.started) - 1; i >= 0; i-- {
		p := d.started[i]
		p.Terminate()
		p.Wait()
	}
	d.started = nil
}

func (d *Dealer) announceWinners() Result {
	res := Result{Scores: make([]int, len(d.players)), Rounds: int(d.rounds.Load())}
	best := -1
	for i, p := range d.players {
		res.Scores[i] = p.Score()
		best = max(best, res.Scores[i])
	}
	for i, s := range res.Scores {
		if s == best {
			res.Winners = append(res.Winners, d.players[i].ID)
		}
	}
	d.sink.AnnounceWinner(res.Winners)

	d.mu.Lock()
	d.result = &res
	d.mu.Unlock()
	return res
}

// PlayerView returns the view of player id.
func (d *Dealer) PlayerView(id int) (PlayerView, error) {
	if id < 0 || id >= len(d.players) {
		return PlayerView{}, fmt.Errorf("player %d: %w", id, matcherrors.ErrUnknownPlayer)
	}
	return d.players[id].View(), nil
}

// Snapshot returns the current game state. Safe to call from any goroutine.
func (d *Dealer) Snapshot() Snapshot {
	s := Snapshot{
		GameID:   d.ID,
		Rows:     d.cfg.Rows,
		Columns:  d.cfg.Columns,
		Round:    int(d.rounds.Load()) + 1,
		DeckSize: int(d.deckLen.Load()),
		Table:    d.table.View(),
		Players:  make([]PlayerView, len(d.players)),
	}
	for i, p := range d.players {
		s.Players[i] = p.View()
	}
	if d.cfg.TurnTimeoutMS > 0 {
		if at := d.reshuffleAt.Load(); at > 0 {
			s.CountdownMS = max(time.Until(time.Unix(0, at)).Milliseconds(), 0)
		}
	}

	d.mu.Lock()
	if d.result != nil {
		s.Finished = true
		s.Round = d.result.Rounds
		s.Winners = slices.Clone(d.result.Winners)
	}
	d.mu.Unlock()
	return s
}
