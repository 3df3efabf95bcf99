package game

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"set-game-server/config"
)

// MaxPendingActions bounds the presses a player has accepted but not yet applied.
const MaxPendingActions = 3

// AwardKind is the dealer's verdict on a player's set.
type AwardKind int

const (
	AwardPoint AwardKind = iota
	AwardPenalty
)

// String returns the log representation of an AwardKind.
func (k AwardKind) String() string {
	switch k {
	case AwardPoint:
		return "point"
	case AwardPenalty:
		return "penalty"
	default:
		return "unknown"
	}
}

// Player is one seat at the table, run as its own goroutine. Computer players
// also run an Autopilot goroutine that presses keys for them.
type Player struct {
	ID   int
	Name string

	table         *Table
	sink          Sink
	autopilot     Autopilot
	pointFreeze   time.Duration
	penaltyFreeze time.Duration
	log           *slog.Logger

	actions chan int
	// wake holds at most one signal, so a wake sent between the loop's
	// emptiness check and its wait is never lost.
	wake chan struct{}

	mu          sync.Mutex
	score       int
	frozenUntil time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// NewPlayer creates a player. A nil autopilot makes it a human player fed by
// an input source through KeyPressed.
func NewPlayer(id int, name string, cfg *config.Config, table *Table, sink Sink, autopilot Autopilot) *Player {
	if sink == nil {
		sink = NopSink{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		ID:            id,
		Name:          name,
		table:         table,
		sink:          sink,
		autopilot:     autopilot,
		pointFreeze:   cfg.PointFreeze(),
		penaltyFreeze: cfg.PenaltyFreeze(),
		log:           slog.With("tag", "player", "player", id),
		actions:       make(chan int, MaxPendingActions),
		wake:          make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

// Human reports whether the player is driven by real input.
func (p *Player) Human() bool { return p.autopilot == nil }

// Start launches the player goroutine. Later calls do nothing.
func (p *Player) Start() {
	if p.started.Swap(true) {
		return
	}
	go p.run()
}

// Terminate asks the player to stop and interrupts any wait or freeze.
func (p *Player) Terminate() {
	p.cancel()
}

// Wait blocks until the player goroutine, and its autopilot, have exited.
// It returns at once for a player that was never started.
func (p *Player) Wait() {
	if !p.started.Load() {
		return
	}
	<-p.done
}

// Wake nudges the player loop to re-check its state.
func (p *Player) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Player) run() {
	defer close(p.done)
	p.log.Info("player starting", "name", p.Name, "human", p.Human())

	var pilotDone chan struct{}
	if p.autopilot != nil {
		pilotDone = make(chan struct{})
		go func() {
			defer close(pilotDone)
			p.autopilot.Drive(p.ctx, p)
		}()
	}

	for p.ctx.Err() == nil {
		p.step()
	}

	if pilotDone != nil {
		<-pilotDone
	}
	p.log.Info("player terminated", "name", p.Name, "score", p.Score())
}

// step is one pass of the player loop: apply at most one press, serve a
// freeze, otherwise sleep until something changes.
func (p *Player) step() {
	if !p.frozen() && p.table.CanAct(p.ID) {
		select {
		case slot := <-p.actions:
			p.table.KeyPressed(p.ID, slot)
		default:
		}
	}

	if d := p.freezeRemaining(); d > 0 {
		p.sleep(d)
		return
	}

	if len(p.actions) > 0 && p.table.CanAct(p.ID) {
		return
	}
	select {
	case <-p.wake:
	case <-p.ctx.Done():
	}
}

func (p *Player) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.ctx.Done():
	}
}

// KeyPressed queues a press on slot. It is dropped, returning false, while the
// gate is closed, while the player is frozen, or when the queue is full.
func (p *Player) KeyPressed(slot int) bool {
	if !p.table.ValidSlot(slot) {
		return false
	}
	accepted := p.table.Admit(func() bool {
		if p.frozen() {
			return false
		}
		select {
		case p.actions <- slot:
			return true
		default:
			return false
		}
	})
	if accepted {
		p.Wake()
	}
	return accepted
}

// Award applies the dealer's verdict: a point scores and freezes for the point
// freeze, a penalty freezes for the penalty freeze.
func (p *Player) Award(kind AwardKind) {
	now := time.Now()

	p.mu.Lock()
	switch kind {
	case AwardPoint:
		p.score++
		p.frozenUntil = now.Add(p.pointFreeze)
	case AwardPenalty:
		p.frozenUntil = now.Add(p.penaltyFreeze)
	}
	score := p.score
	p.mu.Unlock()

	if kind == AwardPoint {
		p.sink.SetScore(p.ID, score)
	}
	p.log.Debug("awarded", "kind", kind, "score", score)
	p.Wake()
}

// Score returns the player's points.
func (p *Player) Score() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

// FrozenUntil returns the end of the current freeze; zero or past means not frozen.
func (p *Player) FrozenUntil() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozenUntil
}

func (p *Player) freezeRemaining() time.Duration {
	return time.Until(p.FrozenUntil())
}

func (p *Player) frozen() bool {
	return p.freezeRemaining() > 0
}

// PendingActions returns the number of accepted presses not yet applied.
func (p *Player) PendingActions() int {
	return len(p.actions)
}

// Tokens returns the slots the player holds.
func (p *Player) Tokens() []int {
	return p.table.Tokens(p.ID)
}

// View returns the client-facing state of the player.
func (p *Player) View() PlayerView {
	v := PlayerView{
		ID:      p.ID,
		Name:    p.Name,
		Human:   p.Human(),
		Score:   p.Score(),
		Tokens:  p.Tokens(),
		Pending: p.PendingActions(),
	}
	if d := p.freezeRemaining(); d > 0 {
		v.FrozenMS = d.Milliseconds()
	}
	if v.Tokens == nil {
		v.Tokens = []int{}
	}
	return v
}
