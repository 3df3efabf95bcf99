package ai

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"set-game-server/config"
	"set-game-server/game"
)

const defaultPeriod = 10 * time.Millisecond

// Board is the read-only view of the table a profile with SetChance inspects.
type Board interface {
	// SlotCards returns the card per slot, -1 when empty.
	SlotCards() []int
}

// Autopilot drives a computer player by pressing slots through the player's
// Keypad, on a fixed period.
type Autopilot struct {
	Profile config.AIParams

	tableSize int
	board     Board
	oracle    game.Oracle
	log       *slog.Logger

	// plan holds the remaining slots of a set being pressed. Only Drive touches it.
	plan []int
}

// New creates an autopilot for a table of tableSize slots. board and oracle
// may be nil, in which case the profile only presses random slots.
func New(profile config.AIParams, tableSize int, board Board, oracle game.Oracle) *Autopilot {
	return &Autopilot{
		Profile:   profile,
		tableSize: tableSize,
		board:     board,
		oracle:    oracle,
		log:       slog.With("tag", "ai", "profile", profile.Name),
	}
}

func (a *Autopilot) period() time.Duration {
	if a.Profile.PeriodMS <= 0 {
		return defaultPeriod
	}
	return time.Duration(a.Profile.PeriodMS) * time.Millisecond
}

// Drive presses one slot per period while the keypad has room for it, until
// ctx is cancelled.
func (a *Autopilot) Drive(ctx context.Context, pad game.Keypad) {
	if a.tableSize <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(a.period())
	defer ticker.Stop()

	a.log.Debug("autopilot starting", "period", a.period(), "set_chance", a.Profile.SetChance)
	for {
		select {
		case <-ctx.Done():
			a.log.Debug("autopilot stopped")
			return
		case <-ticker.C:
		}
		if pad.PendingActions() >= game.MaxPendingActions {
			continue
		}

		if len(a.plan) == 0 && len(pad.Tokens()) == 0 && pad.PendingActions() == 0 && a.rollSet() {
			a.plan = a.findSet()
		}

		slot := rand.Intn(a.tableSize)
		planned := len(a.plan) > 0
		if planned {
			slot, a.plan = a.plan[0], a.plan[1:]
		}
		if !pad.KeyPressed(slot) && planned {
			// The table moved on; fall back to random presses.
			a.plan = nil
		}
	}
}

func (a *Autopilot) rollSet() bool {
	chance := min(max(a.Profile.SetChance, 0), 100)
	if chance == 0 || a.board == nil || a.oracle == nil {
		return false
	}
	return rand.Intn(100) < chance
}

// findSet returns the slots of one set on the table, or nil.
func (a *Autopilot) findSet() []int {
	slotOf := make(map[int]int)
	var cards []int
	for slot, card := range a.board.SlotCards() {
		if card >= 0 {
			cards = append(cards, card)
			slotOf[card] = slot
		}
	}
	sets := a.oracle.FindSets(cards, 1)
	if len(sets) == 0 {
		return nil
	}
	slots := make([]int, 0, len(sets[0]))
	for _, card := range sets[0] {
		slots = append(slots, slotOf[card])
	}
	a.log.Debug("pressing a known set", "slots", slots)
	return slots
}
