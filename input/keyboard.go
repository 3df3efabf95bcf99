package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode"

	"set-game-server/game"
	"set-game-server/matcherrors"
)

// Press is one key bound to a player's slot.
type Press struct {
	Player int
	Slot   int
}

// Keymap maps a key to the press it triggers. Keys are stored lower-case.
type Keymap map[rune]Press

// NewKeymap binds keys[p][s] to slot s of player p. A key bound twice is an error.
func NewKeymap(keys []string) (Keymap, error) {
	km := make(Keymap)
	for player, row := range keys {
		for slot, key := range []rune(row) {
			key = unicode.ToLower(key)
			if prev, ok := km[key]; ok {
				return nil, fmt.Errorf("key %q for player %d slot %d already bound to player %d slot %d: %w",
					key, player, slot, prev.Player, prev.Slot, matcherrors.ErrKeyConflict)
			}
			km[key] = Press{Player: player, Slot: slot}
		}
	}
	return km, nil
}

// Run reads keys from r and forwards each bound one to its player's keypad
// until r is exhausted or ctx is cancelled. Unbound keys are ignored.
func Run(ctx context.Context, r io.Reader, km Keymap, pads []game.Keypad) error {
	log := slog.With("tag", "input")
	keys := make(chan rune)
	errc := make(chan error, 1)

	// The read cannot be interrupted, so it gets its own goroutine.
	go func() {
		br := bufio.NewReader(r)
		for {
			key, _, err := br.ReadRune()
			if err != nil {
				errc <- err
				return
			}
			select {
			case keys <- key:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				log.Info("input closed")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		case key := <-keys:
			press, ok := km[unicode.ToLower(key)]
			if !ok || press.Player >= len(pads) {
				continue
			}
			if !pads[press.Player].KeyPressed(press.Slot) {
				log.Debug("key dropped", "player", press.Player, "slot", press.Slot)
			}
		}
	}
}
