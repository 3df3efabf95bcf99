package input

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"set-game-server/game"
	"set-game-server/matcherrors"
)

type recordingPad struct {
	mu      sync.Mutex
	presses []int
}

func (p *recordingPad) KeyPressed(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presses = append(p.presses, slot)
	return true
}

func (p *recordingPad) PendingActions() int { return 0 }

func (p *recordingPad) Tokens() []int { return nil }

func TestNewKeymap(t *testing.T) {
	km, err := NewKeymap([]string{"qwer", "UIOP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		key  rune
		want Press
	}{
		{'q', Press{0, 0}},
		{'r', Press{0, 3}},
		{'u', Press{1, 0}},
		{'p', Press{1, 3}},
	}
	for _, tt := range tests {
		if got, ok := km[tt.key]; !ok || got != tt.want {
			t.Errorf("key %q: expected %+v, got %+v (bound=%v)", tt.key, tt.want, got, ok)
		}
	}
	if len(km) != 8 {
		t.Errorf("expected 8 keys, got %d", len(km))
	}
}

func TestNewKeymapConflict(t *testing.T) {
	tests := [][]string{
		{"qwer", "asdq"},
		{"qwqr"},
		{"abc", "ABd"},
	}
	for _, keys := range tests {
		if _, err := NewKeymap(keys); !errors.Is(err, matcherrors.ErrKeyConflict) {
			t.Errorf("%v: expected ErrKeyConflict, got %v", keys, err)
		}
	}
}

func TestRunForwardsBoundKeys(t *testing.T) {
	km, err := NewKeymap([]string{"qwer", "uiop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p0, p1 := &recordingPad{}, &recordingPad{}

	err = Run(context.Background(), strings.NewReader("qx\nRuP?w"), km, []game.Keypad{p0, p1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p0.presses; len(got) != 3 || got[0] != 0 || got[1] != 3 || got[2] != 1 {
		t.Errorf("player 0: expected [0 3 1], got %v", got)
	}
	if got := p1.presses; len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Errorf("player 1: expected [0 3], got %v", got)
	}
}

func TestRunSkipsPlayersWithoutPad(t *testing.T) {
	km, _ := NewKeymap([]string{"a", "b"})
	p0 := &recordingPad{}

	if err := Run(context.Background(), strings.NewReader("ab"), km, []game.Keypad{p0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p0.presses) != 1 {
		t.Errorf("expected 1 press, got %v", p0.presses)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	km, _ := NewKeymap([]string{"a"})
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, pr, km, []game.Keypad{&recordingPad{}}) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReportsReadErrors(t *testing.T) {
	km, _ := NewKeymap([]string{"a"})
	pr, pw := io.Pipe()
	pw.CloseWithError(errors.New("tty gone"))

	err := Run(context.Background(), pr, km, nil)
	if err == nil || !strings.Contains(err.Error(), "tty gone") {
		t.Errorf("expected read error, got %v", err)
	}
}
