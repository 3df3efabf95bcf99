package ui

import (
	"time"

	"set-game-server/game"
)

// Fanout forwards every notification to each of its sinks in order.
type Fanout []game.Sink

var _ game.Sink = Fanout(nil)

func (f Fanout) PlaceCard(card, slot int) {
	for _, s := range f {
		s.PlaceCard(card, slot)
	}
}

func (f Fanout) RemoveCard(slot int) {
	for _, s := range f {
		s.RemoveCard(slot)
	}
}

func (f Fanout) PlaceToken(player, slot int) {
	for _, s := range f {
		s.PlaceToken(player, slot)
	}
}

func (f Fanout) RemoveToken(player, slot int) {
	for _, s := range f {
		s.RemoveToken(player, slot)
	}
}

func (f Fanout) SetScore(player, score int) {
	for _, s := range f {
		s.SetScore(player, score)
	}
}

func (f Fanout) SetCountdown(remaining time.Duration, warn bool) {
	for _, s := range f {
		s.SetCountdown(remaining, warn)
	}
}

func (f Fanout) SetElapsed(elapsed time.Duration) {
	for _, s := range f {
		s.SetElapsed(elapsed)
	}
}

func (f Fanout) SetFreeze(player int, remaining time.Duration) {
	for _, s := range f {
		s.SetFreeze(player, remaining)
	}
}

func (f Fanout) AnnounceWinner(players []int) {
	for _, s := range f {
		s.AnnounceWinner(players)
	}
}
