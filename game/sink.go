package game

import (
	"context"
	"time"
)

// Sink receives one-way presentation notifications. Table operations call it
// while holding their locks, so implementations must return quickly and must
// not call back into the Table.
type Sink interface {
	PlaceCard(card, slot int)
	RemoveCard(slot int)
	PlaceToken(player, slot int)
	RemoveToken(player, slot int)
	SetScore(player, score int)
	SetCountdown(remaining time.Duration, warn bool)
	SetElapsed(elapsed time.Duration)
	SetFreeze(player int, remaining time.Duration)
	AnnounceWinner(players []int)
}

// Oracle decides which card triples are sets. It is consumed, never mutated.
type Oracle interface {
	TestSet(cards []int) bool
	FindSets(cards []int, limit int) [][]int
	CardToFeatures(card int) []int
	CardsToFeatures(cards []int) [][]int
}

// Keypad is the input surface an Autopilot drives.
type Keypad interface {
	// KeyPressed submits a slot through the same admission path as real input.
	KeyPressed(slot int) bool
	// PendingActions is the number of accepted presses not yet applied.
	PendingActions() int
	// Tokens returns the slots the player currently holds.
	Tokens() []int
}

// Autopilot synthesizes key presses for a computer player. Drive returns once
// ctx is cancelled.
type Autopilot interface {
	Drive(ctx context.Context, pad Keypad)
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) PlaceCard(card, slot int) {}
func (NopSink) RemoveCard(slot int) {}
func (NopSink) PlaceToken(player, slot int) {}
func (NopSink) RemoveToken(player, slot int) {}
func (NopSink) SetScore(player, score int) {}
func (NopSink) SetCountdown(time.Duration, bool) {}
func (NopSink) SetElapsed(time.Duration) {}
func (NopSink) SetFreeze(player int, rem time.Duration) {}
func (NopSink) AnnounceWinner(players []int) {}
