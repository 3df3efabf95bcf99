package ui

import (
	"log/slog"
	"sync"
	"time"

	"set-game-server/game"
)

// LogSink renders game notifications as log lines. Board changes are logged
// at debug level; scores and winners at info. Timer updates arrive every tick,
// so they are only logged when the displayed whole second changes.
type LogSink struct {
	log   *slog.Logger
	names func(player int) string

	mu        sync.Mutex
	countdown int64
	elapsed   int64
	freezes   map[int]int64
}

// NewLogSink returns a LogSink. names maps a player id to a display name and may be nil.
func NewLogSink(names func(player int) string) *LogSink {
	return &LogSink{
		log:       slog.With("tag", "ui"),
		names:     names,
		countdown: -1,
		elapsed:   -1,
		freezes:   make(map[int]int64),
	}
}

var _ game.Sink = (*LogSink)(nil)

func (s *LogSink) name(player int) string {
	if s.names == nil {
		return ""
	}
	return s.names(player)
}

func (s *LogSink) PlaceCard(card, slot int) {
	s.log.Debug("card placed", "card", card, "slot", slot)
}

func (s *LogSink) RemoveCard(slot int) {
	s.log.Debug("card removed", "slot", slot)
}

func (s *LogSink) PlaceToken(player, slot int) {
	s.log.Debug("token placed", "player", player, "slot", slot)
}

func (s *LogSink) RemoveToken(player, slot int) {
	s.log.Debug("token removed", "player", player, "slot", slot)
}

func (s *LogSink) SetScore(player, score int) {
	s.log.Info("score", "player", player, "name", s.name(player), "score", score)
}

// seconds rounds d up, so a countdown shows 1 until it actually reaches zero.
func seconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func (s *LogSink) SetCountdown(remaining time.Duration, warn bool) {
	sec := seconds(remaining)
	s.mu.Lock()
	changed := sec != s.countdown
	s.countdown = sec
	s.mu.Unlock()
	if !changed {
		return
	}
	if warn {
		s.log.Info("countdown", "remaining", sec, "warn", true)
		return
	}
	s.log.Debug("countdown", "remaining", sec)
}

func (s *LogSink) SetElapsed(elapsed time.Duration) {
	sec := int64(elapsed / time.Second)
	s.mu.Lock()
	changed := sec != s.elapsed
	s.elapsed = sec
	s.mu.Unlock()
	if changed {
		s.log.Debug("elapsed", "seconds", sec)
	}
}

func (s *LogSink) SetFreeze(player int, remaining time.Duration) {
	sec := seconds(remaining)
	s.mu.Lock()
	prev, seen := s.freezes[player]
	s.freezes[player] = sec
	s.mu.Unlock()
	if seen && prev == sec {
		return
	}
	if sec > 0 {
		s.log.Debug("frozen", "player", player, "remaining", sec)
	}
}

func (s *LogSink) AnnounceWinner(players []int) {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, s.name(p))
	}
	if len(players) == 1 {
		s.log.Info("winner", "player", players[0], "name", names[0])
		return
	}
	s.log.Info("it is a draw", "players", players, "names", names)
}
