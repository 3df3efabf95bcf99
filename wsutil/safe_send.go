package wsutil

import "log/slog"

// SafeSend offers data to ch without blocking and reports whether it was
// queued. A full channel drops the message; a closed one is recovered from,
// since spectators may disconnect while a broadcast is in flight.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("send on closed channel", "tag", "wsutil", "panic", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
