package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"set-game-server/game"
	"set-game-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// broadcastBuffer bounds the events queued between the game and the hub loop.
const broadcastBuffer = 256

// SnapshotSource provides the state sent to a newly connected spectator.
type SnapshotSource interface {
	Snapshot() game.Snapshot
}

// Hub maintains the set of connected spectators and broadcasts game events to
// them. It implements game.Sink; its Sink methods never block.
type Hub struct {
	// Source must be set before Run is started.
	Source SnapshotSource

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	log        *slog.Logger

	// Timer events arrive every tick; only whole-second changes are sent.
	mu        sync.Mutex
	countdown int64
	elapsed   int64
	freezes   map[int]int64
}

var _ game.Sink = (*Hub)(nil)

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		log:        slog.With("tag", "ws"),
		countdown:  -1,
		elapsed:    -1,
		freezes:    make(map[int]int64),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled Run disconnects every spectator and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.log.Info("shutdown signal received, stopping", "clients", len(h.clients))
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.Info("spectator connected", "clients", len(h.clients))
			if h.Source != nil {
				if data, ok := h.marshal(SnapshotMsg{Type: "snapshot", State: h.Source.Snapshot()}); ok {
					wsutil.SafeSend(c.Send, data)
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				h.log.Info("spectator disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !wsutil.SafeSend(c.Send, msg) {
					// Too slow to keep up; the next connect resyncs from a snapshot.
					delete(h.clients, c)
					close(c.Send)
					h.log.Warn("dropping slow spectator", "clients", len(h.clients))
				}
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and registers a new spectator.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) marshal(v any) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode message", "err", err)
		return nil, false
	}
	return data, true
}

// emit queues v for every spectator, dropping it if the hub is backed up.
func (h *Hub) emit(v any) {
	data, ok := h.marshal(v)
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Debug("broadcast queue full, dropping event")
	}
}

// wholeSeconds rounds d up, so a countdown shows 1 until it reaches zero.
func wholeSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func (h *Hub) PlaceCard(card, slot int) {
	h.emit(CardMsg{Type: "card_placed", Card: card, Slot: slot})
}

func (h *Hub) RemoveCard(slot int) {
	h.emit(SlotMsg{Type: "card_removed", Slot: slot})
}

func (h *Hub) PlaceToken(player, slot int) {
	h.emit(TokenMsg{Type: "token_placed", Player: player, Slot: slot})
}

func (h *Hub) RemoveToken(player, slot int) {
	h.emit(TokenMsg{Type: "token_removed", Player: player, Slot: slot})
}

func (h *Hub) SetScore(player, score int) {
	h.emit(ScoreMsg{Type: "score", Player: player, Score: score})
}

func (h *Hub) SetCountdown(remaining time.Duration, warn bool) {
	sec := wholeSeconds(remaining)
	h.mu.Lock()
	changed := sec != h.countdown
	h.countdown = sec
	h.mu.Unlock()
	if changed {
		h.emit(CountdownMsg{Type: "countdown", Seconds: sec, Warn: warn})
	}
}

func (h *Hub) SetElapsed(elapsed time.Duration) {
	sec := int64(elapsed / time.Second)
	h.mu.Lock()
	changed := sec != h.elapsed
	h.elapsed = sec
	h.mu.Unlock()
	if changed {
		h.emit(ElapsedMsg{Type: "elapsed", Seconds: sec})
	}
}

func (h *Hub) SetFreeze(player int, remaining time.Duration) {
	sec := wholeSeconds(remaining)
	h.mu.Lock()
	prev, seen := h.freezes[player]
	h.freezes[player] = sec
	h.mu.Unlock()
	if (!seen && sec == 0) || (seen && prev == sec) {
		return
	}
	h.emit(FreezeMsg{Type: "freeze", Player: player, Seconds: sec})
}

func (h *Hub) AnnounceWinner(players []int) {
	h.emit(WinnersMsg{Type: "winners", Players: players})
}
