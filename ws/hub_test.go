package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"set-game-server/game"
)

type fixedSource struct{ s game.Snapshot }

func (f fixedSource) Snapshot() game.Snapshot { return f.s }

// startHub runs a hub behind an httptest server until the test ends.
func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	hub.Source = fixedSource{game.Snapshot{GameID: "g-1", Rows: 3, Columns: 4}}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

func TestSpectatorReceivesSnapshotThenEvents(t *testing.T) {
	hub, server := startHub(t)
	conn := connectWS(t, server)

	msg := readMsg(t, conn)
	if msg["type"] != "snapshot" {
		t.Fatalf("expected snapshot, got %v", msg["type"])
	}
	state, ok := msg["state"].(map[string]interface{})
	if !ok || state["gameId"] != "g-1" {
		t.Fatalf("expected state for g-1, got %v", msg["state"])
	}

	hub.PlaceCard(17, 4)
	msg = readMsg(t, conn)
	if msg["type"] != "card_placed" || msg["card"] != float64(17) || msg["slot"] != float64(4) {
		t.Errorf("unexpected card_placed message: %v", msg)
	}

	hub.SetScore(1, 3)
	msg = readMsg(t, conn)
	if msg["type"] != "score" || msg["player"] != float64(1) || msg["score"] != float64(3) {
		t.Errorf("unexpected score message: %v", msg)
	}

	hub.AnnounceWinner([]int{0, 1})
	msg = readMsg(t, conn)
	if msg["type"] != "winners" {
		t.Errorf("expected winners, got %v", msg["type"])
	}
}

func TestSpectatorMessagesAreRejected(t *testing.T) {
	_, server := startHub(t)
	conn := connectWS(t, server)
	readMsg(t, conn) // snapshot

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"key","slot":3}`)); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Errorf("expected error, got %v", msg["type"])
	}
}

func TestEveryTimerEventIsThrottledToSeconds(t *testing.T) {
	hub := NewHub()

	hub.SetCountdown(59900*time.Millisecond, false)
	hub.SetCountdown(59200*time.Millisecond, false)
	hub.SetCountdown(58800*time.Millisecond, false)
	hub.SetElapsed(300 * time.Millisecond)
	hub.SetElapsed(900 * time.Millisecond)
	hub.SetFreeze(0, 0)
	hub.SetFreeze(0, 2500*time.Millisecond)
	hub.SetFreeze(0, 2100*time.Millisecond)
	hub.SetFreeze(0, 0)

	var types []string
	for len(hub.broadcast) > 0 {
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(<-hub.broadcast, &msg); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		types = append(types, msg.Type)
	}
	want := []string{"countdown", "countdown", "elapsed", "freeze", "freeze"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, types)
	}
}

func TestSinkNeverBlocks(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.PlaceToken(0, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink blocked without a running hub")
	}
	if n := len(hub.broadcast); n != broadcastBuffer {
		t.Errorf("expected %d queued events, got %d", broadcastBuffer, n)
	}
}

func TestShutdownClosesSpectators(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	conn := connectWS(t, server)
	cancel()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				t.Error("expected the hub to close the connection")
			}
			return
		}
	}
}
