package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"set-game-server/game"
	"set-game-server/matcherrors"
)

// GameView is what the handlers need from the running game.
type GameView interface {
	Snapshot() game.Snapshot
	PlayerView(id int) (game.PlayerView, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Game GameView
	log  *slog.Logger
}

// NewHandler creates a new API handler serving g.
func NewHandler(g GameView) *Handler {
	return &Handler{
		Game: g,
		log:  slog.With("tag", "api"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.State)
	mux.HandleFunc("/api/players/{id}", h.Player)
	mux.HandleFunc("/health", Health)
}

// CORS sets CORS headers on the response. Call before writing body.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// allowGet handles CORS preflight and rejects anything but GET. It reports
// whether the handler should go on.
func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if CORS(w, r) {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to encode response", "err", err)
	}
}

// State returns the full game snapshot.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	h.writeJSON(w, h.Game.Snapshot())
}

// Player returns one player's view; unknown ids are 404.
func (h *Handler) Player(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}
	view, err := h.Game.PlayerView(id)
	if errors.Is(err, matcherrors.ErrUnknownPlayer) {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("PlayerView", "player", id, "err", err)
		http.Error(w, "failed to load player", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, view)
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}
