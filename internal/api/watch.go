package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/persona-coach/internal/dialogue"
)

const watchWriteTimeout = 10 * time.Second

type watchEvent struct {
	Type  string            `json:"type"`
	State dialogue.Snapshot `json:"state"`
}

// watchSession streams the session snapshot on connect and after every change.
// Client messages are ignored.
func (h *Handler) watchSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept websocket", "session_id", id, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "watch ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "session_id", id, "error", closeErr)
		}
	}()

	h.watchers.Register(id, ws)
	defer h.watchers.Unregister(id, ws)

	ctx := ws.CloseRead(r.Context())
	for {
		// Take the channel before the snapshot so no change is missed.
		changed := s.Changed()
		if err := h.sendState(ctx, ws, s.Snapshot()); err != nil {
			h.logger.Debug("Watcher write failed", "session_id", id, "error", err)
			return
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sendState(ctx context.Context, ws *websocket.Conn, snap dialogue.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, watchEvent{Type: "state", State: snap})
}
