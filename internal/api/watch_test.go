package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/persona-coach/internal/generator"
)

func TestWatchStreamsStateChanges(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, generator.New(nil, generator.WithRand(fixedRand(0))), nil)
	_, created := srv.do(t, http.MethodPost, "/api/sessions", nil)
	id := created["id"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/watch"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var ev watchEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if ev.Type != "state" || ev.State.Step != "persona" {
		t.Fatalf("unexpected initial event %+v", ev)
	}

	srv.do(t, http.MethodPost, "/api/sessions/"+id+"/persona", map[string]string{
		"name": "Alex", "role": "Analyst", "background": "Finance",
	})

	for ev.State.Step != "company" {
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			t.Fatalf("read update: %v", err)
		}
	}
	if ev.State.Persona == nil || ev.State.Persona.Name != "Alex" {
		t.Fatalf("expected persona in streamed state, got %+v", ev.State.Persona)
	}
}

func TestWatchClosedWhenSessionDeleted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, generator.New(nil), nil)
	_, created := srv.do(t, http.MethodPost, "/api/sessions", nil)
	id := created["id"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/watch"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var ev watchEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	resp, _ := srv.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if err := wsjson.Read(ctx, conn, &ev); websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestWatchUnknownSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, generator.New(nil), nil)
	resp, _ := srv.do(t, http.MethodGet, "/api/sessions/missing/watch", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
