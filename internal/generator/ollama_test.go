package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaClientComplete(t *testing.T) {
	t.Parallel()

	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Where do I find the sharing settings?","done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", "tiny", srv.Client())
	text, err := c.Complete(context.Background(), Completion{Prompt: "p", System: "s"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Where do I find the sharing settings?" {
		t.Errorf("unexpected text %q", text)
	}
	if got.Model != "tiny" || got.Prompt != "p" || got.System != "s" || got.Stream {
		t.Errorf("unexpected request payload: %+v", got)
	}
}

func TestOllamaClientFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"model not loaded"}`, wantStatus: 500},
		{name: "malformed json", status: http.StatusOK, body: `not json`},
		{name: "missing response", status: http.StatusOK, body: `{"done":true}`},
		{name: "api error", status: http.StatusOK, body: `{"error":"bad model"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaClient(srv.URL, "", srv.Client()).Complete(context.Background(), Completion{Prompt: "p"})
			var terr *TransportError
			if !errors.As(err, &terr) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if terr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, terr.StatusCode)
			}
		})
	}
}

func TestOllamaClientUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaClient(url, "", nil).Complete(context.Background(), Completion{Prompt: "p"})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.Backend != "ollama:"+DefaultOllamaModel {
		t.Errorf("unexpected backend %q", terr.Backend)
	}
}

func TestGeneratorFallsBackOnOllamaOutage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := New(NewOllamaClient(srv.URL, "", srv.Client()), WithLogger(quietLogger()))
	got, err := g.Question(context.Background(), testPersona, testCompany, nil)
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if got != render(questionTemplates[0], testPersona, testCompany) {
		t.Errorf("expected template fallback, got %q", got)
	}
}
