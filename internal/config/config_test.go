package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("PORT", "8080")
	t.Setenv("GENERATOR_PROVIDER", "ollama")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CONVERSATION_LOG_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Generator.Provider != ProviderOllama {
		t.Errorf("expected ollama provider, got %q", cfg.Generator.Provider)
	}
	if cfg.Sessions.TTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", cfg.Sessions.TTL)
	}
	if cfg.Transcript.Enabled {
		t.Error("transcript logging should be disabled")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("expected wildcard origin in development, got %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GENERATOR_PROVIDER", " Template ")
	t.Setenv("GENERATE_TIMEOUT", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "2m")
	t.Setenv("MAX_SESSIONS", "3")
	t.Setenv("FRONTEND_URL", "https://coach.example.com/, https://admin.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Generator.Provider != ProviderTemplate {
		t.Errorf("expected template provider, got %q", cfg.Generator.Provider)
	}
	if cfg.Generator.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Generator.Timeout)
	}
	if cfg.RateLimit.Window != 2*time.Minute {
		t.Errorf("expected 2m window, got %s", cfg.RateLimit.Window)
	}
	if cfg.Sessions.MaxSessions != 3 {
		t.Errorf("expected 3 sessions, got %d", cfg.Sessions.MaxSessions)
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "https://coach.example.com" || origins[1] != "https://admin.example.com" {
		t.Errorf("unexpected origins %v", origins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		errSub string
	}{
		{name: "unknown provider", env: map[string]string{"GENERATOR_PROVIDER": "openai"}, errSub: "GENERATOR_PROVIDER"},
		{name: "gemini without key", env: map[string]string{"GENERATOR_PROVIDER": "gemini", "GEMINI_API_KEY": ""}, errSub: "GEMINI_API_KEY"},
		{name: "zero sessions", env: map[string]string{"GENERATOR_PROVIDER": "template", "MAX_SESSIONS": "0"}, errSub: "MAX_SESSIONS"},
		{name: "negative ttl", env: map[string]string{"GENERATOR_PROVIDER": "template", "SESSION_TTL": "-1m"}, errSub: "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("expected error mentioning %s, got %v", tt.errSub, err)
			}
		})
	}
}

func TestGetEnvDurationFallback(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	if got := getEnvDuration("SOME_DURATION", time.Second); got != time.Second {
		t.Errorf("expected fallback, got %s", got)
	}
}
