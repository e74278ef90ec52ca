// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Generator providers.
const (
	ProviderOllama   = "ollama"
	ProviderGemini   = "gemini"
	ProviderTemplate = "template"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	CatalogPath    string // empty = built-in sample catalog
	GRPCHealthAddr string // empty = health server disabled
	Generator      GeneratorConfig
	Sessions       SessionConfig
	RateLimit      RateLimitConfig
	Transcript     TranscriptConfig
}

// GeneratorConfig selects and tunes the text generation backend.
type GeneratorConfig struct {
	Provider      string
	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
}

// SessionConfig bounds the in-memory session registry.
type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

// RateLimitConfig limits suggestions per session.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// TranscriptConfig controls NDJSON conversation logging.
type TranscriptConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		CatalogPath:    getEnv("CATALOG_PATH", ""),
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ""),
		Generator: GeneratorConfig{
			Provider:      strings.ToLower(strings.TrimSpace(getEnv("GENERATOR_PROVIDER", ProviderOllama))),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "qwen2.5:0.5b"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:       getEnvDuration("GENERATE_TIMEOUT", 30*time.Second),
		},
		Sessions: SessionConfig{
			TTL:         getEnvDuration("SESSION_TTL", 30*time.Minute),
			MaxSessions: getEnvInt("MAX_SESSIONS", 1000),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Transcript: TranscriptConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Generator.Provider {
	case ProviderOllama:
		if c.Generator.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL cannot be empty")
		}
	case ProviderGemini:
		if c.Generator.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when GENERATOR_PROVIDER=gemini")
		}
	case ProviderTemplate:
	default:
		return fmt.Errorf("GENERATOR_PROVIDER must be one of ollama, gemini, template; got %q", c.Generator.Provider)
	}
	if c.Generator.Timeout <= 0 {
		return fmt.Errorf("GENERATE_TIMEOUT must be > 0")
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.Transcript.GlobalEnabled && c.Transcript.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
