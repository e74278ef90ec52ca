// Persona Coach - practice explaining products to simulated learners.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/persona-coach/internal/api"
	"github.com/ashureev/persona-coach/internal/catalog"
	"github.com/ashureev/persona-coach/internal/config"
	"github.com/ashureev/persona-coach/internal/dialogue"
	"github.com/ashureev/persona-coach/internal/generator"
	"github.com/ashureev/persona-coach/internal/health"
	"github.com/ashureev/persona-coach/internal/middleware"
	"github.com/ashureev/persona-coach/internal/session"
	"github.com/ashureev/persona-coach/internal/transcript"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "provider", cfg.Generator.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	companies, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog loaded", "companies", len(companies.All()))

	completer, err := newCompleter(ctx, cfg.Generator)
	if err != nil {
		slog.Error("Failed to initialize generator backend", "error", err)
		os.Exit(1)
	}
	gen := generator.New(completer,
		generator.WithTimeout(cfg.Generator.Timeout),
		generator.WithLogger(logger),
	)
	slog.Info("Generator ready", "backend", gen.Backend(), "timeout", cfg.Generator.Timeout)

	recorder, err := transcript.New(transcript.Config{
		Enabled:       cfg.Transcript.Enabled,
		Dir:           cfg.Transcript.Dir,
		GlobalEnabled: cfg.Transcript.GlobalEnabled,
		GlobalPath:    cfg.Transcript.GlobalPath,
		QueueSize:     cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartEviction(ctx)

	watchers := api.NewWatchers(logger)
	registry := session.NewRegistry(func(id string) *dialogue.Session {
		return dialogue.NewSession(id, gen, companies,
			dialogue.WithRecorder(recorder),
			dialogue.WithLogger(logger),
		)
	}, session.Config{
		MaxSessions: cfg.Sessions.MaxSessions,
		TTL:         cfg.Sessions.TTL,
		Logger:      logger,
		OnRelease: func(id string) {
			watchers.CloseSession(id)
			limiter.Forget(id)
			recorder.Release(id)
		},
	})
	defer registry.Close()

	handler := api.NewHandler(registry, companies, api.Options{
		Limiter:        limiter,
		Watchers:       watchers,
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: 4 * cfg.Generator.Timeout,
		Logger:         logger,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	handler.RegisterRoutes(r)

	// WriteTimeout stays 0: watch connections are long-lived.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	var healthSrv *health.Server
	if cfg.GRPCHealthAddr != "" {
		healthSrv = health.New(logger)
		if _, err := healthSrv.Start(cfg.GRPCHealthAddr); err != nil {
			slog.Error("Failed to start health server", "error", err)
			os.Exit(1)
		}
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()
	if healthSrv != nil {
		healthSrv.SetServing(true)
	}

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")
	if healthSrv != nil {
		healthSrv.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

// newCompleter returns nil for the template provider, which makes the
// generator answer from templates only.
func newCompleter(ctx context.Context, cfg config.GeneratorConfig) (generator.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return generator.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, nil), nil
	case config.ProviderGemini:
		c, err := generator.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}
