// Package api provides the HTTP surface of the coaching service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/persona-coach/internal/dialogue"
	"github.com/ashureev/persona-coach/internal/domain"
	"github.com/ashureev/persona-coach/internal/middleware"
	"github.com/ashureev/persona-coach/internal/session"
)

const (
	maxBodyBytes          = 64 << 10
	defaultRequestTimeout = 2 * time.Minute
)

// SessionStore owns live sessions.
type SessionStore interface {
	Create() *dialogue.Session
	Get(id string) (*dialogue.Session, error)
	Delete(id string) error
}

// CompanyCatalog lists the companies a persona can study.
type CompanyCatalog interface {
	Search(term, category string) []domain.Company
	Categories() []string
}

// Options tunes a Handler. Zero values are usable.
type Options struct {
	Limiter        *middleware.RateLimiter
	Watchers       *Watchers
	AllowedOrigins []string
	// RequestTimeout bounds one suggestion or company selection, including
	// generation. The work continues if the client disconnects.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler serves the catalog and session routes.
type Handler struct {
	sessions       SessionStore
	catalog        CompanyCatalog
	limiter        *middleware.RateLimiter
	watchers       *Watchers
	originPatterns []string
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(sessions SessionStore, catalog CompanyCatalog, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Watchers == nil {
		opts.Watchers = NewWatchers(logger)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Handler{
		sessions:       sessions,
		catalog:        catalog,
		limiter:        opts.Limiter,
		watchers:       opts.Watchers,
		originPatterns: originPatterns(opts.AllowedOrigins),
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
	}
}

// RegisterRoutes mounts all API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.listCompanies)
		r.Get("/catalog/categories", h.listCategories)

		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Post("/persona", h.submitPersona)
			r.Post("/company", h.selectCompany)
			r.Post("/reset", h.resetSession)
			r.Get("/watch", h.watchSession)

			if h.limiter != nil {
				r.With(middleware.RateLimit(h.limiter, sessionKey)).Post("/suggestions", h.submitSuggestion)
			} else {
				r.Post("/suggestions", h.submitSuggestion)
			}
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain and engine errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var eerr *dialogue.EngineError

	switch {
	case errors.As(err, &verr):
		JSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, dialogue.ErrEmptySuggestion):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound), errors.Is(err, dialogue.ErrUnknownCompany):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dialogue.ErrWrongStep),
		errors.Is(err, dialogue.ErrSessionEnded),
		errors.Is(err, dialogue.ErrBusy),
		errors.Is(err, dialogue.ErrSessionReset):
		Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &eerr):
		h.logger.Error("Generation failed", "path", r.URL.Path, "op", eerr.Op, "error", eerr.Err)
		Error(w, http.StatusBadGateway, "the persona could not respond, please try again")
	default:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// workContext detaches generation from the client connection so a reload
// does not abort a reply that watchers are waiting for.
func (h *Handler) workContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.requestTimeout)
}

func sessionKey(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// originPatterns converts allowed origins to websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}
