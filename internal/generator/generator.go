package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/persona-coach/internal/classifier"
	"github.com/ashureev/persona-coach/internal/domain"
)

const (
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second

	// Generated text shorter than this is treated as a failed call.
	minGeneratedLength = 20
)

// Reply is the persona's reaction to the latest suggestion.
type Reply struct {
	Content string
	Status  domain.Status
}

// Generator produces persona text. The completer is optional; without one
// every call is answered from templates.
type Generator struct {
	completer Completer
	rng       classifier.Rand
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the randomness used for classification and template picks.
func WithRand(rng classifier.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithTimeout sets the per-call completion timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Generator. completer may be nil.
func New(completer Completer, opts ...Option) *Generator {
	g := &Generator{
		completer: completer,
		rng:       classifier.DefaultRand,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backend names the completer in use, or "template".
func (g *Generator) Backend() string {
	if g.completer == nil {
		return "template"
	}
	return g.completer.Name()
}

// Question returns the persona's next question. Completion failures fall back
// to templates; the only error is cancellation of ctx.
func (g *Generator) Question(ctx context.Context, persona domain.Persona, company domain.Company, history []domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tier := tierFor(history)
	text, ok, err := g.complete(ctx, Completion{
		Prompt: questionPrompt(tier, persona, company),
		System: questionSystem(persona, company),
	})
	if err != nil {
		return "", err
	}
	if ok {
		return text, nil
	}
	return g.templateQuestion(tier, persona, company), nil
}

func (g *Generator) templateQuestion(tier questionTier, persona domain.Persona, company domain.Company) string {
	var template string
	switch tier {
	case tierIntro:
		template = questionTemplates[0]
	case tierDaily:
		template = questionTemplates[dailyFirst+g.rng.IntN(dailyCount)]
	case tierAdvanced:
		template = questionTemplates[advancedFirst+g.rng.IntN(len(questionTemplates)-advancedFirst)]
	}

	question := render(template, persona, company)
	if persona.HasExpertise() {
		question += expertiseClause(persona)
	}
	return question
}

// Response classifies the latest suggestion and returns the persona's reaction.
// With no suggestion in history it answers unclear without calling the completer.
func (g *Generator) Response(ctx context.Context, persona domain.Persona, company domain.Company, history []domain.Message) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	suggestion, found := domain.LastSuggestion(history)
	if !found {
		return Reply{Content: NoSuggestionReply, Status: domain.StatusUnclear}, nil
	}

	status := classifier.Classify(suggestion.Content, company.Product, g.rng)
	templates, err := responseTemplates(status)
	if err != nil {
		return Reply{}, err
	}

	content, ok, err := g.complete(ctx, Completion{
		Prompt: responsePrompt(company, suggestion.Content),
		System: responseSystem(persona, company, suggestion.Content),
	})
	if err != nil {
		return Reply{}, err
	}
	if !ok {
		content = render(templates[g.rng.IntN(len(templates))], persona, company)
	}

	if status == domain.StatusNeedsMore {
		content += followUps[g.rng.IntN(len(followUps))]
	}
	return Reply{Content: content, Status: status}, nil
}

// complete runs one completion attempt. ok is false when the caller should
// use a template. err is only set when ctx itself is done.
func (g *Generator) complete(ctx context.Context, req Completion) (string, bool, error) {
	if g.completer == nil {
		return "", false, nil
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.completer.Complete(callCtx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		attrs := []any{"backend", g.completer.Name(), "duration", time.Since(start), "error", err}
		var terr *TransportError
		if errors.As(err, &terr) && terr.StatusCode != 0 {
			attrs = append(attrs, "status", terr.StatusCode)
		}
		g.logger.Warn("Completion failed, using template", attrs...)
		return "", false, nil
	}

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < minGeneratedLength {
		g.logger.Debug("Completion too short, using template", "backend", g.completer.Name(), "length", n)
		return "", false, nil
	}
	return text, true, nil
}
