// Package dialogue implements the persona coaching state machine:
// persona -> company -> chat, with a suggestion/response loop in chat.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/persona-coach/internal/domain"
	"github.com/ashureev/persona-coach/internal/generator"
)

// Generator produces persona questions and reactions.
type Generator interface {
	Question(ctx context.Context, persona domain.Persona, company domain.Company, history []domain.Message) (string, error)
	Response(ctx context.Context, persona domain.Persona, company domain.Company, history []domain.Message) (generator.Reply, error)
}

// Catalog resolves company selections.
type Catalog interface {
	Find(id string) (domain.Company, error)
}

// Recorder receives every message appended to a session log.
// Implementations must not block.
type Recorder interface {
	Record(sessionID string, msg domain.Message)
}

// Snapshot is a read-only copy of session state for rendering.
type Snapshot struct {
	ID               string           `json:"id"`
	Step             domain.Step      `json:"step"`
	Persona          *domain.Persona  `json:"persona"`
	Company          *domain.Company  `json:"company"`
	Messages         []domain.Message `json:"messages"`
	Active           bool             `json:"active"`
	AwaitingResponse bool             `json:"awaiting_response"`
	Version          uint64           `json:"version"`
}

// Session owns the state of one coaching run. It is safe for concurrent use;
// at most one generation runs at a time and the lock is never held across it.
type Session struct {
	id       string
	gen      Generator
	catalog  Catalog
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	step     domain.Step
	persona  *domain.Persona
	company  *domain.Company
	messages []domain.Message
	active   bool
	awaiting bool
	epoch    uint64 // bumped by Reset to orphan in-flight generations
	version  uint64
	changed  chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder attaches a transcript recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a session at the persona step.
func NewSession(id string, gen Generator, catalog Catalog, opts ...Option) *Session {
	s := &Session{
		id:      id,
		gen:     gen,
		catalog: catalog,
		logger:  slog.Default(),
		now:     time.Now,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", id)
	s.resetLocked()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SubmitPersona validates the persona form and advances to company selection.
func (s *Session) SubmitPersona(name, role, background string, expertise []string) (domain.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != domain.StepPersona {
		return domain.Persona{}, fmt.Errorf("submit persona in step %s: %w", s.step, ErrWrongStep)
	}

	persona, err := domain.NewPersona(name, role, background, expertise)
	if err != nil {
		return domain.Persona{}, err
	}

	s.persona = &persona
	s.step = domain.StepCompany
	s.notifyLocked()

	s.logger.Info("Persona created", "persona_id", persona.ID, "role", persona.Role, "expertise", len(persona.Expertise))
	return persona.Clone(), nil
}

// SelectCompany picks the product and opens the chat with the persona's
// first question. On failure nothing is appended and the step stays company.
func (s *Session) SelectCompany(ctx context.Context, companyID string) error {
	s.mu.Lock()
	if s.step != domain.StepCompany {
		step := s.step
		s.mu.Unlock()
		return fmt.Errorf("select company in step %s: %w", step, ErrWrongStep)
	}
	if s.awaiting {
		s.mu.Unlock()
		return ErrBusy
	}
	company, err := s.catalog.Find(companyID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrUnknownCompany, err)
	}
	persona := s.persona.Clone()
	epoch := s.epoch
	s.awaiting = true
	s.notifyLocked()
	s.mu.Unlock()

	question, genErr := s.gen.Question(ctx, persona, company, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSessionReset
	}
	s.awaiting = false
	if genErr != nil {
		s.notifyLocked()
		s.logger.Error("Failed to generate opening question", "company_id", company.ID, "error", genErr)
		return &EngineError{Op: "opening question", Err: genErr}
	}

	s.company = &company
	s.step = domain.StepChat
	s.appendLocked(domain.KindSystem, startMessage(persona, company), domain.StatusNone)
	s.appendLocked(domain.KindPersonaQuestion, question, domain.StatusNone)
	s.notifyLocked()

	s.logger.Info("Chat started", "company_id", company.ID, "product", company.Product)
	return nil
}

// SubmitSuggestion appends the user's advice and runs the response flow:
// needs_more asks a follow-up, satisfied ends the session, unclear waits.
func (s *Session) SubmitSuggestion(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptySuggestion
	}

	s.mu.Lock()
	if err := s.checkChatLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.appendLocked(domain.KindUserSuggestion, text, domain.StatusNone)
	s.awaiting = true
	persona, company, history, epoch := s.persona.Clone(), *s.company, s.historyLocked(), s.epoch
	s.notifyLocked()
	s.mu.Unlock()

	reply, err := s.gen.Response(ctx, persona, company, history)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSessionReset
	}
	if err == nil && !reply.Status.Valid() {
		err = fmt.Errorf("invalid status %q", reply.Status)
	}
	if err != nil {
		s.awaiting = false
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Error("Failed to generate persona response", "error", err)
		return &EngineError{Op: "response", Err: err}
	}

	s.appendLocked(domain.KindPersonaResponse, reply.Content, reply.Status)
	s.logger.Info("Suggestion evaluated", "status", reply.Status, "messages", len(s.messages))

	switch reply.Status {
	case domain.StatusSatisfied:
		s.active = false
		s.awaiting = false
		s.appendLocked(domain.KindSystem, completionMessage(persona, company), domain.StatusNone)
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Info("Session completed")
		return nil
	case domain.StatusUnclear:
		s.awaiting = false
		s.notifyLocked()
		s.mu.Unlock()
		return nil
	case domain.StatusNeedsMore, domain.StatusNone:
	}

	history = s.historyLocked()
	s.notifyLocked()
	s.mu.Unlock()

	question, err := s.gen.Question(ctx, persona, company, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSessionReset
	}
	s.awaiting = false
	if err != nil {
		s.notifyLocked()
		s.logger.Error("Failed to generate follow-up question", "error", err)
		return &EngineError{Op: "follow-up question", Err: err}
	}
	s.appendLocked(domain.KindPersonaQuestion, question, domain.StatusNone)
	s.notifyLocked()
	return nil
}

// Reset wipes all state back to the persona step.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.resetLocked()
	s.notifyLocked()
	s.logger.Info("Session reset")
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		Step:             s.step,
		Messages:         s.historyLocked(),
		Active:           s.active,
		AwaitingResponse: s.awaiting,
		Version:          s.version,
	}
	if s.persona != nil {
		p := s.persona.Clone()
		snap.Persona = &p
	}
	if s.company != nil {
		c := *s.company
		snap.Company = &c
	}
	return snap
}

// Changed returns a channel that is closed on the next state change.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Session) checkChatLocked() error {
	if s.step != domain.StepChat {
		return fmt.Errorf("submit suggestion in step %s: %w", s.step, ErrWrongStep)
	}
	if !s.active {
		return ErrSessionEnded
	}
	if s.awaiting {
		return ErrBusy
	}
	return nil
}

func (s *Session) resetLocked() {
	s.step = domain.StepPersona
	s.persona = nil
	s.company = nil
	s.messages = []domain.Message{}
	s.active = true
	s.awaiting = false
}

func (s *Session) appendLocked(kind domain.MessageKind, content string, status domain.Status) {
	msg := domain.NewMessage(kind, content, status, s.now())
	s.messages = append(s.messages, msg)
	if s.recorder != nil {
		s.recorder.Record(s.id, msg)
	}
}

func (s *Session) historyLocked() []domain.Message {
	return append([]domain.Message{}, s.messages...)
}

func (s *Session) notifyLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func startMessage(persona domain.Persona, company domain.Company) string {
	return fmt.Sprintf("Session started: %s (%s) will ask questions about %s from %s. Provide helpful suggestions to assist them.",
		persona.Name, persona.Role, company.Product, company.Name)
}

func completionMessage(persona domain.Persona, company domain.Company) string {
	return fmt.Sprintf("Session completed! %s feels confident about using %s. Great job providing helpful suggestions!",
		persona.Name, company.Product)
}
