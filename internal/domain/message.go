package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageKind identifies who produced a message and why.
type MessageKind string

const (
	// KindSystem is a session announcement.
	KindSystem MessageKind = "system"
	// KindPersonaQuestion is a question asked by the persona.
	KindPersonaQuestion MessageKind = "persona_question"
	// KindUserSuggestion is advice typed by the user.
	KindUserSuggestion MessageKind = "user_suggestion"
	// KindPersonaResponse is the persona's reaction to a suggestion.
	KindPersonaResponse MessageKind = "persona_response"
)

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case KindSystem, KindPersonaQuestion, KindUserSuggestion, KindPersonaResponse:
		return true
	}
	return false
}

// Status classifies how well a suggestion answered the persona.
type Status string

const (
	// StatusNone marks messages that carry no status.
	StatusNone Status = ""
	// StatusSatisfied ends the session.
	StatusSatisfied Status = "satisfied"
	// StatusNeedsMore triggers a follow-up question.
	StatusNeedsMore Status = "needs_more"
	// StatusUnclear leaves the previous question open.
	StatusUnclear Status = "unclear"
)

// Valid reports whether s is a real outcome. StatusNone is not.
func (s Status) Valid() bool {
	switch s {
	case StatusSatisfied, StatusNeedsMore, StatusUnclear:
		return true
	}
	return false
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return StatusNone, fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Step is the position of a session in the persona -> company -> chat flow.
type Step string

const (
	StepPersona Step = "persona"
	StepCompany Step = "company"
	StepChat    Step = "chat"
)

// Message is a single immutable entry in a session log.
type Message struct {
	ID        string      `json:"id"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Status    Status      `json:"status,omitempty"`
}

// NewMessage builds a message with a time-ordered ID.
// Status is only kept for persona responses.
func NewMessage(kind MessageKind, content string, status Status, now time.Time) Message {
	if kind != KindPersonaResponse {
		status = StatusNone
	}
	return Message{
		ID:        newMessageID(),
		Kind:      kind,
		Content:   content,
		Timestamp: now,
		Status:    status,
	}
}

// UUIDv7 embeds a millisecond timestamp plus a monotonic counter, so IDs
// sort in creation order within the process.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// LastSuggestion returns the most recent user suggestion in history.
func LastSuggestion(history []Message) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Kind == KindUserSuggestion {
			return history[i], true
		}
	}
	return Message{}, false
}

// CountKind returns how many messages of the given kind appear in history.
func CountKind(history []Message, kind MessageKind) int {
	n := 0
	for _, m := range history {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
