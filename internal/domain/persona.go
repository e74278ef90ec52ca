// Package domain contains the core value types for persona coaching sessions.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Persona is the simulated learner whose questions drive a session.
// A Persona is never mutated after NewPersona returns it.
type Persona struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Background string   `json:"background"`
	Expertise  []string `json:"expertise"`
}

// ValidationError reports persona form fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// NewPersona validates form input and builds a Persona with a fresh ID.
// Name, role and background are required; blank expertise entries are dropped.
func NewPersona(name, role, background string, expertise []string) (Persona, error) {
	name = strings.TrimSpace(name)
	role = strings.TrimSpace(role)
	background = strings.TrimSpace(background)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if background == "" {
		missing = append(missing, "background")
	}
	if len(missing) > 0 {
		return Persona{}, &ValidationError{Fields: missing}
	}

	cleaned := make([]string, 0, len(expertise))
	for _, item := range expertise {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}

	return Persona{
		ID:         uuid.NewString(),
		Name:       name,
		Role:       role,
		Background: background,
		Expertise:  cleaned,
	}, nil
}

// ParseExpertise splits the comma-separated expertise form field.
func ParseExpertise(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// HasExpertise returns true if the persona listed at least one expertise area.
func (p Persona) HasExpertise() bool {
	return len(p.Expertise) > 0
}

// Clone returns a copy that shares no slice memory with p.
func (p Persona) Clone() Persona {
	p.Expertise = append([]string(nil), p.Expertise...)
	return p
}
