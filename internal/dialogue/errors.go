package dialogue

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongStep is returned when an action does not belong to the current step.
	ErrWrongStep = errors.New("action not allowed in current step")
	// ErrSessionEnded is returned for suggestions after the persona is satisfied.
	ErrSessionEnded = errors.New("session has ended")
	// ErrBusy is returned while another generation is in flight.
	ErrBusy = errors.New("still waiting for the persona to respond")
	// ErrEmptySuggestion is returned for blank suggestions.
	ErrEmptySuggestion = errors.New("suggestion is empty")
	// ErrUnknownCompany is returned when the selected company is not in the catalog.
	ErrUnknownCompany = errors.New("unknown company")
	// ErrSessionReset is returned when a reset discarded an in-flight generation.
	ErrSessionReset = errors.New("session was reset during generation")
)

// EngineError is an unexpected failure while producing persona content.
// The log is left as it was before the failing step.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
