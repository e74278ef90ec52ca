// Package generator produces persona questions and reactions, preferring an
// external text model and falling back to canned templates.
package generator

import (
	"context"
	"fmt"
)

// Completion is a single non-streaming text generation request.
type Completion struct {
	Prompt string
	System string
}

// Completer defines the interface for an external text generation backend.
type Completer interface {
	// Complete returns generated text or a *TransportError.
	Complete(ctx context.Context, req Completion) (string, error)

	// Name identifies the backend in logs.
	Name() string
}

// TransportError covers every way a completion call can fail: network,
// non-200 status, or an undecodable payload.
type TransportError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
