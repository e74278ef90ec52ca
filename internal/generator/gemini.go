package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

var errEmptyCandidate = errors.New("no candidate text returned")

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini API backed completer.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	return NewGeminiClientWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

// NewGeminiClientWithConfig creates a completer from a full genai config,
// e.g. to point HTTPOptions.BaseURL at a proxy.
func NewGeminiClientWithConfig(ctx context.Context, cfg *genai.ClientConfig, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

// Name returns the backend label used in logs.
func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Complete asks the model for plain text, passing System as the system instruction.
func (g *GeminiClient) Complete(ctx context.Context, req Completion) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return "", &TransportError{Backend: g.Name(), Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &TransportError{Backend: g.Name(), Err: errEmptyCandidate}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &TransportError{Backend: g.Name(), Err: errEmptyCandidate}
	}
	return sb.String(), nil
}
