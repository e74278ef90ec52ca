package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultOllamaURL is the local Ollama daemon address.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is a small model that runs on a laptop.
	DefaultOllamaModel = "qwen2.5:0.5b"

	maxResponseBodySize = 1 << 20
)

var errMissingResponse = errors.New("response field missing")

// OllamaClient calls the Ollama /api/generate endpoint.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response *string `json:"response"`
	Error    string  `json:"error,omitempty"`
}

// NewOllamaClient creates a client. Empty arguments fall back to defaults.
// Timeouts are applied per call by the Generator, not by httpClient.
func NewOllamaClient(baseURL, model string, httpClient *http.Client) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

// Name returns the backend label used in logs.
func (c *OllamaClient) Name() string { return "ollama:" + c.model }

// Complete sends a single generate request. There is no retry.
func (c *OllamaClient) Complete(ctx context.Context, req Completion) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	})
	if err != nil {
		return "", c.fail(0, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", c.fail(0, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", c.fail(0, fmt.Errorf("call generate: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", c.fail(0, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.fail(resp.StatusCode, fmt.Errorf("body: %s", truncate(string(data), 200)))
	}

	var out ollamaResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", c.fail(0, fmt.Errorf("parse response: %w", err))
	}
	if out.Error != "" {
		return "", c.fail(0, fmt.Errorf("api error: %s", out.Error))
	}
	if out.Response == nil {
		return "", c.fail(0, errMissingResponse)
	}
	return *out.Response, nil
}

func (c *OllamaClient) fail(status int, err error) error {
	return &TransportError{Backend: c.Name(), StatusCode: status, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
