// Package llm provides a small client for OpenAI-compatible chat completion APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoChoices is returned when the API answers without any completion choice.
var ErrNoChoices = errors.New("llm: no completion choices returned")

// Client produces a single completion for a request.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Request is a two-message chat completion request.
type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// Purpose labels the call in logs and metrics, e.g. "plan" or "notes".
	Purpose string
	// SchemaName and Schema request structured JSON output when Schema is set.
	SchemaName string
	Schema     map[string]any
}

// Response is the first completion choice.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	Attempts     int
}

// APIError is a non-success response from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm returned status %d: %s", e.StatusCode, e.Message)
}
