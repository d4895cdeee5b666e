package domain

import "errors"

// Common domain errors
var (
	ErrInvalidRequest = errors.New("invalid plan request")
	ErrInvalidPlan    = errors.New("invalid curriculum plan")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrLLMUnavailable = errors.New("llm unavailable")
)

// Error codes carried by DomainError.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidPlan    = "INVALID_PLAN"
	CodeLLMFailed      = "LLM_FAILED"
	CodeOutputFailed   = "OUTPUT_FAILED"
)

// DomainError wraps errors with additional context.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

// NewError builds a DomainError for the given code.
func NewError(code string, err error, message string) *DomainError {
	return &DomainError{Err: err, Code: code, Message: message}
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err == nil {
		return e.Code
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the machine-readable error written by the CLI in --json-only mode.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}
