package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/polisai/educator-agent/internal/governance"
	"github.com/polisai/educator-agent/pkg/telemetry"
)

const (
	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second

	maxErrorMessage = 200
	maxBodyBytes   = 4 << 20
)

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey    string                     `yaml:"-"`
	BaseURL   string                     `yaml:"base_url"`
	Timeout   time.Duration              `yaml:"timeout"`
	Retry     governance.RetryConfig     `yaml:"retry"`
	Breaker   governance.BreakerConfig   `yaml:"breaker"`
	RateLimit governance.RateLimitConfig `yaml:"rate_limit"`
}

// OpenAI calls POST {base}/chat/completions.
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      *governance.RetryPolicy
	breaker    *governance.Breaker
	limiter    *governance.Limiter
	logger     *slog.Logger
}

// NewOpenAI builds a client. A nil logger falls back to slog.Default().
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAI{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      governance.NewRetryPolicy(cfg.Retry),
		breaker:    governance.NewBreaker(cfg.Breaker),
		limiter:    governance.NewLimiter(cfg.RateLimit),
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request, retrying transient failures.
func (c *OpenAI) Complete(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("llm: request is required")
	}

	payload := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.User})
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		payload.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchemaSpec{Name: name, Schema: req.Schema, Strict: true},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: encode request: %w", err)
	}

	start := time.Now()
	attempts := 0
	var completion chatResponse
	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := c.retry.ExecuteWithRetry(ctx, func(ctx context.Context) (int, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, governance.Permanent(err)
			}
			attempts++
			status, err := c.do(ctx, body, &completion)
			if err != nil {
				c.logger.Debug("llm request attempt failed", "purpose", req.Purpose, "attempt", attempts, "status", status, "error", err)
			}
			return status, err
		})
		return err
	})

	outcome := telemetry.OutcomeSuccess
	defer func() {
		telemetry.RecordLLMCall(ctx, telemetry.LLMCall{
			Model:    req.Model,
			Purpose:  req.Purpose,
			Outcome:  outcome,
			Duration: time.Since(start),
			Attempts: attempts,
		})
	}()

	if err != nil {
		outcome = telemetry.OutcomeError
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		outcome = telemetry.OutcomeError
		return nil, ErrNoChoices
	}

	choice := completion.Choices[0]
	c.logger.Debug("llm request completed",
		"purpose", req.Purpose,
		"model", completion.Model,
		"attempts", attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Response{
		Content:      choice.Message.Content,
		Model:        completion.Model,
		FinishReason: choice.FinishReason,
		Attempts:     attempts,
	}, nil
}

func (c *OpenAI) do(ctx context.Context, body []byte, out *chatResponse) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return 0, governance.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || !governance.IsRetryableError(err) {
			return 0, governance.Permanent(err)
		}
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		return resp.StatusCode, apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, governance.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
