package governance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	// ErrPermanent marks a failure that must not be retried.
	ErrPermanent = errors.New("permanent failure")
)

// RetryConfig defines retry behavior for outbound calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	// Jitter adds up to 25% randomness to each backoff.
	Jitter bool `yaml:"jitter"`
	// RetryableStatusCodes defines which HTTP status codes should trigger retries.
	RetryableStatusCodes map[int]bool `yaml:"-"`
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableStatusCodes: map[int]bool{
			http.StatusRequestTimeout:      true, // 408
			http.StatusTooManyRequests:     true, // 429
			http.StatusInternalServerError: true, // 500
			http.StatusBadGateway:          true, // 502
			http.StatusServiceUnavailable:  true, // 503
			http.StatusGatewayTimeout:      true, // 504
		},
	}
}

// RetryPolicy determines if a call should be retried and how long to wait.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 5 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = DefaultRetryConfig().RetryableStatusCodes
	}

	return &RetryPolicy{config: config}
}

// ShouldRetry reports whether another attempt should follow the given outcome.
func (rp *RetryPolicy) ShouldRetry(statusCode int, err error, attempt int) bool {
	if attempt >= rp.config.MaxRetries {
		return false
	}

	if err != nil {
		if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
			return false
		}
		return statusCode == 0 || rp.config.RetryableStatusCodes[statusCode]
	}

	if statusCode > 0 {
		return rp.config.RetryableStatusCodes[statusCode]
	}

	return false
}

// CalculateBackoff returns the delay before the next retry attempt.
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(float64(rp.config.InitialBackoff) * math.Pow(rp.config.BackoffMultiplier, float64(attempt)))

	if backoff > rp.config.MaxBackoff {
		backoff = rp.config.MaxBackoff
	}

	if rp.config.Jitter && backoff >= 4 {
		// #nosec G404 - Non-cryptographic random is acceptable for jitter
		backoff += time.Duration(rand.Int63n(int64(backoff / 4)))
	}

	return backoff
}

// ExecuteWithRetry runs fn until it succeeds, fails permanently, or the retry
// budget is spent. fn reports the HTTP status it observed (0 when none) and an error.
func (rp *RetryPolicy) ExecuteWithRetry(ctx context.Context, fn func(ctx context.Context) (int, error)) (int, error) {
	var lastErr error
	var statusCode int

	for attempt := 0; attempt <= rp.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		statusCode, lastErr = fn(ctx)

		if lastErr == nil && (statusCode == 0 || (statusCode >= 200 && statusCode < 300)) {
			return statusCode, nil
		}

		if !rp.ShouldRetry(statusCode, lastErr, attempt) {
			break
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(rp.CalculateBackoff(attempt)):
		}
	}

	if lastErr != nil {
		if errors.Is(lastErr, ErrPermanent) {
			return statusCode, lastErr
		}
		return statusCode, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
	}
	return statusCode, fmt.Errorf("%w: status %d", ErrMaxRetriesExceeded, statusCode)
}

// Permanent wraps err so ExecuteWithRetry stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsRetryableError determines if an error looks like a transient transport failure.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"temporary failure",
		"EOF",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
