package governance

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig paces outbound requests with a token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the refill rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the bucket capacity. Defaults to one second worth of tokens.
	Burst int `yaml:"burst"`
}

// Limiter blocks callers until a token is available. A nil *Limiter never blocks.
type Limiter struct {
	mu         sync.Mutex
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewLimiter creates a limiter, or nil when the config disables limiting.
func NewLimiter(config RateLimitConfig) *Limiter {
	if config.RequestsPerSecond <= 0 {
		return nil
	}
	burst := float64(config.Burst)
	if burst <= 0 {
		burst = config.RequestsPerSecond
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:       config.RequestsPerSecond,
		capacity:   burst,
		tokens:     burst,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait takes one token, sleeping until one is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	for {
		delay := l.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long until one refills.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.lastRefill).Seconds() * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now

	if l.tokens >= 1 {
		l.tokens--
		return 0
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second))
}
