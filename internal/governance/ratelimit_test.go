package governance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Burst(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := NewLimiter(RateLimitConfig{RequestsPerSecond: 2, Burst: 3})
	require.NotNil(t, l)
	l.now = clock.now
	l.lastRefill = clock.t

	for i := 0; i < 3; i++ {
		assert.Zero(t, l.reserve(), "token %d", i)
	}
	assert.Equal(t, 500*time.Millisecond, l.reserve())

	clock.advance(500 * time.Millisecond)
	assert.Zero(t, l.reserve())
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(RateLimitConfig{RequestsPerSecond: 100, Burst: 1})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	slow := NewLimiter(RateLimitConfig{RequestsPerSecond: 0.01, Burst: 1})
	require.NoError(t, slow.Wait(ctx))
	cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.Wait(cancelled), context.DeadlineExceeded)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(RateLimitConfig{})
	assert.Nil(t, l)
	assert.NoError(t, l.Wait(context.Background()))
}
