package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset returns the limiter to its initial full state
	Reset()
}

// TokenBucket is a token bucket limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	limit rate.Limit
	burst int
	inner *rate.Limiter
}

// NewTokenBucket allows capacity requests per period, with bursts up to
// capacity
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	limit := rate.Limit(float64(capacity) / period.Seconds())
	return &TokenBucket{
		limit: limit,
		burst: capacity,
		inner: rate.NewLimiter(limit, capacity),
	}
}

// NewPerMinute allows n requests per minute with a burst of one, which
// spaces page fetches evenly
func NewPerMinute(n int) *TokenBucket {
	if n < 1 {
		n = 1
	}
	limit := rate.Every(time.Minute / time.Duration(n))
	return &TokenBucket{limit: limit, burst: 1, inner: rate.NewLimiter(limit, 1)}
}

func (tb *TokenBucket) Allow() bool {
	return tb.inner.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.inner.Wait(ctx)
}

func (tb *TokenBucket) Reset() {
	tb.inner = rate.NewLimiter(tb.limit, tb.burst)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

// Pacer enforces a fixed pause after an action, such as a paid API call
type Pacer interface {
	Pause(ctx context.Context) error
}

// FixedDelay pauses for a constant duration. A zero delay returns
// immediately.
type FixedDelay time.Duration

func (d FixedDelay) Pause(ctx context.Context) error {
	return Sleep(ctx, time.Duration(d))
}

// Sleep waits for d or until ctx is done, whichever comes first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
