// Package ratelimit throttles outbound calls to price feeds on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

// Limiter is a token bucket.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate disables throttling.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available. A cancelled context is reported
// as apperror.CodeRateLimitExceeded.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeRateLimitExceeded, apperror.WithContext("outbound"), apperror.WithCause(err))
	}
	return nil
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Keyed hands out one Limiter per key, e.g. per upstream host or symbol.
type Keyed struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewKeyed creates a Keyed set whose limiters share rps and burst.
func NewKeyed(requestsPerSecond float64, burst int) *Keyed {
	return &Keyed{
		rps:      requestsPerSecond,
		burst:    burst,
		limiters: make(map[string]*Limiter),
	}
}

// For returns the limiter for key, creating it on first use.
func (k *Keyed) For(key string) *Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		l = New(k.rps, k.burst)
		k.limiters[key] = l
	}
	return l
}

// Wait blocks on the limiter for key.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	return k.For(key).Wait(ctx)
}
