package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces requests to a single price provider across all workers.
// A nil *Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a Limiter allowing perSecond requests per second with a burst of one.
// A perSecond of zero or less means no limit.
func New(perSecond float64) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, 1)}
}

// Unlimited reports whether the limiter lets every request through immediately
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limiter.Limit() == rate.Inf
}

// Wait blocks until the limiter permits a request.
// It returns an error if the context is canceled before the request can proceed.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}
