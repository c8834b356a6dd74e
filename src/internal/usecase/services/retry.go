package services

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy bounds the automatic resubmission of a transfer after a
// transport failure.
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the +/- fraction applied to each backoff, 0.0 to 1.0.
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 5 * time.Second,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = def.AttemptTimeout
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		p.Jitter = def.Jitter
	}
	return p
}

// backoff returns the wait before retry number n (1-based).
func (p RetryPolicy) backoff(n int) time.Duration {
	wait := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(n-1))
	if wait > float64(p.MaxBackoff) {
		wait = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (rand.Float64()*2 - 1)
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
