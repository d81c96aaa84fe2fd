package uploaders

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy implements exponential backoff with jitter for transient
// upload failures: sleep rand() * 2^attempt seconds, up to MaxRetries
// attempts.
type RetryPolicy struct {
	MaxRetries int

	// Rand and Sleep are injectable for tests; nil means math/rand and
	// a context-aware time.Sleep.
	Rand  func() float64
	Sleep func(ctx context.Context, d time.Duration) error
}

// Backoff returns the jittered delay for the given attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	randFn := p.Rand
	if randFn == nil {
		randFn = rand.Float64
	}
	secs := randFn() * math.Pow(2, float64(attempt))
	return time.Duration(secs * float64(time.Second))
}

// Wait sleeps before retry number attempt (1-based). It returns
// ErrRetriesExhausted once attempt exceeds MaxRetries, and the context
// error if the job is cancelled mid-sleep.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	if attempt > p.MaxRetries {
		return ErrRetriesExhausted
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return sleep(ctx, p.Backoff(attempt))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
