package uploaders

import (
	"context"
	"time"
)

// Poller runs a fixed-interval status check up to MaxAttempts times.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int

	// Sleep is injectable for tests; nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poll calls check until it reports done, fails, or the attempt budget
// runs out (ErrContainerTimeout). No sleep follows the last attempt.
func (p Poller) Poll(ctx context.Context, check func(ctx context.Context, attempt int) (bool, error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return ErrContainerTimeout
}
