package uploaders

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestPollerFinishesAfterKAttempts(t *testing.T) {
	p := Poller{Interval: time.Second, MaxAttempts: 10, Sleep: noSleep}

	calls := 0
	err := p.Poll(context.Background(), func(_ context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("Poll() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("check called %d times, want 3", calls)
	}
}

func TestPollerTimesOut(t *testing.T) {
	p := Poller{Interval: time.Second, MaxAttempts: 4, Sleep: noSleep}

	calls := 0
	err := p.Poll(context.Background(), func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrContainerTimeout) {
		t.Fatalf("Poll() = %v, want ErrContainerTimeout", err)
	}
	if calls != 4 {
		t.Errorf("check called %d times, want 4", calls)
	}
}

func TestPollerStopsOnError(t *testing.T) {
	p := Poller{Interval: time.Second, MaxAttempts: 10, Sleep: noSleep}

	boom := errors.New("container failed")
	calls := 0
	err := p.Poll(context.Background(), func(_ context.Context, _ int) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Poll() = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Errorf("check called %d times, want 1", calls)
	}
}
