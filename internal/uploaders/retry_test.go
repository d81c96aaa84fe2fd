package uploaders

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyBackoff(t *testing.T) {
	tests := []struct {
		name    string
		rand    float64
		attempt int
		want    time.Duration
	}{
		{name: "first attempt full jitter", rand: 1.0, attempt: 1, want: 2 * time.Second},
		{name: "third attempt half jitter", rand: 0.5, attempt: 3, want: 4 * time.Second},
		{name: "zero jitter", rand: 0, attempt: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RetryPolicy{MaxRetries: 10, Rand: func() float64 { return tt.rand }}
			if got := p.Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyWaitExhaustion(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{
		MaxRetries: 3,
		Rand:       func() float64 { return 1.0 },
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	ctx := context.Background()
	for attempt := 1; attempt <= 3; attempt++ {
		if err := p.Wait(ctx, attempt); err != nil {
			t.Fatalf("Wait(%d) = %v, want nil", attempt, err)
		}
	}
	if err := p.Wait(ctx, 4); !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Wait(4) = %v, want ErrRetriesExhausted", err)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(slept), len(want))
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestRetryPolicyWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxRetries: 5, Rand: func() float64 { return 0.001 }}
	if err := p.Wait(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait on cancelled context = %v, want context.Canceled", err)
	}
}
