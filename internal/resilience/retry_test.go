package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("flaky"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	calls := 0
	wantErr := errors.New("permanent")
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return NewTransientError(errors.New("still down"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastConfig(5), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("down"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ShouldRetryOverride(t *testing.T) {
	cfg := fastConfig(3)
	cfg.ShouldRetry = func(err error) bool { return true }

	calls := 0
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("normally not retried")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls with override, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	cfg := fastConfig(3)
	var attempts []int
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(errors.New("down"), 500)
	})
	if len(attempts) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected attempt numbers: %v", attempts)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", NewTransientError(errors.New("flaky"), 502)
		}
		return "payload", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "payload" {
		t.Errorf("expected payload, got %q", got)
	}
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     2 * time.Second,
		Multiplier:     10.0,
	}
	d := computeBackoff(5, cfg)
	if d > 2*time.Second {
		t.Errorf("backoff exceeded cap: %v", d)
	}
}

func TestComputeBackoff_JitterBounds(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     1.0,
		JitterFraction: 0.25,
	}
	for range 100 {
		d := computeBackoff(0, cfg)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("jittered backoff out of bounds: %v", d)
		}
	}
}
