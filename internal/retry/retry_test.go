package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordedSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	var delays []time.Duration
	err := Do(context.Background(), Config{MaxAttempts: 3, BaseDelay: time.Second, Sleep: recordedSleep(&delays)}, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delays) != 0 {
		t.Errorf("expected no sleeps on immediate success, got %v", delays)
	}
}

func TestDoBackoffDoubles(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 4, BaseDelay: time.Second, Sleep: recordedSleep(&delays)}, func() error {
		calls++
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestDoRecoversMidway(t *testing.T) {
	var delays []time.Duration
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 5, BaseDelay: time.Second, Sleep: recordedSleep(&delays)}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	var delays []time.Duration
	calls := 0
	notRetryable := errors.New("bad request")
	err := Do(context.Background(), Config{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Sleep:       recordedSleep(&delays),
		Retryable:   func(err error) bool { return !errors.Is(err, notRetryable) },
	}, func() error {
		calls++
		return notRetryable
	})
	if !errors.Is(err, notRetryable) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoPermanent(t *testing.T) {
	calls := 0
	inner := errors.New("no such model")
	err := Do(context.Background(), Config{MaxAttempts: 5, BaseDelay: time.Second, Sleep: recordedSleep(new([]time.Duration))}, func() error {
		calls++
		return &Permanent{Err: inner}
	})
	if !errors.Is(err, inner) {
		t.Fatalf("expected inner error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
