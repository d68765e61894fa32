// Package retry runs fallible collaborator calls with bounded exponential
// backoff. Sleeping is injected so tests can observe delays without waiting.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep defaults to a context-aware time.Sleep; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool
}

// Permanent wraps an error so Do gives up on it immediately.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Do calls fn up to MaxAttempts times, waiting BaseDelay·2^attempt between
// tries. Non-retryable and Permanent errors stop the loop at once.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.BaseDelay << uint(attempt)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
