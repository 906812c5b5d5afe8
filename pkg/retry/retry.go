package retry

import (
	"context"
	"math"
	"time"
)

// Backoff computes the wait before the next attempt.
type Backoff interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff waits InitialDelay × Multiplier^attempt, capped at
// MaxDelay when it is set. Attempts are indexed from 0.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NextDelay calculates the delay after the given failed attempt.
func (e ExponentialBackoff) NextDelay(attempt int) time.Duration {
	m := e.Multiplier
	if m <= 0 {
		m = 2
	}
	delay := float64(e.InitialDelay) * math.Pow(m, float64(attempt))
	if e.MaxDelay > 0 && delay > float64(e.MaxDelay) {
		return e.MaxDelay
	}
	return time.Duration(delay)
}

// Config defines how an operation is retried.
type Config struct {
	MaxAttempts int
	Backoff     Backoff
	// Retryable reports whether err may succeed on another attempt. Nil retries everything.
	Retryable func(err error) bool
	// OnRetry runs after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs operation until it succeeds, returns a non-retryable error, or
// MaxAttempts is exhausted. There is no wait after the final attempt. The
// last error is returned unchanged.
func Do[T any](ctx context.Context, cfg Config, operation func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return zero, lastErr
		}
		if attempt == attempts-1 {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
