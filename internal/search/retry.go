package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/FranksOps/dogbook/internal/apperr"
	"github.com/FranksOps/dogbook/pkg/retry"
)

const (
	DefaultAttempts  = 3
	DefaultRetryBase = time.Second
)

// RetryConfig tunes a Retrier.
type RetryConfig struct {
	Attempts int
	Base     time.Duration
	// Sleep replaces the wait between attempts, e.g. in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Retrier wraps a Provider with exponential backoff. The wait after attempt
// i (0-based) is Base × 2^i. Configuration, quota and context errors are
// returned immediately.
type Retrier struct {
	next   Provider
	cfg    RetryConfig
	logger *slog.Logger
}

var _ Provider = (*Retrier)(nil)

// NewRetrier wraps next. Non-positive settings select the defaults.
func NewRetrier(next Provider, cfg RetryConfig, logger *slog.Logger) *Retrier {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Base <= 0 {
		cfg.Base = DefaultRetryBase
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{next: next, cfg: cfg, logger: logger}
}

// Search calls the wrapped provider until it succeeds or the attempts run
// out, returning the last error.
func (r *Retrier) Search(ctx context.Context, query string, count int, language string) ([]Result, error) {
	return retry.Do(ctx, retry.Config{
		MaxAttempts: r.cfg.Attempts,
		Backoff:     retry.ExponentialBackoff{InitialDelay: r.cfg.Base, Multiplier: 2},
		Retryable:   func(err error) bool { return !apperr.IsPermanent(err) },
		OnRetry: func(attempt int, err error, delay time.Duration) {
			r.logger.Warn("Search attempt failed",
				"query", query,
				"attempt", attempt+1,
				"retry_in", delay,
				"err", err,
			)
		},
		Sleep: r.cfg.Sleep,
	}, func(ctx context.Context) ([]Result, error) {
		return r.next.Search(ctx, query, count, language)
	})
}
