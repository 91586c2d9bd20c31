// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/tjfontaine/meeting-digest/internal/classify"
	"github.com/tjfontaine/meeting-digest/internal/domain"
)

// Defaults used by provider calls.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Config bounds a retry sequence.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig returns the standard provider retry budget.
func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the wait before the attempt following the 0-indexed attempt.
func (c Config) Delay(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(1<<attempt)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a single Do call.
type Option func(*options)

type options struct {
	sleep   SleepFunc
	logger  *slog.Logger
	onRetry func(attempt int, classified *domain.ClassifiedError, delay time.Duration)
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) {
		o.sleep = fn
	}
}

// WithLogger logs failed attempts at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnRetry registers a callback invoked before each wait.
func WithOnRetry(fn func(attempt int, classified *domain.ClassifiedError, delay time.Duration)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// Do invokes op until it succeeds, fails with a non-retryable category, or
// MaxAttempts invocations have been made. The last raw error is returned
// unchanged so callers classify it themselves.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{sleep: Sleep}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		classified := classify.Classify(err)
		if !classified.Code.Retryable() {
			return zero, err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.Delay(attempt)
		if o.logger != nil {
			o.logger.Warn("provider attempt failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", cfg.MaxAttempts),
				slog.String("error_code", string(classified.Code)),
				slog.String("error", classified.Details),
				slog.Duration("delay", delay),
			)
		}
		if o.onRetry != nil {
			o.onRetry(attempt, classified, delay)
		}
		if serr := o.sleep(ctx, delay); serr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
