package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/imamik/kinstall/internal/failure"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	clock   clock.Clock
	onRetry func(attempt int, err error, delay time.Duration)
}

// Option is a functional option for retry configuration.
type Option func(*Config)

func defaults() *Config {
	return &Config{
		MaxRetries:   5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		clock:        clock.RealClock{},
	}
}

// WithExponentialBackoff executes the operation with exponential backoff retry.
// The operation runs at most MaxRetries+1 times. Delays grow by Multiplier
// and are capped at MaxDelay.
//
// Fatal and validation errors are returned immediately. Cancellation while
// waiting returns a canceled failure wrapping the last operation error.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt > cfg.MaxRetries {
			break
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err, delay)
		}

		timer := cfg.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return failure.Canceled("retry", fmt.Errorf("canceled after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr)))
		case <-timer.C():
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithInitialDelay sets the initial delay between retries.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = d
	}
}

// WithMaxDelay sets the maximum delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		c.Multiplier = m
	}
}

// WithClock replaces the clock used for delays.
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) {
		cfg.clock = c
	}
}

// OnRetry registers fn to be called before every delay with the failed
// attempt number (starting at 1), its error and the upcoming delay.
func OnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.onRetry = fn
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as fatal (non-retryable).
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err must not be retried: it is wrapped with Fatal
// or classified as a validation error.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr) || failure.IsValidation(err)
}
