package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/markdave123-py/docvault/internal/core"
)

// RetryConfig defines bounded exponential retries.
//
// MaxAttempts:     total attempts including the first one (<= 1 disables retrying).
// InitialInterval: wait before the second attempt.
// MaxInterval:     ceiling for a single wait.
// Multiplier:      growth factor between waits.
// RetryIf:         reports whether an error is worth another attempt (nil = IsRetryable).
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RetryIf         func(error) bool
}

// DefaultRetryConfig returns three attempts starting at 200ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Retry runs operation until it succeeds, returns a non-retryable error,
// the attempts are exhausted or ctx is done. The last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, operation func() error) error {
	if cfg.MaxAttempts <= 1 {
		return operation()
	}

	b := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		b.Multiplier = cfg.Multiplier
	}
	b.MaxElapsedTime = 0

	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := operation()
		if err != nil && !retryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// RetryWithResult is Retry for operations that produce a value.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, cfg, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}

// IsRetryable rejects errors another attempt cannot fix: validation failures
// and cancellation by the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrValidation) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
