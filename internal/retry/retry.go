// Package retry provides bounded exponential backoff for transient
// transport failures against the conversation store.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config defines the retry behavior for exponential backoff operations.
//
// The zero value is not usable; MaxAttempts and InitialBackoff must be set.
type Config struct {
	// MaxAttempts is the maximum number of attempts. The function is
	// called at most MaxAttempts times. Must be greater than 0.
	MaxAttempts int

	// InitialBackoff is the base backoff duration. Each retry multiplies
	// this by 2^(attempt-1). Must be greater than 0.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Zero means no cap.
	MaxBackoff time.Duration
}

// ShouldRetryFunc decides whether an error is worth another attempt.
// Return false to fail immediately with the error. A nil ShouldRetryFunc
// retries every error.
type ShouldRetryFunc func(error) bool

// Do executes fn with exponential backoff retry.
//
// If fn returns nil, Do returns immediately. Otherwise shouldRetry is
// consulted; a false result propagates the error as-is. When all attempts
// are exhausted, Do returns an error wrapping the last one from fn.
//
// If the context is canceled during execution or backoff, Do returns the
// context error immediately.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		// Apply backoff before retry (but not on first attempt).
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffFor(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// backoffFor computes the backoff duration for a given attempt:
// InitialBackoff * 2^(attempt-1), capped at MaxBackoff when configured.
func backoffFor(cfg Config, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	return backoff
}
