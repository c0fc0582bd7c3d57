// Package retry provides an explicit retry combinator applied at call
// sites. Only errors accepted by the caller's predicate are retried;
// everything else fails immediately.
package retry

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Config holds the parameters for the retry strategy.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor float64
}

// Do executes fn up to MaxAttempts times with exponential back-off.
// retryable decides whether an error is worth another attempt; a nil
// predicate retries every error. The context cancels the back-off sleep.
func (c Config) Do(ctx context.Context, operation string, fn func() error, retryable func(error) bool) error {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	factor := c.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	var lastErr error
	delay := c.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if attempt < attempts {
			log.Printf("%s failed (attempt %d/%d): %v, retrying in %v", operation, attempt, attempts, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = time.Duration(float64(delay) * factor)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}
