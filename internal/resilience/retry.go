package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aviantrail/tripplanner/internal/core"
)

// RetryConfig configures exponential backoff, grounded on
// resilience/retry.go. Spec §7: initial 1s, factor 2, max 3 attempts.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns spec §7's ObservationClient retry policy.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry runs fn up to config.MaxAttempts times, sleeping with exponential
// backoff between attempts. It stops early if shouldRetry(err) is false —
// spec §7 says 4xx responses surface without retry.
func Retry(ctx context.Context, config *RetryConfig, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		if attempt == config.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * config.BackoffFactor)
	}

	return fmt.Errorf("%w after %d attempts: %v", core.ErrMaxRetriesExceeded, config.MaxAttempts, lastErr)
}

// RetryWithCircuitBreaker combines Retry with a CircuitBreaker, refusing
// to attempt further calls once the breaker trips open.
func RetryWithCircuitBreaker(ctx context.Context, config *RetryConfig, cb *CircuitBreaker, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	return Retry(ctx, config, shouldRetry, func(ctx context.Context) error {
		return cb.Execute(ctx, fn)
	})
}

// IsCircuitOpen is a convenience shouldRetry-compatible check.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, core.ErrCircuitOpen)
}
