package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// RetryConfig configures retry behavior for transport-class failures.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry configuration:
// 2 attempts total (1 initial + 1 retry) with a short delay. Node-level
// rejections are definitive and never retried; only transport failures
// qualify.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Retry executes the operation with the default bounded retry policy.
func Retry[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation with the specified retry
// configuration. Non-retryable errors are returned immediately.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		if attempt < cfg.MaxAttempts-1 {
			delay := backoffDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// backoffDelay computes exponential backoff with jitter.
func backoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	// Jitter in [delay/2, delay); does not need cryptographic randomness.
	half := delay / 2
	return half + rand.N(half) //nolint:gosec // G404: jitter only
}

// IsRetryable returns true if the error is a transport-class failure.
// RPC rejections carry walleterr.ErrRPC and are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, walleterr.ErrTransport) ||
		errors.Is(err, context.DeadlineExceeded)
}
