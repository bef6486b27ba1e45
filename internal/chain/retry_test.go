package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRetryTransportFailureRetriedOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", walleterr.ErrTransport
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 2, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "", walleterr.ErrTransport
	})

	require.ErrorIs(t, err, walleterr.ErrTransport)
	assert.Equal(t, 2, calls)
}

func TestRetryRPCRejectionNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "", walleterr.Wrap(walleterr.ErrRPC, "nonce too low")
	})

	require.ErrorIs(t, err, walleterr.ErrRPC)
	assert.Equal(t, 1, calls, "definitive node rejections must not be retried")
}

func TestRetryValidationNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithConfig(context.Background(), fastRetryConfig(), func() (string, error) {
		calls++
		return "", walleterr.ErrValidation
	})

	require.ErrorIs(t, err, walleterr.ErrValidation)
	assert.Equal(t, 1, calls)
}

func TestRetryContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}
	_, err := RetryWithConfig(ctx, cfg, func() (string, error) {
		return "", walleterr.ErrTransport
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRetryable(walleterr.ErrTransport))
	assert.True(t, IsRetryable(walleterr.Wrap(walleterr.ErrTransport, "dial")))
	assert.True(t, IsRetryable(context.DeadlineExceeded))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(walleterr.ErrRPC))
	assert.False(t, IsRetryable(walleterr.ErrValidation))
}
