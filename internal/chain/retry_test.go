package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type revertError struct{}

func (revertError) Error() string  { return "execution reverted" }
func (revertError) ErrorCode() int { return 3 }

func TestWithRetryRetriesTransportErrors(t *testing.T) {
	requireT := require.New(t)

	attempts := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 3, Backoff: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	requireT.NoError(err)
	requireT.Equal(3, attempts)
}

func TestWithRetryStopsOnNodeError(t *testing.T) {
	requireT := require.New(t)

	attempts := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 5, Backoff: time.Millisecond}, func(context.Context) error {
		attempts++
		return revertError{}
	})
	requireT.Error(err)
	requireT.Equal(1, attempts)
}

func TestWithRetryGivesUp(t *testing.T) {
	requireT := require.New(t)

	attempts := 0
	err := withRetry(context.Background(), RetryConfig{MaxRetries: 2, Backoff: time.Millisecond}, func(context.Context) error {
		attempts++
		return errors.New("dial tcp: timeout")
	})
	requireT.Error(err)
	requireT.Equal(3, attempts)
}

func TestWithRetryHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, RetryConfig{MaxRetries: 5, Backoff: time.Hour}, func(context.Context) error {
		return errors.New("connection refused")
	})
	require.ErrorIs(t, err, context.Canceled)
}
