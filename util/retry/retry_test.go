package retry

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	logger := ulogger.TestLogger{}
	ctx := context.Background()

	t.Run("succeeds first time", func(t *testing.T) {
		calls := 0

		result, err := Retry(ctx, logger, func() (string, error) {
			calls++
			return "success", nil
		}, WithRetryCount(3), WithBackoffDurationType(time.Millisecond))

		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failure", func(t *testing.T) {
		calls := 0

		result, err := Retry(ctx, logger, func() (string, error) {
			calls++
			if calls == 1 {
				return "", errors.NewProcessingError("error")
			}

			return "success", nil
		}, WithRetryCount(3), WithBackoffMultiplier(1), WithBackoffDurationType(time.Millisecond), WithMessage("trying again"))

		require.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after retry count", func(t *testing.T) {
		calls := 0

		_, err := Retry(ctx, logger, func() (string, error) {
			calls++
			return "", errors.NewProcessingError("persistent error")
		}, WithRetryCount(3), WithBackoffMultiplier(1), WithBackoffDurationType(time.Millisecond))

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProcessing))
		assert.Equal(t, 3, calls)
	})

	t.Run("exponential backoff", func(t *testing.T) {
		calls := 0

		result, err := Retry(ctx, logger, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.NewProcessingError("error")
			}

			return calls, nil
		}, WithExponentialBackoff(), WithBackoffDurationType(time.Millisecond), WithBackoffFactor(2.0), WithMaxBackoff(5*time.Millisecond), WithRetryCount(5))

		require.NoError(t, err)
		assert.Equal(t, 3, result)
	})

	t.Run("infinite retry stops on context", func(t *testing.T) {
		timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := Retry(timeoutCtx, logger, func() (string, error) {
			return "", errors.NewProcessingError("persistent error")
		}, WithInfiniteRetry(), WithExponentialBackoff(), WithBackoffDurationType(10*time.Millisecond))

		require.Error(t, err)
		assert.Equal(t, context.DeadlineExceeded, err)
	})
}

func TestCappedExponentialBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, time.Second, CappedExponentialBackoff(600*time.Millisecond, 2.0, time.Second))
	assert.Equal(t, 150*time.Millisecond, CappedExponentialBackoff(100*time.Millisecond, 1.5, time.Second))
}

func TestBackoffAndSleep(t *testing.T) {
	t.Run("cancels on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := BackoffAndSleep(ctx, 2, 1, time.Second)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("respects backoff calculation", func(t *testing.T) {
		originalSleepFunc := sleepFunc
		defer func() { sleepFunc = originalSleepFunc }()

		var recorded time.Duration

		sleepFunc = func(_ context.Context, d time.Duration) error {
			recorded = d
			return nil
		}

		tests := []struct {
			retries    int
			multiplier int
			duration   time.Duration
			expected   time.Duration
		}{
			{0, 1, time.Second, 1 * time.Second},
			{1, 2, time.Second, 3 * time.Second},
			{3, 3, time.Second, 10 * time.Second},
			{2, 5, time.Millisecond, 11 * time.Millisecond},
		}

		for _, tc := range tests {
			require.NoError(t, BackoffAndSleep(context.Background(), tc.retries, tc.multiplier, tc.duration))
			assert.Equal(t, tc.expected, recorded)
		}
	})
}
