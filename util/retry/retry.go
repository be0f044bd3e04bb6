package retry

import (
	"context"
	"time"

	"github.com/bsv-blockchain/xbridge/ulogger"
)

type SetOptions struct {
	Message             string
	RetryCount          int
	BackoffMultiplier   int
	BackoffDurationType time.Duration
	InfiniteRetry       bool
	ExponentialBackoff  bool
	BackoffFactor       float64
	MaxBackoff          time.Duration
}

type Options func(s *SetOptions)

func WithMessage(message string) Options {
	return func(s *SetOptions) {
		s.Message = message
	}
}

func WithRetryCount(retryCount int) Options {
	return func(s *SetOptions) {
		s.RetryCount = retryCount
	}
}

func WithBackoffMultiplier(backoffMultiplier int) Options {
	return func(s *SetOptions) {
		s.BackoffMultiplier = backoffMultiplier
	}
}

func WithBackoffDurationType(backoffDurationType time.Duration) Options {
	return func(s *SetOptions) {
		s.BackoffDurationType = backoffDurationType
	}
}

// WithInfiniteRetry keeps retrying until the function succeeds or the context is done.
func WithInfiniteRetry() Options {
	return func(s *SetOptions) {
		s.InfiniteRetry = true
	}
}

func WithExponentialBackoff() Options {
	return func(s *SetOptions) {
		s.ExponentialBackoff = true
	}
}

func WithBackoffFactor(factor float64) Options {
	return func(s *SetOptions) {
		s.BackoffFactor = factor
	}
}

func WithMaxBackoff(maxBackoff time.Duration) Options {
	return func(s *SetOptions) {
		s.MaxBackoff = maxBackoff
	}
}

// Retry calls f until it succeeds, the retry count is used up or ctx is done.
// The last error returned by f is returned when all attempts fail.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Options) (T, error) {
	setOptions := &SetOptions{
		RetryCount:          3,
		BackoffMultiplier:   2,
		BackoffDurationType: time.Second,
		BackoffFactor:       2.0,
		MaxBackoff:          30 * time.Second,
	}

	for _, opt := range opts {
		opt(setOptions)
	}

	var (
		result  T
		err     error
		backoff = setOptions.BackoffDurationType
	)

	for i := 0; setOptions.InfiniteRetry || i < setOptions.RetryCount; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		result, err = f()
		if err == nil {
			return result, nil
		}

		if !setOptions.InfiniteRetry && i == setOptions.RetryCount-1 {
			break
		}

		logger.Warnf("%s (attempt %d): %v", setOptions.Message, i+1, err)

		if setOptions.ExponentialBackoff {
			if sleepErr := sleepFunc(ctx, backoff); sleepErr != nil {
				return result, sleepErr
			}

			backoff = CappedExponentialBackoff(backoff, setOptions.BackoffFactor, setOptions.MaxBackoff)

			continue
		}

		if sleepErr := BackoffAndSleep(ctx, i, setOptions.BackoffMultiplier, setOptions.BackoffDurationType); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}
