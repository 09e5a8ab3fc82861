package utils

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// RetryPolicy bounds a retried operation. Between attempts the executor waits
// BaseDelay * 2^attempt, with no jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = time.Duration(math.MaxInt64)
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Retry runs op until it succeeds or the policy's attempt budget is spent. The
// error of the last attempt is returned as is.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	return backoff.RetryWithData[T](op, policy.backoff(ctx))
}

// RetryErr is Retry for operations without a result.
func RetryErr(ctx context.Context, policy RetryPolicy, op func() error) error {
	return backoff.Retry(op, policy.backoff(ctx))
}

// Permanent stops Retry after the current attempt. Retry returns err itself,
// not the wrapper.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
