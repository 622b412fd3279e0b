package api

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/warp/approval-ledger/generic"
)

type RetryConfig struct {
	Attempts uint64
	Base     time.Duration
}

func (c RetryConfig) backoff() retry.Backoff {
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	base := c.Base
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	// WithMaxRetries counts retries after the first attempt.
	return retry.WithMaxRetries(attempts-1, b)
}

// withRetry re-runs fn while it fails with a concurrency conflict. fn is
// the whole operation, so authorization and budget checks run again.
func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			if generic.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}
