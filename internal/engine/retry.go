package engine

import (
	"context"
	"time"
)

// RetryPolicy re-runs an operation a fixed number of times when it fails
// with a retryable error class. No exponential backoff: the delay between
// attempts is a short fixed pause.
type RetryPolicy struct {
	Attempts  int              // total attempts, including the first
	Backoff   time.Duration    // fixed delay between attempts
	Retryable func(error) bool // predicate over the error class
}

// DefaultRetryPolicy retries transient storage failures exactly once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  2,
		Backoff:   500 * time.Millisecond,
		Retryable: IsTransient,
	}
}

// Do runs fn, retrying per the policy. The last error is returned
// untouched so callers can still classify it.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
	}
	return err
}
