package infrastructure

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a transient provider failure is retried and
// how long to back off between attempts. Terminal failures are never
// retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy retries twice after the first failure (3 attempts
// total) with exponential backoff: 2s, 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// RetryResult reports how a retried call resolved.
type RetryResult struct {
	Value   string // provider message id on success
	Retries int    // attempts beyond the first
	Err     error  // last error; nil on success
}

// Do runs fn until it succeeds, fails terminally, exhausts MaxAttempts, or
// the context is cancelled. Backoff sleeps honor context cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) RetryResult {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return RetryResult{Value: value, Retries: attempt - 1}
		}
		lastErr = err

		if !IsRetryable(err) || attempt == p.MaxAttempts {
			return RetryResult{Retries: attempt - 1, Err: lastErr}
		}

		select {
		case <-ctx.Done():
			return RetryResult{Retries: attempt - 1, Err: lastErr}
		case <-time.After(p.Backoff(attempt)):
		}
	}
	return RetryResult{Retries: p.MaxAttempts - 1, Err: lastErr}
}
