package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(int) time.Duration { return time.Millisecond },
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	res := testPolicy().Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &SendError{StatusCode: 500, Message: "server error"}
		}
		return "wamid.123", nil
	})

	require.NoError(t, res.Err)
	assert.Equal(t, "wamid.123", res.Value)
	assert.Equal(t, 2, res.Retries)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	calls := 0
	res := testPolicy().Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", &SendError{StatusCode: 400, Message: "invalid recipient"}
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, res.Retries)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	res := testPolicy().Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", &SendError{StatusCode: 429, Message: "rate limited"}
	})

	require.Error(t, res.Err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, res.Retries)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Minute },
	}
	res := policy.Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", &SendError{StatusCode: 503}
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, calls)
}

func TestDefaultBackoffIsExponential(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}

func TestRetryDoesNotRetryPlainErrors(t *testing.T) {
	calls := 0
	res := testPolicy().Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("template not found")
	})

	require.Error(t, res.Err)
	assert.Equal(t, 1, calls)
}
