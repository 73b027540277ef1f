package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Rate-limit error code returned by the WhatsApp Cloud API.
const waRateLimitCode = 130429

// SendError is a structured provider failure. StatusCode is the HTTP status,
// Code the provider's numeric error code when one was returned.
type SendError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("provider error: status=%d code=%d %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the failure is transient: provider rate limits,
// server-side errors, and anything else worth another attempt.
func (e *SendError) Retryable() bool {
	if e.StatusCode == 429 || e.StatusCode >= 500 {
		return true
	}
	return e.Code == waRateLimitCode
}

// IsRetryable classifies an outbound send failure. Network errors and
// timeouts count as transient; a provider call exceeding its deadline is
// treated the same as a network failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
