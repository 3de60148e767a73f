package kaiten

import (
	"errors"
	"fmt"
	"time"
)

// TransportError means no usable HTTP response was received: DNS, connect,
// TLS, timeout or a body that could not be read.
type TransportError struct {
	Method        string
	Path          string
	CorrelationID string
	Cause         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("kaiten %s %s [%s]: transport failure: %v", e.Method, e.Path, e.CorrelationID, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// IsRetryable implements retry.RetryableError.
func (e *TransportError) IsRetryable() bool { return true }

// RefusalError means Kaiten understood the request and declined to serve it:
// bad credentials, missing permission, or an exhausted rate limit.
type RefusalError struct {
	Method        string
	Path          string
	CorrelationID string
	StatusCode    int
	Reason        string

	retryable  bool
	retryAfter time.Duration
	hasHint    bool
}

func (e *RefusalError) Error() string {
	return fmt.Sprintf("kaiten %s %s [%s]: refused (HTTP %d): %s", e.Method, e.Path, e.CorrelationID, e.StatusCode, e.Reason)
}

// IsRetryable implements retry.RetryableError. Only 429 refusals are retried.
func (e *RefusalError) IsRetryable() bool { return e.retryable }

// RetryAfter implements retry.DelayHinter.
func (e *RefusalError) RetryAfter() (time.Duration, bool) { return e.retryAfter, e.hasHint }

// StatusError is a non-refusal HTTP failure (404, 5xx after retries, ...).
type StatusError struct {
	Method        string
	Path          string
	CorrelationID string
	StatusCode    int
	Body          string

	retryable  bool
	retryAfter time.Duration
	hasHint    bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kaiten %s %s [%s]: unexpected status %d", e.Method, e.Path, e.CorrelationID, e.StatusCode)
}

// IsRetryable implements retry.RetryableError.
func (e *StatusError) IsRetryable() bool { return e.retryable }

// RetryAfter implements retry.DelayHinter.
func (e *StatusError) RetryAfter() (time.Duration, bool) { return e.retryAfter, e.hasHint }

// ShapeError means the response parsed as HTTP but not as the expected JSON.
type ShapeError struct {
	Path          string
	CorrelationID string
	Expected      string
	Cause         error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("kaiten %s [%s]: unexpected response shape, want %s: %v", e.Path, e.CorrelationID, e.Expected, e.Cause)
}

func (e *ShapeError) Unwrap() error { return e.Cause }

// IsRefusal reports whether err (or anything it wraps) is a RefusalError.
func IsRefusal(err error) bool {
	var r *RefusalError
	return errors.As(err, &r)
}

// IsShape reports whether err is a ShapeError.
func IsShape(err error) bool {
	var s *ShapeError
	return errors.As(err, &s)
}
