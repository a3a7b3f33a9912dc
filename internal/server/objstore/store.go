// Package objstore abstracts the remote attachment store the chunks live
// in: upload bytes and get back an opaque handle, fetch bytes by handle,
// delete by handle. Two backends are provided, the Discord message API and
// an S3-compatible bucket.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ObjectStore is the remote store capability consumed by the worker pool.
// Handles are opaque; callers must not interpret them.
type ObjectStore interface {
	// Connect performs the one-time worker setup probe (credentials and
	// reachability). Workers that fail Connect are excluded from the pool.
	Connect(ctx context.Context) error
	// Upload stores payload under a display name and returns its handle.
	Upload(ctx context.Context, name string, payload []byte) (string, error)
	// Fetch returns the bytes previously stored under handle.
	Fetch(ctx context.Context, handle string) ([]byte, error)
	// Delete removes the object stored under handle.
	Delete(ctx context.Context, handle string) error
}

// RateLimitError is returned when the remote platform rejects a call with a
// rate-limit response carrying a retry-after duration. Callers must defer
// the retry of that operation by RetryAfter.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError is a non-2xx response from the remote platform.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}

// IsRetryable classifies an operation error: rate limits, 5xx responses and
// transport-level failures (timeouts, resets) are transient; permanent 4xx
// and local errors are not.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	var ue *url.Error
	return errors.As(err, &ue)
}

// RetryAfter extracts the deferral duration from a rate-limit error, or 0.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
