package forge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNotFound is returned when the Forge has no such owner, module,
	// release or file.
	ErrNotFound = errors.New("forge: not found")

	// ErrNetwork is returned when the Forge could not be reached.
	ErrNetwork = errors.New("forge: network error")
)

// APIError is returned for unexpected HTTP status codes.
type APIError struct {
	StatusCode int
	URL        string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forge: %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Transient reports whether the request may succeed if repeated: the Forge
// answered with a server error.
func (e *APIError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// transient reports whether a failed request is worth another attempt.
func transient(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}

// backoff is a Client's retry policy.
type backoff struct {
	attempts int
	delay    time.Duration
}

// wait blocks before retrying after the given failed attempt, counting from
// 1. The delay doubles with every attempt.
func (b backoff) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.delay << (attempt - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func checkStatus(code int, url, requestID string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	default:
		return &APIError{StatusCode: code, URL: url, RequestID: requestID}
	}
}
