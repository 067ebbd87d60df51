package replay

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ApplicationError is a server-reported failure: the response body parsed
// cleanly but carried an "error" field. The replayer absorbs it by resending
// the request; it never escapes Run.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("server reported error: %s", e.Message)
}

// MalformedResponseError is a response body that could not be parsed. Like
// ApplicationError it is absorbed by the retry loop.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// TransportTimeoutError is raised when a request's hard deadline expires
// across all of its retries. It is fatal to the task and to the run: all
// tasks are still awaited, but no results are produced.
type TransportTimeoutError struct {
	Prompt  string
	Timeout time.Duration
}

func (e *TransportTimeoutError) Error() string {
	return fmt.Sprintf("request exceeded %s timeout (prompt %q)", e.Timeout, truncate(e.Prompt, 40))
}

// RetriesExhaustedError is raised only when a bounded retry budget is
// configured and a request burned through it without a clean response.
type RetriesExhaustedError struct {
	Prompt   string
	Attempts int
	LastErr  error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts (prompt %q): %v", e.Attempts, truncate(e.Prompt, 40), e.LastErr)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsTimeout reports whether err is a *TransportTimeoutError.
func IsTimeout(err error) bool {
	var te *TransportTimeoutError
	return errors.As(err, &te)
}

// IsRetryable reports whether the replayer should absorb err and resend the
// request. Transport failures, application errors and malformed bodies are
// all retryable; only deadline expiry is not.
func IsRetryable(err error) bool {
	if err == nil || IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
