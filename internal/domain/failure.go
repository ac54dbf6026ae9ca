package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FailureKind classifies a generation failure so the retry policy can decide
// without inspecting error text.
type FailureKind string

const (
	FailureRateLimited FailureKind = "rate_limited"
	FailureOverloaded  FailureKind = "overloaded"
	FailureStalled     FailureKind = "stalled"
	FailureTimedOut    FailureKind = "timed_out"
	FailureParse       FailureKind = "unparseable_result"
	FailureFatal       FailureKind = "fatal"
)

// Failure is the typed error variant produced at the streaming-call boundary.
// RetryAfter is only meaningful for FailureRateLimited and holds the
// server-provided hint (zero when the server sent none).
type Failure struct {
	Kind       FailureKind
	RetryAfter time.Duration
	Cause      error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Cause }

func NewFailure(kind FailureKind, cause error) *Failure {
	return &Failure{Kind: kind, Cause: cause}
}

func RateLimitedFailure(retryAfter time.Duration, cause error) *Failure {
	return &Failure{Kind: FailureRateLimited, RetryAfter: retryAfter, Cause: cause}
}

// AsFailure unwraps err into a *Failure. Errors that never passed through the
// streaming-call boundary (planning, storage) come back as FailureFatal.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailureFatal, Cause: err}
}

// ClassifyStatus maps a provider HTTP status to a failure kind.
// 429 is rate limiting, 5xx and 529 ("overloaded") are transient server
// trouble, everything else is fatal.
func ClassifyStatus(status int, retryAfter time.Duration, cause error) *Failure {
	switch {
	case status == http.StatusTooManyRequests:
		return &Failure{Kind: FailureRateLimited, RetryAfter: retryAfter, Cause: cause}
	case status >= 500:
		return &Failure{Kind: FailureOverloaded, Cause: cause}
	default:
		return &Failure{Kind: FailureFatal, Cause: cause}
	}
}
