package pipeline

import (
	"time"

	"studygen/internal/domain"
)

// Decision is the outcome of one retry deliberation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy maps (failure classification, attempt number) to a decision.
// It is a pure function of its configuration: no state, no clock, no I/O.
type RetryPolicy struct {
	MaxAttempts    int           // attempts per unit, including the first
	BackoffBase    time.Duration // exponential base for overload failures
	BackoffCap     time.Duration // ceiling for any computed delay
	RateLimitFloor time.Duration // used when the server gave no retry-after
	StallRetryWait time.Duration // fast retry after a client-detected stall
}

// Decide classifies err after a failed attempt (1-based) and returns whether
// to retry and how long to wait. Past MaxAttempts it always gives up, letting
// the last error surface verbatim.
func (p RetryPolicy) Decide(err error, attempt int) Decision {
	if attempt >= p.MaxAttempts {
		return Decision{}
	}

	f := domain.AsFailure(err)
	switch f.Kind {
	case domain.FailureRateLimited:
		// Server-provided hint wins; otherwise a fixed floor. Either way the
		// wait never exceeds the cap.
		d := f.RetryAfter
		if d <= 0 {
			d = p.RateLimitFloor
		}
		return Decision{Retry: true, Delay: p.cap(d)}

	case domain.FailureOverloaded:
		return Decision{Retry: true, Delay: p.cap(p.BackoffBase << uint(attempt))}

	case domain.FailureStalled, domain.FailureTimedOut:
		// A silent stream suggests a dropped connection, not server load:
		// retry fast instead of backing off.
		return Decision{Retry: true, Delay: p.StallRetryWait}

	default:
		// Validation errors, auth failures, unparseable results: retrying
		// reproduces the same outcome.
		return Decision{}
	}
}

func (p RetryPolicy) cap(d time.Duration) time.Duration {
	if p.BackoffCap > 0 && d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}
