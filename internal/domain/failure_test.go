package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{429, FailureRateLimited},
		{500, FailureOverloaded},
		{503, FailureOverloaded},
		{529, FailureOverloaded},
		{400, FailureFatal},
		{401, FailureFatal},
		{404, FailureFatal},
	}
	for _, tc := range cases {
		f := ClassifyStatus(tc.status, 0, fmt.Errorf("status %d", tc.status))
		if f.Kind != tc.want {
			t.Errorf("status %d: got %s, want %s", tc.status, f.Kind, tc.want)
		}
	}
}

func TestClassifyStatus_CarriesRetryAfter(t *testing.T) {
	f := ClassifyStatus(429, 30*time.Second, errors.New("429"))
	if f.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v", f.RetryAfter)
	}
}

func TestAsFailure(t *testing.T) {
	t.Run("typed failure survives wrapping", func(t *testing.T) {
		inner := RateLimitedFailure(time.Second, errors.New("429"))
		wrapped := fmt.Errorf("unit 3: %w", inner)

		f := AsFailure(wrapped)
		if f.Kind != FailureRateLimited || f.RetryAfter != time.Second {
			t.Errorf("got %+v", f)
		}
	})

	t.Run("plain errors become fatal", func(t *testing.T) {
		f := AsFailure(errors.New("disk full"))
		if f.Kind != FailureFatal {
			t.Errorf("got %s", f.Kind)
		}
		if f.Cause == nil || f.Cause.Error() != "disk full" {
			t.Errorf("cause lost: %v", f.Cause)
		}
	})
}

func TestFailure_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	f := NewFailure(FailureStalled, cause)

	if !errors.Is(f, cause) {
		t.Error("Unwrap chain broken")
	}
	if f.Error() != "stalled: underlying" {
		t.Errorf("Error() = %q", f.Error())
	}
	if NewFailure(FailureStalled, nil).Error() != "stalled" {
		t.Error("nil-cause message wrong")
	}
}
