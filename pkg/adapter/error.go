package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// AdapterError carries the upstream status and error code of a failed
// provider call. The retry loop uses it to tell transient throttling
// apart from permanent rejections before the orchestrator wraps the
// failure into its caller-facing ProviderError.
type AdapterError struct {
	Status    int    // HTTP status from the upstream API, 0 when unknown
	Code      string // provider error code, e.g. "rate_limit_exceeded"
	Temporary bool   // set when the provider marked the failure retryable
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("adapter error (status=%d, code=%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("adapter error (status=%d)", e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// transientCodes are provider error codes that signal a retryable
// condition even when the HTTP status alone is inconclusive. DeepSeek
// and other OpenAI-compatible backends report throttling and transient
// capacity problems through these.
var transientCodes = map[string]bool{
	"rate_limit_exceeded": true,
	"rate_limit":          true,
	"server_error":        true,
	"overloaded":          true,
	"service_unavailable": true,
}

// IsTransient reports whether an error is safe to retry. A deadline
// expiry is transient (the next attempt may run under a fresh budget);
// an explicit cancellation is not, because the caller has walked away
// and any late result would be discarded against the terminal record.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		if adapterErr.Temporary || transientCodes[adapterErr.Code] {
			return true
		}
		if adapterErr.Status == 429 || (adapterErr.Status >= 500 && adapterErr.Status <= 599) {
			return true
		}
	}
	return false
}
