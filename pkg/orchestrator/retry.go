package orchestrator

import (
	"context"
	"time"

	"github.com/jonasqin/automedia-ai/pkg/adapter"
)

// callWithRetry invokes the adapter with capped-exponential backoff.
// Only transient errors are retried, at most opts.MaxRetries times
// beyond the first attempt. The returned count is the number of retries
// performed, recorded on the entity as RetryCount.
func (s *Service) callWithRetry(ctx context.Context, ad adapter.Adapter, req adapter.GenerateRequest) (*adapter.Response, int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		resp, err := ad.Generate(ctx, req)
		if err == nil {
			return resp, attempt, nil
		}

		lastErr = err
		if !adapter.IsTransient(err) || attempt == s.opts.MaxRetries {
			return nil, attempt, lastErr
		}

		backoff := computeBackoff(s.opts.RetryBaseBackoff, s.opts.RetryMaxBackoff, attempt)
		s.logger.Warn("retrying provider call",
			"provider", ad.Name(), "attempt", attempt+1, "backoff", backoff, "error", err)
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, attempt, err
		}
	}
	return nil, s.opts.MaxRetries, lastErr
}

func computeBackoff(base, max time.Duration, attempt int) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= max {
			return max
		}
	}
	if backoff > max {
		return max
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
