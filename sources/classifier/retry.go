package classifier

import (
	"context"
	"time"

	"claudir/sources/errs"
	"claudir/sources/tracing"
)

// retrying wraps a ClassifierClient with spec.md §4.3's retry policy:
// transient errors and timeouts retry with exponential backoff up to
// maxAttempts; a permanent error, or exhausting retries, fails open to
// Ham rather than risk a false ban.
type retrying struct {
	inner       ClassifierClient
	maxAttempts int
	baseBackoff time.Duration
	log         *tracing.Logger
}

// WithRetry grounds spec.md §4.3's "Fails with TransientError (retry
// allowed, exponential backoff up to 3 attempts), PermanentError
// (treated as ham — fail-open) or Timeout (same as transient)" directly
// atop any ClassifierClient implementation.
func WithRetry(inner ClassifierClient, maxAttempts int, baseBackoff time.Duration, log *tracing.Logger) ClassifierClient {
	return &retrying{inner: inner, maxAttempts: maxAttempts, baseBackoff: baseBackoff, log: log}
}

func (r *retrying) Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		verdict, reason, err := r.inner.Classify(ctx, text, hints)
		if err == nil {
			return verdict, reason, nil
		}

		lastErr = err

		if !errs.Retryable(err) {
			r.log.W("classifier failed permanently, failing open", tracing.InnerError, err)
			return Ham, "", nil
		}

		if attempt == r.maxAttempts {
			break
		}

		backoff := r.baseBackoff * time.Duration(1<<uint(attempt-1))
		r.log.W("classifier call failed, retrying", tracing.InnerError, err, tracing.AiAttempt, attempt, tracing.AiBackoff, backoff.String())

		select {
		case <-ctx.Done():
			return Ham, "", nil
		case <-time.After(backoff):
		}
	}

	r.log.W("classifier retries exhausted, failing open", tracing.InnerError, lastErr)
	return Ham, "", nil
}
