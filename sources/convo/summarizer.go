package convo

import (
	"context"
	"fmt"
	"time"

	"claudir/sources/classifier"
	"claudir/sources/errs"
	"claudir/sources/tracing"
)

// summarizerPrompt is the fixed instruction spec.md §4.7 requires.
const summarizerPrompt = `Summarize the following conversation excerpt in at most 200 words. Preserve names, decisions, and unresolved questions. Do not add commentary or a preamble, return only the summary text.`

// Summarizer is spec.md §4.7's external-capable wrapper around
// ClassifierClient: same backend, same failure taxonomy, different
// contract (free text instead of a verdict).
type Summarizer struct {
	completer   classifier.Completer
	maxAttempts int
	log         *tracing.Logger
}

func NewSummarizer(completer classifier.Completer, log *tracing.Logger) *Summarizer {
	return &Summarizer{completer: completer, maxAttempts: 3, log: log}
}

// Summarize returns a ≤~200-word summary of renderedMessages, already
// escaped text produced by Buffer.Render. Retries transient failures up
// to maxAttempts; a permanent failure or exhausted retries is returned
// to the caller (ContextBuffer.MaybeCompact skips compaction on error,
// per spec.md §4.6 step 5 — this package never fails open to an empty
// summary, unlike the spam classifier).
func (s *Summarizer) Summarize(ctx context.Context, renderedMessages string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		summary, err := s.completer.Complete(ctx, summarizerPrompt, renderedMessages)
		if err == nil {
			return summary, nil
		}

		lastErr = err
		if !errs.Retryable(err) {
			return "", err
		}
		if attempt == s.maxAttempts {
			break
		}

		backoff := 200 * time.Millisecond * time.Duration(1<<uint(attempt-1))
		s.log.W("summarizer call failed, retrying", tracing.InnerError, err, tracing.AiAttempt, attempt)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("summarizer retries exhausted: %w", lastErr)
}
