package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"claudir/sources/errs"
	"claudir/sources/tracing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected Verdict
	}{
		{"spam", "SPAM", Spam},
		{"not spam", "NOT_SPAM", Ham},
		{"lowercase spam", "spam", Spam},
		{"garbled", "uhh I'm not sure", Ham},
		{"empty", "", Ham},
		{"spam with trailing punctuation", "SPAM.", Spam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseVerdict(tt.response); got != tt.expected {
				t.Errorf("parseVerdict(%q) = %v, expected %v", tt.response, got, tt.expected)
			}
		})
	}
}

type erroringClient struct {
	err   error
	calls int
}

func (e *erroringClient) Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error) {
	e.calls++
	return Ham, "", e.err
}

func TestRetryFailsOpenOnPermanentError(t *testing.T) {
	inner := &erroringClient{err: errs.PermanentExternal(errors.New("boom"))}
	client := WithRetry(inner, 3, time.Millisecond, tracing.NewConsoleLogger())

	verdict, _, err := client.Classify(context.Background(), "hello", Hints{})
	if err != nil {
		t.Fatalf("Classify() error = %v, expected nil (fail-open)", err)
	}
	if verdict != Ham {
		t.Errorf("Classify() verdict = %v, expected Ham", verdict)
	}
	if inner.calls != 1 {
		t.Errorf("permanent error should not retry, got %d calls", inner.calls)
	}
}

func TestRetryRetriesTransientThenFailsOpen(t *testing.T) {
	inner := &erroringClient{err: errs.TransientExternal(errors.New("timeout"))}
	client := WithRetry(inner, 3, time.Millisecond, tracing.NewConsoleLogger())

	verdict, _, err := client.Classify(context.Background(), "hello", Hints{})
	if err != nil {
		t.Fatalf("Classify() error = %v, expected nil (fail-open)", err)
	}
	if verdict != Ham {
		t.Errorf("Classify() verdict = %v, expected Ham", verdict)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

type succeedsOnAttempt struct {
	succeedAt int
	calls     int
}

func (s *succeedsOnAttempt) Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error) {
	s.calls++
	if s.calls >= s.succeedAt {
		return Spam, "detected", nil
	}
	return Ham, "", errs.TransientExternal(errors.New("flaky"))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &succeedsOnAttempt{succeedAt: 2}
	client := WithRetry(inner, 3, time.Millisecond, tracing.NewConsoleLogger())

	verdict, reason, err := client.Classify(context.Background(), "hello", Hints{})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if verdict != Spam || reason != "detected" {
		t.Errorf("Classify() = (%v, %q), expected (Spam, detected)", verdict, reason)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls)
	}
}

func TestFakeClassifier(t *testing.T) {
	fake := NewFake()
	fake.Verdicts["spammy text"] = Spam

	verdict, _, err := fake.Classify(context.Background(), "spammy text", Hints{})
	if err != nil || verdict != Spam {
		t.Errorf("Classify() = (%v, %v), expected (Spam, nil)", verdict, err)
	}

	verdict, _, err = fake.Classify(context.Background(), "ordinary text", Hints{})
	if err != nil || verdict != Ham {
		t.Errorf("Classify() = (%v, %v), expected (Ham, nil) for default", verdict, err)
	}

	if len(fake.Calls) != 2 {
		t.Errorf("expected 2 recorded calls, got %d", len(fake.Calls))
	}
}
