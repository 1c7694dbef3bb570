package spam

import (
	"context"
	"testing"

	"claudir/sources/classifier"
	"claudir/sources/platform"
	"claudir/sources/prefilter"
	"claudir/sources/tracing"
)

func testPrefilter(t *testing.T) *prefilter.Config {
	t.Helper()
	cfg, err := prefilter.Compile([]string{`t\.me/\S+`}, []string{`^(hi|hello|thanks)$`}, 0, 0.6)
	if err != nil {
		t.Fatalf("prefilter.Compile failed: %v", err)
	}
	return cfg
}

func TestOwnerShortCircuitsToHamWithoutPrefilter(t *testing.T) {
	pf := testPrefilter(t)
	pipeline := New(pf, classifier.NewFake(), []platform.UserID{7}, nil, tracing.NewConsoleLogger())

	outcome := pipeline.Classify(context.Background(), platform.UserID(7), "join t.me/spamchannel now", classifier.Hints{})
	if outcome.Verdict != Ham {
		t.Fatalf("expected owner message to be Ham regardless of content, got %v", outcome.Verdict)
	}
}

func TestObviousSpamShortCircuitsWithoutClassifierCall(t *testing.T) {
	pf := testPrefilter(t)
	fake := classifier.NewFake()
	pipeline := New(pf, fake, nil, nil, tracing.NewConsoleLogger())

	outcome := pipeline.Classify(context.Background(), platform.UserID(1), "join t.me/spamchannel now", classifier.Hints{})
	if outcome.Verdict != Spam {
		t.Fatalf("expected prefilter obvious spam to short-circuit to Spam, got %v", outcome.Verdict)
	}
}

func TestAmbiguousFallsThroughToClassifier(t *testing.T) {
	pf := testPrefilter(t)
	fake := classifier.NewFake()
	fake.Default = classifier.Spam
	pipeline := New(pf, fake, nil, nil, tracing.NewConsoleLogger())

	outcome := pipeline.Classify(context.Background(), platform.UserID(1), "check out this random ambiguous message about stuff", classifier.Hints{})
	if outcome.Verdict != Spam {
		t.Fatalf("expected classifier verdict to be honored for ambiguous text, got %v", outcome.Verdict)
	}
}
