// Package spam implements spec.md §4.4's SpamPipeline: Prefilter first,
// ClassifierClient only for the ambiguous remainder. Grounded on
// original_source/prefilter.rs's tiered-classifier composition and
// sources/artificial/analyzer.go's one-shot-call-then-decide idiom.
package spam

import (
	"context"
	"time"

	"claudir/sources/classifier"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/prefilter"
	"claudir/sources/tracing"
)

// Verdict is spec.md §3's VerdictType, collapsed to the two outcomes
// that drive Router's branching — the classifier's textual reason is
// carried alongside for logging, not re-exposed as a type tag.
type Verdict int

const (
	Ham Verdict = iota
	Spam
)

type Outcome struct {
	Verdict Verdict
	Reason  string
}

// Pipeline composes Prefilter + ClassifierClient per spec.md §4.4.
type Pipeline struct {
	prefilter  *prefilter.Config
	classifier classifier.ClassifierClient
	owners     map[platform.UserID]bool
	metrics    *metrics.MetricsService
	log        *tracing.Logger
}

func New(pf *prefilter.Config, cc classifier.ClassifierClient, owners []platform.UserID, metricsService *metrics.MetricsService, log *tracing.Logger) *Pipeline {
	ownerSet := make(map[platform.UserID]bool, len(owners))
	for _, o := range owners {
		ownerSet[o] = true
	}
	return &Pipeline{prefilter: pf, classifier: cc, owners: ownerSet, metrics: metricsService, log: log}
}

// Classify runs spec.md §4.4's decision tree. Owner messages short-
// circuit to Ham without invoking the prefilter at all.
func (p *Pipeline) Classify(ctx context.Context, user platform.UserID, text string, hints classifier.Hints) Outcome {
	if p.owners[user] {
		return Outcome{Verdict: Ham, Reason: "owner exempt"}
	}

	switch p.prefilter.Run(text) {
	case prefilter.ObviousSpam:
		return Outcome{Verdict: Spam, Reason: "prefilter: obvious spam pattern"}
	case prefilter.ObviousSafe:
		return Outcome{Verdict: Ham, Reason: "prefilter: obvious safe pattern"}
	}

	start := time.Now()
	verdict, reason, err := p.classifier.Classify(ctx, text, hints)
	duration := time.Since(start)

	if err != nil {
		p.metrics.RecordClassifierDuration("error", duration)
		p.log.W("classifier call failed after retries, failing open to ham", tracing.InnerError, err, tracing.UserId, user)
		return Outcome{Verdict: Ham, Reason: "classifier unavailable, failed open"}
	}
	p.metrics.RecordClassifierDuration(verdict.String(), duration)

	if verdict == classifier.Spam {
		return Outcome{Verdict: Spam, Reason: reason}
	}
	return Outcome{Verdict: Ham, Reason: reason}
}
