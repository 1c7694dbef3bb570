package convo

import (
	"claudir/sources/configuration"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("convo",
	fx.Provide(
		NewSummarizer,
		NewBufferFactory,
	),
)

// BufferFactory builds one Buffer per chat. ContextBuffer state is kept
// per chat (the Router creates one Buffer per chat on demand) rather
// than as a process-wide singleton, so fx provides the factory, not a
// shared Buffer.
type BufferFactory struct {
	compactionThreshold uint
	summarizer          *Summarizer
	metrics             *metrics.MetricsService
	log                 *tracing.Logger
}

func NewBufferFactory(cfg *configuration.Config, summarizer *Summarizer, metricsService *metrics.MetricsService, log *tracing.Logger) *BufferFactory {
	threshold := cfg.Chatbot.CompactionThresholdTokens
	if threshold <= 0 {
		threshold = 8000
	}

	return &BufferFactory{
		compactionThreshold: uint(threshold),
		summarizer:          summarizer,
		metrics:             metricsService,
		log:                 log,
	}
}

func (f *BufferFactory) New(chat platform.ChatID) (*Buffer, error) {
	return NewBuffer(chat, f.compactionThreshold, f.summarizer, f.metrics, f.log)
}
