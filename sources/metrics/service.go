package metrics

import (
	"time"

	"claudir/sources/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsService exposes the counters/histograms the Router, Supervisor,
// and ToolDispatcher update as they process events. Grounded on
// sources/metrics/service.go's Record*-method-plus-init()-registration
// idiom, re-pointed at claudir's own event types.
type MetricsService struct {
	log *tracing.Logger
}

var (
	spamVerdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudir_spam_verdicts_total",
			Help: "Total number of SpamPipeline verdicts",
		},
		[]string{"verdict"},
	)

	strikesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claudir_strikes_recorded_total",
			Help: "Total number of strikes recorded against users",
		},
	)

	bansIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claudir_bans_issued_total",
			Help: "Total number of bans issued after reaching max_strikes",
		},
	)

	debounceFires = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claudir_debounce_fires_total",
			Help: "Total number of debounce FireEvents delivered to the Supervisor",
		},
	)

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudir_tool_calls_total",
			Help: "Total number of ToolDispatcher calls",
		},
		[]string{"tool", "result"},
	)

	backendInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudir_backend_invocations_total",
			Help: "Total number of ConversationalBackend invocations",
		},
		[]string{"result"},
	)

	backendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claudir_backend_duration_seconds",
			Help:    "Duration of ConversationalBackend.Invoke calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	classifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claudir_classifier_duration_seconds",
			Help:    "Duration of ClassifierClient.Classify calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	contextTokens = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "claudir_context_tokens",
			Help: "Current ContextBuffer token_estimate per chat",
		},
		[]string{"chat"},
	)

	compactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudir_compactions_total",
			Help: "Total number of ContextBuffer compactions",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(spamVerdicts)
	prometheus.MustRegister(strikesRecorded)
	prometheus.MustRegister(bansIssued)
	prometheus.MustRegister(debounceFires)
	prometheus.MustRegister(toolCalls)
	prometheus.MustRegister(backendInvocations)
	prometheus.MustRegister(backendDuration)
	prometheus.MustRegister(classifierDuration)
	prometheus.MustRegister(contextTokens)
	prometheus.MustRegister(compactionsTotal)
}

func NewMetricsService(log *tracing.Logger) *MetricsService {
	return &MetricsService{log: log}
}

func (s *MetricsService) RecordVerdict(verdict string) {
	spamVerdicts.WithLabelValues(verdict).Inc()
}

func (s *MetricsService) RecordStrike() {
	strikesRecorded.Inc()
}

func (s *MetricsService) RecordBan() {
	bansIssued.Inc()
}

func (s *MetricsService) RecordDebounceFire() {
	debounceFires.Inc()
}

func (s *MetricsService) RecordToolCall(tool, result string) {
	toolCalls.WithLabelValues(tool, result).Inc()
}

func (s *MetricsService) RecordBackendInvocation(result string, duration time.Duration) {
	backendInvocations.WithLabelValues(result).Inc()
	backendDuration.Observe(duration.Seconds())
}

func (s *MetricsService) RecordClassifierDuration(outcome string, duration time.Duration) {
	classifierDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (s *MetricsService) SetContextTokens(chat string, tokens float64) {
	contextTokens.WithLabelValues(chat).Set(tokens)
}

func (s *MetricsService) RecordCompaction(outcome string) {
	compactionsTotal.WithLabelValues(outcome).Inc()
}
