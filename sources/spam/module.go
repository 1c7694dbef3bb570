package spam

import (
	"claudir/sources/classifier"
	"claudir/sources/configuration"
	"claudir/sources/metrics"
	"claudir/sources/prefilter"
	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("spam",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(pf *prefilter.Config, cc classifier.ClassifierClient, cfg *configuration.Config, metricsService *metrics.MetricsService, log *tracing.Logger) *Pipeline {
	return New(pf, cc, cfg.OwnerIDs, metricsService, log)
}
