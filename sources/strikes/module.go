package strikes

import (
	"claudir/sources/configuration"
	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("strikes",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg *configuration.Config, log *tracing.Logger) (*Ledger, error) {
	return New(cfg.DataDir, cfg.MaxStrikes, log)
}
