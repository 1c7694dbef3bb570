package debounce

import (
	"time"

	"claudir/sources/configuration"
	"claudir/sources/tracing"

	"go.uber.org/fx"
)

var Module = fx.Module("debounce",
	fx.Provide(New),
)

func New(cfg *configuration.Config, log *tracing.Logger) *Debouncer {
	ms := cfg.Chatbot.DebounceMs
	if ms <= 0 {
		ms = 1000
	}
	return NewWithDuration(time.Duration(ms)*time.Millisecond, log)
}
