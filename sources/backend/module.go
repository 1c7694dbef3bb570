package backend

import "go.uber.org/fx"

var Module = fx.Module("backend",
	fx.Provide(
		NewClaudeBackend,
		func(c *ClaudeBackend) ConversationalBackend { return c },
	),
)
