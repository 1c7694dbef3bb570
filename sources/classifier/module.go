package classifier

import (
	"time"

	"claudir/sources/configuration"
	"claudir/sources/network"
	"claudir/sources/tracing"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/fx"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 200 * time.Millisecond
)

var Module = fx.Module("classifier",
	fx.Provide(
		newBackend,
		NewClassifierClient,
		NewCompleter,
	),
)

// backend is satisfied by both OpenAIClient and OpenRouterClient: the
// classifier and the Summarizer (spec.md §4.7's "external-capable
// wrapper around ClassifierClient") share the same underlying model
// client and HTTP transport.
type backend interface {
	ClassifierClient
	Completer
}

// newBackend selects the classifier backend by config: an OpenRouter
// client when open_router_token is configured (fallback_models, if any,
// form its fallback chain), otherwise the direct Anthropic
// OpenAI-compatible endpoint.
func newBackend(cfg *configuration.Config, httpClient *network.Client, log *tracing.Logger) backend {
	if cfg.Classifier.OpenRouterToken != "" {
		orConfig := openrouter.DefaultConfig(cfg.Classifier.OpenRouterToken)
		orConfig.HTTPClient = httpClient.HTTP
		return NewOpenRouterClient(openrouter.NewClientWithConfig(*orConfig), cfg.Classifier.Model, cfg.Classifier.FallbackModels, log)
	}
	return NewOpenAIClient(httpClient.HTTP, cfg.AnthropicAPIKey, cfg.Classifier.Model, log)
}

// NewClassifierClient wraps the shared backend with spec.md §4.3's
// retry/fail-open policy.
func NewClassifierClient(b backend, cfg *configuration.Config, log *tracing.Logger) ClassifierClient {
	maxAttempts := cfg.Classifier.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return WithRetry(b, maxAttempts, defaultBaseBackoff, log)
}

// NewCompleter exposes the same backend's raw completion capability for
// the Summarizer.
func NewCompleter(b backend) Completer {
	return b
}
