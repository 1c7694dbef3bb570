package features

import (
	"context"
	"time"

	"claudir/sources/tracing"

	"github.com/Unleash/unleash-client-go/v4"
)

// Flag names toggled remotely without a redeploy. Both are hints: a flag
// can only make claudir more conservative (force dry_run on, force the
// chatbot off), never widen what an owner or admin is allowed to do.
const (
	FlagForceDryRun    = "claudir/safety/force-dry-run"
	FlagDisableChatbot = "claudir/chatbot/disable"
)

type FeatureManager struct {
	client *unleash.Client
	config *FeatureConfig
	log    *tracing.Logger
}

func NewFeatureManager(config *FeatureConfig, log *tracing.Logger) (*FeatureManager, error) {
	if config.UnleashAPIURL == "" {
		log.I("Unleash API URL not configured, feature flags default to fallback values")
		return &FeatureManager{config: config, log: log}, nil
	}

	client, err := unleash.NewClient(
		unleash.WithUrl(config.UnleashAPIURL),
		unleash.WithAppName(config.UnleashAppName),
		unleash.WithInstanceId(config.UnleashInstanceID),
		unleash.WithRefreshInterval(time.Duration(config.RefreshInterval)*time.Second),
		unleash.WithListener(&unleashListener{log: log}),
	)

	if err != nil {
		log.E("Failed to initialize Unleash client", tracing.InnerError, err)
		return nil, err
	}

	log.I("Unleash client initialized successfully",
		"api_url", config.UnleashAPIURL,
		"app_name", config.UnleashAppName,
		"instance_id", config.UnleashInstanceID,
		"refresh_interval", config.RefreshInterval,
	)

	return &FeatureManager{
		client: client,
		config: config,
		log:    log,
	}, nil
}

// IsEnabledDefault reports whether featureName is toggled on, falling
// back to defaultValue when Unleash is unreachable or unconfigured.
func (f *FeatureManager) IsEnabledDefault(featureName string, defaultValue bool) bool {
	if f.client == nil {
		return defaultValue
	}
	return f.client.IsEnabled(featureName, unleash.WithFallback(defaultValue))
}

// ShouldForceDryRun reports whether FlagForceDryRun overrides
// configuration.Config.DryRun to true for this turn.
func (f *FeatureManager) ShouldForceDryRun() bool {
	return f.IsEnabledDefault(FlagForceDryRun, false)
}

// ShouldDisableChatbot reports whether FlagDisableChatbot overrides
// configuration.Config.Chatbot.Enabled to false for this turn.
func (f *FeatureManager) ShouldDisableChatbot() bool {
	return f.IsEnabledDefault(FlagDisableChatbot, false)
}

func (f *FeatureManager) Close() error {
	if f.client == nil {
		return nil
	}
	f.log.I("Closing Unleash client")
	f.client.Close()
	return nil
}

type unleashListener struct {
	log *tracing.Logger
}

func (l *unleashListener) OnReady() {
	l.log.I("Unleash client ready")
}

func (l *unleashListener) OnError(err error) {
	l.log.E("Unleash client error", tracing.InnerError, err)
}

func (l *unleashListener) OnWarning(warning error) {
	l.log.W("Unleash client warning", tracing.InnerError, warning)
}

func (l *unleashListener) OnCount(name string, enabled bool) {
}

func (l *unleashListener) OnSent(payload unleash.MetricsData) {
}

func (l *unleashListener) OnRegistered(payload unleash.ClientData) {
	l.log.I("Unleash client registered", "instance_id", payload.InstanceID)
}

func (f *FeatureManager) OnStop(ctx context.Context) error {
	return f.Close()
}
