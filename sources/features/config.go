package features

import (
	"claudir/sources/configuration"
)

// FeatureConfig carries the Unleash connection details out of
// configuration.Config.Features so FeatureManager doesn't depend on the
// whole config tree.
type FeatureConfig struct {
	UnleashAPIURL     string
	UnleashInstanceID string
	UnleashAppName    string
	RefreshInterval   int
}

func NewFeatureConfig(cfg *configuration.Config) *FeatureConfig {
	refresh := cfg.Features.RefreshInterval
	if refresh <= 0 {
		refresh = 5
	}

	appName := cfg.Features.UnleashAppName
	if appName == "" {
		appName = "claudir"
	}

	return &FeatureConfig{
		UnleashAPIURL:     cfg.Features.UnleashAPIURL,
		UnleashInstanceID: cfg.Features.UnleashInstanceID,
		UnleashAppName:    appName,
		RefreshInterval:   refresh,
	}
}
