package configuration

import (
	"time"

	"claudir/sources/platform"
)

// Config is the root of claudir's configuration tree, loaded from the
// JSON file named on the command line (see cmd/claudir).
type Config struct {
	TelegramBotToken string `json:"telegram_bot_token"`
	AnthropicAPIKey  string `json:"anthropic_api_key"`

	OwnerIDs        []platform.UserID `json:"owner_ids"`
	AllowedGroups   []platform.ChatID `json:"allowed_groups"`
	TrustedChannels []platform.ChatID `json:"trusted_channels"`

	MaxStrikes int             `json:"max_strikes"`
	DryRun     bool            `json:"dry_run"`
	LogChatID  *platform.ChatID `json:"log_chat_id"`
	DataDir    string          `json:"data_dir"`

	Chatbot   ChatbotConfig   `json:"chatbot"`
	Classifier ClassifierConfig `json:"classifier"`
	Redis     RedisConfig     `json:"redis"`
	Proxy     ProxyConfig     `json:"proxy"`
	Metrics   MetricsConfig   `json:"metrics"`
	Features  FeaturesConfig  `json:"features"`
}

// ChatbotConfig gates spec.md §4.9-§4.12 (the conversational backend,
// tool dispatch, per-chat debounce and context buffer).
type ChatbotConfig struct {
	Enabled                     bool          `json:"enabled"`
	Model                       string        `json:"model"`
	DebounceMs                  int           `json:"debounce_ms"`
	CompactionThresholdTokens   int           `json:"compaction_threshold_tokens"`
	BackendPath                 string        `json:"backend_path"`
	BackendTimeout              time.Duration `json:"backend_timeout"`
	AllowedTools                []string      `json:"allowed_tools"`
}

// ClassifierConfig configures the spam/ham classifier client and its
// OpenRouter fallback chain.
type ClassifierConfig struct {
	Model            string   `json:"model"`
	FallbackModels   []string `json:"fallback_models"`
	OpenRouterToken  string   `json:"open_router_token"`
	Timeout          time.Duration `json:"timeout"`
	MaxRetries       int      `json:"max_retries"`
}

// RedisConfig backs the admin-status cache and tool rate limiter. It is
// never used for conversation state, which is in-memory and ephemeral.
type RedisConfig struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	Password    string        `json:"password"`
	DB          int           `json:"db"`
	DialTimeout time.Duration `json:"dial_timeout"`
}

type ProxyConfig struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type MetricsConfig struct {
	ListenPort int `json:"listen_port"`
}

type FeaturesConfig struct {
	UnleashAPIURL     string `json:"unleash_api_url"`
	UnleashAppName    string `json:"unleash_app_name"`
	UnleashInstanceID string `json:"unleash_instance_id"`
	RefreshInterval   int    `json:"refresh_interval"`
}
