package configuration

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"claudir/sources/errs"
	"claudir/sources/platform"
	"claudir/sources/tracing"
)

// Path is the config file location, supplied by cmd/claudir from argv.
type Path string

const (
	defaultMaxStrikes                = 3
	defaultDebounceMs                = 1000
	defaultCompactionThresholdTokens = 50000
)

// NewJSON reads the configuration from path, expands ${VAR}/${VAR:default}
// references against the process environment, applies spec.md §6 defaults
// for fields left unset, and validates required fields.
func NewJSON(path Path, log *tracing.Logger) (*Config, error) {
	defer tracing.ProfilePoint(log, "configuration loaded", "configuration.load")()

	content, err := os.ReadFile(string(path))
	if err != nil {
		log.E("failed to read configuration file", tracing.InnerError, err, "path", path)
		return nil, errs.Config(fmt.Errorf("failed to read configuration file: %w", err))
	}

	expanded := expandEnv(string(content))

	var config Config
	if err := json.Unmarshal([]byte(expanded), &config); err != nil {
		log.E("failed to parse configuration file", tracing.InnerError, err, "path", path)
		return nil, errs.Config(fmt.Errorf("failed to parse configuration file: %w", err))
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		log.E("configuration validation failed", tracing.InnerError, err)
		return nil, errs.Config(err)
	}

	return &config, nil
}

func applyDefaults(c *Config) {
	if c.MaxStrikes == 0 {
		c.MaxStrikes = defaultMaxStrikes
	}
	if c.Chatbot.DebounceMs == 0 {
		c.Chatbot.DebounceMs = defaultDebounceMs
	}
	if c.Chatbot.CompactionThresholdTokens == 0 {
		c.Chatbot.CompactionThresholdTokens = defaultCompactionThresholdTokens
	}
	if c.Chatbot.BackendPath == "" {
		c.Chatbot.BackendPath = "claude"
	}
	if len(c.Chatbot.AllowedTools) == 0 {
		c.Chatbot.AllowedTools = []string{"WebSearch"}
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
}

func validate(c *Config) error {
	if err := platform.ValidateTelegramBotToken(c.TelegramBotToken); err != nil {
		return err
	}
	if err := platform.ValidateAnthropicAPIKey(c.AnthropicAPIKey); err != nil {
		return err
	}
	if err := platform.ValidateNotEmpty(c.DataDir, "data_dir"); err != nil {
		return err
	}
	return nil
}

// expandEnv replaces ${VAR} or ${VAR:default} with environment values.
func expandEnv(content string) string {
	re := regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		matches := re.FindStringSubmatch(match)
		key := matches[1]
		defaultValue := ""
		if len(matches) > 2 {
			defaultValue = matches[2]
		}

		value, exists := os.LookupEnv(key)
		if !exists {
			return defaultValue
		}
		return value
	})
}
