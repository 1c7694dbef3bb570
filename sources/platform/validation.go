package platform

import (
	"fmt"
	"regexp"
)

var (
	AnthropicAPIKeyPattern  = regexp.MustCompile(`^sk-ant-[A-Za-z0-9\-_]{20,}$`)
	TelegramBotTokenPattern = regexp.MustCompile(`^[0-9]+:AA[0-9A-Za-z\-_]{33}$`)
)

func ValidateAnthropicAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("anthropic API key is required")
	}

	if !AnthropicAPIKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid anthropic API key format: expected sk-ant-...")
	}

	return nil
}

func ValidateTelegramBotToken(token string) error {
	if token == "" {
		return fmt.Errorf("Telegram Bot API token is required")
	}

	if !TelegramBotTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram Bot API token format: expected [0-9]+:AA[0-9A-Za-z\\-_]{33}")
	}

	return nil
}

func ValidateNotEmpty(value string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}