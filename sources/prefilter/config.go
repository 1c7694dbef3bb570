package prefilter

import "go.uber.org/fx"

var Module = fx.Module("prefilter",
	fx.Provide(New),
)

// defaultSpamPatterns and defaultSafePatterns mirror the signatures
// original_source/prefilter.rs ships in its test config: crypto-profit
// scams and t.me invite links as obvious spam, greetings as obvious safe.
var (
	defaultSpamPatterns = []string{
		`(?i)crypto.*profit`,
		`(?i)t\.me/\S+`,
		`(?i)forex.*signal`,
		`(?i)get rich quick`,
	}
	defaultSafePatterns = []string{
		`(?i)^(hi|hello|hey|thanks|thank you)\b`,
	}
)

const (
	defaultCyrillicRatio = 0.0
	defaultEmojiRatio    = 0.6
)

// New builds the prefilter Config with claudir's default pattern lists.
// The patterns are not currently exposed via configuration.Config —
// spec.md §6 does not list a config key for them — so they are compiled
// once here at process startup, matching the teacher's compiled-once
// validator convention in sources/platform/validation.go.
func New() (*Config, error) {
	return Compile(defaultSpamPatterns, defaultSafePatterns, defaultCyrillicRatio, defaultEmojiRatio)
}
