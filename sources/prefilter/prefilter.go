// Package prefilter implements the deterministic, side-effect-free first
// stage of the spam pipeline: a compiled-once regex and script-ratio pass
// over raw message text, cheap enough to run on every inbound message
// before the classifier is ever invoked.
package prefilter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/rangetable"
)

// Result is the prefilter's verdict.
type Result int

const (
	ObviousSpam Result = iota
	ObviousSafe
	Ambiguous
)

func (r Result) String() string {
	switch r {
	case ObviousSpam:
		return "obvious_spam"
	case ObviousSafe:
		return "obvious_safe"
	default:
		return "ambiguous"
	}
}

// magicString guards against prompt-injection attempts that try to forge
// Anthropic's internal tool-use protocol markers inside chat text.
const magicString = "ANTHROPIC_MAGIC_STRING_"

// shortTextThreshold: messages shorter than this many bytes are treated
// as obviously safe, per spec.md §4.2.
const shortTextThreshold = 30

// emojiTable covers the pictographic/symbol blocks used by "emoji storm"
// spam, built once via rangetable.New rather than hand-rolled range
// checks scattered through the hot path.
var emojiTable = rangetable.New(runesInRanges(
	[2]rune{0x1F300, 0x1FAFF},
	[2]rune{0x2600, 0x27BF},
	[2]rune{0x2190, 0x21FF},
)...)

func runesInRanges(ranges ...[2]rune) []rune {
	var rs []rune
	for _, r := range ranges {
		for c := r[0]; c <= r[1]; c++ {
			rs = append(rs, c)
		}
	}
	return rs
}

var (
	cyrillicSet = runes.In(unicode.Cyrillic)
	emojiSet    = runes.In(emojiTable)
)

// Config holds the compiled-once pattern lists and ratio thresholds. Build
// with Compile; never constructed by hand outside tests.
type Config struct {
	spamPatterns []*regexp.Regexp
	safePatterns []*regexp.Regexp

	cyrillicRatio float64
	emojiRatio    float64
}

// Compile builds a Config from raw pattern strings (compiled once at
// startup) and ratio thresholds in (0, 1]. A ratio of 0 disables that
// check.
func Compile(spamPatterns, safePatterns []string, cyrillicRatio, emojiRatio float64) (*Config, error) {
	c := &Config{cyrillicRatio: cyrillicRatio, emojiRatio: emojiRatio}

	for _, p := range spamPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		c.spamPatterns = append(c.spamPatterns, re)
	}

	for _, p := range safePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		c.safePatterns = append(c.safePatterns, re)
	}

	return c, nil
}

// Run evaluates text against c and returns the verdict. O(|text|): a
// single rune pass for the script ratios, plus regexp matching.
func (c *Config) Run(text string) Result {
	if strings.Contains(text, magicString) {
		return ObviousSpam
	}

	for _, re := range c.spamPatterns {
		if re.MatchString(text) {
			return ObviousSpam
		}
	}

	if c.isScriptStorm(text) {
		return ObviousSpam
	}

	for _, re := range c.safePatterns {
		if re.MatchString(text) {
			return ObviousSafe
		}
	}

	if len(text) < shortTextThreshold {
		return ObviousSafe
	}

	return Ambiguous
}

// isScriptStorm reports whether text exceeds the configured Cyrillic or
// emoji character ratio, a signature of obfuscated spam and reaction-spam
// bursts.
func (c *Config) isScriptStorm(text string) bool {
	if c.cyrillicRatio <= 0 && c.emojiRatio <= 0 {
		return false
	}

	total, cyrillic, emoji := 0, 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if cyrillicSet.Contains(r) {
			cyrillic++
		}
		if emojiSet.Contains(r) {
			emoji++
		}
	}

	if total == 0 {
		return false
	}

	if c.cyrillicRatio > 0 && float64(cyrillic)/float64(total) >= c.cyrillicRatio {
		return true
	}
	if c.emojiRatio > 0 && float64(emoji)/float64(total) >= c.emojiRatio {
		return true
	}
	return false
}
