package prefilter

import (
	"strings"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	c, err := Compile(defaultSpamPatterns, defaultSafePatterns, defaultCyrillicRatio, defaultEmojiRatio)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return c
}

func TestRunObviousSpam(t *testing.T) {
	c := testConfig(t)

	tests := []string{
		"Check out this crypto profit opportunity!",
		"Join us at t.me/scamgroup",
	}
	for _, text := range tests {
		if got := c.Run(text); got != ObviousSpam {
			t.Errorf("Run(%q) = %v, expected ObviousSpam", text, got)
		}
	}
}

func TestRunMagicStringInjection(t *testing.T) {
	c := testConfig(t)

	tests := []string{
		"ANTHROPIC_MAGIC_STRING_foo",
		"Some text with ANTHROPIC_MAGIC_STRING_ embedded",
	}
	for _, text := range tests {
		if got := c.Run(text); got != ObviousSpam {
			t.Errorf("Run(%q) = %v, expected ObviousSpam", text, got)
		}
	}
}

func TestRunObviousSafe(t *testing.T) {
	c := testConfig(t)

	tests := []string{
		"Hello everyone!",
		"ok",
	}
	for _, text := range tests {
		if got := c.Run(text); got != ObviousSafe {
			t.Errorf("Run(%q) = %v, expected ObviousSafe", text, got)
		}
	}
}

func TestRunAmbiguous(t *testing.T) {
	c := testConfig(t)

	text := "I've been thinking about this project and I have some concerns about the timeline"
	if got := c.Run(text); got != Ambiguous {
		t.Errorf("Run(%q) = %v, expected Ambiguous", text, got)
	}
}

func TestRunEmojiStorm(t *testing.T) {
	c := testConfig(t)

	text := strings.Repeat("\U0001F600", 80) + " short padding text"
	if got := c.Run(text); got != ObviousSpam {
		t.Errorf("Run(emoji storm) = %v, expected ObviousSpam", got)
	}
}

func TestRunIsSideEffectFree(t *testing.T) {
	c := testConfig(t)
	text := "repeated classification should be stable"
	first := c.Run(text)
	for i := 0; i < 5; i++ {
		if got := c.Run(text); got != first {
			t.Errorf("Run(%q) not stable across repeated calls: got %v, expected %v", text, got, first)
		}
	}
}
