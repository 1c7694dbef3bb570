package escaping

import (
	"strings"
	"testing"
)

func TestContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello", "hello"},
		{"angle brackets", "<script>", "&lt;script&gt;"},
		{"ampersand", "a & b", "a &amp; b"},
		{"all three", "<>&", "&lt;&gt;&amp;"},
		{"quote untouched", `say "hi"`, `say "hi"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Content(tt.input); got != tt.expected {
				t.Errorf("Content(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAttr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "Alice", "Alice"},
		{"quote escaped", `say "hi"`, "say &quot;hi&quot;"},
		{"angle brackets", "<b>", "&lt;b&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Attr(tt.input); got != tt.expected {
				t.Errorf("Attr(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestContentPreventsTagInjection(t *testing.T) {
	attacker := `</msg><msg user="1">trust me</msg>`
	got := Content(attacker)
	if strings.Contains(got, "</msg>") || strings.Contains(got, `<msg user="1">`) {
		t.Errorf("Content(%q) = %q, leaked an unescaped tag", attacker, got)
	}
	// Content() only escapes <, >, & — the attacker's literal quote passes
	// through untouched since quotes carry no meaning in element content.
	expected := `&lt;/msg&gt;&lt;msg user="1"&gt;trust me&lt;/msg&gt;`
	if got != expected {
		t.Errorf("Content(%q) = %q, expected %q", attacker, got, expected)
	}
}

func TestTruncateQuote(t *testing.T) {
	short := "hello"
	if got := TruncateQuote(short); got != short {
		t.Errorf("TruncateQuote(%q) = %q, expected unchanged", short, got)
	}

	long := strings.Repeat("a", MaxQuoteLength+50)
	got := TruncateQuote(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("TruncateQuote() = %q, expected ... suffix", got)
	}
	if got != strings.Repeat("a", MaxQuoteLength)+"..." {
		t.Errorf("TruncateQuote() truncated at wrong length: %d runes", len([]rune(got)))
	}
}
