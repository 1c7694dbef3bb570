// Package escaping guards against prompt injection when untrusted chat
// text is rendered into the XML-ish context passed to the conversational
// backend: <, >, and & are escaped so a message body can never close or
// open a <msg>/<reply> tag of its own.
package escaping

import "strings"

// MaxQuoteLength is the number of characters kept from a quoted reply
// before truncation, matching the suffix "...".
const MaxQuoteLength = 200

// Content escapes s for inclusion as element content: <msg ...>s</msg>.
func Content(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Attr escapes s for inclusion inside a double-quoted XML attribute:
// <msg name="s">. Additionally escapes the quote character itself.
func Attr(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TruncateQuote truncates s to at most MaxQuoteLength runes, appending
// "..." when truncation occurred. Truncation happens on rune boundaries,
// never splitting a multi-byte character.
func TruncateQuote(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxQuoteLength {
		return s
	}
	return string(runes[:MaxQuoteLength]) + "..."
}
