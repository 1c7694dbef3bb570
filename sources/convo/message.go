// Package convo implements spec.md §4.6-§4.7: the per-chat ContextBuffer
// and its Summarizer, restructured from the teacher's Redis-backed
// ContextManager (sources/artificial/context.go) into an in-memory
// structure since conversation state is explicitly ephemeral.
package convo

import (
	"time"

	"claudir/sources/platform"
)

// QuotedReply is the truncated quote attached when a message replies to
// another. TextSnippet is already escaping.TruncateQuote'd by the time
// it reaches the buffer.
type QuotedReply struct {
	ID          platform.MessageID
	FromName    string
	TextSnippet string
}

// Message mirrors spec.md §3's Message: immutable except Text and
// Deleted.
type Message struct {
	ID        platform.MessageID
	Chat      platform.ChatID
	User      platform.UserID
	Name      string
	Time      time.Time
	Text      string
	Reply     *QuotedReply
	EditedAt  *time.Time
	Deleted   bool
}
