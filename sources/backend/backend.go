// Package backend implements spec.md §4.9's ConversationalBackend: an
// external capability wrapping the claude CLI as a one-shot subprocess
// per debounce fire, producing a stream of tool calls. Grounded on
// original_source/chatbot/claude_code.rs's spawn/stdin/stdout-reader
// shape, adapted from that file's persistent-process-with-session-
// resume design to spec.md §4.9's per-call invoke(...) contract: claudir
// still passes --resume when a prior session id is on file (preserving
// the prompt-cache boundary spec.md §4.9 calls for), but each call is a
// fresh process rather than a long-lived worker thread.
package backend

import (
	"context"

	"claudir/sources/tools"
)

// ConversationalBackend is spec.md §4.9's external capability.
type ConversationalBackend interface {
	// Invoke runs one turn: systemPrompt and renderedContext form the
	// cacheable prefix, ephemeralSuffix is per-call (current time, a
	// one-line instruction) and never reused across calls. Returns the
	// tool calls the backend emitted, or an error classified per
	// spec.md §4.9 (SpawnError, ProtocolError, Timeout — all "no
	// response this turn", the buffer is not mutated).
	Invoke(ctx context.Context, systemPrompt, renderedContext, ephemeralSuffix string) ([]tools.Call, error)
}
