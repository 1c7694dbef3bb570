package convo

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"claudir/sources/escaping"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/tracing"

	"github.com/pkoukk/tiktoken-go"
)

// entry pairs a Message with its cached chars/4 token estimate so
// Delete/compaction can adjust token_estimate without re-scanning text.
type entry struct {
	msg    Message
	tokens uint
}

// Buffer is spec.md §4.6's per-chat ContextBuffer. It is created and
// held by the Router, whose goroutine appends and edits, while the
// chat's supervisor task renders it and tool calls read or delete from
// it; the mutex here serializes all of those accesses.
type Buffer struct {
	mu sync.Mutex

	chat platform.ChatID

	summary       *string
	summaryTokens uint
	active        []entry
	activeIndex   map[platform.MessageID]int
	archive       []Message
	archiveIndex  map[platform.MessageID]int
	tokenEstimate uint
	generation    uint64

	compactionThreshold uint
	tokenizer           *tiktoken.Tiktoken
	summarizer          *Summarizer
	metrics             *metrics.MetricsService
	log                 *tracing.Logger
}

// NewBuffer builds an empty buffer for chat with the given compaction
// threshold (spec.md §6's chatbot.compaction_threshold_tokens).
func NewBuffer(chat platform.ChatID, compactionThreshold uint, summarizer *Summarizer, metricsService *metrics.MetricsService, log *tracing.Logger) (*Buffer, error) {
	tokenizer, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	return &Buffer{
		chat:                chat,
		activeIndex:         map[platform.MessageID]int{},
		archiveIndex:        map[platform.MessageID]int{},
		compactionThreshold: compactionThreshold,
		tokenizer:           tokenizer,
		summarizer:          summarizer,
		metrics:             metricsService,
		log:                 log.With(tracing.ChatId, chat),
	}, nil
}

// estimateTokens is spec.md §4.6's primary bound: chars/4. The tiktoken
// count is computed alongside purely for logging — it never replaces
// the chars/4 figure as the maintained token_estimate.
func (b *Buffer) estimateTokens(text string) uint {
	estimate := uint(len(text) / 4)
	if estimate == 0 && len(text) > 0 {
		estimate = 1
	}

	precise := len(b.tokenizer.Encode(text, nil, nil))
	b.log.D("token estimate computed", tracing.ContextTokens, estimate, "tiktoken_count", precise)

	return estimate
}

// Append adds msg at the tail, updates token_estimate, and triggers
// compaction if the threshold is crossed.
func (b *Buffer) Append(ctx context.Context, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.activeIndex[msg.ID]; exists {
		return
	}

	tokens := b.estimateTokens(msg.Text)
	b.active = append(b.active, entry{msg: msg, tokens: tokens})
	b.activeIndex[msg.ID] = len(b.active) - 1
	b.tokenEstimate += tokens

	b.archive = append(b.archive, msg)
	b.archiveIndex[msg.ID] = len(b.archive) - 1
	b.generation++

	b.maybeCompactLocked(ctx)
	b.reportTokensLocked()
}

// Edit locates id in the active window and updates text/edited_at. A
// miss (already compacted away) is dropped silently, per spec.md §4.6.
// Idempotent: applying the same edit twice converges to the same state.
func (b *Buffer) Edit(id platform.MessageID, newText string, editedAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.activeIndex[id]
	if !ok {
		return
	}

	old := b.active[i]
	b.tokenEstimate -= old.tokens
	newTokens := b.estimateTokens(newText)
	b.active[i].msg.Text = newText
	b.active[i].msg.EditedAt = &editedAt
	b.active[i].tokens = newTokens
	b.tokenEstimate += newTokens

	if ai, ok := b.archiveIndex[id]; ok {
		b.archive[ai].Text = newText
		b.archive[ai].EditedAt = &editedAt
	}
	b.generation++
	b.reportTokensLocked()
}

// Delete marks id deleted: omitted from Render, removed from the token
// estimate, but retained in state (and in the archive) until compacted.
// Idempotent past the first call.
func (b *Buffer) Delete(id platform.MessageID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.activeIndex[id]
	if !ok {
		return
	}

	if b.active[i].msg.Deleted {
		return
	}

	b.active[i].msg.Deleted = true
	b.tokenEstimate -= b.active[i].tokens

	if ai, ok := b.archiveIndex[id]; ok {
		b.archive[ai].Deleted = true
	}
	b.generation++
	b.reportTokensLocked()
}

// reportTokensLocked publishes token_estimate to Metrics under the
// buffer's own lock, keyed by chat id.
func (b *Buffer) reportTokensLocked() {
	b.metrics.SetContextTokens(strconv.FormatInt(int64(b.chat), 10), float64(b.tokenEstimate))
}

// Render produces the escaped conversation text handed to the
// conversational backend, per spec.md §4.6's fixed layout.
func (b *Buffer) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out strings.Builder
	out.WriteString("=== Conversation Summary ===\n")
	if b.summary != nil {
		out.WriteString(escaping.Content(*b.summary))
	}
	out.WriteString("\n\n=== Recent Messages ===\n")

	for _, e := range b.active {
		if e.msg.Deleted {
			continue
		}
		out.WriteString(renderMessage(e.msg))
		out.WriteString("\n")
	}

	return out.String()
}

func renderMessage(m Message) string {
	var reply string
	if m.Reply != nil {
		reply = fmt.Sprintf(`<reply id="%d" from="%s">%s</reply>`,
			m.Reply.ID, escaping.Attr(m.Reply.FromName), escaping.Content(m.Reply.TextSnippet))
	}

	return fmt.Sprintf(`<msg id="%d" chat="%d" user="%d" name="%s" time="%s">%s%s</msg>`,
		m.ID, m.Chat, m.User, escaping.Attr(m.Name), escaping.Attr(m.Time.Format(time.RFC3339)),
		reply, escaping.Content(m.Text))
}

// MaybeCompact runs spec.md §4.6's compaction algorithm when
// token_estimate crosses compactionThreshold. Safe to call redundantly;
// it is a no-op below threshold.
func (b *Buffer) MaybeCompact(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeCompactLocked(ctx)
}

func (b *Buffer) maybeCompactLocked(ctx context.Context) {
	if b.tokenEstimate < b.compactionThreshold {
		return
	}

	nonDeleted := b.nonDeletedLocked()
	if len(nonDeleted) == 0 {
		return
	}

	half := len(nonDeleted) / 2
	if half == 0 {
		half = 1
	}
	selected := nonDeleted[:half]

	var rendered strings.Builder
	for _, e := range selected {
		rendered.WriteString(renderMessage(e.msg))
		rendered.WriteString("\n")
	}

	summary, err := b.summarizer.Summarize(ctx, rendered.String())
	if err != nil {
		b.metrics.RecordCompaction("summarizer_failed")
		b.log.W("compaction summarizer failed, skipping", tracing.InnerError, err, tracing.ContextTokens, b.tokenEstimate)
		b.enforceHardCeilingLocked()
		return
	}

	if b.summary != nil {
		combined := *b.summary + "\n" + summary
		resummarized, err := b.summarizer.Summarize(ctx, combined)
		if err != nil {
			b.log.W("compaction re-summarization failed, keeping concatenated summary", tracing.InnerError, err)
			resummarized = combined
		}
		summary = resummarized
	}

	b.removeLocked(selected)
	b.tokenEstimate -= b.summaryTokens
	b.summary = &summary
	b.summaryTokens = b.estimateTokens(summary)
	b.tokenEstimate += b.summaryTokens
	b.metrics.RecordCompaction("ok")
	b.log.I("compaction completed", tracing.CompactionTrigger, true, tracing.ContextTokens, b.tokenEstimate, "messages_compacted", len(selected))
}

// enforceHardCeilingLocked drops the oldest non-deleted messages without
// summarization once token_estimate exceeds 4x the threshold, per
// spec.md §4.6 step 5's hard ceiling.
func (b *Buffer) enforceHardCeilingLocked() {
	ceiling := b.compactionThreshold * 4
	if b.tokenEstimate < ceiling {
		return
	}

	nonDeleted := b.nonDeletedLocked()
	dropped := 0
	for _, e := range nonDeleted {
		if b.tokenEstimate < ceiling {
			break
		}
		b.removeLocked([]entry{e})
		dropped++
	}

	if dropped > 0 {
		b.metrics.RecordCompaction("hard_ceiling")
	}
	b.log.W("hard ceiling exceeded, dropped oldest messages without summarization", "messages_dropped", dropped, tracing.ContextTokens, b.tokenEstimate)
}

// nonDeletedLocked returns active entries ordered oldest-first, ties
// broken by id, per spec.md §4.6's tie-break rule. Append order already
// equals chat time order, so this is a stable filter, not a re-sort —
// the sort only guards against clock skew between messages appended out
// of strict time order.
func (b *Buffer) nonDeletedLocked() []entry {
	out := make([]entry, 0, len(b.active))
	for _, e := range b.active {
		if !e.msg.Deleted {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].msg.Time.Equal(out[j].msg.Time) {
			return out[i].msg.Time.Before(out[j].msg.Time)
		}
		return out[i].msg.ID < out[j].msg.ID
	})
	return out
}

// removeLocked deletes the given entries from the active window (and
// its index) while leaving the archive untouched — compacted-away
// messages remain readable via read_messages.
func (b *Buffer) removeLocked(toRemove []entry) {
	remove := make(map[platform.MessageID]bool, len(toRemove))
	for _, e := range toRemove {
		remove[e.msg.ID] = true
	}

	kept := b.active[:0:0]
	for _, e := range b.active {
		if remove[e.msg.ID] {
			b.tokenEstimate -= e.tokens
			continue
		}
		kept = append(kept, e)
	}
	b.active = kept

	b.activeIndex = make(map[platform.MessageID]int, len(b.active))
	for i, e := range b.active {
		b.activeIndex[e.msg.ID] = i
	}
}

// Archive returns the last n non-deleted messages ever seen in this
// chat, including ones already compacted out of the active window — the
// backing store for the read_messages tool.
func (b *Buffer) Archive(lastN int) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var nonDeleted []Message
	for _, m := range b.archive {
		if !m.Deleted {
			nonDeleted = append(nonDeleted, m)
		}
	}

	if lastN <= 0 || lastN >= len(nonDeleted) {
		return nonDeleted
	}
	return nonDeleted[len(nonDeleted)-lastN:]
}

// RenderMessages formats an arbitrary message slice with the same
// escaped, id-indexed shape Render uses for the active window. It backs
// the read_messages tool result, whose content is fed back to the
// conversational backend and so gets the same hostile-input escaping as
// the live buffer.
func RenderMessages(msgs []Message) string {
	var out strings.Builder
	for _, m := range msgs {
		out.WriteString(renderMessage(m))
		out.WriteString("\n")
	}
	return out.String()
}

// TokenEstimate reports the buffer's current token_estimate.
func (b *Buffer) TokenEstimate() uint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenEstimate
}

// Generation increments on every Append/Edit/Delete. The Supervisor
// compares it against the generation it last rendered to drop idempotent
// debounce fires, per spec.md §4.8.
func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}
