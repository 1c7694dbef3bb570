// Package debounce implements spec.md §4.8's per-chat coalescing timer:
// Kick resets a chat's deadline, and a single FireEvent is emitted once
// the chat has gone quiet for the configured duration. Grounded on
// original_source/chatbot/debounce.rs's reset-cancels-timer state
// machine, translated from Tokio channels/Notify into a Go time.Timer
// per chat guarded by a mutex, in the teacher's plain-struct-plus-mutex
// idiom (sources/throttler/throttler.go).
package debounce

import (
	"sync"
	"time"

	"claudir/sources/platform"
	"claudir/sources/tracing"
)

// FireEvent is emitted when a chat's debounce timer expires. Generation
// is the chat's kick counter at the time the timer was armed; the
// Supervisor does not read it and instead drops idempotent fires by
// comparing convo.Buffer.Generation.
type FireEvent struct {
	Chat       platform.ChatID
	Generation uint64
}

type chatState struct {
	timer      *time.Timer
	generation uint64
}

// Debouncer coalesces rapid-fire buffer mutations into a single
// FireEvent per chat, per spec.md §4.8.
type Debouncer struct {
	mu       sync.Mutex
	chats    map[platform.ChatID]*chatState
	duration time.Duration
	fire     chan FireEvent
	log      *tracing.Logger
}

// NewWithDuration builds a Debouncer with the given inactivity duration
// (chatbot.debounce_ms, default 1000ms per spec.md §4.8).
func NewWithDuration(duration time.Duration, log *tracing.Logger) *Debouncer {
	if duration <= 0 {
		duration = time.Second
	}
	return &Debouncer{
		chats:    map[platform.ChatID]*chatState{},
		duration: duration,
		fire:     make(chan FireEvent, 64),
		log:      log,
	}
}

// Events is the channel the Supervisor drains for FireEvents.
func (d *Debouncer) Events() <-chan FireEvent {
	return d.fire
}

// Kick resets chat's debounce deadline, replacing any prior timer. Edits
// and deletes kick identically to appends, per spec.md §4.8.
func (d *Debouncer) Kick(chat platform.ChatID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.chats[chat]
	if !ok {
		state = &chatState{}
		d.chats[chat] = state
	}

	state.generation++
	generation := state.generation

	if state.timer != nil {
		state.timer.Stop()
	}

	state.timer = time.AfterFunc(d.duration, func() {
		d.emit(chat, generation)
	})
}

func (d *Debouncer) emit(chat platform.ChatID, generation uint64) {
	d.mu.Lock()
	state, ok := d.chats[chat]
	current := ok && state.generation == generation
	d.mu.Unlock()

	if !current {
		return
	}

	select {
	case d.fire <- FireEvent{Chat: chat, Generation: generation}:
	default:
		d.log.W("fire event channel full, dropping fire", tracing.ChatId, chat, tracing.DebounceGen, generation)
	}
}

// Cancel stops chat's pending timer without emitting a fire, used on
// chat teardown.
func (d *Debouncer) Cancel(chat platform.ChatID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, ok := d.chats[chat]
	if !ok {
		return
	}
	if state.timer != nil {
		state.timer.Stop()
	}
	delete(d.chats, chat)
}
