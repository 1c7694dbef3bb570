// Package supervisor implements spec.md §4.12's Supervisor: one long-
// lived task per active chat, consuming Debouncer FireEvents and
// driving ConversationalBackend -> ToolDispatcher. Grounded on
// sources/telegram/module.go's Poller Start/Stop lifecycle idiom.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claudir/sources/backend"
	"claudir/sources/configuration"
	"claudir/sources/debounce"
	"claudir/sources/features"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/router"
	"claudir/sources/tracing"
)

const defaultBackendTimeout = 60 * time.Second

// shutdownGrace bounds how long Stop waits for the per-chat tasks to
// return after it has cancelled their shared context.
const shutdownGrace = 5 * time.Second

// chatTask coalesces fires for one chat into a single in-flight backend
// call: a full buffered channel means a fire is already queued, so the
// send is dropped rather than blocking, per spec.md §4.8's "at most one
// in-flight conversational-backend call per chat" guarantee.
type chatTask struct {
	fire chan struct{}
}

// Supervisor owns the per-chat task set described by spec.md §4.12.
type Supervisor struct {
	cfg          *configuration.Config
	router       *router.Router
	backend      backend.ConversationalBackend
	debouncer    *debounce.Debouncer
	metrics      *metrics.MetricsService
	features     *features.FeatureManager
	systemPrompt string
	log          *tracing.Logger

	tasksMu sync.Mutex
	tasks   map[platform.ChatID]*chatTask
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func New(cfg *configuration.Config, r *router.Router, cb backend.ConversationalBackend, deb *debounce.Debouncer, metricsService *metrics.MetricsService, featureManager *features.FeatureManager, log *tracing.Logger) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		router:       r,
		backend:      cb,
		debouncer:    deb,
		metrics:      metricsService,
		features:     featureManager,
		systemPrompt: buildSystemPrompt(cfg),
		tasks:        map[platform.ChatID]*chatTask{},
		log:          log,
	}
}

// enabled reports whether the chatbot should respond this turn, per
// cfg.Chatbot.Enabled and a remote FlagDisableChatbot override. The flag
// can only turn the chatbot off, never on, when the config disables it.
func (s *Supervisor) enabled() bool {
	if !s.cfg.Chatbot.Enabled {
		return false
	}
	return s.features == nil || !s.features.ShouldDisableChatbot()
}

// Start launches the fire-consuming loop in the background.
func (s *Supervisor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// Stop cancels every per-chat task and waits up to shutdownGrace for
// them to return. The cancellation reaches in-flight backend calls
// through their derived context, so those calls are cancelled at once
// rather than left to finish within the grace window.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.log.W("supervisor shutdown grace period exceeded, in-flight tasks abandoned")
	}
}

func (s *Supervisor) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.debouncer.Events():
			if !ok {
				return
			}
			s.metrics.RecordDebounceFire()
			s.kick(ctx, evt.Chat)
		}
	}
}

func (s *Supervisor) kick(ctx context.Context, chat platform.ChatID) {
	task := s.taskFor(ctx, chat)
	select {
	case task.fire <- struct{}{}:
	default:
		s.log.D("debounce fire coalesced, call already in flight", tracing.ChatId, chat)
	}
}

func (s *Supervisor) taskFor(ctx context.Context, chat platform.ChatID) *chatTask {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	if t, ok := s.tasks[chat]; ok {
		return t
	}

	t := &chatTask{fire: make(chan struct{}, 1)}
	s.tasks[chat] = t

	s.wg.Add(1)
	go s.runChatTask(ctx, chat, t)

	return t
}

func (s *Supervisor) runChatTask(ctx context.Context, chat platform.ChatID, t *chatTask) {
	defer s.wg.Done()

	var lastGeneration uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.fire:
			lastGeneration = s.processFire(ctx, chat, lastGeneration)
		}
	}
}

// processFire runs one debounce fire to completion, returning the buffer
// generation it observed so the caller can drop the next idempotent fire.
func (s *Supervisor) processFire(ctx context.Context, chat platform.ChatID, lastGeneration uint64) uint64 {
	log := s.log.With(tracing.ChatId, chat)

	if !s.enabled() {
		return lastGeneration
	}

	buf := s.router.BufferFor(chat)
	if buf == nil {
		return lastGeneration
	}

	generation := buf.Generation()
	if generation == lastGeneration {
		log.D("dropping idempotent debounce fire, buffer unchanged since last call")
		return lastGeneration
	}

	timeout := s.cfg.Chatbot.BackendTimeout
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rendered := buf.Render()
	suffix := fmt.Sprintf("Current time: %s", time.Now().UTC().Format(time.RFC3339))

	start := time.Now()
	calls, err := s.backend.Invoke(callCtx, s.systemPrompt, rendered, suffix)
	duration := time.Since(start)

	if err != nil {
		s.metrics.RecordBackendInvocation("error", duration)
		log.W("backend invocation failed, treating as no response this turn", tracing.InnerError, err)
		return generation
	}
	s.metrics.RecordBackendInvocation("ok", duration)

	for _, call := range calls {
		result := s.router.Dispatch(callCtx, chat, call)
		if result.IsError {
			log.W("tool call returned an error result", tracing.ToolName, string(call.Tool), tracing.ToolResult, result.Content)
		}
	}

	return generation
}
