// Package router implements spec.md §4.11's Router: the top-level
// per-message handler that gates on allowed_groups, runs edits/deletes
// straight into ContextBuffer, and otherwise dispatches through
// SpamPipeline before appending. Grounded on sources/telegram/handler.go's
// logger-with-fields, early-return dispatch style.
package router

import (
	"context"
	"sync"
	"time"

	"claudir/sources/admincache"
	"claudir/sources/chatplatform"
	"claudir/sources/classifier"
	"claudir/sources/configuration"
	"claudir/sources/convo"
	"claudir/sources/debounce"
	"claudir/sources/escaping"
	"claudir/sources/features"
	"claudir/sources/metrics"
	"claudir/sources/platform"
	"claudir/sources/spam"
	"claudir/sources/strikes"
	"claudir/sources/toolthrottle"
	"claudir/sources/tracing"
)

// adminChecker is the subset of admincache.Cache ToolDispatcher needs,
// kept as an interface so tests can supply an in-memory fake instead of
// standing up Redis, matching spec.md §9's network-free testing
// requirement.
type adminChecker interface {
	IsAdmin(ctx context.Context, chat platform.ChatID, user platform.UserID) (bool, error)
	UserInfo(ctx context.Context, user platform.UserID) (chatplatform.UserInfo, error)
}

// rateLimiter is the subset of toolthrottle.Throttle ToolDispatcher needs.
type rateLimiter interface {
	Allow(ctx context.Context, chat platform.ChatID) bool
}

// Router owns the fan-out from ChatPlatform's inbound event stream into
// per-chat ContextBuffers and the shared Debouncer, per spec.md §5's
// "one Router task per process; it fans messages out by chat id."
type Router struct {
	cfg       *configuration.Config
	platform  chatplatform.ChatPlatform
	pipeline  *spam.Pipeline
	ledger    *strikes.Ledger
	buffers   *convo.BufferFactory
	debouncer *debounce.Debouncer
	admins    adminChecker
	throttle  rateLimiter
	metrics   *metrics.MetricsService
	features  *features.FeatureManager
	allowed   map[platform.ChatID]bool
	trusted   map[platform.ChatID]bool
	owners    map[platform.UserID]bool
	log       *tracing.Logger

	// chatsMu guards chats and roster: the Router goroutine registers new
	// chats and join/leave events while the Supervisor's per-chat tasks
	// read them concurrently via BufferFor/dispatchReadMessages/
	// dispatchGetMembers, per spec.md §9's note that cross-chat state must
	// not be shared without synchronization.
	chatsMu sync.Mutex
	chats   map[platform.ChatID]*convo.Buffer
	roster  map[platform.ChatID]map[platform.UserID]bool
}

func New(cfg *configuration.Config, cp chatplatform.ChatPlatform, pipeline *spam.Pipeline, ledger *strikes.Ledger, buffers *convo.BufferFactory, debouncer *debounce.Debouncer, admins *admincache.Cache, throttle *toolthrottle.Throttle, metricsService *metrics.MetricsService, featureManager *features.FeatureManager, log *tracing.Logger) *Router {
	allowed := make(map[platform.ChatID]bool, len(cfg.AllowedGroups))
	for _, c := range cfg.AllowedGroups {
		allowed[c] = true
	}
	trusted := make(map[platform.ChatID]bool, len(cfg.TrustedChannels))
	for _, c := range cfg.TrustedChannels {
		trusted[c] = true
	}
	owners := make(map[platform.UserID]bool, len(cfg.OwnerIDs))
	for _, o := range cfg.OwnerIDs {
		owners[o] = true
	}

	return &Router{
		cfg:       cfg,
		platform:  cp,
		pipeline:  pipeline,
		ledger:    ledger,
		buffers:   buffers,
		debouncer: debouncer,
		admins:    admins,
		throttle:  throttle,
		metrics:   metricsService,
		features:  featureManager,
		allowed:   allowed,
		trusted:   trusted,
		owners:    owners,
		log:       log,
		chats:     map[platform.ChatID]*convo.Buffer{},
		roster:    map[platform.ChatID]map[platform.UserID]bool{},
	}
}

// dryRun reports whether moderation actions should be logged instead of
// executed, per cfg.DryRun or a remote FlagForceDryRun override. The flag
// can only turn dry_run on, never off, so it can tighten but never loosen
// what the bot is allowed to do.
func (r *Router) dryRun() bool {
	return r.cfg.DryRun || (r.features != nil && r.features.ShouldForceDryRun())
}

// Run drains the platform's event stream until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-r.platform.Events():
			if !ok {
				return
			}
			r.handle(ctx, evt)
		}
	}
}

func (r *Router) handle(ctx context.Context, evt chatplatform.Event) {
	log := r.log.With(tracing.ChatId, evt.Chat, tracing.UserId, evt.User, tracing.MessageId, evt.MessageID)

	if evt.Kind != chatplatform.EventMemberJoin && evt.Kind != chatplatform.EventMemberLeave && !r.allowed[evt.Chat] {
		log.D("chat not in allowed_groups, dropping event")
		return
	}

	switch evt.Kind {
	case chatplatform.EventEditedMessage:
		r.handleEdit(evt, log)
	case chatplatform.EventDeletedMessage:
		r.handleDelete(evt, log)
	case chatplatform.EventNewMessage:
		r.handleNewMessage(ctx, evt, log)
	case chatplatform.EventMemberJoin:
		r.chatsMu.Lock()
		r.rosterForLocked(evt.Chat)[evt.Member] = true
		r.chatsMu.Unlock()
	case chatplatform.EventMemberLeave:
		r.chatsMu.Lock()
		delete(r.rosterForLocked(evt.Chat), evt.Member)
		r.chatsMu.Unlock()
	}
}

// rosterForLocked returns the tracked membership set for chat, satisfying
// get_members without a platform round trip per spec.md §4.10. Callers
// must hold chatsMu.
func (r *Router) rosterForLocked(chat platform.ChatID) map[platform.UserID]bool {
	set, ok := r.roster[chat]
	if !ok {
		set = map[platform.UserID]bool{}
		r.roster[chat] = set
	}
	return set
}

func (r *Router) handleEdit(evt chatplatform.Event, log *tracing.Logger) {
	buf := r.bufferFor(evt.Chat, log)
	if buf == nil {
		return
	}
	buf.Edit(evt.MessageID, evt.Text, time.Now().UTC())
	r.debouncer.Kick(evt.Chat)
}

func (r *Router) handleDelete(evt chatplatform.Event, log *tracing.Logger) {
	buf := r.bufferFor(evt.Chat, log)
	if buf == nil {
		return
	}
	buf.Delete(evt.MessageID)
	r.debouncer.Kick(evt.Chat)
}

func (r *Router) handleNewMessage(ctx context.Context, evt chatplatform.Event, log *tracing.Logger) {
	hints := classifier.Hints{TrustedChannel: r.trusted[evt.Chat]}
	outcome := r.pipeline.Classify(ctx, evt.User, evt.Text, hints)

	if outcome.Verdict == spam.Spam {
		r.metrics.RecordVerdict("spam")
	} else {
		r.metrics.RecordVerdict("ham")
	}

	if outcome.Verdict == spam.Spam {
		r.handleSpam(ctx, evt, outcome, log)
		return
	}

	buf := r.bufferFor(evt.Chat, log)
	if buf == nil {
		return
	}
	buf.Append(ctx, toMessage(evt))
	r.debouncer.Kick(evt.Chat)
}

func (r *Router) handleSpam(ctx context.Context, evt chatplatform.Event, outcome spam.Outcome, log *tracing.Logger) {
	log = log.With(tracing.Verdict, "spam")

	if r.dryRun() {
		log.I("dry_run: would delete message; strike still recorded", "reason", outcome.Reason)
	} else if err := r.platform.Delete(ctx, evt.Chat, evt.MessageID); err != nil {
		log.E("failed to delete spam message", tracing.InnerError, err)
	}

	count, shouldBan, err := r.ledger.RecordSpam(evt.User)
	if err != nil {
		log.E("failed to record strike", tracing.InnerError, err)
		return
	}
	r.metrics.RecordStrike()
	log = log.With(tracing.StrikeCount, count)

	if !shouldBan {
		log.I("spam message handled, strike recorded")
		return
	}

	log = log.With(tracing.BanIssued, true)
	if r.dryRun() {
		log.I("dry_run: would ban user for reaching max_strikes")
		return
	}
	if err := r.platform.Ban(ctx, evt.Chat, evt.User); err != nil {
		log.E("failed to ban user", tracing.InnerError, err)
		return
	}
	r.metrics.RecordBan()
	log.I("user banned after reaching max_strikes")
}

func (r *Router) bufferFor(chat platform.ChatID, log *tracing.Logger) *convo.Buffer {
	r.chatsMu.Lock()
	defer r.chatsMu.Unlock()

	if buf, ok := r.chats[chat]; ok {
		return buf
	}

	buf, err := r.buffers.New(chat)
	if err != nil {
		log.E("failed to create context buffer for chat, dropping event", tracing.InnerError, err)
		return nil
	}
	r.chats[chat] = buf
	return buf
}

// BufferFor exposes a chat's buffer to the Supervisor for rendering at
// debounce fire time.
func (r *Router) BufferFor(chat platform.ChatID) *convo.Buffer {
	r.chatsMu.Lock()
	defer r.chatsMu.Unlock()
	return r.chats[chat]
}

// RosterFor exposes a chat's tracked membership set to the ToolDispatcher
// for get_members, under the same lock as every other chats/roster access.
func (r *Router) RosterFor(chat platform.ChatID) map[platform.UserID]bool {
	r.chatsMu.Lock()
	defer r.chatsMu.Unlock()

	roster := r.roster[chat]
	out := make(map[platform.UserID]bool, len(roster))
	for id, v := range roster {
		out[id] = v
	}
	return out
}

// InjectSystemMessage appends text as a system-authored message to every
// allowed_groups chat and kicks its debouncer, backing spec.md §6's
// `--message` startup flag.
func (r *Router) InjectSystemMessage(ctx context.Context, text string) {
	for chat := range r.allowed {
		log := r.log.With(tracing.ChatId, chat)
		buf := r.bufferFor(chat, log)
		if buf == nil {
			continue
		}
		buf.Append(ctx, convo.Message{
			Chat: chat,
			Name: "system",
			Time: time.Now().UTC(),
			Text: text,
		})
		r.debouncer.Kick(chat)
	}
}

func toMessage(evt chatplatform.Event) convo.Message {
	msg := convo.Message{
		ID:   evt.MessageID,
		Chat: evt.Chat,
		User: evt.User,
		Name: evt.Name,
		Time: evt.Time,
		Text: evt.Text,
	}
	if evt.Reply != nil {
		msg.Reply = &convo.QuotedReply{
			ID:          evt.Reply.ID,
			FromName:    evt.Reply.FromName,
			TextSnippet: escaping.TruncateQuote(evt.Reply.Text),
		}
	}
	return msg
}
