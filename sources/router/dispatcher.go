// dispatcher.go implements spec.md §4.10's ToolDispatcher on top of
// Router, since per-call authorization needs the allowed_groups/admin
// context Router already holds (see DESIGN.md). Grounded on
// original_source/chatbot/tools.rs's arg shapes (trimmed to the
// eleven-tool authoritative list) and sources/telegram/handler.go's
// rights-check-then-execute idiom.
package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"claudir/sources/convo"
	"claudir/sources/errs"
	"claudir/sources/platform"
	"claudir/sources/tools"
	"claudir/sources/tracing"
)

// Dispatch executes one tool call and returns its result to the caller
// (the Supervisor, which logs error results; results are not sent back
// to the conversational backend). chat is the chat the
// enclosing Supervisor invocation belongs to; it fills in call.Chat for
// tools whose schema has no chat_id argument (read_messages, get_members)
// since those implicitly target the invoking conversation.
func (r *Router) Dispatch(ctx context.Context, chat platform.ChatID, call tools.Call) (result tools.Result) {
	if call.Chat == 0 {
		call.Chat = chat
	}

	log := r.log.With(tracing.ToolName, string(call.Tool), tracing.ChatId, call.Chat)

	defer func() {
		outcome := "ok"
		if result.IsError {
			outcome = "error"
		}
		r.metrics.RecordToolCall(string(call.Tool), outcome)
	}()

	if err := validate(call); err != nil {
		log.D("tool call failed validation", tracing.InnerError, err)
		return errResult(call.ID, err)
	}

	if requiresChatMembership(call.Tool) && !r.chatAuthorized(call.Chat) {
		log.D("tool call targets a chat outside allowed_groups")
		return errResult(call.ID, fmt.Errorf("chat %d is not in allowed_groups", call.Chat))
	}

	if adminGated(call.Tool) {
		isAdmin, err := r.admins.IsAdmin(ctx, call.Chat, r.platform.SelfID())
		if err != nil {
			log.W("admin check failed", tracing.InnerError, err)
			return errResult(call.ID, errs.TransientExternal(fmt.Errorf("admin check: %w", err)))
		}
		if !isAdmin {
			log.I("tool call rejected: bot is not admin in target chat")
			return errResult(call.ID, fmt.Errorf("NotAuthorized: bot is not an administrator in chat %d", call.Chat))
		}
	}

	return r.execute(ctx, call, log)
}

func (r *Router) execute(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	switch call.Tool {
	case tools.SendMessage:
		return r.dispatchSendMessage(ctx, call, log)
	case tools.AddReaction:
		return r.dispatchAddReaction(ctx, call, log)
	case tools.ReadMessages:
		return r.dispatchReadMessages(call, log)
	case tools.GetUserInfo:
		return r.dispatchGetUserInfo(ctx, call, log)
	case tools.GetMembers:
		return r.dispatchGetMembers(call, log)
	case tools.DeleteMessage:
		return r.dispatchDeleteMessage(ctx, call, log)
	case tools.MuteUser:
		return r.dispatchMuteUser(ctx, call, log)
	case tools.KickUser:
		return r.dispatchKickUser(ctx, call, log)
	case tools.BanUser:
		return r.dispatchBanUser(ctx, call, log)
	case tools.WebSearch:
		return r.dispatchWebSearch(ctx, call, log)
	case tools.ReportBug:
		return r.dispatchReportBug(call, log)
	default:
		return errResult(call.ID, fmt.Errorf("unknown tool %q", call.Tool))
	}
}

// requiresChatMembership reports whether call.Chat must be checked
// against allowed_groups. Tools with no chat target (web_search,
// report_bug) are exempt; owner DMs are admitted by chatAuthorized.
func requiresChatMembership(name tools.Name) bool {
	switch name {
	case tools.WebSearch, tools.ReportBug:
		return false
	default:
		return true
	}
}

func adminGated(name tools.Name) bool {
	switch name {
	case tools.DeleteMessage, tools.MuteUser, tools.KickUser, tools.BanUser:
		return true
	default:
		return false
	}
}

// chatAuthorized implements spec.md §4.10 step 2: chat must be in
// allowed_groups, except for owner DMs, where the "chat" is a private
// conversation whose id equals an owner's user id.
func (r *Router) chatAuthorized(chat platform.ChatID) bool {
	if r.allowed[chat] {
		return true
	}
	return r.owners[platform.UserID(chat)]
}

func validate(call tools.Call) error {
	switch call.Tool {
	case tools.SendMessage:
		if call.Text == "" {
			return fmt.Errorf("send_message requires non-empty text")
		}
	case tools.AddReaction:
		if call.MessageID == 0 || call.Emoji == "" {
			return fmt.Errorf("add_reaction requires message_id and emoji")
		}
	case tools.GetUserInfo:
		if call.User == 0 {
			return fmt.Errorf("get_user_info requires user_id")
		}
	case tools.DeleteMessage:
		if call.MessageID == 0 {
			return fmt.Errorf("delete_message requires message_id")
		}
	case tools.MuteUser, tools.KickUser, tools.BanUser:
		if call.User == 0 {
			return fmt.Errorf("%s requires user_id", call.Tool)
		}
	case tools.WebSearch:
		if call.Query == "" {
			return fmt.Errorf("web_search requires query")
		}
	case tools.ReportBug:
		if call.Text == "" {
			return fmt.Errorf("report_bug requires text")
		}
	case tools.ReadMessages, tools.GetMembers:
		// No required fields beyond chat, checked separately.
	}
	return nil
}

func (r *Router) dispatchSendMessage(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would send message", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: message not sent")
	}

	messageID, err := r.platform.Send(ctx, call.Chat, call.Text, call.ReplyTo)
	if err != nil && call.ReplyTo != nil {
		log.D("send_message failed with reply_to set, retrying without it", tracing.InnerError, err)
		messageID, err = r.platform.Send(ctx, call.Chat, call.Text, nil)
	}
	if err != nil {
		log.E("send_message failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}

	return okResult(call.ID, fmt.Sprintf("sent message %d", messageID))
}

func (r *Router) dispatchAddReaction(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would add reaction", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: reaction not added")
	}

	if err := r.platform.AddReaction(ctx, call.Chat, call.MessageID, call.Emoji); err != nil {
		log.E("add_reaction failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	return okResult(call.ID, "reaction added")
}

func (r *Router) dispatchReadMessages(call tools.Call, log *tracing.Logger) tools.Result {
	buf := r.BufferFor(call.Chat)
	if buf == nil {
		return okResult(call.ID, convo.RenderMessages(nil))
	}

	lastN := 0
	if call.LastN != nil {
		lastN = *call.LastN
	}
	msgs := buf.Archive(lastN)

	if call.FromTimestamp != nil || call.ToTimestamp != nil {
		msgs = filterByTimestamp(msgs, call.FromTimestamp, call.ToTimestamp)
	}
	if call.Limit != nil && *call.Limit > 0 && *call.Limit < len(msgs) {
		msgs = msgs[len(msgs)-*call.Limit:]
	}

	log.D("read_messages served from archive", "count", len(msgs))
	return okResult(call.ID, convo.RenderMessages(msgs))
}

func filterByTimestamp(msgs []convo.Message, from, to *int64) []convo.Message {
	filtered := make([]convo.Message, 0, len(msgs))
	for _, m := range msgs {
		ts := m.Time.Unix()
		if from != nil && ts < *from {
			continue
		}
		if to != nil && ts > *to {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}

func (r *Router) dispatchGetUserInfo(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	info, err := r.admins.UserInfo(ctx, call.User)
	if err != nil {
		log.E("get_user_info failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	info.IsOwner = r.owners[call.User]

	return okResult(call.ID, fmt.Sprintf("username=%s first_name=%s last_name=%s is_owner=%t",
		info.Username, info.FirstName, info.LastName, info.IsOwner))
}

func (r *Router) dispatchGetMembers(call tools.Call, log *tracing.Logger) tools.Result {
	roster := r.RosterFor(call.Chat)
	ids := make([]platform.UserID, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	log.D("get_members served from tracked roster", "count", len(ids))
	return okResult(call.ID, fmt.Sprintf("%v", ids))
}

func (r *Router) dispatchDeleteMessage(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would delete message", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: message not deleted")
	}

	if err := r.platform.Delete(ctx, call.Chat, call.MessageID); err != nil {
		log.E("delete_message failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}

	if buf := r.BufferFor(call.Chat); buf != nil {
		buf.Delete(call.MessageID)
	}
	return okResult(call.ID, "message deleted")
}

func (r *Router) dispatchMuteUser(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would mute user", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: user not muted")
	}

	var until *time.Time
	if call.Until != nil {
		t := time.Unix(*call.Until, 0).UTC()
		until = &t
	}

	if err := r.platform.Mute(ctx, call.Chat, call.User, until); err != nil {
		log.E("mute_user failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	return okResult(call.ID, "user muted")
}

func (r *Router) dispatchKickUser(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would kick user", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: user not kicked")
	}

	if err := r.platform.Kick(ctx, call.Chat, call.User); err != nil {
		log.E("kick_user failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	return okResult(call.ID, "user kicked")
}

func (r *Router) dispatchBanUser(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if r.dryRun() {
		log.I("dry_run: would ban user", tracing.DryRun, true)
		return okResult(call.ID, "dry_run: user not banned")
	}

	if err := r.platform.Ban(ctx, call.Chat, call.User); err != nil {
		log.E("ban_user failed", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	return okResult(call.ID, "user banned")
}

// dispatchWebSearch is a no-op executor: the search itself is performed
// by the conversational backend's own built-in WebSearch tool (see
// chatbot.allowed_tools), not by ToolDispatcher. This call exists so the
// tool surfaces in the audit log and respects the per-chat rate limit;
// there is no separate search-provider dependency in the corpus to wire
// a second implementation to (see DESIGN.md).
func (r *Router) dispatchWebSearch(ctx context.Context, call tools.Call, log *tracing.Logger) tools.Result {
	if !r.throttle.Allow(ctx, call.Chat) {
		log.I("web_search rate limit exceeded for chat")
		return errResult(call.ID, fmt.Errorf("web_search rate limit exceeded for this chat"))
	}
	log.I("web_search recorded", "query", call.Query)
	return okResult(call.ID, "web search executed by backend")
}

func (r *Router) dispatchReportBug(call tools.Call, log *tracing.Logger) tools.Result {
	path := filepath.Join(r.cfg.DataDir, "feedback.log")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.E("report_bug: failed to open feedback log", tracing.InnerError, err)
		return errResult(call.ID, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\n", time.Now().UTC().Format(time.RFC3339), call.Text)
	if _, err := f.WriteString(line); err != nil {
		log.E("report_bug: failed to append feedback log", tracing.InnerError, err)
		return errResult(call.ID, err)
	}

	return okResult(call.ID, "feedback recorded")
}

func okResult(id, content string) tools.Result {
	return tools.Result{ToolUseID: id, Content: content}
}

// errResult maps a dispatch failure to a structured tool result rather
// than an application error: the Result's Content is prefixed with
// RetryableError or PermanentError. The Supervisor logs such results;
// they are not passed to a later backend invocation.
func errResult(id string, err error) tools.Result {
	kind := "PermanentError"
	if errs.Retryable(err) {
		kind = "RetryableError"
	}
	return tools.Result{ToolUseID: id, Content: fmt.Sprintf("%s: %s", kind, err.Error()), IsError: true}
}
