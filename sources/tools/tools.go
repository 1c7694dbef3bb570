// Package tools defines spec.md §4.10's authoritative ToolCall shapes —
// the structured-output contract both the conversational backend emits
// and ToolDispatcher consumes. Grounded on
// original_source/chatbot/tools.rs's per-tool arg shapes.
package tools

import "claudir/sources/platform"

// Name is one of spec.md §4.10's eleven authoritative tools.
type Name string

const (
	SendMessage     Name = "send_message"
	AddReaction     Name = "add_reaction"
	ReadMessages    Name = "read_messages"
	GetUserInfo     Name = "get_user_info"
	GetMembers      Name = "get_members"
	DeleteMessage   Name = "delete_message"
	MuteUser        Name = "mute_user"
	KickUser        Name = "kick_user"
	BanUser         Name = "ban_user"
	WebSearch       Name = "web_search"
	ReportBug       Name = "report_bug"
)

// Call is one tool invocation parsed from the conversational backend's
// structured output. ID correlates it with its Result when fed back.
type Call struct {
	ID   string
	Tool Name

	Chat          platform.ChatID
	Text          string
	ReplyTo       *platform.MessageID
	MessageID     platform.MessageID
	User          platform.UserID
	Emoji         string
	LastN         *int
	FromTimestamp *int64
	ToTimestamp   *int64
	Limit         *int
	Query         string
	Until         *int64
}

// Result is what Router.Dispatch returns for one Call. The Supervisor
// logs error results; results are not fed back to the conversational
// backend.
type Result struct {
	ToolUseID string
	Content   string
	IsError   bool
}
