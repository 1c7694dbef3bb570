// Package chatplatform is spec.md §6's ChatPlatform capability: outbound
// moderation/messaging operations plus an inbound event stream, kept
// behind a small interface so Router, ToolDispatcher, and their tests
// never touch tgbotapi directly. Grounded on sources/telegram/botapi.go,
// poller.go, diplomat.go.
package chatplatform

import (
	"context"
	"time"

	"claudir/sources/platform"
)

// UserInfo is the shape get_user_info returns, per spec.md §4.10
// (get_members returns only user ids).
type UserInfo struct {
	ID        platform.UserID
	Username  string
	FirstName string
	LastName  string
	IsOwner   bool
}

// EventKind discriminates the incoming event stream spec.md §6 lists:
// NewMessage, EditedMessage, DeletedMessage, MemberJoin, MemberLeave.
type EventKind int

const (
	EventNewMessage EventKind = iota
	EventEditedMessage
	EventDeletedMessage
	EventMemberJoin
	EventMemberLeave
)

// Event is one inbound platform occurrence, routed by Router.
type Event struct {
	Kind      EventKind
	Chat      platform.ChatID
	MessageID platform.MessageID
	User      platform.UserID
	Name      string
	Text      string
	Time      time.Time
	Reply     *QuotedReplyRef
	Member    platform.UserID
}

// QuotedReplyRef is the raw (unescaped, untruncated) reply reference the
// platform layer extracts from an inbound message; sources/convo is
// responsible for truncating/escaping it before it reaches a render.
type QuotedReplyRef struct {
	ID       platform.MessageID
	FromName string
	Text     string
}

// ChatPlatform is the required operation set from spec.md §6. All
// methods are suspension points (§5): implementations must not block
// the caller beyond the operation's own network round trip.
type ChatPlatform interface {
	Send(ctx context.Context, chat platform.ChatID, text string, replyTo *platform.MessageID) (platform.MessageID, error)
	Edit(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, text string) error
	Delete(ctx context.Context, chat platform.ChatID, messageID platform.MessageID) error
	AddReaction(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, emoji string) error
	Ban(ctx context.Context, chat platform.ChatID, user platform.UserID) error
	Mute(ctx context.Context, chat platform.ChatID, user platform.UserID, until *time.Time) error
	Kick(ctx context.Context, chat platform.ChatID, user platform.UserID) error
	GetUserInfo(ctx context.Context, user platform.UserID) (UserInfo, error)
	GetChatAdministrators(ctx context.Context, chat platform.ChatID) ([]platform.UserID, error)

	// SelfID is the bot's own user id, used by ToolDispatcher's
	// admin-gated tool check (spec.md §4.10 step 3).
	SelfID() platform.UserID

	// Events is the inbound stream a Poller publishes to; Router ranges
	// over it for the lifetime of the process.
	Events() <-chan Event
}
