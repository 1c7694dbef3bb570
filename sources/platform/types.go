package platform

// ChatID is the platform's chat identifier. Negative values denote group
// chats by Telegram convention; positive values are direct messages.
type ChatID int64

// UserID is the platform's user identifier. Unsigned per spec.md §3.
type UserID uint64

// MessageID is unique within a chat, not globally.
type MessageID int64
