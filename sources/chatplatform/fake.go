package chatplatform

import (
	"context"
	"sync"
	"time"

	"claudir/sources/platform"
)

// Call records one mutating invocation against Fake, for test assertions.
type Call struct {
	Op        string
	Chat      platform.ChatID
	MessageID platform.MessageID
	User      platform.UserID
	Text      string
	Emoji     string
	Until     *time.Time
}

// Fake is the in-memory ChatPlatform spec.md §9 requires for
// network-free testing of Router, ToolDispatcher, and the Supervisor.
type Fake struct {
	mu sync.Mutex

	nextMessageID platform.MessageID
	Calls         []Call
	Admins        map[platform.ChatID][]platform.UserID
	Users         map[platform.UserID]UserInfo
	events        chan Event
	BotID         platform.UserID

	// FailNextSend, when set, causes the next Send call to return err and
	// reset itself, for exercising send_message's reply-target-deleted
	// retry-without-reply_to path.
	FailNextSend error
}

func NewFake() *Fake {
	return &Fake{
		Admins: map[platform.ChatID][]platform.UserID{},
		Users:  map[platform.UserID]UserInfo{},
		events: make(chan Event, 256),
	}
}

func (f *Fake) Events() <-chan Event { return f.events }

func (f *Fake) SelfID() platform.UserID { return f.BotID }

// Publish injects an inbound Event, as the Poller would.
func (f *Fake) Publish(evt Event) {
	f.events <- evt
}

func (f *Fake) Send(ctx context.Context, chat platform.ChatID, text string, replyTo *platform.MessageID) (platform.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailNextSend != nil {
		err := f.FailNextSend
		f.FailNextSend = nil
		return 0, err
	}

	f.nextMessageID++
	f.Calls = append(f.Calls, Call{Op: "send", Chat: chat, Text: text, MessageID: f.nextMessageID})
	return f.nextMessageID, nil
}

func (f *Fake) Edit(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "edit", Chat: chat, MessageID: messageID, Text: text})
	return nil
}

func (f *Fake) Delete(ctx context.Context, chat platform.ChatID, messageID platform.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "delete", Chat: chat, MessageID: messageID})
	return nil
}

func (f *Fake) AddReaction(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "add_reaction", Chat: chat, MessageID: messageID, Emoji: emoji})
	return nil
}

func (f *Fake) Ban(ctx context.Context, chat platform.ChatID, user platform.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "ban", Chat: chat, User: user})
	return nil
}

func (f *Fake) Mute(ctx context.Context, chat platform.ChatID, user platform.UserID, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "mute", Chat: chat, User: user, Until: until})
	return nil
}

func (f *Fake) Kick(ctx context.Context, chat platform.ChatID, user platform.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "kick", Chat: chat, User: user})
	return nil
}

func (f *Fake) GetUserInfo(ctx context.Context, user platform.UserID) (UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.Users[user]; ok {
		return info, nil
	}
	return UserInfo{ID: user}, nil
}

func (f *Fake) GetChatAdministrators(ctx context.Context, chat platform.ChatID) ([]platform.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Admins[chat], nil
}
