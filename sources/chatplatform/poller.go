package chatplatform

import (
	"time"

	"claudir/sources/platform"
	"claudir/sources/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Poller pulls Telegram long-poll updates and republishes them as
// platform-agnostic Events. Grounded on sources/telegram/poller.go's
// GetUpdatesChan loop and per-message logger-with-fields idiom.
type Poller struct {
	bot *tgbotapi.BotAPI
	log *tracing.Logger
	out chan Event
}

func NewPoller(bot *tgbotapi.BotAPI, platform *TelegramPlatform, log *tracing.Logger) *Poller {
	return &Poller{bot: bot, log: log, out: platform.events}
}

func (p *Poller) Start() {
	update := tgbotapi.NewUpdate(0)
	update.Timeout = 30

	for u := range p.bot.GetUpdatesChan(update) {
		switch {
		case u.Message != nil:
			p.publishMessage(u.Message, false)
		case u.EditedMessage != nil:
			p.publishMessage(u.EditedMessage, true)
		case u.Message == nil && u.ChatMember != nil:
			p.publishMembership(u.ChatMember)
		}
	}
}

func (p *Poller) Stop() {
	p.bot.StopReceivingUpdates()
}

func (p *Poller) publishMessage(msg *tgbotapi.Message, edited bool) {
	from := msg.From
	if from == nil {
		return
	}

	log := p.log.With(
		tracing.UserId, from.ID,
		tracing.ChatId, msg.Chat.ID,
		tracing.MessageId, msg.MessageID,
	)

	evt := Event{
		Kind:      EventNewMessage,
		Chat:      platform.ChatID(msg.Chat.ID),
		MessageID: platform.MessageID(msg.MessageID),
		User:      platform.UserID(from.ID),
		Name:      displayName(from),
		Text:      msg.Text,
		Time:      time.Unix(int64(msg.Date), 0).UTC(),
	}
	if edited {
		evt.Kind = EventEditedMessage
	}

	if msg.ReplyToMessage != nil {
		replyFrom := msg.ReplyToMessage.From
		name := ""
		if replyFrom != nil {
			name = displayName(replyFrom)
		}
		evt.Reply = &QuotedReplyRef{
			ID:       platform.MessageID(msg.ReplyToMessage.MessageID),
			FromName: name,
			Text:     msg.ReplyToMessage.Text,
		}
	}

	select {
	case p.out <- evt:
	default:
		log.W("event channel full, dropping inbound message")
	}
}

func (p *Poller) publishMembership(update *tgbotapi.ChatMemberUpdated) {
	kind := EventMemberJoin
	if update.NewChatMember.Status == "left" || update.NewChatMember.Status == "kicked" {
		kind = EventMemberLeave
	}

	p.out <- Event{
		Kind:   kind,
		Chat:   platform.ChatID(update.Chat.ID),
		Member: platform.UserID(update.NewChatMember.User.ID),
		Time:   time.Unix(int64(update.Date), 0).UTC(),
	}
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
