package chatplatform

import (
	"context"
	"fmt"
	"time"

	"claudir/sources/configuration"
	"claudir/sources/errs"
	"claudir/sources/platform"
	"claudir/sources/tracing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramPlatform is the tgbotapi-backed ChatPlatform. Grounded on
// sources/telegram/botapi.go (bot construction) and
// sources/telegram/diplomat.go (send/chunking idiom, simplified: claudir
// sends single moderation/assistant messages, not the teacher's
// donation-aware markdown broadcast flow).
type TelegramPlatform struct {
	bot    *tgbotapi.BotAPI
	log    *tracing.Logger
	events chan Event
}

// NewBotAPI constructs the underlying tgbotapi client. Grounded on
// sources/telegram/botapi.go's NewBotAPI, minus the custom API endpoint
// override the teacher supports — claudir's config has no equivalent
// knob.
func NewBotAPI(cfg *configuration.Config, log *tracing.Logger) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, errs.Config(fmt.Errorf("telegram bot init: %w", err))
	}
	log.I("telegram bot initialized", "bot_username", bot.Self.UserName)
	return bot, nil
}

func NewTelegramPlatform(bot *tgbotapi.BotAPI, log *tracing.Logger) *TelegramPlatform {
	return &TelegramPlatform{bot: bot, log: log, events: make(chan Event, 256)}
}

func (p *TelegramPlatform) Events() <-chan Event {
	return p.events
}

func (p *TelegramPlatform) SelfID() platform.UserID {
	return platform.UserID(p.bot.Self.ID)
}

func (p *TelegramPlatform) Send(ctx context.Context, chat platform.ChatID, text string, replyTo *platform.MessageID) (platform.MessageID, error) {
	msg := tgbotapi.NewMessage(int64(chat), text)
	if replyTo != nil {
		msg.ReplyToMessageID = int(*replyTo)
	}

	sent, err := p.bot.Send(msg)
	if err != nil {
		return 0, classifyTelegramErr(fmt.Errorf("send message: %w", err))
	}
	return platform.MessageID(sent.MessageID), nil
}

func (p *TelegramPlatform) Edit(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, text string) error {
	edit := tgbotapi.NewEditMessageText(int64(chat), int(messageID), text)
	if _, err := p.bot.Send(edit); err != nil {
		return classifyTelegramErr(fmt.Errorf("edit message: %w", err))
	}
	return nil
}

func (p *TelegramPlatform) Delete(ctx context.Context, chat platform.ChatID, messageID platform.MessageID) error {
	del := tgbotapi.NewDeleteMessage(int64(chat), int(messageID))
	if _, err := p.bot.Request(del); err != nil {
		return classifyTelegramErr(fmt.Errorf("delete message: %w", err))
	}
	return nil
}

func (p *TelegramPlatform) AddReaction(ctx context.Context, chat platform.ChatID, messageID platform.MessageID, emoji string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", int64(chat))
	params.AddNonZero("message_id", int(messageID))
	if err := params.AddInterface("reaction", []map[string]string{{"type": "emoji", "emoji": emoji}}); err != nil {
		return classifyTelegramErr(fmt.Errorf("add reaction: %w", err))
	}
	if _, err := p.bot.MakeRequest("setMessageReaction", params); err != nil {
		return classifyTelegramErr(fmt.Errorf("add reaction: %w", err))
	}
	return nil
}

func (p *TelegramPlatform) Ban(ctx context.Context, chat platform.ChatID, user platform.UserID) error {
	ban := tgbotapi.BanChatMemberConfig{ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: int64(chat), UserID: int64(user)}}
	if _, err := p.bot.Request(ban); err != nil {
		return classifyTelegramErr(fmt.Errorf("ban user: %w", err))
	}
	return nil
}

func (p *TelegramPlatform) Mute(ctx context.Context, chat platform.ChatID, user platform.UserID, until *time.Time) error {
	perms := tgbotapi.ChatPermissions{CanSendMessages: false}
	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: int64(chat), UserID: int64(user)},
		Permissions:      &perms,
	}
	if until != nil {
		restrict.UntilDate = until.Unix()
	}
	if _, err := p.bot.Request(restrict); err != nil {
		return classifyTelegramErr(fmt.Errorf("mute user: %w", err))
	}
	return nil
}

func (p *TelegramPlatform) Kick(ctx context.Context, chat platform.ChatID, user platform.UserID) error {
	kick := tgbotapi.KickChatMemberConfig{ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: int64(chat), UserID: int64(user)}}
	if _, err := p.bot.Request(kick); err != nil {
		return classifyTelegramErr(fmt.Errorf("kick user: %w", err))
	}

	unban := tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: int64(chat), UserID: int64(user)}}
	if _, err := p.bot.Request(unban); err != nil {
		p.log.W("kick succeeded but unban-after-kick failed", tracing.InnerError, err, tracing.UserId, user)
	}
	return nil
}

func (p *TelegramPlatform) GetUserInfo(ctx context.Context, user platform.UserID) (UserInfo, error) {
	chat, err := p.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: int64(user)}})
	if err != nil {
		return UserInfo{}, classifyTelegramErr(fmt.Errorf("get user info: %w", err))
	}

	return UserInfo{
		ID:        user,
		Username:  chat.UserName,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
	}, nil
}

func (p *TelegramPlatform) GetChatAdministrators(ctx context.Context, chat platform.ChatID) ([]platform.UserID, error) {
	admins, err := p.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: int64(chat)}})
	if err != nil {
		return nil, classifyTelegramErr(fmt.Errorf("get chat administrators: %w", err))
	}

	ids := make([]platform.UserID, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, platform.UserID(admin.User.ID))
	}
	return ids, nil
}

// classifyTelegramErr tags platform-layer errors so ToolDispatcher can
// map them to {RetryableError, PermanentError} per spec.md §4.10 step 4.
// Telegram's API errors carry no machine-readable transient/permanent
// distinction beyond the HTTP status buried in the error text, so
// anything reaching here is treated as permanent. The tgbotapi calls are
// not given the caller's ctx, so network timeouts also arrive here and
// are tagged permanent like every other error.
func classifyTelegramErr(err error) error {
	return errs.PermanentExternal(err)
}
