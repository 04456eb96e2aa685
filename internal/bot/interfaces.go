package bot

import (
	"context"

	"consultbot/internal/chat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient is the subset of the Bot API used by the adapter.
type TelegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	SelfUser() tgbotapi.User
}

// UserFlow is the registration dialog.
type UserFlow interface {
	Start(ctx context.Context, p chat.Profile)
	HandleAction(ctx context.Context, p chat.Profile, a chat.Action)
	HandleText(ctx context.Context, p chat.Profile, text string)
	MyRegistration(ctx context.Context, p chat.Profile)
}

// OperatorFlow is the operator panel.
type OperatorFlow interface {
	Open(ctx context.Context, p chat.Profile)
	HandleAction(ctx context.Context, p chat.Profile, a chat.Action)
	HandleText(ctx context.Context, p chat.Profile, text string)
	Captures(ctx context.Context, userID int64) bool
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

// NewTelegramClient authorizes against the Bot API with token.
func NewTelegramClient(token string, debug bool) (TelegramClient, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return &realTelegramClient{api: api}, nil
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *realTelegramClient) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	return c.api.GetChatMember(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}
