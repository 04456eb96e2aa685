package bot

import (
	"context"
	"errors"

	"consultbot/internal/chat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender renders chat messages as Telegram messages with inline keyboards.
type Sender struct {
	tg TelegramClient
}

func NewSender(tg TelegramClient) *Sender {
	return &Sender{tg: tg}
}

func (s *Sender) Send(ctx context.Context, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewMessage(msg.To, msg.Text)
	if len(msg.Choices) > 0 {
		out.ReplyMarkup = keyboard(msg.Choices)
	}
	_, err := s.tg.Send(out)
	return deliveryError(err)
}

func (s *Sender) SendDocument(ctx context.Context, doc chat.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := tgbotapi.NewDocument(doc.To, tgbotapi.FilePath(doc.Path))
	out.Caption = doc.Caption
	_, err := s.tg.Send(out)
	return deliveryError(err)
}

func keyboard(choices [][]chat.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, choiceRow := range choices {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(choiceRow))
		for _, c := range choiceRow {
			if c.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(c.Label, c.URL))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Action.Encode()))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// deliveryError converts Bot API rejections into chat.DeliveryError.
func deliveryError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &chat.DeliveryError{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	return err
}
