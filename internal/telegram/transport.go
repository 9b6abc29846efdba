package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Transport is the outbound side of the bot provider API. It exists as
// an interface so handlers can be exercised against a fake and so a
// send failure is observable without rolling back the task mutation
// that triggered it.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) (messageID int, err error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
}

type botTransport struct {
	bot *telego.Bot
}

// NewBotTransport wraps a telego bot as a Transport. All messages go
// out with HTML parse mode, matching the provider calls the web API
// makes.
func NewBotTransport(bot *telego.Bot) Transport {
	return &botTransport{bot: bot}
}

func (t *botTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) (int, error) {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if keyboard != nil {
		params = params.WithReplyMarkup(keyboard)
	}

	msg, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (t *botTransport) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := t.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
		ParseMode: telego.ModeHTML,
	})
	return err
}

func (t *botTransport) AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error {
	params := tu.CallbackQuery(callbackQueryID)
	if text != "" {
		params = params.WithText(text)
	}
	return t.bot.AnswerCallbackQuery(ctx, params)
}
