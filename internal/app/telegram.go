package app

import (
	"context"

	"github.com/mymmrac/telego"

	"github.com/avdeyev/taskflow/internal/config"
)

var globalBot *telego.Bot

// MustInitTelegram creates the bot client and registers the webhook.
// A missing token is not an error: the application runs without the
// Telegram subsystem, matching how the web UI behaves before setup.
func MustInitTelegram() {
	cfg := config.Global().Telegram
	if cfg.BotToken == "" {
		globalLogger.Info().Msg("telegram bot token not set, notifications disabled")
		return
	}

	bot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to create telegram bot")
		panic(err)
	}
	globalBot = bot
	globalLogger.Info().Msg("created telegram bot")

	if cfg.WebhookURL == "" {
		return
	}

	// Webhook registration is best effort: a transient Telegram outage
	// must not keep the web application from starting.
	err = bot.SetWebhook(context.Background(), &telego.SetWebhookParams{
		URL:            cfg.WebhookURL,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("url", cfg.WebhookURL).
			Msg("failed to set telegram webhook")
		return
	}
	globalLogger.Info().
		Str("url", cfg.WebhookURL).
		Msg("registered telegram webhook")
}
