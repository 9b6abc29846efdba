package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

const activeTasksLimit = 10

const helpMessage = `🤖 <b>TaskFlow Bot</b>

Available commands:

/start EMAIL - link this chat to your account
/tasks - show your active tasks
/unlink - unlink this chat
/help - show this message

You will get a notification here whenever a task is assigned to you, and you can complete tasks right from the chat.`

const startInstructionsMessage = `👋 <b>Welcome to TaskFlow!</b>

To link this chat to your account, send:

/start your@email.com

Use the email you registered with.`

// Dispatcher routes incoming webhook updates to command and callback
// handlers. Handler errors are logged and never propagated, the
// webhook endpoint acknowledges every well-formed update.
type Dispatcher struct {
	logger        zerolog.Logger
	transport     Transport
	linker        *Linker
	completer     *Completer
	users         services.UserService
	tasks         services.TaskService
	notifications services.NotificationService
	webBaseURL    string
}

func NewDispatcher(
	logger zerolog.Logger,
	transport Transport,
	linker *Linker,
	completer *Completer,
	users services.UserService,
	tasks services.TaskService,
	notifications services.NotificationService,
	webBaseURL string,
) *Dispatcher {
	return &Dispatcher{
		logger:        logger,
		transport:     transport,
		linker:        linker,
		completer:     completer,
		users:         users,
		tasks:         tasks,
		notifications: notifications,
		webBaseURL:    webBaseURL,
	}
}

func (d *Dispatcher) HandleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.Message != nil:
		d.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	default:
		d.logger.Debug().Msg("update carries neither message nor callback query")
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telego.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	var username string
	if msg.From != nil {
		username = msg.From.Username
	}

	d.logInbound(ctx, chatID, msg.MessageID, text, models.TelegramMessageText)

	switch {
	case strings.HasPrefix(text, "/start"):
		d.handleStart(ctx, chatID, username, text)
	case text == "/help":
		d.send(ctx, chatID, helpMessage)
	case text == "/tasks":
		d.handleTasks(ctx, chatID)
	case text == "/unlink":
		d.handleUnlink(ctx, chatID)
	default:
		d.send(ctx, chatID, "🤔 Unknown command. Send /help to see what I can do.")
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, chatID int64, username, text string) {
	result, err := d.linker.LinkAccount(ctx, chatID, username, text)
	if err != nil {
		d.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("failed to link account")
		d.send(ctx, chatID, "⚠️ Something went wrong. Please try again later.")
		return
	}

	switch result.Status {
	case LinkInstructions:
		d.send(ctx, chatID, startInstructionsMessage)
	case LinkInvalidEmail:
		d.send(ctx, chatID, fmt.Sprintf("❌ <b>%s</b> does not look like an email address. Send /start your@email.com", html.EscapeString(result.Email)))
	case LinkUserNotFound:
		d.send(ctx, chatID, fmt.Sprintf("❌ No account found for <b>%s</b>. Register in TaskFlow first, then try again.", html.EscapeString(result.Email)))
	case LinkLinked:
		d.send(ctx, chatID, fmt.Sprintf(`✅ <b>Account linked!</b>

Hi, %s. You will now get your task notifications in this chat.

Send /tasks to see what is on your plate.`, html.EscapeString(result.User.FullName)))
	}
}

func (d *Dispatcher) handleTasks(ctx context.Context, chatID int64) {
	user, err := d.users.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			d.send(ctx, chatID, "🔗 This chat is not linked yet. Send /start your@email.com to link your account.")
			return
		}
		d.send(ctx, chatID, "⚠️ Could not load your tasks. Please try again later.")
		return
	}

	tasks, err := d.tasks.ListIncompleteForUser(ctx, user.ID, activeTasksLimit)
	if err != nil {
		d.send(ctx, chatID, "⚠️ Could not load your tasks. Please try again later.")
		return
	}
	if len(tasks) == 0 {
		d.send(ctx, chatID, "📭 You have no active tasks. Great job!")
		return
	}

	text := FormatTaskList(tasks, time.Now())
	if d.webBaseURL != "" {
		text += fmt.Sprintf("\n👁 Full list: %s/tasks", strings.TrimRight(d.webBaseURL, "/"))
	}
	d.send(ctx, chatID, text)
}

func (d *Dispatcher) handleUnlink(ctx context.Context, chatID int64) {
	unlinked, err := d.linker.Unlink(ctx, chatID)
	if err != nil {
		d.send(ctx, chatID, "⚠️ Something went wrong. Please try again later.")
		return
	}
	if !unlinked {
		d.send(ctx, chatID, "🔗 This chat is not linked to any account.")
		return
	}
	d.send(ctx, chatID, "👋 Chat unlinked. You will no longer get notifications here.")
}

func (d *Dispatcher) handleCallback(ctx context.Context, query *telego.CallbackQuery) {
	// Telegram shows a spinner on the pressed button until the query is
	// answered, so answer no matter how handling went.
	ack := ""
	defer func() {
		if d.transport == nil {
			return
		}
		err := d.transport.AnswerCallbackQuery(ctx, query.ID, ack)
		if err != nil {
			d.logger.Warn().
				Err(err).
				Str("callback_query_id", query.ID).
				Msg("failed to answer callback query")
		}
	}()

	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		ack = "Message is no longer available"
		return
	}

	chatID := msg.Chat.ID
	d.logInbound(ctx, chatID, msg.MessageID, query.Data, models.TelegramMessageCallback)

	payload, err := DecodeCallbackData(query.Data)
	if err != nil {
		d.logger.Warn().
			Err(err).
			Int64("chat_id", chatID).
			Str("data", query.Data).
			Msg("undecodable callback data")
		return
	}

	outcome, err := d.completer.Complete(ctx, chatID, msg.MessageID, payload.TaskID)
	if err != nil {
		d.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Int64("task_id", payload.TaskID).
			Msg("failed to complete task from callback")
		ack = "Something went wrong"
		return
	}

	switch outcome {
	case CompletionCompleted:
		ack = "Task completed"
	case CompletionAlreadyCompleted:
		ack = "Already completed"
		d.send(ctx, chatID, "ℹ️ This task is already completed.")
	case CompletionNotFound:
		ack = "Task not found"
		d.send(ctx, chatID, "❌ Task not found or not assigned to you.")
	case CompletionForbidden:
		ack = "Not linked"
		d.send(ctx, chatID, "🔗 This chat is not linked yet. Send /start your@email.com to link your account.")
	}
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) {
	if d.transport == nil {
		return
	}
	_, err := d.transport.SendMessage(ctx, chatID, text, nil)
	if err != nil {
		d.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("failed to send telegram message")
	}
}

func (d *Dispatcher) logInbound(ctx context.Context, chatID int64, messageID int, text, messageType string) {
	entry := models.TelegramMessage{
		ChatID:      chatID,
		MessageID:   messageID,
		MessageText: text,
		MessageType: messageType,
	}
	if user, err := d.users.GetByChatID(ctx, chatID); err == nil {
		entry.UserID = &user.ID
	}
	if err := d.notifications.LogInbound(ctx, entry); err != nil {
		d.logger.Warn().
			Int64("chat_id", chatID).
			Msg("inbound message not logged")
	}
}
