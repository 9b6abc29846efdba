package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

// NotifyReport counts per-target delivery outcomes of one Notify call.
type NotifyReport struct {
	Sent    int
	Skipped int
	Failed  int
}

// Notifier fans a task event out to users. Every target gets an audit
// record; only targets with a linked chat get a Telegram message.
// Delivery is best effort, a failed send never fails the caller.
type Notifier struct {
	logger        zerolog.Logger
	users         services.UserService
	notifications services.NotificationService
	transport     Transport
	webBaseURL    string
	sendTimeout   time.Duration
}

func NewNotifier(
	logger zerolog.Logger,
	users services.UserService,
	notifications services.NotificationService,
	transport Transport,
	webBaseURL string,
	sendTimeout time.Duration,
) *Notifier {
	return &Notifier{
		logger:        logger,
		users:         users,
		notifications: notifications,
		transport:     transport,
		webBaseURL:    webBaseURL,
		sendTimeout:   sendTimeout,
	}
}

func (n *Notifier) Notify(ctx context.Context, task *models.Task, targetUserIDs []int64, kind models.NotificationKind) NotifyReport {
	var report NotifyReport

	for _, userID := range targetUserIDs {
		err := n.notifications.Record(ctx, userID, task.ID, kind, auditMessage(task, kind))
		if err != nil {
			// Already logged by the service. The Telegram side still
			// runs, the audit trail is not a delivery precondition.
			n.logger.Warn().
				Int64("user_id", userID).
				Int64("task_id", task.ID).
				Msg("notification not recorded")
		}

		if n.transport == nil {
			report.Skipped++
			continue
		}

		user, err := n.users.GetByID(ctx, userID)
		if err != nil {
			report.Failed++
			continue
		}
		if !user.IsLinked() {
			report.Skipped++
			continue
		}

		err = n.send(ctx, *user.TelegramChatID, task, kind)
		if err != nil {
			n.logger.Error().
				Err(err).
				Int64("user_id", userID).
				Int64("chat_id", *user.TelegramChatID).
				Int64("task_id", task.ID).
				Msg("failed to send telegram notification")
			report.Failed++
			continue
		}
		report.Sent++
	}

	n.logger.Debug().
		Int64("task_id", task.ID).
		Str("kind", string(kind)).
		Int("sent", report.Sent).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("dispatched task notifications")
	return report
}

func (n *Notifier) send(ctx context.Context, chatID int64, task *models.Task, kind models.NotificationKind) error {
	sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	text := FormatTaskMessage(task, kind)
	keyboard := BuildTaskKeyboard(task, kind, n.webBaseURL)

	_, err := n.transport.SendMessage(sendCtx, chatID, text, keyboard)
	return err
}

func auditMessage(task *models.Task, kind models.NotificationKind) string {
	switch kind {
	case models.NotificationTaskAssigned:
		return fmt.Sprintf("You have been assigned task: %s", task.Title)
	case models.NotificationTaskUpdated:
		return fmt.Sprintf("Task updated: %s", task.Title)
	case models.NotificationTaskCompleted:
		return fmt.Sprintf("Task completed: %s", task.Title)
	case models.NotificationTaskOverdue:
		return fmt.Sprintf("Task overdue: %s", task.Title)
	default:
		return task.Title
	}
}
