package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

type CompletionOutcome int

const (
	CompletionCompleted CompletionOutcome = iota
	CompletionAlreadyCompleted
	// CompletionNotFound covers both a missing task and a task not
	// assigned to the caller. Collapsing the two keeps chat users from
	// probing which task ids exist.
	CompletionNotFound
	// CompletionForbidden means the chat is not linked to any account.
	CompletionForbidden
)

// Completer finishes a task from an inline keyboard button press.
type Completer struct {
	logger    zerolog.Logger
	users     services.UserService
	tasks     services.TaskService
	notifier  *Notifier
	transport Transport
}

func NewCompleter(
	logger zerolog.Logger,
	users services.UserService,
	tasks services.TaskService,
	notifier *Notifier,
	transport Transport,
) *Completer {
	return &Completer{
		logger:    logger,
		users:     users,
		tasks:     tasks,
		notifier:  notifier,
		transport: transport,
	}
}

// Complete marks a task done on behalf of the chat's linked user. Only
// the assignee may complete a task this way. On success the creator is
// notified once and the originating notification message is edited in
// place; the edit is best effort.
func (c *Completer) Complete(ctx context.Context, chatID int64, messageID int, taskID int64) (CompletionOutcome, error) {
	user, err := c.users.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return CompletionForbidden, nil
		}
		return 0, err
	}

	task, err := c.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return CompletionNotFound, nil
		}
		return 0, err
	}
	if task.AssignedTo == nil || *task.AssignedTo != user.ID {
		return CompletionNotFound, nil
	}

	alreadyDone, err := c.tasks.MarkCompleted(ctx, taskID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			return CompletionNotFound, nil
		}
		return 0, err
	}
	if alreadyDone {
		return CompletionAlreadyCompleted, nil
	}

	c.logger.Info().
		Int64("task_id", taskID).
		Int64("user_id", user.ID).
		Msg("task completed from telegram")

	c.notifier.Notify(ctx, task, []int64{task.CreatedBy}, models.NotificationTaskCompleted)

	if c.transport != nil && messageID != 0 {
		err = c.transport.EditMessageText(ctx, chatID, messageID, FormatCompletionEdit(task, time.Now()))
		if err != nil {
			c.logger.Warn().
				Err(err).
				Int64("chat_id", chatID).
				Int("message_id", messageID).
				Msg("failed to edit completed task message")
		}
	}

	return CompletionCompleted, nil
}
