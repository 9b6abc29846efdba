package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
)

type notificationServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewNotificationService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) NotificationService {
	return &notificationServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *notificationServiceImpl) Record(ctx context.Context, userID, taskID int64, kind models.NotificationKind, message string) error {
	const insertNotificationQuery = `
INSERT INTO notifications (user_id, task_id, type, message, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertNotificationQuery,
		userID,
		taskID,
		string(kind),
		message,
		time.Now(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("task_id", taskID).
			Str("kind", string(kind)).
			Msg("failed to record notification")
		return err
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int64("task_id", taskID).
		Str("kind", string(kind)).
		Msg("recorded notification")
	return nil
}

func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	const selectNotificationsQuery = `
SELECT id, user_id, task_id, type, message, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := s.pgPool.Query(ctx, selectNotificationsQuery, userID, limit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Msg("failed to select notifications")
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Kind, &n.Message, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *notificationServiceImpl) LogInbound(ctx context.Context, entry models.TelegramMessage) error {
	const insertTelegramMessageQuery = `
INSERT INTO telegram_messages (chat_id, message_id, user_id, message_text, message_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertTelegramMessageQuery,
		entry.ChatID,
		entry.MessageID,
		entry.UserID,
		entry.MessageText,
		entry.MessageType,
		time.Now(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("chat_id", entry.ChatID).
			Msg("failed to log inbound telegram message")
		return err
	}
	return nil
}
