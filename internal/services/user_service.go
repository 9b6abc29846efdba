package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
)

type userServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewUserService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) UserService {
	return &userServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

const selectUserColumns = `
SELECT id,
       email,
       full_name,
       password_hash,
       role,
       is_active,
       telegram_chat_id,
       telegram_username,
       created_at
FROM users
`

func (s *userServiceImpl) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.TelegramChatID,
		&user.TelegramUsername,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const selectUserByIDQuery = selectUserColumns + `
WHERE id = $1
`
	user, err := s.scanUser(s.pgPool.QueryRow(ctx, selectUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Error().
				Int64("user_id", id).
				Msg("user not found")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Int64("user_id", id).
			Msg("failed to select user by id")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	const selectActiveUserByEmailQuery = selectUserColumns + `
WHERE email = $1 AND is_active = TRUE
`
	user, err := s.scanUser(s.pgPool.QueryRow(ctx, selectActiveUserByEmailQuery, email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info().
				Str("email", email).
				Msg("no active user with email")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Str("email", email).
			Msg("failed to select user by email")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	const selectUserByChatIDQuery = selectUserColumns + `
WHERE telegram_chat_id = $1
`
	user, err := s.scanUser(s.pgPool.QueryRow(ctx, selectUserByChatIDQuery, chatID))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Debug().
				Int64("chat_id", chatID).
				Msg("chat is not linked")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("failed to select user by chat id")
		return nil, err
	}
	return user, nil
}

func (s *userServiceImpl) SetChatBinding(ctx context.Context, userID, chatID int64, username string) error {
	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A chat id may belong to at most one user. Release it from any
	// other account before binding, so a shared device re-running
	// /start simply moves the binding.
	const releaseChatQuery = `
UPDATE users
SET telegram_chat_id = NULL,
    telegram_username = NULL
WHERE telegram_chat_id = $1 AND id <> $2
`
	_, err = tx.Exec(ctx, releaseChatQuery, chatID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("failed to release chat binding")
		return err
	}

	const bindChatQuery = `
UPDATE users
SET telegram_chat_id = $1,
    telegram_username = NULLIF($2, '')
WHERE id = $3
`
	tag, err := tx.Exec(ctx, bindChatQuery, chatID, username, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Msg("failed to set chat binding")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Int64("user_id", userID).
			Msg("user not found")
		return ErrUserNotFound
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return err
	}

	s.logger.Info().
		Int64("user_id", userID).
		Int64("chat_id", chatID).
		Msg("set chat binding")
	return nil
}

func (s *userServiceImpl) ClearChatBinding(ctx context.Context, chatID int64) (bool, error) {
	const clearChatBindingQuery = `
UPDATE users
SET telegram_chat_id = NULL,
    telegram_username = NULL
WHERE telegram_chat_id = $1
`
	tag, err := s.pgPool.Exec(ctx, clearChatBindingQuery, chatID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("failed to clear chat binding")
		return false, err
	}

	cleared := tag.RowsAffected() > 0
	s.logger.Info().
		Int64("chat_id", chatID).
		Bool("cleared", cleared).
		Msg("cleared chat binding")
	return cleared, nil
}
