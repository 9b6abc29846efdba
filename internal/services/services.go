package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avdeyev/taskflow/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidTaskPriority  = errors.New("invalid task priority")
)

type AuthService interface {
	// Login authenticates the user by email and password and issues an
	// access token.
	//
	// It returns ErrUserNotFound if no active user has the given email
	// or ErrUserPasswordMismatch if the password does not match.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Register creates a user with the given email and password and
	// issues an access token.
	//
	// It returns ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, params RegisterParams) (*LoginResult, error)

	// ParseJWTToken parses the given JWT token and returns the
	// registered claims.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type UserService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetActiveByEmail returns the active user with the given email or
	// ErrUserNotFound. Deactivated accounts are invisible here so that
	// a disabled user cannot re-link a Telegram chat.
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByChatID resolves a Telegram chat binding to its user.
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)

	// SetChatBinding binds the chat to the user, releasing the chat
	// from any other user first. Rebinding the same pair is a no-op
	// overwrite.
	SetChatBinding(ctx context.Context, userID, chatID int64, username string) error

	// ClearChatBinding removes the binding for the chat and reports
	// whether any user was affected.
	ClearChatBinding(ctx context.Context, chatID int64) (bool, error)
}

type TaskService interface {
	Create(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// GetByID returns a non-deleted task or ErrTaskNotFound.
	GetByID(ctx context.Context, id int64) (*models.Task, error)

	Update(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// Delete soft-deletes the task.
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context, filter TaskFilter) ([]*models.Task, error)

	// ListIncompleteForUser returns non-deleted, not yet completed
	// tasks assigned to the user, ordered by priority rank then due
	// date ascending with nulls last.
	ListIncompleteForUser(ctx context.Context, userID int64, limit int) ([]*models.Task, error)

	// MarkCompleted is the single entry point for the pending ->
	// completed transition, shared by the REST update path, the bot
	// callback handler and the sync endpoint. It sets the status and
	// stamps completed_at atomically. alreadyDone reports that the task
	// was completed before the call; repeating the call never fails.
	MarkCompleted(ctx context.Context, id int64) (alreadyDone bool, err error)

	// Reopen moves a completed task back to pending and clears
	// completed_at. Only the REST and sync paths call this; the bot has
	// no reopen affordance.
	Reopen(ctx context.Context, id int64) error

	// CompletionMap returns task id -> completed for every non-deleted
	// task, the read half of the sync endpoint pair.
	CompletionMap(ctx context.Context) (map[int64]bool, error)

	AddComment(ctx context.Context, taskID, userID int64, text string) (*models.Comment, error)
	ListComments(ctx context.Context, taskID int64) ([]*models.Comment, error)
}

type NotificationService interface {
	// Record appends an audit row for an outbound notification.
	Record(ctx context.Context, userID, taskID int64, kind models.NotificationKind, message string) error

	// ListForUser returns the newest notifications recorded for the
	// user, the feed shown by the web client.
	ListForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)

	// LogInbound appends an audit row for an inbound bot event.
	LogInbound(ctx context.Context, entry models.TelegramMessage) error
}

type LoginParams struct {
	Email    string
	Password string
}

type RegisterParams struct {
	Email    string
	Password string
	FullName string
}

type LoginResult struct {
	UserID               int64
	AccessToken          string
	AccessTokenExpiresAt time.Time
}

type CreateTaskParams struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	CreatedBy   int64
	AssignedTo  *int64
}

// UpdateTaskParams carries a partial update; nil fields stay untouched.
// Status transitions to and from completed are not applied here, they
// go through MarkCompleted and Reopen.
type UpdateTaskParams struct {
	ID          int64
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	SetDueDate  bool
	AssignedTo  *int64
	SetAssignee bool
}

type TaskFilter struct {
	Status     string
	Priority   string
	AssignedTo *int64

	// VisibleTo restricts results to tasks created by or assigned to
	// the user. Zero means no restriction (admin view).
	VisibleTo int64
}
