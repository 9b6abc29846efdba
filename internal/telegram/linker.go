package telegram

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

type LinkStatus int

const (
	// LinkInstructions means /start came without an email argument.
	LinkInstructions LinkStatus = iota
	LinkInvalidEmail
	LinkUserNotFound
	LinkLinked
)

type LinkResult struct {
	Status LinkStatus
	Email  string
	User   *models.User
}

// Linker binds Telegram chats to accounts through the /start command.
type Linker struct {
	logger zerolog.Logger
	users  services.UserService
}

func NewLinker(logger zerolog.Logger, users services.UserService) *Linker {
	return &Linker{
		logger: logger,
		users:  users,
	}
}

// LinkAccount handles "/start [email]". With no argument it asks for
// one; with a valid email of an active account it binds the chat to
// that account, replacing any previous binding of either side.
func (l *Linker) LinkAccount(ctx context.Context, chatID int64, username, text string) (LinkResult, error) {
	args := strings.Fields(text)
	if len(args) < 2 {
		return LinkResult{Status: LinkInstructions}, nil
	}

	email := args[1]
	if !validEmail(email) {
		return LinkResult{Status: LinkInvalidEmail, Email: email}, nil
	}

	user, err := l.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return LinkResult{Status: LinkUserNotFound, Email: email}, nil
		}
		return LinkResult{}, err
	}

	err = l.users.SetChatBinding(ctx, user.ID, chatID, username)
	if err != nil {
		return LinkResult{}, err
	}

	l.logger.Info().
		Int64("user_id", user.ID).
		Int64("chat_id", chatID).
		Msg("linked telegram chat")
	return LinkResult{Status: LinkLinked, Email: email, User: user}, nil
}

// Unlink removes the chat binding. It reports whether a binding
// actually existed.
func (l *Linker) Unlink(ctx context.Context, chatID int64) (bool, error) {
	return l.users.ClearChatBinding(ctx, chatID)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject addresses with a display name, "a@b" must be the whole
	// argument.
	return addr.Address == email
}
