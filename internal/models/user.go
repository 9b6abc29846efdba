package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID               int64
	Email            string
	FullName         string
	PasswordHash     string
	Role             string
	IsActive         bool
	TelegramChatID   *int64
	TelegramUsername *string
	CreatedAt        time.Time
}

// IsLinked reports whether the user has an active Telegram chat binding.
func (u *User) IsLinked() bool {
	return u.TelegramChatID != nil
}
