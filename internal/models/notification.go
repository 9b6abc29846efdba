package models

import "time"

// NotificationKind labels why a notification was produced.
type NotificationKind string

const (
	NotificationTaskAssigned  NotificationKind = "task_assigned"
	NotificationTaskUpdated   NotificationKind = "task_updated"
	NotificationTaskCompleted NotificationKind = "task_completed"
	NotificationTaskOverdue   NotificationKind = "task_overdue"
)

// Notification is the audit record kept for every outbound notification.
type Notification struct {
	ID        int64
	UserID    int64
	TaskID    int64
	Kind      NotificationKind
	Message   string
	CreatedAt time.Time
}

// TelegramMessage is the audit record for an inbound bot event.
type TelegramMessage struct {
	ID          int64
	ChatID      int64
	MessageID   int
	UserID      *int64
	MessageText string
	MessageType string
	CreatedAt   time.Time
}

const (
	TelegramMessageText     = "text"
	TelegramMessageCallback = "callback"
)
