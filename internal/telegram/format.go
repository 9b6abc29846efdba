package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/avdeyev/taskflow/internal/models"
)

const (
	descriptionLimit = 100
	dateLayout       = "02.01.2006"
	dateTimeLayout   = "02.01.2006 15:04"
)

func kindEmoji(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationTaskAssigned:
		return "📋"
	case models.NotificationTaskUpdated:
		return "🔄"
	case models.NotificationTaskCompleted:
		return "✅"
	case models.NotificationTaskOverdue:
		return "⚠️"
	default:
		return "📌"
	}
}

func kindHeadline(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationTaskAssigned:
		return "New task assigned to you"
	case models.NotificationTaskUpdated:
		return "Task updated"
	case models.NotificationTaskCompleted:
		return "Task completed"
	case models.NotificationTaskOverdue:
		return "Task overdue"
	default:
		return "Task notification"
	}
}

func priorityEmoji(priority string) string {
	switch priority {
	case models.PriorityUrgent:
		return "🔴"
	case models.PriorityHigh:
		return "🟠"
	case models.PriorityMedium:
		return "🟡"
	case models.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func statusEmoji(status string) string {
	switch status {
	case models.StatusPending:
		return "⏳"
	case models.StatusInProgress:
		return "🔄"
	default:
		return "📌"
	}
}

// truncateDescription shortens a description to the first
// descriptionLimit runes. Counting runes instead of bytes keeps
// multi-byte text from being cut mid-character.
func truncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= descriptionLimit {
		return description
	}
	return string(runes[:descriptionLimit]) + "..."
}

// FormatTaskMessage renders a single-task notification as Telegram
// HTML. User-provided fields are escaped, the decorations are not.
func FormatTaskMessage(task *models.Task, kind models.NotificationKind) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", kindEmoji(kind), kindHeadline(kind))
	fmt.Fprintf(&b, "📝 <b>%s</b>\n", html.EscapeString(task.Title))

	if task.Description != "" {
		fmt.Fprintf(&b, "📄 %s\n", html.EscapeString(truncateDescription(task.Description)))
	}

	fmt.Fprintf(&b, "%s Priority: %s\n", priorityEmoji(task.Priority), task.Priority)

	if task.DueDate != nil {
		fmt.Fprintf(&b, "📅 Due: %s\n", task.DueDate.Format(dateLayout))
	}

	return b.String()
}

// BuildTaskKeyboard returns the inline keyboard attached to a task
// notification. Only assignment notifications carry action buttons;
// the second row links into the web client when a base URL is
// configured.
func BuildTaskKeyboard(task *models.Task, kind models.NotificationKind, webBaseURL string) *telego.InlineKeyboardMarkup {
	if kind != models.NotificationTaskAssigned {
		return nil
	}

	rows := [][]telego.InlineKeyboardButton{
		{
			tu.InlineKeyboardButton("✅ Complete").
				WithCallbackData(EncodeCallbackData(CallbackPayload{Action: ActionComplete, TaskID: task.ID})),
		},
	}
	if webBaseURL != "" {
		rows = append(rows, []telego.InlineKeyboardButton{
			tu.InlineKeyboardButton("👁 View in TaskFlow").
				WithURL(fmt.Sprintf("%s/tasks/%d", strings.TrimRight(webBaseURL, "/"), task.ID)),
		})
	}
	return tu.InlineKeyboard(rows...)
}

// FormatTaskList renders the /tasks reply. Tasks arrive already
// ordered by priority and due date.
func FormatTaskList(tasks []*models.Task, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📋 <b>Your active tasks (%d):</b>\n\n", len(tasks))

	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. %s%s %s\n",
			i+1,
			priorityEmoji(task.Priority),
			statusEmoji(task.Status),
			html.EscapeString(task.Title),
		)
		if task.DueDate != nil {
			if task.IsOverdue(now) {
				fmt.Fprintf(&b, "   ⚠️ Overdue: %s\n", task.DueDate.Format(dateLayout))
			} else {
				fmt.Fprintf(&b, "   📅 Due: %s\n", task.DueDate.Format(dateLayout))
			}
		}
	}

	return b.String()
}

// FormatCompletionEdit is the replacement text for a notification
// message after its task got completed from the chat.
func FormatCompletionEdit(task *models.Task, completedAt time.Time) string {
	var b strings.Builder

	b.WriteString("✅ <b>Task completed!</b>\n\n")
	fmt.Fprintf(&b, "📝 <s>%s</s>\n\n", html.EscapeString(task.Title))
	fmt.Fprintf(&b, "Marked as done %s", completedAt.Format(dateTimeLayout))

	return b.String()
}
