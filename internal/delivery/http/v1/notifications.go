package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/taskflow/internal/models"
)

const defaultNotificationsLimit = 50

type notificationResponse struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotificationResponse(n *models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Kind:      string(n.Kind),
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

// HandleGetNotifications returns the caller's notification feed, the
// same records the Telegram notifier writes on every delivery attempt.
func (h *handlerImpl) HandleGetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	limit := defaultNotificationsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			abort(c, newBadRequestError("invalid limit"))
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.ListForUser(c, user.ID, limit)
	if err != nil {
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, newNotificationResponse(n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": response})
}
