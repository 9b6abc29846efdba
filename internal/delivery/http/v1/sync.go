package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/taskflow/internal/services"
)

// HandleSyncGet returns the completion state of every task as a task
// id to boolean map. Legacy desktop and mobile clients poll it to
// reconcile checkboxes, which is why it stays unauthenticated and
// keeps its flat shape.
func (h *handlerImpl) HandleSyncGet(c *gin.Context) {
	completion, err := h.tasks.CompletionMap(c)
	if err != nil {
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, completion)
}

type syncTaskRequest struct {
	TaskID    int64 `json:"taskId" binding:"required,gt=0"`
	Completed *bool `json:"completed" binding:"required"`
}

// HandleSyncPost applies a completion flag pushed by a legacy client.
// It mutates the task only; no notification or Telegram message is
// produced here, the clients polling HandleSyncGet pick the change up
// on their own.
func (h *handlerImpl) HandleSyncPost(c *gin.Context) {
	var req syncTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if *req.Completed {
		_, err = h.tasks.MarkCompleted(c, req.TaskID)
	} else {
		err = h.tasks.Reopen(c, req.TaskID)
	}
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"taskId":    req.TaskID,
		"completed": *req.Completed,
	})
}
