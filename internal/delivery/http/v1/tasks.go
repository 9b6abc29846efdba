package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

type taskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CreatedBy:   task.CreatedBy,
		AssignedTo:  task.AssignedTo,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// canSeeTask gates task visibility. Admins see everything, others only
// tasks they created or are assigned to. Invisible tasks read as not
// found so ids cannot be probed.
func canSeeTask(user *models.User, task *models.Task) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	if task.CreatedBy == user.ID {
		return true
	}
	return task.AssignedTo != nil && *task.AssignedTo == user.ID
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *int64     `json:"assigned_to"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.Create(c, services.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CreatedBy:   user.ID,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidTaskStatus),
			errors.Is(err, services.ErrInvalidTaskPriority):
			abort(c, newBadRequestError(err.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	if task.AssignedTo != nil {
		h.notifier.Notify(c, task, []int64{*task.AssignedTo}, models.NotificationTaskAssigned)
	}
	h.hub.BroadcastTask(task)

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	filter := services.TaskFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		id, err := strconv.ParseInt(assignedTo, 10, 64)
		if err != nil {
			abort(c, newBadRequestError("invalid assigned_to"))
			return
		}
		filter.AssignedTo = &id
	}
	if user.Role != models.RoleAdmin {
		filter.VisibleTo = user.ID
	}

	tasks, err := h.tasks.List(c, filter)
	if err != nil {
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, newTaskResponse(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": response})
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, ok := taskIDParam(c)
	if !ok {
		abort(c, newBadRequestError("invalid task id"))
		return
	}

	task, err := h.tasks.GetByID(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	if !canSeeTask(user, task) {
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *int64     `json:"assigned_to"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, ok := taskIDParam(c)
	if !ok {
		abort(c, newBadRequestError("invalid task id"))
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	existing, err := h.tasks.GetByID(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	if !canSeeTask(user, existing) {
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	// Status transitions touching the completed state go through their
	// dedicated operations so every client observes the same semantics.
	completing := req.Status != nil && *req.Status == models.StatusCompleted
	reopening := req.Status != nil && *req.Status != models.StatusCompleted && existing.IsCompleted()

	if completing {
		alreadyDone, err := h.tasks.MarkCompleted(c, id)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
				return
			}
			abort(c, newStatusTextError(http.StatusInternalServerError))
			return
		}
		if !alreadyDone && user.ID != existing.CreatedBy {
			h.notifier.Notify(c, existing, []int64{existing.CreatedBy}, models.NotificationTaskCompleted)
		}
		req.Status = nil
	} else if reopening {
		err = h.tasks.Reopen(c, id)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
				return
			}
			abort(c, newStatusTextError(http.StatusInternalServerError))
			return
		}
		if *req.Status == models.StatusPending {
			req.Status = nil
		}
	}

	params := services.UpdateTaskParams{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	}
	if req.DueDate != nil {
		params.DueDate = req.DueDate
		params.SetDueDate = true
	}
	reassigned := req.AssignedTo != nil &&
		(existing.AssignedTo == nil || *existing.AssignedTo != *req.AssignedTo)
	if req.AssignedTo != nil {
		params.AssignedTo = req.AssignedTo
		params.SetAssignee = true
	}

	task, err := h.tasks.Update(c, params)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		case errors.Is(err, services.ErrInvalidTaskStatus),
			errors.Is(err, services.ErrInvalidTaskPriority):
			abort(c, newBadRequestError(err.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	if reassigned {
		h.notifier.Notify(c, task, []int64{*task.AssignedTo}, models.NotificationTaskAssigned)
	} else if !completing && task.AssignedTo != nil && *task.AssignedTo != user.ID {
		h.notifier.Notify(c, task, []int64{*task.AssignedTo}, models.NotificationTaskUpdated)
	}
	h.hub.BroadcastTask(task)

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, ok := taskIDParam(c)
	if !ok {
		abort(c, newBadRequestError("invalid task id"))
		return
	}

	task, err := h.tasks.GetByID(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	// Deleting is reserved for the creator and admins, assignees only
	// complete.
	if user.Role != models.RoleAdmin && task.CreatedBy != user.ID {
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	err = h.tasks.Delete(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.Status(http.StatusNoContent)
}

type commentResponse struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	UserID    int64     `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func newCommentResponse(comment *models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		UserID:    comment.UserID,
		Comment:   comment.Comment,
		CreatedAt: comment.CreatedAt,
	}
}

type addCommentRequest struct {
	Comment string `json:"comment" binding:"required,max=2000"`
}

func (h *handlerImpl) HandleAddComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, ok := taskIDParam(c)
	if !ok {
		abort(c, newBadRequestError("invalid task id"))
		return
	}

	var req addCommentRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.GetByID(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	if !canSeeTask(user, task) {
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	comment, err := h.tasks.AddComment(c, id, user.ID, req.Comment)
	if err != nil {
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

func (h *handlerImpl) HandleGetComments(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, ok := taskIDParam(c)
	if !ok {
		abort(c, newBadRequestError("invalid task id"))
		return
	}

	task, err := h.tasks.GetByID(c, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}
	if !canSeeTask(user, task) {
		abort(c, newNotFoundError(services.ErrTaskNotFound.Error()))
		return
	}

	comments, err := h.tasks.ListComments(c, id)
	if err != nil {
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		response = append(response, newCommentResponse(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": response})
}
