package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

const selectTaskColumns = `
SELECT id,
       title,
       description,
       status,
       priority,
       due_date,
       created_by,
       assigned_to,
       is_deleted,
       completed_at,
       created_at,
       updated_at
FROM tasks
`

// priorityRankCase mirrors models.PriorityRank so ordering happens in
// one round trip instead of in memory.
const priorityRankCase = `
CASE priority
    WHEN 'urgent' THEN 1
    WHEN 'high' THEN 2
    WHEN 'medium' THEN 3
    WHEN 'low' THEN 4
    ELSE 5
END`

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.IsDeleted,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) Create(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	status := params.Status
	if status == "" {
		status = models.StatusPending
	}
	priority := params.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidStatus(status) {
		return nil, ErrInvalidTaskStatus
	}
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidTaskPriority
	}

	now := time.Now()
	task := &models.Task{
		Title:       params.Title,
		Description: params.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     params.DueDate,
		CreatedBy:   params.CreatedBy,
		AssignedTo:  params.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// completed_at is set exactly when status is completed, even for
	// tasks born completed.
	if status == models.StatusCompleted {
		task.CompletedAt = &now
	}

	const insertTaskQuery = `
INSERT INTO tasks (title,
                   description,
                   status,
                   priority,
                   due_date,
                   created_by,
                   assigned_to,
                   completed_at,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id
`
	err := s.pgPool.QueryRow(
		ctx,
		insertTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CreatedBy,
		task.AssignedTo,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Int64("created_by", task.CreatedBy).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	const selectTaskByIDQuery = selectTaskColumns + `
WHERE id = $1 AND is_deleted = FALSE
`
	task, err := scanTask(s.pgPool.QueryRow(ctx, selectTaskByIDQuery, id))
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.logger.Debug().
				Int64("task_id", id).
				Msg("task not found")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to select task by id")
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) Update(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	fields := make([]string, 0, 6)
	args := make([]any, 0, 7)

	appendField := func(column string, value any) {
		args = append(args, value)
		fields = append(fields, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Title != nil {
		appendField("title", strings.TrimSpace(*params.Title))
	}
	if params.Description != nil {
		appendField("description", strings.TrimSpace(*params.Description))
	}
	if params.Status != nil {
		if !models.ValidStatus(*params.Status) {
			return nil, ErrInvalidTaskStatus
		}
		appendField("status", *params.Status)
	}
	if params.Priority != nil {
		if !models.ValidPriority(*params.Priority) {
			return nil, ErrInvalidTaskPriority
		}
		appendField("priority", *params.Priority)
	}
	if params.SetDueDate {
		appendField("due_date", params.DueDate)
	}
	if params.SetAssignee {
		appendField("assigned_to", params.AssignedTo)
	}

	appendField("updated_at", time.Now())

	args = append(args, params.ID)
	query := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d AND is_deleted = FALSE",
		strings.Join(fields, ", "), len(args))

	tag, err := s.pgPool.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", params.ID).
			Msg("failed to update task")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Int64("task_id", params.ID).
			Msg("task not found")
		return nil, ErrTaskNotFound
	}

	s.logger.Info().
		Int64("task_id", params.ID).
		Msg("updated task")
	return s.GetByID(ctx, params.ID)
}

func (s *taskServiceImpl) Delete(ctx context.Context, id int64) error {
	const softDeleteTaskQuery = `
UPDATE tasks
SET is_deleted = TRUE,
    updated_at = now()
WHERE id = $1 AND is_deleted = FALSE
`
	tag, err := s.pgPool.Exec(ctx, softDeleteTaskQuery, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Error().
			Int64("task_id", id).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.logger.Info().
		Int64("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := selectTaskColumns + `
WHERE is_deleted = FALSE
`
	args := make([]any, 0, 4)

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	if filter.VisibleTo != 0 {
		args = append(args, filter.VisibleTo)
		query += fmt.Sprintf(" AND (created_by = $%d OR assigned_to = $%d)", len(args), len(args))
	}

	query += `
ORDER BY ` + priorityRankCase + `,
    due_date ASC NULLS LAST,
    created_at DESC
`

	rows, err := s.pgPool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *taskServiceImpl) ListIncompleteForUser(ctx context.Context, userID int64, limit int) ([]*models.Task, error) {
	const selectIncompleteQuery = selectTaskColumns + `
WHERE assigned_to = $1
  AND status <> 'completed'
  AND is_deleted = FALSE
ORDER BY ` + priorityRankCase + `,
    due_date ASC NULLS LAST
LIMIT $2
`
	rows, err := s.pgPool.Query(ctx, selectIncompleteQuery, userID, limit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Msg("failed to select incomplete tasks")
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func (s *taskServiceImpl) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	// The status guard makes the transition idempotent under concurrent
	// writers without taking a lock: only one UPDATE can move the row
	// out of a non-completed status.
	const markCompletedQuery = `
UPDATE tasks
SET status = 'completed',
    completed_at = now(),
    updated_at = now()
WHERE id = $1 AND is_deleted = FALSE AND status <> 'completed'
`
	tag, err := s.pgPool.Exec(ctx, markCompletedQuery, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to mark task completed")
		return false, err
	}
	if tag.RowsAffected() > 0 {
		s.logger.Info().
			Int64("task_id", id).
			Msg("marked task completed")
		return false, nil
	}

	// Nothing changed: either the task was already completed or it
	// does not exist at all.
	const selectStatusQuery = `
SELECT status FROM tasks WHERE id = $1 AND is_deleted = FALSE
`
	var status string
	err = s.pgPool.QueryRow(ctx, selectStatusQuery, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to check task status")
		return false, err
	}
	// The row exists, so the task was completed before this call. A
	// concurrent reopen may have raced us between the two statements;
	// the later write wins either way.
	return true, nil
}

func (s *taskServiceImpl) Reopen(ctx context.Context, id int64) error {
	const reopenTaskQuery = `
UPDATE tasks
SET status = 'pending',
    completed_at = NULL,
    updated_at = now()
WHERE id = $1 AND is_deleted = FALSE
`
	tag, err := s.pgPool.Exec(ctx, reopenTaskQuery, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", id).
			Msg("failed to reopen task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	s.logger.Info().
		Int64("task_id", id).
		Msg("reopened task")
	return nil
}

func (s *taskServiceImpl) CompletionMap(ctx context.Context) (map[int64]bool, error) {
	const selectCompletionQuery = `
SELECT id, status FROM tasks WHERE is_deleted = FALSE ORDER BY id
`
	rows, err := s.pgPool.Query(ctx, selectCompletionQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select completion map")
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]bool)
	for rows.Next() {
		var (
			id     int64
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		result[id] = status == models.StatusCompleted
	}
	return result, rows.Err()
}

func (s *taskServiceImpl) AddComment(ctx context.Context, taskID, userID int64, text string) (*models.Comment, error) {
	comment := &models.Comment{
		TaskID:    taskID,
		UserID:    userID,
		Comment:   text,
		CreatedAt: time.Now(),
	}

	const insertCommentQuery = `
INSERT INTO task_comments (task_id, user_id, comment, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	err := s.pgPool.QueryRow(
		ctx,
		insertCommentQuery,
		comment.TaskID,
		comment.UserID,
		comment.Comment,
		comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to insert comment")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", taskID).
		Int64("comment_id", comment.ID).
		Msg("added comment")
	return comment, nil
}

func (s *taskServiceImpl) ListComments(ctx context.Context, taskID int64) ([]*models.Comment, error) {
	const selectCommentsQuery = `
SELECT id, task_id, user_id, comment, created_at
FROM task_comments
WHERE task_id = $1
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectCommentsQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("task_id", taskID).
			Msg("failed to select comments")
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c := &models.Comment{}
		err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Comment, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
