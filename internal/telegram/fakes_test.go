package telegram

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard *telego.InlineKeyboardMarkup
}

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	edited  []editedMessage
	acks    []string
	sendErr error
}

func (t *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return 0, t.sendErr
	}
	t.sent = append(t.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return len(t.sent), nil
}

func (t *fakeTransport) EditMessageText(_ context.Context, chatID int64, messageID int, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edited = append(t.edited, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (t *fakeTransport) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acks = append(t.acks, text)
	return nil
}

type fakeUserService struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newFakeUserService(users ...*models.User) *fakeUserService {
	s := &fakeUserService{users: make(map[int64]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserService) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserService) GetActiveByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email && user.IsActive {
			return user, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (s *fakeUserService) GetByChatID(_ context.Context, chatID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramChatID != nil && *user.TelegramChatID == chatID {
			return user, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (s *fakeUserService) SetChatBinding(_ context.Context, userID, chatID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramChatID != nil && *user.TelegramChatID == chatID && user.ID != userID {
			user.TelegramChatID = nil
			user.TelegramUsername = nil
		}
	}
	user, ok := s.users[userID]
	if !ok {
		return services.ErrUserNotFound
	}
	user.TelegramChatID = &chatID
	if username != "" {
		user.TelegramUsername = &username
	}
	return nil
}

func (s *fakeUserService) ClearChatBinding(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramChatID != nil && *user.TelegramChatID == chatID {
			user.TelegramChatID = nil
			user.TelegramUsername = nil
			return true, nil
		}
	}
	return false, nil
}

type fakeTaskService struct {
	mu       sync.Mutex
	tasks    map[int64]*models.Task
	comments []*models.Comment
	nextID   int64
}

func newFakeTaskService(tasks ...*models.Task) *fakeTaskService {
	s := &fakeTaskService{tasks: make(map[int64]*models.Task), nextID: 1}
	for _, task := range tasks {
		s.tasks[task.ID] = task
		if task.ID >= s.nextID {
			s.nextID = task.ID + 1
		}
	}
	return s
}

func (s *fakeTaskService) Create(_ context.Context, params services.CreateTaskParams) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := params.Status
	if status == "" {
		status = models.StatusPending
	}
	priority := params.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidStatus(status) {
		return nil, services.ErrInvalidTaskStatus
	}
	if !models.ValidPriority(priority) {
		return nil, services.ErrInvalidTaskPriority
	}
	task := &models.Task{
		ID:          s.nextID,
		Title:       params.Title,
		Description: params.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     params.DueDate,
		CreatedBy:   params.CreatedBy,
		AssignedTo:  params.AssignedTo,
	}
	s.nextID++
	s.tasks[task.ID] = task
	return task, nil
}

func (s *fakeTaskService) GetByID(_ context.Context, id int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return nil, services.ErrTaskNotFound
	}
	return task, nil
}

func (s *fakeTaskService) Update(_ context.Context, params services.UpdateTaskParams) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[params.ID]
	if !ok || task.IsDeleted {
		return nil, services.ErrTaskNotFound
	}
	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		if !models.ValidStatus(*params.Status) {
			return nil, services.ErrInvalidTaskStatus
		}
		task.Status = *params.Status
	}
	if params.Priority != nil {
		if !models.ValidPriority(*params.Priority) {
			return nil, services.ErrInvalidTaskPriority
		}
		task.Priority = *params.Priority
	}
	if params.SetDueDate {
		task.DueDate = params.DueDate
	}
	if params.SetAssignee {
		task.AssignedTo = params.AssignedTo
	}
	return task, nil
}

func (s *fakeTaskService) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return services.ErrTaskNotFound
	}
	task.IsDeleted = true
	return nil
}

func (s *fakeTaskService) List(_ context.Context, filter services.TaskFilter) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.Task, 0)
	for _, task := range s.tasks {
		if task.IsDeleted {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.AssignedTo != nil &&
			(task.AssignedTo == nil || *task.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.VisibleTo != 0 && task.CreatedBy != filter.VisibleTo &&
			(task.AssignedTo == nil || *task.AssignedTo != filter.VisibleTo) {
			continue
		}
		result = append(result, task)
	}
	return result, nil
}

func (s *fakeTaskService) ListIncompleteForUser(_ context.Context, userID int64, limit int) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.Task, 0)
	for _, task := range s.tasks {
		if task.IsDeleted || task.IsCompleted() {
			continue
		}
		if task.AssignedTo == nil || *task.AssignedTo != userID {
			continue
		}
		result = append(result, task)
	}
	// Priority rank first, then due date ascending with nulls last,
	// same order the storage layer produces.
	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := models.PriorityRank(result[i].Priority), models.PriorityRank(result[j].Priority)
		if ri != rj {
			return ri < rj
		}
		di, dj := result[i].DueDate, result[j].DueDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *fakeTaskService) MarkCompleted(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return false, services.ErrTaskNotFound
	}
	if task.IsCompleted() {
		return true, nil
	}
	now := time.Now()
	task.Status = models.StatusCompleted
	task.CompletedAt = &now
	return false, nil
}

func (s *fakeTaskService) Reopen(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.IsDeleted {
		return services.ErrTaskNotFound
	}
	task.Status = models.StatusPending
	task.CompletedAt = nil
	return nil
}

func (s *fakeTaskService) CompletionMap(_ context.Context) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[int64]bool)
	for id, task := range s.tasks {
		if task.IsDeleted {
			continue
		}
		result[id] = task.IsCompleted()
	}
	return result, nil
}

func (s *fakeTaskService) AddComment(_ context.Context, taskID, userID int64, text string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment := &models.Comment{
		ID:      int64(len(s.comments) + 1),
		TaskID:  taskID,
		UserID:  userID,
		Comment: text,
	}
	s.comments = append(s.comments, comment)
	return comment, nil
}

func (s *fakeTaskService) ListComments(_ context.Context, taskID int64) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.Comment, 0)
	for _, comment := range s.comments {
		if comment.TaskID == taskID {
			result = append(result, comment)
		}
	}
	return result, nil
}

type recordedNotification struct {
	userID  int64
	taskID  int64
	kind    models.NotificationKind
	message string
}

type fakeNotificationService struct {
	mu        sync.Mutex
	recorded  []recordedNotification
	inbound   []models.TelegramMessage
	recordErr error
}

func (s *fakeNotificationService) Record(_ context.Context, userID, taskID int64, kind models.NotificationKind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, recordedNotification{
		userID:  userID,
		taskID:  taskID,
		kind:    kind,
		message: message,
	})
	return nil
}

func (s *fakeNotificationService) ListForUser(_ context.Context, userID int64, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*models.Notification, 0)
	for _, rec := range s.recorded {
		if rec.userID != userID || len(result) == limit {
			continue
		}
		result = append(result, &models.Notification{
			UserID:  rec.userID,
			TaskID:  rec.taskID,
			Kind:    rec.kind,
			Message: rec.message,
		})
	}
	return result, nil
}

func (s *fakeNotificationService) LogInbound(_ context.Context, entry models.TelegramMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, entry)
	return nil
}

var errSendFailed = errors.New("send failed")
