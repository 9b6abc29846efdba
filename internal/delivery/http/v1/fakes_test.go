package v1

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
	"github.com/avdeyev/taskflow/internal/services"
	"github.com/avdeyev/taskflow/internal/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	acks int
}

func (t *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, _ *telego.InlineKeyboardMarkup) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentMessage{chatID: chatID, text: text})
	return len(t.sent), nil
}

func (t *fakeTransport) EditMessageText(context.Context, int64, int, string) error {
	return nil
}

func (t *fakeTransport) AnswerCallbackQuery(_ context.Context, _, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acks++
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
	mu    sync.Mutex
	tasks map[int64]*models.Task
}

func newFakeTaskService(tasks ...*models.Task) *fakeTaskService {
	s := &fakeTaskService{tasks: make(map[int64]*models.Task)}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	return s
}

func (s *fakeTaskService) Create(_ context.Context, params services.CreateTaskParams) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &models.Task{
		ID:          int64(len(s.tasks) + 1),
		Title:       params.Title,
		Description: params.Description,
		Status:      models.StatusPending,
		Priority:    models.PriorityMedium,
		DueDate:     params.DueDate,
		CreatedBy:   params.CreatedBy,
		AssignedTo:  params.AssignedTo,
	}
	if params.Status != "" {
		task.Status = params.Status
	}
	if params.Priority != "" {
		task.Priority = params.Priority
	}
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
		task.Status = *params.Status
	}
	if params.Priority != nil {
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
		if len(result) == limit {
			break
		}
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
	return &models.Comment{ID: 1, TaskID: taskID, UserID: userID, Comment: text}, nil
}

func (s *fakeTaskService) ListComments(context.Context, int64) ([]*models.Comment, error) {
	return []*models.Comment{}, nil
}

type fakeNotificationService struct {
	mu       sync.Mutex
	recorded int
	inbound  []models.TelegramMessage
}

func (s *fakeNotificationService) Record(context.Context, int64, int64, models.NotificationKind, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded++
	return nil
}

func (s *fakeNotificationService) ListForUser(context.Context, int64, int) ([]*models.Notification, error) {
	return []*models.Notification{}, nil
}

func (s *fakeNotificationService) LogInbound(_ context.Context, entry models.TelegramMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, entry)
	return nil
}

type fixture struct {
	router        *gin.Engine
	users         *fakeUserService
	tasks         *fakeTaskService
	transport     *fakeTransport
	notifications *fakeNotificationService
}

func newFixture(seedUsers []*models.User, seedTasks []*models.Task) *fixture {
	gin.SetMode(gin.TestMode)

	users := newFakeUserService(seedUsers...)
	tasks := newFakeTaskService(seedTasks...)
	transport := &fakeTransport{}
	notifications := &fakeNotificationService{}

	logger := zerolog.Nop()
	notifier := telegram.NewNotifier(logger, users, notifications, transport, "", time.Second)
	linker := telegram.NewLinker(logger, users)
	completer := telegram.NewCompleter(logger, users, tasks, notifier, transport)
	dispatcher := telegram.NewDispatcher(logger, transport, linker, completer, users, tasks, notifications, "")
	hub := NewWSHub(logger)

	handler := New(logger, nil, users, tasks, notifications, notifier, dispatcher, hub)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/telegram/webhook", handler.HandleTelegramWebhook)
	api.GET("/sync-task", handler.HandleSyncGet)
	api.POST("/sync-task", handler.HandleSyncPost)

	return &fixture{
		router:        router,
		users:         users,
		tasks:         tasks,
		transport:     transport,
		notifications: notifications,
	}
}
