package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/services"
	"github.com/avdeyev/taskflow/internal/telegram"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleAddComment(c *gin.Context)
	HandleGetComments(c *gin.Context)

	HandleGetNotifications(c *gin.Context)

	HandleTelegramWebhook(c *gin.Context)
	HandleSyncGet(c *gin.Context)
	HandleSyncPost(c *gin.Context)
	HandleWebSocket(c *gin.Context)
}

type handlerImpl struct {
	logger        zerolog.Logger
	auth          services.AuthService
	users         services.UserService
	tasks         services.TaskService
	notifications services.NotificationService
	notifier      *telegram.Notifier
	dispatcher    *telegram.Dispatcher
	hub           *WSHub
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	userService services.UserService,
	taskService services.TaskService,
	notificationService services.NotificationService,
	notifier *telegram.Notifier,
	dispatcher *telegram.Dispatcher,
	hub *WSHub,
) Handler {
	return &handlerImpl{
		logger:        logger,
		auth:          authService,
		users:         userService,
		tasks:         taskService,
		notifications: notificationService,
		notifier:      notifier,
		dispatcher:    dispatcher,
		hub:           hub,
	}
}
