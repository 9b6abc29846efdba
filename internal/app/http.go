package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/avdeyev/taskflow/internal/config"
	v1 "github.com/avdeyev/taskflow/internal/delivery/http/v1"
	"github.com/avdeyev/taskflow/internal/services"
	"github.com/avdeyev/taskflow/internal/telegram"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()

	authService := services.NewAuthService(
		globalLogger,
		globalPostgresPool,
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.AccessTokenTTL,
	)
	userService := services.NewUserService(globalLogger, globalPostgresPool)
	taskService := services.NewTaskService(globalLogger, globalPostgresPool)
	notificationService := services.NewNotificationService(globalLogger, globalPostgresPool)

	var transport telegram.Transport
	if globalBot != nil {
		transport = telegram.NewBotTransport(globalBot)
	}

	notifier := telegram.NewNotifier(
		globalLogger,
		userService,
		notificationService,
		transport,
		cfg.Telegram.WebBaseURL,
		cfg.Telegram.SendTimeout,
	)
	linker := telegram.NewLinker(globalLogger, userService)
	completer := telegram.NewCompleter(globalLogger, userService, taskService, notifier, transport)
	dispatcher := telegram.NewDispatcher(
		globalLogger,
		transport,
		linker,
		completer,
		userService,
		taskService,
		notificationService,
		cfg.Telegram.WebBaseURL,
	)

	hub := v1.NewWSHub(globalLogger)

	v1Handler := v1.New(
		globalLogger,
		authService,
		userService,
		taskService,
		notificationService,
		notifier,
		dispatcher,
		hub,
	)

	// Endpoints consumed by Telegram and by legacy clients keep their
	// historical paths outside the versioned group.
	apiRouter := router.Group("/api")
	apiRouter.POST("/telegram/webhook", v1Handler.HandleTelegramWebhook)
	apiRouter.GET("/sync-task", v1Handler.HandleSyncGet)
	apiRouter.POST("/sync-task", v1Handler.HandleSyncPost)

	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/login", v1Handler.HandleLogin)
	authRouter.POST("/register", v1Handler.HandleRegister)

	taskRouter := router.Group("/tasks", v1Handler.HandleAuthMiddleware)
	taskRouter.POST("", v1Handler.HandleCreateTask)
	taskRouter.GET("", v1Handler.HandleGetTasks)
	taskRouter.GET("/:id", v1Handler.HandleGetTask)
	taskRouter.PATCH("/:id", v1Handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", v1Handler.HandleDeleteTask)
	taskRouter.POST("/:id/comments", v1Handler.HandleAddComment)
	taskRouter.GET("/:id/comments", v1Handler.HandleGetComments)

	router.GET("/notifications", v1Handler.HandleAuthMiddleware, v1Handler.HandleGetNotifications)
	router.GET("/ws", v1Handler.HandleAuthMiddleware, v1Handler.HandleWebSocket)
}
