package v1

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avdeyev/taskflow/internal/models"
)

// WSHub tracks open WebSocket connections and pushes task change
// events to all of them, so web clients refresh without polling the
// sync endpoint.
type WSHub struct {
	logger      zerolog.Logger
	mutex       sync.Mutex
	connections map[*websocket.Conn]bool
}

func NewWSHub(logger zerolog.Logger) *WSHub {
	return &WSHub{
		logger:      logger,
		connections: make(map[*websocket.Conn]bool),
	}
}

type taskEvent struct {
	Event     string `json:"event"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
}

// BroadcastTask fans a task change out to every connection. Dead
// connections are dropped on write failure.
func (h *WSHub) BroadcastTask(task *models.Task) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.connections) == 0 {
		return
	}

	message, err := json.Marshal(taskEvent{
		Event:     "task_updated",
		TaskID:    task.ID,
		Title:     task.Title,
		Status:    task.Status,
		Completed: task.IsCompleted(),
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("task_id", task.ID).
			Msg("failed to marshal task event")
		return
	}

	for conn := range h.connections {
		err := conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			h.logger.Warn().
				Err(err).
				Msg("dropping dead websocket connection")
			delete(h.connections, conn)
			_ = conn.Close()
		}
	}
}

func (h *WSHub) register(conn *websocket.Conn) {
	h.mutex.Lock()
	h.connections[conn] = true
	h.mutex.Unlock()
}

func (h *WSHub) unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	delete(h.connections, conn)
	h.mutex.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The endpoint sits behind the authenticated group, cross-origin
		// browsers cannot attach a valid bearer header anyway.
		return true
	},
}

func (h *handlerImpl) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("websocket upgrade failed")
		return
	}

	h.hub.register(conn)
	defer func() {
		h.hub.unregister(conn)
		_ = conn.Close()
	}()

	// Clients only listen. Reading still has to happen to notice the
	// peer going away.
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
	}
}
