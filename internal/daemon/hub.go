package daemon

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smelter-dev/smelter/internal/pipeline"
)

// Event types pushed to subscribers.
const (
	EventRunCompleted = "run-completed"
	EventRunFailed    = "run-failed"
)

// Event is broadcast to every subscriber when a run finishes. Editors
// and UIs use it to reload generated contracts without polling.
type Event struct {
	Type        string    `json:"type"`
	ExecutionID string    `json:"execution_id,omitempty"`
	Generated   int       `json:"generated"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Hub fans run events out to WebSocket subscribers.
type Hub struct {
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	connections map[*websocket.Conn]bool
	broadcast   chan Event
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local tooling only. Browsers on other origins stay out.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan Event, 16),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mutex.Lock()
			h.connections[conn] = true
			h.mutex.Unlock()
			h.logger.Debug("subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			h.sendToAll(event)

		case <-h.done:
			h.mutex.Lock()
			for conn := range h.connections {
				conn.Close()
			}
			h.connections = make(map[*websocket.Conn]bool)
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) sendToAll(event Event) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range h.connections {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("subscriber write failed", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	h.mutex.RUnlock()

	if len(failed) == 0 {
		return
	}
	h.mutex.Lock()
	for _, conn := range failed {
		delete(h.connections, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// NotifyRunCompleted broadcasts the outcome of a finished run.
func (h *Hub) NotifyRunCompleted(summary *pipeline.Summary) {
	h.notify(Event{
		Type:        EventRunCompleted,
		ExecutionID: summary.ExecutionID,
		Generated:   summary.Generated,
		Failed:      summary.Failed,
		Skipped:     summary.Skipped,
		DurationMS:  summary.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})
}

// NotifyRunFailed broadcasts a run that did not produce output.
func (h *Hub) NotifyRunFailed(executionID, message string) {
	h.notify(Event{
		Type:        EventRunFailed,
		ExecutionID: executionID,
		Error:       message,
		Timestamp:   time.Now().UTC(),
	})
}

func (h *Hub) notify(event Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.logger.Warn("event dropped, broadcast queue full", zap.String("type", event.Type))
	}
}

// HandleWebSocket upgrades the request and subscribes the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	go h.readMessages(conn)
}

// readMessages drains the client so pings and close frames are handled.
func (h *Hub) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
			conn.Close()
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("subscriber read failed", zap.Error(err))
			}
			return
		}
	}
}

// ConnectionCount reports the number of active subscribers.
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close disconnects all subscribers and stops the dispatch loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}
