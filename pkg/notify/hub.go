package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/metrics"
)

const (
	defaultWriteTimeout = 100 * time.Millisecond
	pingInterval        = 30 * time.Second
	pongWait            = 60 * time.Second
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer
	writeMu sync.Mutex
}

func (c *client) write(timeout time.Duration, fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return fn()
}

// Hub fans events out to every connected websocket client. A client whose
// write fails or times out is dropped.
type Hub struct {
	WriteTimeout time.Duration

	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{
		WriteTimeout: defaultWriteTimeout,
		upgrader: websocket.Upgrader{
			// UI clients are local; any origin is accepted.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  common.GetLoggerWith(common.LoggerNameNotify),
		clients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &client{conn: conn}
	metrics.WebsocketClientConnected()
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
		metrics.WebsocketClientDisconnected()
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*websocket.Conn

	for _, c := range clients {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			err := c.write(h.WriteTimeout, func() error { return c.conn.WriteJSON(event) })
			if err != nil {
				failedMu.Lock()
				failed = append(failed, c.conn)
				failedMu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	if len(failed) > 0 {
		h.logger.Info("Evicting websocket clients", zap.Int("count", len(failed)))
		h.mu.Lock()
		for _, conn := range failed {
			h.removeLocked(conn)
		}
		h.mu.Unlock()
	}
	metrics.RecordNotification(event.Type)
}

// ServeWS upgrades the request and keeps the client until it goes away.
// Incoming messages are read only to notice the close.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.AddClient(conn)
	h.logger.Info("Websocket client connected", zap.String("remote", r.RemoteAddr))
	defer func() {
		h.RemoveClient(conn)
		h.logger.Info("Websocket client gone", zap.String("remote", r.RemoteAddr))
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("Websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	h.mu.Lock()
	c := h.clients[conn]
	h.mu.Unlock()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if c == nil {
				return
			}
			err := c.write(h.WriteTimeout, func() error { return conn.WriteMessage(websocket.PingMessage, nil) })
			if err != nil {
				return
			}
		}
	}
}
