package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// StateEvent is the websocket event name carrying a full snapshot.
const StateEvent = "state-update"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is one websocket frame sent to dashboard clients.
type Message struct {
	Event string   `json:"event"`
	Data  Snapshot `json:"data"`
}

// EncodeState encodes a snapshot as a state-update frame.
func EncodeState(snapshot Snapshot) ([]byte, error) {
	return sonic.Marshal(Message{Event: StateEvent, Data: snapshot})
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans state frames out to connected websocket clients. Slow clients
// whose buffer fills up are disconnected.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	wg       conc.WaitGroup
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub accepting connections from allowedOrigin ("*" for any).
func NewHub(allowedOrigin string, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		logger: logger.Named("dashboard_hub"),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Publish encodes and broadcasts a snapshot. It never blocks.
func (h *Hub) Publish(snapshot Snapshot) {
	payload, err := EncodeState(snapshot)
	if err != nil {
		h.logger.Error("Failed to encode state", zap.Error(err))
		return
	}

	h.Broadcast(payload)
}

// Broadcast queues payload for every client.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping slow dashboard client",
				zap.String("remoteAddr", c.conn.RemoteAddr().String()))
			delete(h.clients, c)
			c.close()
		}
	}
}

// Upgrade switches the request to a websocket. The returned attach function
// registers the client with its first frame, which may be empty.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (attach func(initial []byte), err error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	return func(initial []byte) {
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()

			return
		}

		if len(initial) > 0 {
			c.send <- initial
		}

		h.clients[c] = struct{}{}
		clients := len(h.clients)

		h.wg.Go(func() { h.writePump(c) })
		h.wg.Go(func() { h.readPump(c) })
		h.mu.Unlock()

		h.logger.Info("Dashboard client connected",
			zap.String("remoteAddr", conn.RemoteAddr().String()),
			zap.Int("clients", clients))
	}, nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards client frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		h.logger.Info("Dashboard client disconnected",
			zap.String("remoteAddr", c.conn.RemoteAddr().String()))
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true

	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()

	h.wg.Wait()
}
