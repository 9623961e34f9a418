package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrClientClosed  = &Error{Code: "client_closed", Message: "client connection is closed"}
	ErrSendQueueFull = &Error{Code: "send_queue_full", Message: "client send queue is full"}
)

// Error is a websocket-level failure with a stable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Hub tracks connected registry-stream clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		logger:  logger,
	}
}

// Register adds a client and returns its assigned id.
func (h *Hub) Register(c *Client) uuid.UUID {
	id := uuid.New()
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.logger.Debug().Str("client_id", id.String()).Msg("ws client registered")
	return id
}

// Unregister drops a client and closes its connection.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		c.Close()
		h.logger.Debug().Str("client_id", id.String()).Msg("ws client unregistered")
	}
}

// Broadcast delivers a message to every connected client. Slow clients whose
// queues overflow are dropped rather than allowed to stall the rest.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	stale := make([]uuid.UUID, 0)
	for id, c := range h.clients {
		if err := c.Send(msg); err != nil {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.logger.Warn().Str("client_id", id.String()).Msg("dropping unresponsive ws client")
		h.Unregister(id)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client wraps one websocket connection with a buffered send queue.
type Client struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

func NewClient(conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		conn:   conn,
		sendCh: make(chan Message, 64),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Client) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts the connection down once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the wire.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("ws write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump keeps the read side alive for pings; the registry stream is
// one-directional so inbound frames other than ping are ignored.
func (c *Client) ReadPump() {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("ws read error")
			}
			return
		}
		if msg.Type == TypePing {
			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}
