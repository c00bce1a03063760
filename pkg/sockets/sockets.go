package sockets

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("closed connection")

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Hub accepts websocket clients and pushes the same message to all of them.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	onError      func(err error)
	onConnected  func(*Conn)

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
}

func New(opts ...func(*Hub)) *Hub {
	h := &Hub{
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
		conns:        map[*Conn]struct{}{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Conn is one connected client. Writes are serialised.
type Conn struct {
	hub    *Hub
	ws     *websocket.Conn
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response.
		h.reportError(err)
		return
	}

	c := &Conn{hub: h, ws: ws, done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	if h.onConnected != nil {
		h.onConnected(c)
	}
	go c.readLoop()
	go c.pingLoop()
}

// Broadcast sends body to every client. Clients that fail are dropped.
func (h *Hub) Broadcast(body []byte) {
	for _, c := range h.clients() {
		if err := c.Send(body); err != nil {
			h.reportError(err)
		}
	}
}

// Count is the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	for _, c := range h.clients() {
		_ = c.Close()
	}
	return nil
}

func (h *Hub) clients() []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) reportError(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (c *Conn) Send(body []byte) error {
	return c.write(websocket.TextMessage, body)
}

func (c *Conn) write(messageType int, body []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
	err := c.ws.WriteMessage(messageType, body)
	c.mu.Unlock()
	if err != nil {
		_ = c.Close()
		return err
	}
	return nil
}

// Closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	c.hub.remove(c)
	return c.ws.Close()
}

// readLoop discards client messages; it only notices when the client goes away.
func (c *Conn) readLoop() {
	defer c.Close()
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.reportError(err)
			}
			return
		}
	}
}

func (c *Conn) pingLoop() {
	if c.hub.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.hub.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}
