package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 5 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 30 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps what subscribers may send us; they only send pongs.
	maxMessageSize = 4 * 1024
)

// Conn is the subset of a websocket connection the client needs.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single websocket subscriber
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// NewClient creates a new client and registers it with the hub
func NewClient(hub *Hub, conn Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 16),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		close(client.send)
	}
	return client
}

// Run starts the write pump and blocks in the read pump until the
// connection closes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump only exists to notice disconnects and process pongs.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine that writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
