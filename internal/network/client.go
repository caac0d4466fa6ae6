package network

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client is one websocket connection to the board UI.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	windowStart time.Time
	windowCount int
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.opts.ClientSendBuffer),
	}
}

// ID returns the client's connection id.
func (c *Client) ID() string {
	return c.id
}

// Register adds the client to the hub. It reports false once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

// ReadPump pumps commands from the websocket connection to the session.
func (c *Client) ReadPump() {
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warnf("Client %s read error: %v", c.id, err)
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Warnf("Failed to parse command from client %s: %v", c.id, err)
			c.hub.sendTo(c, Message{Type: MessageError, Error: "malformed command"})
			continue
		}

		c.handleCommand(cmd)
	}
}

// allow applies the per-client message budget over one-second windows.
func (c *Client) allow(now time.Time) bool {
	limit := c.hub.opts.MaxMessagesPerSecond
	if limit <= 0 {
		return true
	}
	if now.Sub(c.windowStart) >= time.Second {
		c.windowStart = now
		c.windowCount = 0
	}
	c.windowCount++
	return c.windowCount <= limit
}

func (c *Client) handleCommand(cmd Command) {
	if !c.allow(time.Now()) {
		c.hub.logger.Warnf("Rate limit exceeded for client %s", c.id)
		return
	}

	ctrl := c.hub.controller
	switch cmd.Type {
	case CommandStart:
		if err := ctrl.Start(); err != nil {
			c.hub.sendTo(c, Message{Type: MessageError, Error: err.Error()})
		}
	case CommandPress:
		// Rejected presses need no reply: the board only reacts to updates.
		ctrl.Press(cmd.Signal)
	case CommandReset:
		ctrl.Reset()
	case CommandState:
		c.hub.sendTo(c, FromState(ctrl.State()))
	default:
		c.hub.logger.Warnf("Unknown command type %q from client %s", cmd.Type, c.id)
		c.hub.sendTo(c, Message{Type: MessageError, Error: "unknown command " + cmd.Type})
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.metrics.RecordWSError()
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
