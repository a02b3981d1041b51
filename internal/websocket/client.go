package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/daily-meme-quiz/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one leaderboard watcher. It only ever receives updates for the
// dates it subscribed to.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// ClientMessage is the only frame a watcher sends
type ClientMessage struct {
	Type string `json:"type"`
	Date string `json:"date,omitempty"`
}

// ServeWs upgrades a request into a leaderboard watcher
func ServeWs(hub *Hub, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	client := &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With("client_id", id),
	}

	if !hub.Register(client) {
		client.logger.Debug("hub stopped, refusing watcher")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.enqueue(errorMessage("invalid message format"))
			continue
		}
		if reply := c.handle(msg); reply != nil {
			c.enqueue(reply)
		}
	}
}

// handle applies one client frame and returns the reply, if any
func (c *Client) handle(msg ClientMessage) *Message {
	switch msg.Type {
	case MessageTypeSubscribe:
		if err := domain.ValidateDate(msg.Date); err != nil {
			return errorMessage("valid date required for subscribe")
		}
		c.hub.Subscribe(c, msg.Date)
		return ackMessage("subscribed", msg.Date)

	case MessageTypeUnsubscribe:
		if msg.Date == "" {
			return nil
		}
		c.hub.Unsubscribe(c, msg.Date)
		return ackMessage("unsubscribed", msg.Date)

	case MessageTypePing:
		return &Message{Type: MessageTypePong, Timestamp: time.Now()}
	}

	c.logger.Debug("unknown message type", "type", msg.Type)
	return nil
}

// enqueue drops the reply when the watcher is not draining its buffer
func (c *Client) enqueue(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal reply", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping reply", "type", msg.Type)
	}
}

// writePump writes one JSON document per frame and keeps the peer alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func errorMessage(text string) *Message {
	return &Message{
		Type:      MessageTypeError,
		Data:      map[string]string{"error": text},
		Timestamp: time.Now(),
	}
}

func ackMessage(action, date string) *Message {
	return &Message{
		Type:      action,
		Date:      date,
		Data:      map[string]string{"status": "ok"},
		Timestamp: time.Now(),
	}
}
