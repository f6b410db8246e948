package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
	// Outbound buffer per client.
	sendBuffer = 256
)

// Command is an inbound message from the browser.
//
//	{"type":"select","position":3}
//	{"type":"pointer","over":false}
//	{"type":"start"}
//	{"type":"restart","config":{...}}
type Command struct {
	Type     string          `json:"type"`
	Position *int            `json:"position,omitempty"`
	Over     *bool           `json:"over,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Handler applies commands read from a client.
type Handler interface {
	HandleCommand(c *Client, cmd Command)
}

// Client is one WebSocket connection attached to a Hub.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	handler Handler
}

// NewClient wraps conn. Call Register, then run WritePump and ReadPump.
func NewClient(hub *Hub, conn *websocket.Conn, handler Handler) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		handler: handler,
	}
}

// Register adds the client to its hub.
func (c *Client) Register() { c.hub.Register(c) }

// Send marshals v and queues it for this client only.
func (c *Client) Send(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal ws message")
		return false
	}
	return c.hub.sendTo(c, b)
}

// ReadPump reads commands until the connection fails, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("ws read")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.Send(map[string]string{"type": "error", "error": "bad_json"})
			continue
		}
		c.handler.HandleCommand(c, cmd)
	}
}

// WritePump drains the send buffer to the connection and keeps it alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame so browsers can JSON.parse each message.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
