package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size. Clients only send join/leave frames.
	maxMessageSize = 512

	// Outbound buffer per connection. A subscriber that falls this far
	// behind is dropped rather than allowed to stall the hub.
	sendBufferSize = 64
)

// Client is one subscribed websocket connection. A single writer goroutine
// drains the send channel, which is what preserves per-subscriber delivery
// order for sequential publishes.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	stop   sync.Once
	logger zerolog.Logger
}

func newClient(conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue offers a payload to the connection without blocking. Returns false
// when the client is gone or its buffer is saturated; the caller decides
// what to do with the failure.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// shutdown signals both pumps to exit. Safe to call more than once.
func (c *Client) shutdown() {
	c.stop.Do(func() { close(c.done) })
}

// clientMessage is the inbound wire format: {"action": "join"|"leave",
// "articleId": "..."}.
type clientMessage struct {
	Action    string `json:"action"`
	ArticleID string `json:"articleId"`
}

// readPump consumes join/leave frames until the connection errors out, then
// triggers exactly one Disconnect so every room membership is cleaned up.
func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring unparseable client frame")
			continue
		}

		switch msg.Action {
		case "join":
			hub.Join(c, msg.ArticleID)
		case "leave":
			hub.Leave(c, msg.ArticleID)
		default:
			c.logger.Debug().Str("action", msg.Action).Msg("ignoring unknown client action")
		}
	}
}

// writePump is the connection's only writer. It drains the send channel in
// FIFO order and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
