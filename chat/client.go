package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// Send pings at this interval; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size.
	maxFrameSize = 8192
	// Outbound buffer per client; overflowing it gets the client evicted.
	sendBufferSize = 256
)

// Client is one open websocket connection registered with the hub.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// mu guards closed. The hub loop is the only closer of send, but Send is
	// also called from HTTP handler goroutines (history replay), so the two
	// must serialize or a disconnect mid-replay panics on a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection. The caller registers it with the
// hub and starts both pumps.
func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Send queues a frame for this client only. Frames are dropped when the buffer
// is full or the client has already disconnected.
func (c *Client) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		slog.Warn("chat: client send buffer full, dropping frame", slog.String("client_id", c.ID))
	}
}

// closeSend marks the client disconnected and closes its send channel. Called
// only from the hub loop; idempotent.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads frames from the connection until it closes, dispatching
// "message" events to the hub. It runs in its own goroutine per connection,
// so concurrent senders persist and broadcast independently.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("chat: read error", slog.String("client_id", c.ID), slog.Any("err", err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			slog.Debug("chat: unparseable frame dropped", slog.String("client_id", c.ID))
			continue
		}
		switch env.Event {
		case "message":
			var evt InboundMessage
			if err := json.Unmarshal(env.Data, &evt); err != nil {
				slog.Debug("chat: unparseable message payload dropped", slog.String("client_id", c.ID))
				continue
			}
			c.hub.HandleInbound(ctx, evt)
		default:
			// Unknown events are ignored.
		}
	}
}

// WritePump pushes queued frames to the connection and keeps it alive with
// pings. It exits when the send channel closes (unregistered) or a write
// fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
