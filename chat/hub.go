package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/telemetry"
)

// maxContentRunes bounds inbound message length; longer events are dropped
// like any other invalid event.
const maxContentRunes = 2000

// Store is the persistence surface the hub needs. *sql.DB satisfies it via
// SQLStore; tests substitute an in-memory implementation.
type Store interface {
	CreateMessage(ctx context.Context, content, authorID string, parentID *string) (db.Message, error)
	ListRecentMessages(ctx context.Context, since time.Time, limit int) ([]db.Message, error)
	IsReply(ctx context.Context, id string) (bool, error)
}

// SQLStore adapts *sql.DB to the Store interface.
type SQLStore struct{ DB *sql.DB }

func (s *SQLStore) CreateMessage(ctx context.Context, content, authorID string, parentID *string) (db.Message, error) {
	return db.CreateMessage(ctx, s.DB, content, authorID, parentID)
}

func (s *SQLStore) ListRecentMessages(ctx context.Context, since time.Time, limit int) ([]db.Message, error) {
	return db.ListRecentMessages(ctx, s.DB, since, limit)
}

func (s *SQLStore) IsReply(ctx context.Context, id string) (bool, error) {
	return db.IsReply(ctx, s.DB, id)
}

// Envelope is the wire frame for every event in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// InboundMessage is the client->server "message" event payload. AuthorID is
// the already-authenticated actor id supplied by the session layer upstream.
type InboundMessage struct {
	Content  string  `json:"content"`
	AuthorID string  `json:"authorId"`
	ParentID *string `json:"parentId"`
}

// MirrorMessage is the ephemeral payload for relayed external chat lines.
type MirrorMessage struct {
	Username string    `json:"username"`
	Message  string    `json:"message"`
	Channel  string    `json:"channel"`
	SentAt   time.Time `json:"sentAt"`
}

// Hub owns the registry of open connections and fans events out to them. All
// registry mutation happens inside Run's select loop, so iteration never races
// with connect/disconnect.
type Hub struct {
	store         Store
	historyWindow time.Duration
	historyLimit  int

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub creates a hub over the given store. historyWindow and historyLimit
// bound the replay sent to newly connected clients.
func NewHub(store Store, historyWindow time.Duration, historyLimit int) *Hub {
	return &Hub{
		store:         store,
		historyWindow: historyWindow,
		historyLimit:  historyLimit,
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan []byte, 256),
	}
}

// Run starts the hub's event loop. It must run in its own goroutine and exits
// when ctx is cancelled, closing every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			if telemetry.ConnectedClients != nil {
				telemetry.ConnectedClients.Set(float64(len(h.clients)))
			}
			slog.Info("chat: client connected", slog.String("client_id", client.ID), slog.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				if telemetry.ConnectedClients != nil {
					telemetry.ConnectedClients.Set(float64(len(h.clients)))
				}
				slog.Info("chat: client disconnected", slog.String("client_id", client.ID), slog.Int("total", len(h.clients)))
			}

		case frame := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Send buffer full: the client is stuck or gone. Evict it
					// rather than stalling the fan-out.
					delete(h.clients, client)
					client.closeSend()
					slog.Warn("chat: evicted slow client", slog.String("client_id", client.ID), slog.Int("total", len(h.clients)))
				}
			}
		}
	}
}

// Register adds a client to the registry.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes a client; a no-op if it already left.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// HandleInbound processes one client->server "message" event: validate,
// persist, then broadcast the stored record to every connection including the
// sender. Invalid events are dropped silently; persistence failures are logged
// and nothing is broadcast.
func (h *Hub) HandleInbound(ctx context.Context, evt InboundMessage) {
	content := evt.Content
	if strings.TrimSpace(content) == "" || evt.AuthorID == "" || utf8.RuneCountInString(content) > maxContentRunes {
		if telemetry.MessagesDropped != nil {
			telemetry.MessagesDropped.Inc()
		}
		return
	}
	if evt.ParentID != nil {
		// Replies stay one level deep: replying to a reply is dropped.
		isReply, err := h.store.IsReply(ctx, *evt.ParentID)
		if err != nil || isReply {
			if err != nil {
				slog.Warn("chat: parent lookup failed", slog.String("parent_id", *evt.ParentID), slog.Any("err", err))
			}
			if telemetry.MessagesDropped != nil {
				telemetry.MessagesDropped.Inc()
			}
			return
		}
	}

	msg, err := h.store.CreateMessage(ctx, content, evt.AuthorID, evt.ParentID)
	if err != nil {
		if telemetry.MessagesPersistFailed != nil {
			telemetry.MessagesPersistFailed.Inc()
		}
		slog.Error("chat: failed to persist message", slog.String("author_id", evt.AuthorID), slog.Any("err", err))
		return
	}
	if telemetry.MessagesPersisted != nil {
		telemetry.MessagesPersisted.Inc()
	}
	h.BroadcastMessage(msg)
}

// BroadcastMessage fans a stored message out to every connected client.
func (h *Hub) BroadcastMessage(msg db.Message) {
	frame, err := encodeEvent("message", msg)
	if err != nil {
		slog.Error("chat: failed to encode message", slog.Any("err", err))
		return
	}
	if telemetry.MessagesBroadcast != nil {
		telemetry.MessagesBroadcast.Inc()
	}
	h.broadcast <- frame
}

// BroadcastMirror fans an ephemeral external chat line out to every client.
func (h *Hub) BroadcastMirror(m MirrorMessage) {
	frame, err := encodeEvent("mirror", m)
	if err != nil {
		slog.Error("chat: failed to encode mirror message", slog.Any("err", err))
		return
	}
	if telemetry.MirrorMessages != nil {
		telemetry.MirrorMessages.Inc()
	}
	h.broadcast <- frame
}

// ReplayHistory sends the bounded recent-message backlog to a single client.
// A store failure leaves the connection open with no backlog.
func (h *Hub) ReplayHistory(ctx context.Context, c *Client) {
	since := time.Now().Add(-h.historyWindow)
	messages, err := h.store.ListRecentMessages(ctx, since, h.historyLimit)
	if err != nil {
		slog.Error("chat: history replay query failed", slog.String("client_id", c.ID), slog.Any("err", err))
		return
	}
	frame, err := encodeEvent("messages", messages)
	if err != nil {
		slog.Error("chat: failed to encode history", slog.Any("err", err))
		return
	}
	c.Send(frame)
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
