package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onnwee/livehub/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are enforced by the CORS layer in front; the upgrade
	// itself accepts any origin so non-browser clients can connect too.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the connection, registers it with the hub, starts both
// pumps, and replays recent history to the new client only. A failed history
// query leaves the connection open with an empty backlog.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	client := chat.NewClient(uuid.New().String(), h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	// Read pump outlives the request handler; use the server's base context so
	// inbound persistence isn't cancelled when the HTTP handler returns.
	go client.ReadPump(h.ctx)

	h.hub.ReplayHistory(h.ctx, client)
}
