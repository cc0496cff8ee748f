package server

import (
	"context"
	"database/sql"

	"github.com/onnwee/livehub/chat"
	"github.com/onnwee/livehub/live"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	ctx        context.Context
	hub        *chat.Hub
	aggregator *live.Aggregator
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, db *sql.DB, hub *chat.Hub, aggregator *live.Aggregator) *Handlers {
	return &Handlers{
		db:         db,
		ctx:        ctx,
		hub:        hub,
		aggregator: aggregator,
	}
}
