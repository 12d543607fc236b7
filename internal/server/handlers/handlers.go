// Package handlers implements the HTTP endpoints of the case server.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/server/cache"
	"github.com/agentstation/casesync/internal/server/events"
	"github.com/agentstation/casesync/internal/server/sse"
	ws "github.com/agentstation/casesync/internal/server/websocket"
	"github.com/agentstation/casesync/pkg/store"
)

// pinger is implemented by stores that can report their reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers serves the case endpoints from a store.
type Handlers struct {
	store          store.Store
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
	maxBodyBytes   int64

	// writeMu makes the compare and write of an upload atomic. Cache fills
	// hold it for reading so a listing taken before a write is never cached
	// after that write's invalidation.
	writeMu sync.RWMutex
}

// Deps bundles what Handlers needs.
type Deps struct {
	Store          store.Store
	Cache          *cache.Cache
	Broker         *events.Broker
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Upgrader       websocket.Upgrader
	Logger         *zerolog.Logger
	StartTime      time.Time
	MaxBodyBytes   int64
}

// New creates a Handlers instance.
func New(d Deps) *Handlers {
	return &Handlers{
		store:          d.Store,
		cache:          d.Cache,
		broker:         d.Broker,
		wsHub:          d.WSHub,
		sseBroadcaster: d.SSEBroadcaster,
		upgrader:       d.Upgrader,
		logger:         d.Logger,
		startTime:      d.StartTime,
		maxBodyBytes:   d.MaxBodyBytes,
	}
}
