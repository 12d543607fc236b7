// Package sse streams case events to clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
)

// Event is one SSE frame.
type Event struct {
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data"`

	// Author scopes the event to streams following that user.
	Author *int64 `json:"-"`
}

type stream struct {
	ch     chan Event
	author *int64
}

func (s *stream) wants(e Event) bool {
	return s.author == nil || e.Author == nil || *s.author == *e.Author
}

// Broadcaster fans events out to open streams.
type Broadcaster struct {
	clients    map[*stream]bool
	newClients chan *stream
	closed     chan *stream
	events     chan Event
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// NewBroadcaster creates a broadcaster. Call Run to start it.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[*stream]bool),
		newClients: make(chan *stream, 16),
		closed:     make(chan *stream, 16),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves streams until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for s := range b.clients {
				close(s.ch)
			}
			b.clients = make(map[*stream]bool)
			b.mu.Unlock()
			b.logger.Debug().Msg("SSE broadcaster shut down")
			return

		case s := <-b.newClients:
			b.mu.Lock()
			b.clients[s] = true
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().Int("total_clients", n).Msg("SSE client connected")

		case s := <-b.closed:
			b.mu.Lock()
			if b.clients[s] {
				delete(b.clients, s)
				close(s.ch)
			}
			n := len(b.clients)
			b.mu.Unlock()
			b.logger.Info().Int("total_clients", n).Msg("SSE client disconnected")

		case event := <-b.events:
			b.mu.RLock()
			for s := range b.clients {
				if !s.wants(event) {
					continue
				}
				select {
				case s.ch <- event:
				default:
					b.logger.Warn().Str("event", event.Event).Msg("SSE client buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues event for every interested stream.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Str("event", event.Event).Msg("SSE broadcast channel full, event dropped")
	}
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP opens a stream. A "user" query parameter restricts it to that
// user's cases.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	s := &stream{ch: make(chan Event, 64)}
	if user := r.URL.Query().Get("user"); user != "" {
		id, err := strconv.ParseInt(user, 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "invalid user", http.StatusBadRequest)
			return
		}
		s.author = &id
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	select {
	case b.newClients <- s:
	case <-b.done:
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer func() {
		select {
		case b.closed <- s:
		case <-b.done:
		}
	}()

	b.writeEvent(w, flusher, Event{
		Event: "client.connected",
		Data:  map[string]any{"timestamp": utc.Now()},
	})

	for {
		select {
		case event, ok := <-s.ch:
			if !ok {
				return
			}
			b.writeEvent(w, flusher, event)
		case <-r.Context().Done():
			return
		}
	}
}

func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to marshal SSE event data")
		return
	}
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
