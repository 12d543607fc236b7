package adapters

import (
	"github.com/agentstation/casesync/internal/server/events"
	"github.com/agentstation/casesync/internal/server/sse"
)

// SSESubscriber forwards broker events to an SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber creates a subscriber for broadcaster.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send broadcasts event as an SSE frame.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event:  string(event.Type),
		ID:     event.ID,
		Data:   event.Data,
		Author: authorOf(event),
	})
	return nil
}

// Close does nothing; the broadcaster owns its lifecycle.
func (s *SSESubscriber) Close() error {
	return nil
}
