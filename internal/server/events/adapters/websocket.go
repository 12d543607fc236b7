// Package adapters connects the event broker to the realtime transports.
package adapters

import (
	"github.com/agentstation/casesync/internal/server/events"
	ws "github.com/agentstation/casesync/internal/server/websocket"
)

// WebSocketSubscriber forwards broker events to a WebSocket hub.
type WebSocketSubscriber struct {
	hub *ws.Hub
}

// NewWebSocketSubscriber creates a subscriber for hub.
func NewWebSocketSubscriber(hub *ws.Hub) *WebSocketSubscriber {
	return &WebSocketSubscriber{hub: hub}
}

// Send broadcasts event on the hub.
func (w *WebSocketSubscriber) Send(event events.Event) error {
	w.hub.Broadcast(ws.Message{
		ID:        event.ID,
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Data:      event.Data,
		Author:    authorOf(event),
	})
	return nil
}

// Close does nothing; the hub owns its lifecycle.
func (w *WebSocketSubscriber) Close() error {
	return nil
}

// authorOf returns the user an event concerns, or nil for events meant for
// every client.
func authorOf(event events.Event) *int64 {
	switch p := event.Data.(type) {
	case events.CasePayload:
		a := p.Author
		return &a
	case *events.CasePayload:
		if p != nil {
			a := p.Author
			return &a
		}
	}
	return nil
}
