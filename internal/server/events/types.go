// Package events fans out case change notifications from the request
// handlers to the realtime transports.
//
// Handlers publish to a single Broker; each transport registers a
// Subscriber and receives every event in publish order.
package events

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/casesync/pkg/cases"
)

// EventType names an event on the wire.
type EventType string

// Event types.
const (
	// CaseUpserted is published after a case is stored.
	CaseUpserted EventType = "case.upserted"
	// CaseRejected is published when an upload loses to a newer stored
	// version.
	CaseRejected EventType = "case.rejected"

	// ClientConnected is sent to a realtime client when it attaches.
	ClientConnected EventType = "client.connected"
)

// Event is one notification.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent stamps data with a fresh id and the current time.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: utc.Now(),
		Data:      data,
	}
}

// CasePayload is the data of CaseUpserted and CaseRejected events.
type CasePayload struct {
	Key     string     `json:"key"`
	Author  int64      `json:"author"`
	Created bool       `json:"created,omitempty"`
	Case    cases.Case `json:"case"`
}

// NewCasePayload builds the payload for c.
func NewCasePayload(c cases.Case, created bool) CasePayload {
	return CasePayload{
		Key:     c.Key().String(),
		Author:  c.Author,
		Created: created,
		Case:    c,
	}
}
