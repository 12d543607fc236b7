package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/casesync/internal/server/events"
	"github.com/agentstation/casesync/internal/server/response"
	ws "github.com/agentstation/casesync/internal/server/websocket"
	"github.com/agentstation/casesync/pkg/logging"
)

// HandleWebSocket handles GET /updates/ws. A "user" query parameter
// limits the stream to that user's cases.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var author *int64
	if user := r.URL.Query().Get("user"); user != "" {
		id, err := strconv.ParseInt(user, 10, 64)
		if err != nil || id < 0 {
			response.BadRequest(w, "Invalid user id", "user must be a non-negative integer")
			return
		}
		author = &id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		logging.FromContext(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), h.wsHub, conn)
	if author != nil {
		client.Follow(*author)
	}
	client.Send(ws.Message{
		ID:        uuid.NewString(),
		Type:      string(events.ClientConnected),
		Timestamp: utc.Now(),
		Data:      map[string]any{"user": author},
	})
	h.wsHub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles GET /updates/stream.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
