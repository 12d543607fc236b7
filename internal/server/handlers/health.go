package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/agentstation/casesync/internal/server/response"
	"github.com/agentstation/casesync/pkg/logging"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "casesync",
	})
}

// HandleReady handles GET /ready. It fails with 503 when the store cannot
// be reached.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn().Err(err).Msg("Store not reachable")
			response.ServiceUnavailable(w, "Store not reachable")
			return
		}
	}

	response.OK(w, map[string]any{
		"status": "ready",
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
