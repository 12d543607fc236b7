package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/casesync/internal/server/response"
	"github.com/agentstation/casesync/pkg/store"
)

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	list, err := store.Snapshot(r.Context(), h.store)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	authors := make(map[int64]int)
	byStatus := make(map[string]int)
	for _, c := range list {
		authors[c.Author]++
		if c.Status != "" {
			byStatus[c.Status]++
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      mem.Alloc / 1024 / 1024,
		},
		"cases": map[string]any{
			"total":     len(list),
			"authors":   len(authors),
			"by_status": byStatus,
		},
		"events": map[string]any{
			"published_total": h.broker.EventsPublished(),
			"dropped_total":   h.broker.EventsDropped(),
			"queue_depth":     h.broker.QueueDepth(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
		"cache": h.cache.GetStats(),
	})
}
