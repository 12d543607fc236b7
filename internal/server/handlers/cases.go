package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentstation/casesync/internal/server/events"
	"github.com/agentstation/casesync/internal/server/filter"
	"github.com/agentstation/casesync/internal/server/response"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/store"
)

// HandleCasesForUser handles GET /casesForUser/{userId}.
//
// The body is a bare JSON array of the cases authored by userId, in
// storage order. Optional query parameters narrow the list; see
// filter.ParseCaseFilter.
func (h *Handlers) HandleCasesForUser(w http.ResponseWriter, r *http.Request, userID string) {
	author, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || author < 0 {
		response.BadRequest(w, "Invalid user id", "user id must be a non-negative integer")
		return
	}

	list, hit := h.cache.Cases(author)
	if !hit {
		list, err = h.fill(r, author)
		if err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Int64("user_id", author).Msg("Listing cases failed")
			response.ErrorFromType(w, err)
			return
		}
	}

	if f := filter.ParseCaseFilter(r); !f.IsZero() {
		list = f.Apply(list)
	}
	if list == nil {
		list = []cases.Case{}
	}

	logging.FromContext(r.Context()).Debug().
		Int64("user_id", author).
		Int("cases", len(list)).
		Bool("cached", hit).
		Msg("Listed cases")

	response.WriteJSON(w, http.StatusOK, list)
}

// fill lists author's cases from the store and caches them. Uploads are
// excluded for the duration so the cached listing is never older than the
// last invalidation.
func (h *Handlers) fill(r *http.Request, author int64) ([]cases.Case, error) {
	h.writeMu.RLock()
	defer h.writeMu.RUnlock()

	list, err := store.ListForUser(r.Context(), h.store, author)
	if err != nil {
		return nil, err
	}
	h.cache.SetCases(author, list)
	return list, nil
}

// HandleUpsertCase handles POST /case.
//
// The stored version wins when it is strictly newer than the incoming one
// and the request fails with 409. Otherwise the incoming case replaces it
// and the response is 201 with the stored case.
func (h *Handlers) HandleUpsertCase(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		response.BadRequest(w, "Malformed request body", "body is required")
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var c cases.Case
	if err := json.NewDecoder(body).Decode(&c); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(w, "limit is "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		response.ErrorFromType(w, errors.NewParseError("json", "request body", err.Error(), err))
		return
	}

	ctx := logging.WithCase(r.Context(), c.CaseID, c.DeviceID)
	logger := logging.FromContext(ctx)

	if err := cases.Validate(c); err != nil {
		logger.Debug().Err(err).Msg("Rejected invalid case")
		response.ErrorFromType(w, err)
		return
	}

	created, err := h.upsert(r, c)
	if err != nil {
		if errors.IsConflict(err) {
			logger.Info().Err(err).Msg("Rejected stale case")
			h.broker.Publish(events.CaseRejected, events.NewCasePayload(c, false))
		} else {
			logger.Error().Err(err).Msg("Storing case failed")
		}
		response.ErrorFromType(w, err)
		return
	}

	logger.Info().
		Bool("created", created).
		Int64("author", c.Author).
		Str("modification_time", c.ModificationTime.String()).
		Msg("Stored case")
	h.broker.Publish(events.CaseUpserted, events.NewCasePayload(c, created))

	response.WriteJSON(w, http.StatusCreated, c)
}

// upsert applies last-writer-wins against the stored version and reports
// whether the key was new.
func (h *Handlers) upsert(r *http.Request, c cases.Case) (bool, error) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	ctx := r.Context()
	existing, found, err := store.Get(ctx, h.store, c.Key())
	if err != nil {
		return false, err
	}
	if found && existing.NewerThan(c) {
		return false, errors.NewConflictError(c.Key().String(),
			existing.ModificationTime.String(), c.ModificationTime.String())
	}

	if err := h.store.Upsert(ctx, c); err != nil {
		return false, err
	}

	h.cache.Invalidate(c.Author)
	if found && existing.Author != c.Author {
		h.cache.Invalidate(existing.Author)
	}
	return !found, nil
}
