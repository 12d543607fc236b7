package casesync

import (
	"sync"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/reconcile"
)

// Hook function types for case events
type (
	// CaseAddedHook is called when a remote-only case is written locally
	CaseAddedHook func(c cases.Case)

	// CaseUpdatedHook is called when a local case is replaced by a newer
	// remote version
	CaseUpdatedHook func(old, new cases.Case)
)

// Hooks registers callbacks for changes applied to the local store.
// Callbacks run after the sync has released the client, with the same
// restrictions as Observer.
type Hooks interface {
	OnCaseAdded(CaseAddedHook)
	OnCaseUpdated(CaseUpdatedHook)
}

// hooks manages event callbacks for local store changes
type hooks struct {
	mu            sync.RWMutex
	onCaseAdded   []CaseAddedHook
	onCaseUpdated []CaseUpdatedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnCaseAdded registers a callback for when cases are added
func (h *hooks) OnCaseAdded(fn CaseAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCaseAdded = append(h.onCaseAdded, fn)
}

// OnCaseUpdated registers a callback for when cases are updated
func (h *hooks) OnCaseUpdated(fn CaseUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCaseUpdated = append(h.onCaseUpdated, fn)
}

// trigger walks the first n applied mutations. A removal followed by an
// upsert of the same key is an update; a lone upsert is an addition.
func (h *hooks) trigger(muts []reconcile.Mutation, n int) {
	h.mu.RLock()
	onAdded, onUpdated := h.onCaseAdded, h.onCaseUpdated
	h.mu.RUnlock()

	if len(onAdded) == 0 && len(onUpdated) == 0 {
		return
	}

	for i := 0; i < n && i < len(muts); i++ {
		m := muts[i]
		if m.Op != reconcile.OpUpsert {
			continue
		}
		if i > 0 && muts[i-1].Op == reconcile.OpRemove && muts[i-1].Case.Key() == m.Case.Key() {
			for _, fn := range onUpdated {
				fn(muts[i-1].Case, m.Case)
			}
			continue
		}
		for _, fn := range onAdded {
			fn(m.Case)
		}
	}
}
