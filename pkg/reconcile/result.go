package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/casesync/pkg/cases"
)

// Op is the kind of a local-store mutation.
type Op int

const (
	// OpUpsert inserts or replaces a record by key.
	OpUpsert Op = iota
	// OpRemove deletes the record with the given key.
	OpRemove
)

// String returns the operation name
func (o Op) String() string {
	switch o {
	case OpUpsert:
		return "upsert"
	case OpRemove:
		return "remove"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Mutation is one command against the local store.
type Mutation struct {
	Op   Op
	Case cases.Case
}

// String renders the mutation as "op(key)@time".
func (m Mutation) String() string {
	return fmt.Sprintf("%s(%s)@%s", m.Op, m.Case.Key(), m.Case.ModificationTime)
}

// Upsert returns an upsert mutation for c.
func Upsert(c cases.Case) Mutation {
	return Mutation{Op: OpUpsert, Case: c}
}

// Remove returns a remove mutation for c.
func Remove(c cases.Case) Mutation {
	return Mutation{Op: OpRemove, Case: c}
}

// Result represents the outcome of a reconciliation operation
type Result struct {
	// Merged is the reconciled record list: local order first, then
	// remote-only records in remote order.
	Merged []cases.Case

	// Mutations bring the local store to Merged when applied in order.
	Mutations []Mutation

	// LocalNewer lists matched keys where the local record is strictly newer.
	// Nothing is written for them here.
	LocalNewer []cases.Key

	// Strategy is the name of the strategy used
	Strategy string

	// Stats about the reconciliation
	Stats Statistics
}

// Statistics contains counts about the reconciliation
type Statistics struct {
	LocalCount  int
	RemoteCount int
	Added       int // remote-only records
	Updated     int // matched records replaced by the remote version
	LocalNewer  int // matched records where local is strictly newer
	Unchanged   int // matched records left as is for any other reason
	LocalOnly   int // local records absent from the remote list
	Duration    time.Duration
}

// HasChanges returns true if any mutation was emitted
func (r *Result) HasChanges() bool {
	return r != nil && len(r.Mutations) > 0
}

// Summary returns a human-readable summary of the result
func (r *Result) Summary() string {
	if r == nil {
		return "no reconciliation result"
	}
	if !r.HasChanges() {
		return fmt.Sprintf("No changes. %d records in sync, %d local-only, %d newer locally.",
			r.Stats.Unchanged, r.Stats.LocalOnly, r.Stats.LocalNewer)
	}
	return fmt.Sprintf("%d added, %d updated, %d local-only, %d newer locally (%d mutations).",
		r.Stats.Added, r.Stats.Updated, r.Stats.LocalOnly, r.Stats.LocalNewer, len(r.Mutations))
}

// MutationStrings renders each mutation, in order.
func (r *Result) MutationStrings() []string {
	out := make([]string, len(r.Mutations))
	for i, m := range r.Mutations {
		out[i] = m.String()
	}
	return out
}

// String returns a multi-line description of the result
func (r *Result) String() string {
	var sb strings.Builder
	sb.WriteString(r.Summary())
	for _, m := range r.Mutations {
		sb.WriteString("\n  ")
		sb.WriteString(m.String())
	}
	return sb.String()
}
