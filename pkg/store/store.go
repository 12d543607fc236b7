// Package store defines the local replica of a user's case set and the
// helpers that apply reconciliation output to it.
//
// Implementations live in the memory, files and sqlite subpackages. Each is
// safe for concurrent use, but the sync flow assumes a single writer: a
// reconciliation snapshot taken with Snapshot is only valid if nothing else
// mutates the store until the resulting mutations are applied.
package store

import (
	"context"
	"io"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/reconcile"
)

// Store is a local case replica.
type Store interface {
	// List returns every stored case in a stable order.
	List(ctx context.Context) ([]cases.Case, error)

	// Upsert inserts c or replaces the record with the same key.
	Upsert(ctx context.Context, c cases.Case) error

	// Remove deletes the record with c's key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, c cases.Case) error
}

// Getter is implemented by stores that can look a single key up directly.
type Getter interface {
	Get(ctx context.Context, key cases.Key) (cases.Case, bool, error)
}

// UserLister is implemented by stores that can filter on author natively.
type UserLister interface {
	ListForUser(ctx context.Context, author int64) ([]cases.Case, error)
}

// Apply applies muts to s in order. It stops at the first failure and
// returns the number of mutations applied before it.
func Apply(ctx context.Context, s Store, muts []reconcile.Mutation) (int, error) {
	for i, m := range muts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		var err error
		switch m.Op {
		case reconcile.OpUpsert:
			err = s.Upsert(ctx, m.Case)
		case reconcile.OpRemove:
			err = s.Remove(ctx, m.Case)
		default:
			err = errors.NewValidationError("op", m.Op, "unknown mutation")
		}
		if err != nil {
			return i, errors.WrapResource("apply", "case", m.Case.Key().String(), err)
		}
	}
	return len(muts), nil
}

// Snapshot returns a deep copy of the current contents of s.
func Snapshot(ctx context.Context, s Store) ([]cases.Case, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cases.Case, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out, nil
}

// Get looks key up in s, scanning List when s is not a Getter.
func Get(ctx context.Context, s Store, key cases.Key) (cases.Case, bool, error) {
	if g, ok := s.(Getter); ok {
		return g.Get(ctx, key)
	}
	list, err := s.List(ctx)
	if err != nil {
		return cases.Case{}, false, err
	}
	for _, c := range list {
		if c.Key() == key {
			return c, true, nil
		}
	}
	return cases.Case{}, false, nil
}

// ListForUser returns the cases in s authored by author.
func ListForUser(ctx context.Context, s Store, author int64) ([]cases.Case, error) {
	if ul, ok := s.(UserLister); ok {
		return ul.ListForUser(ctx, author)
	}
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]cases.Case, 0, len(list))
	for _, c := range list {
		if c.Author == author {
			out = append(out, c)
		}
	}
	return out, nil
}

// Close releases s if it holds resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
