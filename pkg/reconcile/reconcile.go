// Package reconcile merges a remote case list into a local snapshot and
// reports the local-store mutations that converge the two.
//
// Reconciliation is pure: it never touches storage or the network.
//
//	res, err := reconcile.Merge(local, remote)
//	if err != nil {
//		return err
//	}
//	_, err = store.Apply(ctx, s, res.Mutations)
package reconcile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// ErrDuplicateKey is wrapped by the MergeError returned when an input
// replica holds the same key twice.
var ErrDuplicateKey = errors.New("duplicate case key")

// Reconciler merges replicas with a configurable Strategy.
type Reconciler struct {
	strategy Strategy
	logger   *zerolog.Logger
}

// Option configures a Reconciler
type Option func(*Reconciler) error

// WithStrategy sets the conflict resolution strategy
func WithStrategy(strategy Strategy) Option {
	return func(r *Reconciler) error {
		if strategy == nil {
			return errors.NewValidationError("strategy", nil, "cannot be nil")
		}
		r.strategy = strategy
		return nil
	}
}

// WithLogger sets the logger used for reconciliation events
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Reconciler) error {
		r.logger = logger
		return nil
	}
}

// New creates a new Reconciler with options
func New(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		strategy: NewLastWriteWinsStrategy(),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Strategy returns the configured strategy
func (r *Reconciler) Strategy() Strategy {
	return r.strategy
}

// Reconcile merges remote into a copy of local.
//
// Local records keep their order; remote-only records are appended in remote
// order and produce an upsert. A matched record replaced by the remote
// version produces a remove of the local record followed by an upsert of the
// remote one, and is replaced in place. Local-only records are kept without
// mutation. Either input holding a key twice is a MergeError.
func (r *Reconciler) Reconcile(local, remote []cases.Case) (*Result, error) {
	start := time.Now()

	if err := checkReplica("local", local); err != nil {
		return nil, err
	}
	if err := checkReplica("remote", remote); err != nil {
		return nil, err
	}

	merged := make([]cases.Case, len(local), len(local)+len(remote))
	copy(merged, local)

	index := make(map[cases.Key]int, len(local)+len(remote))
	for i, c := range merged {
		index[c.Key()] = i
	}

	res := &Result{
		Strategy: r.strategy.Name(),
		Stats:    Statistics{LocalCount: len(local), RemoteCount: len(remote)},
	}

	matched := 0
	for _, rc := range remote {
		i, ok := index[rc.Key()]
		if !ok {
			merged = append(merged, rc)
			index[rc.Key()] = len(merged) - 1
			res.Mutations = append(res.Mutations, Upsert(rc))
			res.Stats.Added++
			continue
		}

		matched++
		lc := merged[i]
		switch {
		case r.strategy.Resolve(lc, rc) == TakeRemote:
			res.Mutations = append(res.Mutations, Remove(lc), Upsert(rc))
			merged[i] = rc
			res.Stats.Updated++
		case lc.NewerThan(rc):
			res.LocalNewer = append(res.LocalNewer, lc.Key())
			res.Stats.LocalNewer++
		default:
			res.Stats.Unchanged++
		}
	}

	res.Merged = merged
	res.Stats.LocalOnly = len(local) - matched
	res.Stats.Duration = time.Since(start)

	r.logger.Debug().
		Str("strategy", res.Strategy).
		Int("local", len(local)).
		Int("remote", len(remote)).
		Int("added", res.Stats.Added).
		Int("updated", res.Stats.Updated).
		Int("local_newer", res.Stats.LocalNewer).
		Int("mutations", len(res.Mutations)).
		Msg("Reconciled cases")

	return res, nil
}

func checkReplica(name string, list []cases.Case) error {
	other := "remote"
	if name == "remote" {
		other = "local"
	}
	if dups := cases.CheckUnique(list); len(dups) > 0 {
		return errors.NewMergeError(name, other, cases.KeyStrings(dups), ErrDuplicateKey)
	}
	if err := cases.ValidateAll(list); err != nil {
		return errors.NewMergeError(name, other, nil, err)
	}
	return nil
}

// Merge reconciles with the default last-writer-wins strategy.
func Merge(local, remote []cases.Case) (*Result, error) {
	r, err := New(WithLogger(&logging.Nop))
	if err != nil {
		return nil, err
	}
	return r.Reconcile(local, remote)
}
