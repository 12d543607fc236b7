// Package memory provides an in-memory case store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
)

// Option is a function that configures a Store.
type Option func(*config) error

type config struct {
	readOnly bool
	preload  []cases.Case
}

// WithReadOnly makes every mutation fail with errors.ErrReadOnly.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) error {
		cfg.readOnly = readOnly
		return nil
	}
}

// WithCases preloads the store. Keys must be unique.
func WithCases(list ...cases.Case) Option {
	return func(cfg *config) error {
		if dups := cases.CheckUnique(list); len(dups) > 0 {
			return errors.NewValidationError("cases", cases.KeyStrings(dups), "duplicate keys")
		}
		cfg.preload = append(cfg.preload, list...)
		return nil
	}
}

// Store keeps cases in insertion order. Replacing a record keeps its
// position.
type Store struct {
	mu       sync.RWMutex
	order    []cases.Key
	byKey    map[cases.Key]cases.Case
	readOnly bool
}

// New creates an empty, or preloaded, in-memory store.
func New(opts ...Option) (*Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying memory option: %w", err)
		}
	}

	s := &Store{
		byKey:    make(map[cases.Key]cases.Case, len(cfg.preload)),
		readOnly: cfg.readOnly,
	}
	for _, c := range cfg.preload {
		if err := cases.Validate(c); err != nil {
			return nil, err
		}
		s.put(c)
	}
	return s, nil
}

// List returns a copy of every stored case.
func (s *Store) List(_ context.Context) ([]cases.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cases.Case, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k].Clone())
	}
	return out, nil
}

// Get returns the case stored under key.
func (s *Store) Get(_ context.Context, key cases.Key) (cases.Case, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byKey[key]
	if !ok {
		return cases.Case{}, false, nil
	}
	return c.Clone(), true, nil
}

// Len returns the number of stored cases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Upsert inserts c or replaces the record with the same key.
func (s *Store) Upsert(_ context.Context, c cases.Case) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}
	if err := cases.Validate(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(c)
	return nil
}

// Remove deletes the record with c's key.
func (s *Store) Remove(_ context.Context, c cases.Case) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := c.Key()
	if _, ok := s.byKey[key]; !ok {
		return nil
	}
	delete(s.byKey, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Replace swaps the whole contents for list.
func (s *Store) Replace(list []cases.Case) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}
	if dups := cases.CheckUnique(list); len(dups) > 0 {
		return errors.NewValidationError("cases", cases.KeyStrings(dups), "duplicate keys")
	}
	if err := cases.ValidateAll(list); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.byKey = make(map[cases.Key]cases.Case, len(list))
	for _, c := range list {
		s.put(c)
	}
	return nil
}

// put must be called with mu held.
func (s *Store) put(c cases.Case) {
	key := c.Key()
	if _, ok := s.byKey[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byKey[key] = c.Clone()
}
