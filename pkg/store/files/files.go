// Package files provides a case store persisted as a single YAML document.
//
// The file is created on the first write. Every mutation rewrites the whole
// document through a temporary file and a rename, so readers never observe a
// partial write.
package files

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store/memory"
)

// Version is the document format version written to disk.
const Version = 1

// document is the on-disk layout.
type document struct {
	Version   int          `yaml:"version"`
	UpdatedAt utc.Time     `yaml:"updated_at"`
	Cases     []cases.Case `yaml:"cases"`
}

// Option is a function that configures a Store.
type Option func(*config) error

type config struct {
	readOnly bool
}

// WithReadOnly makes every mutation fail with errors.ErrReadOnly.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) error {
		cfg.readOnly = readOnly
		return nil
	}
}

// Store is a YAML-file backed case store.
type Store struct {
	path     string
	readOnly bool

	mu     sync.Mutex
	loaded bool
	mem    *memory.Store
}

// New creates a store persisted at path. Nothing is read until first use.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required for files store")
	}
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying files option: %w", err)
		}
	}
	return &Store{path: path, readOnly: cfg.readOnly}, nil
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// List returns every stored case in file order.
func (s *Store) List(ctx context.Context) ([]cases.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	return s.mem.List(ctx)
}

// Get returns the case stored under key.
func (s *Store) Get(ctx context.Context, key cases.Key) (cases.Case, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return cases.Case{}, false, err
	}
	return s.mem.Get(ctx, key)
}

// Upsert inserts or replaces c and rewrites the file.
func (s *Store) Upsert(ctx context.Context, c cases.Case) error {
	return s.mutate(ctx, func(m *memory.Store) error { return m.Upsert(ctx, c) })
}

// Remove deletes c's key and rewrites the file.
func (s *Store) Remove(ctx context.Context, c cases.Case) error {
	return s.mutate(ctx, func(m *memory.Store) error {
		if _, ok, _ := m.Get(ctx, c.Key()); !ok {
			return errNoChange
		}
		return m.Remove(ctx, c)
	})
}

var errNoChange = errors.New("no change")

func (s *Store) mutate(ctx context.Context, fn func(*memory.Store) error) error {
	if s.readOnly {
		return errors.ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	if err := fn(s.mem); err != nil {
		if err == errNoChange {
			return nil
		}
		return err
	}

	list, err := s.mem.List(ctx)
	if err != nil {
		return err
	}
	if err := s.write(list); err != nil {
		// keep memory consistent with disk
		s.loaded = false
		return err
	}
	return nil
}

// load reads the document once. A missing file is an empty store.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	var doc document
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return errors.WrapIO("read", s.path, err)
	case len(data) > 0:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return errors.WrapParse("yaml", s.path, err)
		}
	}
	if doc.Version > Version {
		return errors.NewParseError("yaml", s.path,
			fmt.Sprintf("unsupported document version %d", doc.Version), nil)
	}

	mem, err := memory.New(memory.WithCases(doc.Cases...))
	if err != nil {
		return errors.WrapParse("yaml", s.path, err)
	}
	s.mem = mem
	s.loaded = true
	return nil
}

func (s *Store) write(list []cases.Case) error {
	data, err := yaml.Marshal(document{
		Version:   Version,
		UpdatedAt: utc.Now(),
		Cases:     list,
	})
	if err != nil {
		return errors.WrapParse("yaml", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cases_*.yaml")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errors.WrapIO("write", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("close", s.path, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("chmod", s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIO("move", s.path, err)
	}
	return nil
}
