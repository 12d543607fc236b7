package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store/files"
	"github.com/agentstation/casesync/pkg/store/memory"
	"github.com/agentstation/casesync/pkg/store/sqlite"
)

// Kind names a store implementation.
type Kind string

// Store kinds accepted by Open.
const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

var (
	_ Store      = (*memory.Store)(nil)
	_ Getter     = (*memory.Store)(nil)
	_ Store      = (*files.Store)(nil)
	_ Getter     = (*files.Store)(nil)
	_ Store      = (*sqlite.Store)(nil)
	_ Getter     = (*sqlite.Store)(nil)
	_ UserLister = (*sqlite.Store)(nil)
)

// Kinds lists the accepted store kinds.
func Kinds() []Kind {
	return []Kind{KindMemory, KindFile, KindSQLite}
}

// DefaultPath returns the default location for kind, or "" for memory.
func DefaultPath(kind Kind) string {
	switch kind {
	case KindFile:
		return constants.DefaultStorePath
	case KindSQLite:
		return constants.DefaultSQLitePath
	default:
		return ""
	}
}

// Open creates a store of the given kind. An empty path selects the
// kind's default location; a leading ~ is expanded. Callers release the
// store with Close.
func Open(kind Kind, path string, logger *zerolog.Logger) (Store, error) {
	if path == "" {
		path = DefaultPath(kind)
	}
	path = ExpandPath(path)

	switch kind {
	case KindMemory, "":
		return memory.New()
	case KindFile:
		return files.New(path)
	case KindSQLite:
		return sqlite.Open(path, sqlite.WithLogger(logger))
	default:
		return nil, errors.NewValidationError("store", string(kind), "must be one of memory, file, sqlite")
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
