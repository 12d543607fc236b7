// Package constants provides shared constants used throughout the casesync codebase.
// This includes timeouts, limits, file permissions, and other configuration values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultFetchTimeout bounds a single fetch of a user's remote case list.
	// The watchdog cancels the request once it elapses.
	DefaultFetchTimeout = 20 * time.Second

	// DefaultUploadTimeout bounds a single case upload
	DefaultUploadTimeout = 20 * time.Second

	// DefaultHTTPTimeout is the transport-level timeout of the default HTTP client.
	// It sits above the fetch and upload watchdogs so they fire first.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// SyncContextTimeout is the timeout for each automatic sync run
	SyncContextTimeout = 2 * time.Minute

	// DefaultAutoSyncInterval is the default interval between automatic syncs
	DefaultAutoSyncInterval = 15 * time.Minute

	// MinAutoSyncInterval is the smallest accepted automatic sync interval
	MinAutoSyncInterval = 5 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// ShutdownTimeout is how long the server waits for in-flight requests
	ShutdownTimeout = 10 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like API keys (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// MaxResponseBytes caps the size of a decoded case list body
	MaxResponseBytes = 32 << 20

	// MaxRequestBytes caps the size of an uploaded case body
	MaxRequestBytes = 1 << 20

	// MaxDescriptionLength is the maximum allowed length for case descriptions
	MaxDescriptionLength = 16384

	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 100

	// DefaultPriority is assigned to cases that arrive without a priority
	DefaultPriority int16 = 1
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per minute per client on the server
	DefaultRateLimit = 600

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 50
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached data
	CacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 10 * time.Minute
)

// Path constants
const (
	// DefaultStorePath is the default path for the local case store
	DefaultStorePath = "~/.casesync/cases.yaml"

	// DefaultSQLitePath is the default path for the sqlite case store
	DefaultSQLitePath = "~/.casesync/cases.db"

	// DefaultServerDBPath is the default database path of the remote case server
	DefaultServerDBPath = "~/.casesync/server.db"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"

	// TimeFormatLog is the format used in log files
	TimeFormatLog = "2006-01-02 15:04:05.000"
)

// Wire paths of the remote case store
const (
	// CasesForUserPath is the path prefix for fetching a user's cases
	CasesForUserPath = "casesForUser/"

	// CasePath is the path for uploading one case
	CasePath = "case"
)
