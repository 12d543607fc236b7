// Package app wires configuration, logging and the sync client together
// for the casesync CLI.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store"
)

var _ application.Application = (*App)(nil)

// App holds the CLI's configuration and its lazily created dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	mu     sync.Mutex
	store  store.Store
	client casesync.Client
}

// New loads the configuration and builds the logger.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		a.config = config
	}
	if a.logger == nil {
		logger := NewLogger(a.config)
		a.logger = &logger
	}
	return a, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string { return a.config.Format }

// ServerConfig returns the serve settings.
func (a *App) ServerConfig() server.Config { return a.config.Server }

// Store opens the configured local store on first use.
func (a *App) Store() (store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked()
}

func (a *App) storeLocked() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(a.config.Store, a.config.StorePath, a.logger)
	if err != nil {
		return nil, errors.WrapResource("open", "store", string(a.config.Store), err)
	}
	a.store = st
	return st, nil
}

// ServerStore opens a new store for the case server. The caller closes it.
func (a *App) ServerStore() (store.Store, error) {
	st, err := store.Open(a.config.ServerStore, a.config.ServerDBPath, a.logger)
	if err != nil {
		return nil, errors.WrapResource("open", "server store", a.config.ServerDBPath, err)
	}
	return st, nil
}

// Client creates the sync client on first use.
func (a *App) Client() (casesync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	if a.config.Endpoint == "" {
		return nil, &errors.ConfigError{
			Component: "endpoint",
			Message:   "no endpoint configured; set --endpoint, CASESYNC_ENDPOINT or endpoint in .casesync.yaml",
		}
	}

	st, err := a.storeLocked()
	if err != nil {
		return nil, err
	}

	client, err := casesync.New(a.clientOptions(st)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.Endpoint, err)
	}
	a.client = client
	return client, nil
}

func (a *App) clientOptions(st store.Store) []casesync.Option {
	opts := []casesync.Option{
		casesync.WithEndpoint(a.config.Endpoint),
		casesync.WithUserID(a.config.UserID),
		casesync.WithStore(st),
		casesync.WithFetchTimeout(a.config.FetchTimeout),
		casesync.WithUploadTimeout(a.config.UploadTimeout),
		casesync.WithPushLocalNewer(a.config.PushLocalNewer),
		casesync.WithLogger(a.logger),
	}
	if a.config.APIKey != "" {
		opts = append(opts, casesync.WithAPIKey(a.config.APIKey))
	}
	if a.config.AuthScheme != "" {
		opts = append(opts, casesync.WithAuthScheme(a.config.AuthScheme))
	}
	if a.config.AutoSyncInterval > 0 {
		opts = append(opts, casesync.WithAutoSyncInterval(a.config.AutoSyncInterval))
	}
	return opts
}

// Shutdown closes the client, which releases its store, or the store
// alone when no client was created.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	switch {
	case a.client != nil:
		err = a.client.Close()
	case a.store != nil:
		err = store.Close(a.store)
	}
	a.client = nil
	a.store = nil
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to release local store")
	}
	return err
}

// reload replaces the configuration and logger. Dependencies already
// created keep their settings.
func (a *App) reload(config *Config) {
	a.config = config
	logger := NewLogger(config)
	a.logger = &logger
}

// Option configures an App.
type Option func(*App) error

// WithConfig sets the configuration instead of loading it.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewValidationError("config", nil, "cannot be nil")
		}
		a.config = config
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets the local store, which is useful in tests.
func WithStore(st store.Store) Option {
	return func(a *App) error {
		a.store = st
		return nil
	}
}

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
