// Package casesync keeps a local replica of a user's case records in step
// with an authoritative remote store.
//
// A Client fetches the user's cases from the remote store, reconciles them
// against a snapshot of the local store with last-writer-wins, and applies
// the resulting mutations locally. Failures are classified into a small set
// of kinds with user-facing messages and reported to observers; a failed
// fetch never touches the local store.
//
// Example usage:
//
//	client, err := casesync.New(
//	    casesync.WithEndpoint("https://cases.example.com/api/"),
//	    casesync.WithUserID(2),
//	    casesync.WithStore(fileStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnCaseAdded(func(c cases.Case) {
//	    log.Printf("new case %s", c.Key())
//	})
//
//	result, err := client.Sync(ctx)
//	if err != nil {
//	    log.Println(errors.KindOf(err).Message())
//	}
package casesync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/reconcile"
	"github.com/agentstation/casesync/pkg/remote"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client synchronises a local case store with the remote store.
type Client interface {
	// Sync fetches, reconciles and applies. See client.Sync.
	Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error)

	// Upload pushes one case to the remote store and, on success, stores
	// it locally.
	Upload(ctx context.Context, c cases.Case) error

	// Cases returns a copy of the local replica.
	Cases(ctx context.Context) ([]cases.Case, error)

	// AutoSyncer provides access to periodic sync controls
	AutoSyncer

	// Hooks provides access to event callback registration
	Hooks

	// Close stops auto-sync and releases the local store.
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	logger  *zerolog.Logger

	fetcher    *remote.Fetcher
	uploader   *remote.Uploader
	reconciler *reconcile.Reconciler
	store      store.Store

	// syncMu serialises writers of the local store
	syncMu sync.Mutex

	// auto sync state
	autoMu       sync.Mutex
	autoTicker   *time.Ticker
	autoCancel   context.CancelFunc
	autoDone     chan struct{}
	autoInterval time.Duration

	hooks *hooks
}

// New creates a Client. WithEndpoint is required.
func New(opts ...Option) (Client, error) {
	o := defaults()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}

	remoteOpts := []remote.Option{
		remote.WithHTTPClient(o.httpClient),
		remote.WithAPIKey(o.apiKey),
		remote.WithAuthenticator(o.auth),
		remote.WithLogger(logger),
	}
	fetcher, err := remote.NewFetcher(o.endpoint,
		append(remoteOpts, remote.WithTimeout(o.fetchTimeout))...)
	if err != nil {
		return nil, errors.WrapResource("create", "fetcher", o.endpoint, err)
	}
	uploader, err := remote.NewUploader(o.endpoint,
		append(remoteOpts, remote.WithTimeout(o.uploadTimeout))...)
	if err != nil {
		return nil, errors.WrapResource("create", "uploader", o.endpoint, err)
	}
	reconciler, err := reconcile.New(
		reconcile.WithStrategy(o.strategy),
		reconcile.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	local := o.store
	if local == nil {
		if local, err = memory.New(); err != nil {
			return nil, errors.WrapResource("create", "store", "memory", err)
		}
	}

	c := &client{
		options:      o,
		logger:       logger,
		fetcher:      fetcher,
		uploader:     uploader,
		reconciler:   reconciler,
		store:        local,
		autoInterval: o.autoSyncInterval,
		hooks:        newHooks(),
	}

	logger.Debug().
		Str("endpoint", o.endpoint).
		Int64("user_id", o.userID).
		Str("strategy", reconciler.Strategy().Name()).
		Bool("push_local_newer", o.pushLocalNewer).
		Msg("Created case sync client")

	if o.autoSyncEnabled {
		if err := c.AutoSyncOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-sync", "", err)
		}
	}
	return c, nil
}

// Cases returns a copy of the local replica.
func (c *client) Cases(ctx context.Context) ([]cases.Case, error) {
	return store.Snapshot(ctx, c.store)
}

// OnCaseAdded registers a callback for when cases are added.
func (c *client) OnCaseAdded(fn CaseAddedHook) {
	c.hooks.OnCaseAdded(fn)
}

// OnCaseUpdated registers a callback for when cases are updated.
func (c *client) OnCaseUpdated(fn CaseUpdatedHook) {
	c.hooks.OnCaseUpdated(fn)
}

// Close stops auto-sync and releases the local store.
func (c *client) Close() error {
	if err := c.AutoSyncOff(); err != nil {
		return err
	}
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return store.Close(c.store)
}

func (c *client) notifyFailed(kind errors.Kind) {
	for _, obs := range c.options.observers {
		obs.OnSyncFailed(kind, kind.Message())
	}
}

func (c *client) notifyCompleted(result *pkgsync.Result) {
	for _, obs := range c.options.observers {
		obs.OnSyncCompleted(result)
	}
}
