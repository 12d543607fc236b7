package casesync

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/reconcile"
	"github.com/agentstation/casesync/pkg/store"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Sync runs one synchronisation for the configured user:
//
//  1. fetch the user's cases from the remote store
//  2. snapshot the local store
//  3. reconcile the two
//  4. apply the mutations to the local store, in order
//  5. optionally upload records that are newer locally
//  6. notify hooks and observers
//
// Hooks and observers run after the run has released the client, so they
// may call Upload, Cases or Sync.
//
// A failed fetch returns a *errors.SyncError wrapping the classified
// *errors.RemoteError and leaves the local store untouched. Runs are
// serialised.
func (c *client) Sync(ctx context.Context, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	return c.syncAndNotify(ctx, nil, opts...)
}

// run is what one locked sync produced. Hooks and observers are notified
// from it once the lock is released.
type run struct {
	result    *pkgsync.Result
	mutations []reconcile.Mutation
	applied   int
}

// syncAndNotify runs one synchronisation and then notifies hooks and observers.
// When stopped reports true after a failure, the caller abandoned the run
// and observers are not told.
func (c *client) syncAndNotify(ctx context.Context, stopped func() bool, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := pkgsync.Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	r, err := c.runLocked(ctx, options)

	c.hooks.trigger(r.mutations, r.applied)
	if err != nil {
		if stopped == nil || !stopped() {
			c.notifyFailed(errors.KindOf(err))
		}
		return nil, err
	}
	c.notifyCompleted(r.result)
	return r.result, nil
}

// runLocked performs the fetch, reconcile and apply steps under syncMu.
func (c *client) runLocked(ctx context.Context, options *pkgsync.Options) (run, error) {
	userID := options.ResolveUser(c.options.userID)
	result := pkgsync.NewResult(uuid.NewString(), userID, options.DryRun)
	r := run{result: result}

	logger := c.logger.With().
		Str("run_id", result.RunID).
		Int64("user_id", userID).
		Logger()
	ctx = logging.WithLogger(ctx, &logger)

	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	logger.Debug().Bool("dry_run", options.DryRun).Msg("Starting sync")

	// Step 1: fetch
	remoteCases, err := c.fetcher.FetchCases(ctx, userID)
	if err != nil {
		return r, c.fail(ctx, userID, "fetch", err)
	}

	// Step 2: snapshot
	local, err := store.Snapshot(ctx, c.store)
	if err != nil {
		return r, c.fail(ctx, userID, "snapshot", err)
	}

	// Step 3: reconcile
	rec, err := c.reconciler.Reconcile(local, remoteCases)
	if err != nil {
		return r, c.fail(ctx, userID, "reconcile", err)
	}
	result.Record(rec)

	// Step 4: apply
	if !options.DryRun {
		applied, err := store.Apply(ctx, c.store, rec.Mutations)
		result.Applied = applied
		r.mutations, r.applied = rec.Mutations, applied
		if err != nil {
			logger.Error().Err(err).
				Int("applied", applied).
				Int("mutations", len(rec.Mutations)).
				Msg("Applying mutations failed")
			return r, c.fail(ctx, userID, "apply", err)
		}
	}

	// Step 5: push back
	if options.ResolvePush(c.options.pushLocalNewer) && len(rec.LocalNewer) > 0 {
		c.pushLocalNewer(ctx, local, rec.LocalNewer, result)
	}

	result.Finish()

	if result.HasChanges() {
		logger.Info().
			Int("added", result.Added).
			Int("updated", result.Updated).
			Int("applied", result.Applied).
			Int("local_newer", result.LocalNewer).
			Dur("elapsed", result.Duration()).
			Msg("Sync completed")
	} else {
		logger.Info().
			Int("cases", result.Local).
			Dur("elapsed", result.Duration()).
			Msg("Sync completed, no changes")
	}
	return r, nil
}

// pushLocalNewer uploads the local records that won against the remote
// ones. Failures are recorded on the result and do not fail the run.
func (c *client) pushLocalNewer(ctx context.Context, local []cases.Case, keys []cases.Key, result *pkgsync.Result) {
	logger := logging.FromContext(ctx)

	byKey := make(map[cases.Key]cases.Case, len(local))
	for _, lc := range local {
		byKey[lc.Key()] = lc
	}

	for _, key := range keys {
		lc, ok := byKey[key]
		if !ok {
			continue
		}
		if err := c.uploader.UploadCase(ctx, lc); err != nil {
			logger.Warn().Err(err).Str("case", key.String()).Msg("Push of newer local case failed")
			result.AddPushFailure(key, err)
			continue
		}
		result.AddPushed(key)
	}
}

// fail wraps err for stage and logs it.
func (c *client) fail(ctx context.Context, userID int64, stage string, err error) error {
	kind := errors.KindOf(err)
	logging.FromContext(ctx).Warn().
		Err(err).
		Str("stage", stage).
		Str("kind", kind.String()).
		Msg("Sync failed")
	return errors.NewSyncError(userID, stage, err)
}
