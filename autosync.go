package casesync

import (
	"context"
	"time"

	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// AutoSyncer provides controls for periodic syncing.
type AutoSyncer interface {
	// AutoSyncOn starts syncing at the configured interval. Calling it
	// again restarts the loop.
	AutoSyncOn() error

	// AutoSyncOff stops periodic syncing and waits for an in-flight run to
	// observe cancellation. A run stopped this way is not reported to
	// observers as failed. It must not be called from a hook or observer
	// of an auto-sync run.
	AutoSyncOff() error

	// AutoSyncRunning reports whether the loop is active.
	AutoSyncRunning() bool
}

// AutoSyncOn starts the auto-sync loop.
func (c *client) AutoSyncOn() error {
	if c.autoInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoSyncInterval",
			Value:   c.autoInterval,
			Message: "sync interval must be positive",
		}
	}

	// Stop any existing loop first
	if err := c.AutoSyncOff(); err != nil {
		return err
	}

	c.autoMu.Lock()
	defer c.autoMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	ticker := time.NewTicker(c.autoInterval)
	done := make(chan struct{})
	c.autoTicker, c.autoCancel, c.autoDone = ticker, cancel, done

	c.logger.Info().Dur("interval", c.autoInterval).Msg("Auto-sync enabled")

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				runCtx, runCancel := context.WithTimeout(ctx, constants.SyncContextTimeout)
				_, err := c.syncAndNotify(runCtx, func() bool { return ctx.Err() != nil })
				runCancel()

				if err != nil {
					if ctx.Err() != nil {
						return
					}
					if errors.Is(err, context.DeadlineExceeded) {
						c.logger.Warn().Err(err).Msg("Auto-sync run timed out")
						continue
					}
					c.logger.Error().Err(err).Msg("Auto-sync failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// AutoSyncOff stops the auto-sync loop. It is safe to call repeatedly.
func (c *client) AutoSyncOff() error {
	c.autoMu.Lock()
	ticker, cancel, done := c.autoTicker, c.autoCancel, c.autoDone
	c.autoTicker, c.autoCancel, c.autoDone = nil, nil, nil
	c.autoMu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
		c.logger.Info().Msg("Auto-sync disabled")
	}
	return nil
}

// AutoSyncRunning reports whether the auto-sync loop is active.
func (c *client) AutoSyncRunning() bool {
	c.autoMu.Lock()
	defer c.autoMu.Unlock()
	return c.autoCancel != nil
}
