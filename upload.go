package casesync

import (
	"context"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
)

// Upload validates c, posts it to the remote store and, once the remote
// store has accepted it, writes it to the local store. A failed upload
// leaves the local store untouched and returns the classified error.
func (c *client) Upload(ctx context.Context, cs cases.Case) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cases.Validate(cs); err != nil {
		return err
	}

	if err := c.uploader.UploadCase(ctx, cs); err != nil {
		return err
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if err := c.store.Upsert(ctx, cs); err != nil {
		return errors.WrapResource("store", "case", cs.Key().String(), err)
	}
	return nil
}
