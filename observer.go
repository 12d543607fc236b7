package casesync

import (
	"github.com/agentstation/casesync/pkg/errors"
	pkgsync "github.com/agentstation/casesync/pkg/sync"
)

// Observer is told how each sync ended. Methods run on the goroutine that
// called Sync, after the local store has been updated and the run has
// released the client; they may call Upload, Cases or Sync. Observers of
// auto-sync runs must not call Close or AutoSyncOff, which wait for the
// run to finish.
type Observer interface {
	OnSyncCompleted(result *pkgsync.Result)
	OnSyncFailed(kind errors.Kind, message string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Completed func(result *pkgsync.Result)
	Failed    func(kind errors.Kind, message string)
}

// OnSyncCompleted implements Observer.
func (f ObserverFuncs) OnSyncCompleted(result *pkgsync.Result) {
	if f.Completed != nil {
		f.Completed(result)
	}
}

// OnSyncFailed implements Observer.
func (f ObserverFuncs) OnSyncFailed(kind errors.Kind, message string) {
	if f.Failed != nil {
		f.Failed(kind, message)
	}
}
