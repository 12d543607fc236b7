package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/reconcile"
)

// Result represents the complete result of a sync run.
type Result struct {
	RunID      string   `json:"run_id" yaml:"run_id"`
	UserID     int64    `json:"user_id" yaml:"user_id"`
	DryRun     bool     `json:"dry_run" yaml:"dry_run"`
	StartedAt  utc.Time `json:"started_at" yaml:"started_at"`
	FinishedAt utc.Time `json:"finished_at" yaml:"finished_at"`

	// Counts from reconciliation
	Fetched    int `json:"fetched" yaml:"fetched"`
	Local      int `json:"local" yaml:"local"`
	Added      int `json:"added" yaml:"added"`
	Updated    int `json:"updated" yaml:"updated"`
	Unchanged  int `json:"unchanged" yaml:"unchanged"`
	LocalOnly  int `json:"local_only" yaml:"local_only"`
	LocalNewer int `json:"local_newer" yaml:"local_newer"`

	// Applied is the number of mutations written to the local store.
	Applied   int      `json:"applied" yaml:"applied"`
	Mutations []string `json:"mutations,omitempty" yaml:"mutations,omitempty"`

	// Push-back of locally newer records, when enabled
	Pushed     []string      `json:"pushed,omitempty" yaml:"pushed,omitempty"`
	PushFailed []PushFailure `json:"push_failed,omitempty" yaml:"push_failed,omitempty"`

	Reconcile *reconcile.Result `json:"-" yaml:"-"`
}

// PushFailure records a locally newer case that could not be uploaded.
type PushFailure struct {
	Key     string      `json:"key" yaml:"key"`
	Kind    errors.Kind `json:"-" yaml:"-"`
	Reason  string      `json:"reason" yaml:"reason"`
	Message string      `json:"message" yaml:"message"`
}

// NewResult starts a result for a run.
func NewResult(runID string, userID int64, dryRun bool) *Result {
	return &Result{
		RunID:     runID,
		UserID:    userID,
		DryRun:    dryRun,
		StartedAt: utc.Now(),
	}
}

// Record copies the counts of a reconciliation into the result.
func (r *Result) Record(rec *reconcile.Result) {
	r.Reconcile = rec
	r.Fetched = rec.Stats.RemoteCount
	r.Local = rec.Stats.LocalCount
	r.Added = rec.Stats.Added
	r.Updated = rec.Stats.Updated
	r.Unchanged = rec.Stats.Unchanged
	r.LocalOnly = rec.Stats.LocalOnly
	r.LocalNewer = rec.Stats.LocalNewer
	r.Mutations = rec.MutationStrings()
}

// AddPushed records a successful upload of key.
func (r *Result) AddPushed(key cases.Key) {
	r.Pushed = append(r.Pushed, key.String())
}

// AddPushFailure records a failed upload of key.
func (r *Result) AddPushFailure(key cases.Key, err error) {
	kind := errors.KindOf(err)
	r.PushFailed = append(r.PushFailed, PushFailure{
		Key:     key.String(),
		Kind:    kind,
		Reason:  kind.String(),
		Message: kind.Message(),
	})
}

// Finish stamps the end time.
func (r *Result) Finish() {
	r.FinishedAt = utc.Now()
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasChanges returns true if the run changed, or would change, the local
// store.
func (r *Result) HasChanges() bool {
	return r.Added > 0 || r.Updated > 0
}

// Summary returns a human-readable summary of the sync result.
func (r *Result) Summary() string {
	var summary string
	if !r.HasChanges() {
		summary = fmt.Sprintf("No changes detected (%d cases in sync)", r.Unchanged+r.LocalNewer)
	} else {
		summary = fmt.Sprintf("%d added, %d updated", r.Added, r.Updated)
	}

	var parts []string
	if r.LocalOnly > 0 {
		parts = append(parts, fmt.Sprintf("%d local-only", r.LocalOnly))
	}
	if r.LocalNewer > 0 {
		parts = append(parts, fmt.Sprintf("%d newer locally", r.LocalNewer))
	}
	if len(r.Pushed) > 0 {
		parts = append(parts, fmt.Sprintf("%d pushed", len(r.Pushed)))
	}
	if len(r.PushFailed) > 0 {
		parts = append(parts, fmt.Sprintf("%d push failures", len(r.PushFailed)))
	}
	if len(parts) > 0 {
		summary += ", " + strings.Join(parts, ", ")
	}
	if r.DryRun {
		summary += " (Dry run)"
	}
	return summary
}
