// Package sync holds the per-run options and the result of a case
// synchronisation.
package sync

import (
	"time"

	"github.com/agentstation/casesync/internal/utils/ptr"
	"github.com/agentstation/casesync/pkg/errors"
)

// Options controls a single run of Client.Sync. Unset pointer fields fall
// back to the client's configuration.
type Options struct {
	DryRun         bool          // Reconcile without touching the local store
	UserID         *int64        // Sync this user instead of the configured one
	PushLocalNewer *bool         // Upload records that are newer locally
	Timeout        time.Duration // Bound on the whole run; zero means none
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{}
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks the options.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if s.UserID != nil && *s.UserID < 0 {
		return &errors.ValidationError{
			Field:   "UserID",
			Value:   *s.UserID,
			Message: "user id must be non-negative",
		}
	}
	return nil
}

// ResolveUser returns the user to sync given the client default.
func (s *Options) ResolveUser(fallback int64) int64 {
	return ptr.Deref(s.UserID, fallback)
}

// ResolvePush reports whether locally newer records should be uploaded.
func (s *Options) ResolvePush(fallback bool) bool {
	if s.DryRun {
		return false
	}
	return ptr.Deref(s.PushLocalNewer, fallback)
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithUser syncs userID for this run only.
func WithUser(userID int64) Option {
	return func(opts *Options) {
		opts.UserID = ptr.To(userID)
	}
}

// WithPushLocalNewer overrides the client's push-back setting for this run.
func WithPushLocalNewer(push bool) Option {
	return func(opts *Options) {
		opts.PushLocalNewer = ptr.To(push)
	}
}

// WithTimeout bounds the whole run.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}
