package casesync

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/reconcile"
	"github.com/agentstation/casesync/pkg/store"
)

// options holds the configuration for a Client.
type options struct {
	// remote
	endpoint      string
	userID        int64
	apiKey        string
	auth          transport.Authenticator
	httpClient    *http.Client
	fetchTimeout  time.Duration
	uploadTimeout time.Duration

	// local
	store store.Store

	// reconciliation
	strategy       reconcile.Strategy
	pushLocalNewer bool

	// auto sync
	autoSyncEnabled  bool
	autoSyncInterval time.Duration

	observers []Observer
	logger    *zerolog.Logger
}

// Option is a function that configures a Client.
type Option func(*options) error

func defaults() *options {
	return &options{
		auth:             &transport.BearerAuth{},
		fetchTimeout:     constants.DefaultFetchTimeout,
		uploadTimeout:    constants.DefaultUploadTimeout,
		strategy:         reconcile.NewLastWriteWinsStrategy(),
		autoSyncInterval: constants.DefaultAutoSyncInterval,
	}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	if o.endpoint == "" {
		return &errors.ConfigError{Component: "client", Message: "endpoint is required"}
	}
	return nil
}

// WithEndpoint sets the base URL of the remote case store.
func WithEndpoint(endpoint string) Option {
	return func(o *options) error {
		if _, err := transport.JoinURL(endpoint); err != nil {
			return err
		}
		o.endpoint = endpoint
		return nil
	}
}

// WithUserID sets the user whose cases are synchronised.
func WithUserID(userID int64) Option {
	return func(o *options) error {
		if userID < 0 {
			return errors.NewValidationError("user_id", userID, "must be non-negative")
		}
		o.userID = userID
		return nil
	}
}

// WithStore sets the local replica. The default is an empty in-memory store.
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return errors.NewValidationError("store", nil, "cannot be nil")
		}
		o.store = s
		return nil
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("fetch_timeout", d, "must be positive")
		}
		o.fetchTimeout = d
		return nil
	}
}

// WithUploadTimeout bounds each upload.
func WithUploadTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("upload_timeout", d, "must be positive")
		}
		o.uploadTimeout = d
		return nil
	}
}

// WithAPIKey authenticates requests with key.
func WithAPIKey(key string) Option {
	return func(o *options) error {
		o.apiKey = key
		return nil
	}
}

// WithAuthScheme selects how the API key is sent: "bearer" (default),
// "header[:Name]", "query[:param]" or "none".
func WithAuthScheme(scheme string) Option {
	return func(o *options) error {
		auth, err := transport.ParseAuthScheme(scheme)
		if err != nil {
			return err
		}
		o.auth = auth
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for remote calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		o.httpClient = c
		return nil
	}
}

// WithPushLocalNewer uploads records that are newer locally after each
// sync. Off by default.
func WithPushLocalNewer(enabled bool) Option {
	return func(o *options) error {
		o.pushLocalNewer = enabled
		return nil
	}
}

// WithStrategy sets the conflict resolution strategy.
func WithStrategy(s reconcile.Strategy) Option {
	return func(o *options) error {
		if s == nil {
			return errors.NewValidationError("strategy", nil, "cannot be nil")
		}
		o.strategy = s
		return nil
	}
}

// WithObserver registers an observer for sync outcomes.
func WithObserver(obs Observer) Option {
	return func(o *options) error {
		if obs == nil {
			return errors.NewValidationError("observer", nil, "cannot be nil")
		}
		o.observers = append(o.observers, obs)
		return nil
	}
}

// WithAutoSync starts periodic syncing when the client is created.
func WithAutoSync(enabled bool) Option {
	return func(o *options) error {
		o.autoSyncEnabled = enabled
		return nil
	}
}

// WithAutoSyncInterval sets how often auto-sync runs.
func WithAutoSyncInterval(interval time.Duration) Option {
	return func(o *options) error {
		if interval < constants.MinAutoSyncInterval {
			return errors.NewValidationError("auto_sync_interval", interval,
				"must be at least "+constants.MinAutoSyncInterval.String())
		}
		o.autoSyncInterval = interval
		return nil
	}
}

// WithLogger sets the logger. The default is logging.Default().
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}
