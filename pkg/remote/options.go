// Package remote talks to the authoritative case store over HTTP.
//
// Fetcher retrieves a user's case list and Uploader pushes a single case.
// Both are asynchronous, bounded by a watchdog, and deliver exactly one
// classified Outcome per request.
package remote

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// options holds configuration shared by Fetcher and Uploader.
type options struct {
	timeout    time.Duration
	httpClient *http.Client
	auth       transport.Authenticator
	apiKey     string
	logger     *zerolog.Logger
	now        func() time.Time
}

// Option configures a Fetcher or an Uploader.
type Option func(*options) error

func defaults(timeout time.Duration) *options {
	return &options{
		timeout: timeout,
		auth:    &transport.BearerAuth{},
		logger:  logging.Default(),
		now:     time.Now,
	}
}

func (o *options) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

func (o *options) client() *transport.Client {
	return transport.New(
		transport.WithHTTPClient(o.httpClient),
		transport.WithAuth(o.auth, o.apiKey),
	)
}

// WithTimeout sets the watchdog timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("timeout", d, "must be positive")
		}
		o.timeout = d
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		o.httpClient = c
		return nil
	}
}

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(o *options) error {
		o.apiKey = key
		return nil
	}
}

// WithAuthenticator changes how the API key is attached to requests.
func WithAuthenticator(auth transport.Authenticator) Option {
	return func(o *options) error {
		if auth == nil {
			return errors.NewValidationError("authenticator", nil, "cannot be nil")
		}
		o.auth = auth
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}

// WithClock sets the time source used to default missing fields.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		o.now = now
		return nil
	}
}
