package remote

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// Uploader pushes single cases to the remote store.
type Uploader struct {
	url     string
	client  *transport.Client
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewUploader creates an Uploader for the store at endpoint.
func NewUploader(endpoint string, opts ...Option) (*Uploader, error) {
	url, err := transport.JoinURL(endpoint, constants.CasePath)
	if err != nil {
		return nil, err
	}
	o := defaults(constants.DefaultUploadTimeout)
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	return &Uploader{
		url:     url,
		client:  o.client(),
		timeout: o.timeout,
		logger:  o.logger,
	}, nil
}

// Timeout returns the watchdog timeout.
func (u *Uploader) Timeout() time.Duration {
	return u.timeout
}

// Upload POSTs c to {endpoint}/case in the background and returns
// immediately. Only the response status is consumed. An invalid case fails
// without a network call.
func (u *Uploader) Upload(ctx context.Context, c cases.Case, cb Callback) *Request {
	log := u.logger.With().
		Str("operation", "upload").
		Int64("case_id", c.CaseID).
		Int64("device_id", c.DeviceID).
		Logger()
	req := newRequest(ctx, "upload", u.url, cb, func(o Outcome) {
		if o.OK() {
			log.Info().Int("status", o.StatusCode).Msg("Uploaded case")
			return
		}
		log.Warn().Err(o.Err).Str("kind", o.Kind.String()).Msg("Upload failed")
	})

	if err := cases.Validate(c); err != nil {
		req.fail(errors.KindUnknown, 0, err)
		return req
	}

	req.startWatchdog(u.timeout)
	go u.run(req, c)
	return req
}

func (u *Uploader) run(req *Request, c cases.Case) {
	resp, err := u.client.PostJSON(req.ctx, u.url, c)
	if err != nil {
		req.fail(req.classifyTransport(err), 0, err)
		return
	}
	status := resp.StatusCode
	if err := transport.CheckResponse(resp); err != nil {
		req.fail(classifyResponse(req, err), status, err)
		return
	}
	req.settle(Outcome{StatusCode: status})
}

// UploadCase uploads c and waits for the outcome.
func (u *Uploader) UploadCase(ctx context.Context, c cases.Case) error {
	if err := cases.Validate(c); err != nil {
		return err
	}
	return u.Upload(ctx, c, nil).Outcome().Err
}
