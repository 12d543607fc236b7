package remote

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/transport"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
)

// Fetcher retrieves a user's cases from the remote store.
type Fetcher struct {
	endpoint string
	client   *transport.Client
	timeout  time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewFetcher creates a Fetcher for the store at endpoint.
func NewFetcher(endpoint string, opts ...Option) (*Fetcher, error) {
	if _, err := transport.JoinURL(endpoint); err != nil {
		return nil, err
	}
	o := defaults(constants.DefaultFetchTimeout)
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	return &Fetcher{
		endpoint: endpoint,
		client:   o.client(),
		timeout:  o.timeout,
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// Timeout returns the watchdog timeout.
func (f *Fetcher) Timeout() time.Duration {
	return f.timeout
}

// URL returns the fetch URL for userID.
func (f *Fetcher) URL(userID int64) string {
	u, _ := transport.JoinURL(f.endpoint, constants.CasesForUserPath, strconv.FormatInt(userID, 10))
	return u
}

// Fetch issues GET {endpoint}/casesForUser/{userID} in the background and
// returns immediately. cb, if non-nil, receives the outcome. The request is
// cancelled when ctx ends, when Cancel is called or when the watchdog fires.
//
// A successful outcome carries the decoded cases with absent optional fields
// defaulted. A body that does not decode into valid cases is a KindDecode
// failure.
func (f *Fetcher) Fetch(ctx context.Context, userID int64, cb Callback) *Request {
	url := f.URL(userID)
	log := f.logger.With().
		Str("operation", "fetch").
		Int64("user_id", userID).
		Str("endpoint", url).
		Logger()
	start := time.Now()
	req := newRequest(ctx, "fetch", url, cb, func(o Outcome) {
		if o.OK() {
			log.Info().Int("count", len(o.Cases)).Dur("elapsed", time.Since(start)).Msg("Fetched cases")
			return
		}
		log.Warn().Err(o.Err).Str("kind", o.Kind.String()).Dur("elapsed", time.Since(start)).Msg("Fetch failed")
	})

	log.Debug().Dur("timeout", f.timeout).Msg("Fetching cases")
	req.startWatchdog(f.timeout)
	go f.run(req)
	return req
}

func (f *Fetcher) run(req *Request) {
	resp, err := f.client.Get(req.ctx, req.endpoint)
	if err != nil {
		req.fail(req.classifyTransport(err), 0, err)
		return
	}

	var list []cases.Case
	status := resp.StatusCode
	if err := transport.DecodeResponse(resp, &list, constants.MaxResponseBytes); err != nil {
		req.fail(classifyResponse(req, err), status, err)
		return
	}
	if err := cases.ValidateAll(list); err != nil {
		req.fail(errors.KindDecode, status, err)
		return
	}
	if dups := cases.CheckUnique(list); len(dups) > 0 {
		req.fail(errors.KindDecode, status,
			errors.NewMergeError("remote", "local", cases.KeyStrings(dups), errors.ErrInvalidInput))
		return
	}

	cases.ApplyDefaults(list, f.now())
	if !req.settle(Outcome{StatusCode: status, Cases: list}) {
		f.logger.Debug().Str("endpoint", req.endpoint).Msg("Fetch completed after cancellation; result dropped")
	}
}

// classifyResponse maps an error raised after a status line was received.
func classifyResponse(req *Request, err error) errors.Kind {
	var se *transport.StatusError
	if errors.As(err, &se) {
		return errors.ClassifyStatus(se.StatusCode)
	}
	var pe *errors.ParseError
	if errors.As(err, &pe) {
		return errors.KindDecode
	}
	return req.classifyTransport(err)
}

// FetchCases fetches and waits for the outcome. The call is bounded by the
// watchdog and by ctx.
func (f *Fetcher) FetchCases(ctx context.Context, userID int64) ([]cases.Case, error) {
	req := f.Fetch(ctx, userID, nil)
	o := req.Outcome()
	return o.Cases, o.Err
}
