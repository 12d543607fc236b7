package remote

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
)

// Outcome is the terminal result of a Request. Err is nil on success;
// otherwise it is a *errors.RemoteError and Kind classifies it.
type Outcome struct {
	Kind       errors.Kind
	StatusCode int
	Cases      []cases.Case // fetch only
	Err        error
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Message returns the user-facing message for a failed outcome, or "" on
// success.
func (o Outcome) Message() string {
	if o.OK() {
		return ""
	}
	return o.Kind.Message()
}

// Callback receives the outcome of a request exactly once.
// It runs on whichever goroutine settles the request.
type Callback func(Outcome)

// Request is one in-flight remote call.
//
// Exactly one outcome is delivered: success, failure or cancellation.
// Whichever settles first wins, later attempts are dropped.
type Request struct {
	op       string
	endpoint string

	ctx    context.Context
	cancel context.CancelFunc

	settled atomic.Bool
	done    chan struct{}
	outcome Outcome
	cb      Callback
	observe func(Outcome)

	watchdog atomic.Pointer[time.Timer]
}

func newRequest(parent context.Context, op, endpoint string, cb Callback, observe func(Outcome)) *Request {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	r := &Request{
		op:       op,
		endpoint: endpoint,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		cb:       cb,
		observe:  observe,
	}
	// ctx is always cancelled on settle, so this never outlives the request.
	context.AfterFunc(ctx, func() {
		if err := parent.Err(); err != nil {
			r.cancelWith(err)
		}
	})
	return r
}

// startWatchdog cancels the request once timeout elapses.
func (r *Request) startWatchdog(timeout time.Duration) {
	t := time.AfterFunc(timeout, func() {
		r.cancelWith(errors.NewTimeoutError(r.op, timeout.String(), "watchdog fired"))
	})
	r.watchdog.Store(t)
	if r.settled.Load() {
		t.Stop()
	}
}

// Cancel aborts the request. If no outcome has been delivered yet, a
// cancelled outcome is delivered. Calling Cancel more than once, or after
// completion, has no effect.
func (r *Request) Cancel() {
	r.cancelWith(errors.ErrCanceled)
}

func (r *Request) cancelWith(cause error) {
	r.settle(Outcome{
		Kind: errors.KindCancelled,
		Err:  errors.NewRemoteError(errors.KindCancelled, r.op, r.endpoint, 0, cause),
	})
}

// Done is closed once the outcome has been delivered.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the delivered outcome. It is only valid after Done is closed.
func (r *Request) Outcome() Outcome {
	<-r.done
	return r.outcome
}

// Wait blocks until the request settles or ctx ends.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// settle delivers o if nothing has been delivered yet and reports whether it
// did. The observer and the callback run before Done is closed.
func (r *Request) settle(o Outcome) bool {
	if !r.settled.CompareAndSwap(false, true) {
		return false
	}
	r.outcome = o
	if t := r.watchdog.Load(); t != nil {
		t.Stop()
	}
	r.cancel()
	if r.observe != nil {
		r.observe(o)
	}
	if r.cb != nil {
		r.cb(o)
	}
	close(r.done)
	return true
}

func (r *Request) fail(kind errors.Kind, status int, err error) bool {
	return r.settle(Outcome{
		Kind:       kind,
		StatusCode: status,
		Err:        errors.NewRemoteError(kind, r.op, r.endpoint, status, err),
	})
}

// classifyTransport maps an error raised before any status was read.
func (r *Request) classifyTransport(err error) errors.Kind {
	if r.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return errors.KindCancelled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.KindCancelled
	}
	return errors.KindNoConnectivity
}
