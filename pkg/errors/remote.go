package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies the outcome of a remote operation into the categories
// surfaced to the user.
type Kind int

// Remote outcome kinds.
const (
	// KindUnknown is any non-success status without a dedicated category.
	KindUnknown Kind = iota
	// KindServerError is an HTTP 5xx response.
	KindServerError
	// KindNoConnectivity is a transport failure with no status code.
	KindNoConnectivity
	// KindNotFound is an HTTP 404 response.
	KindNotFound
	// KindCancelled is a request cancelled by the caller or the watchdog.
	KindCancelled
	// KindDecode is a success status whose body could not be decoded.
	KindDecode
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindServerError:    "server_error",
	KindNoConnectivity: "no_connectivity",
	KindNotFound:       "not_found",
	KindCancelled:      "cancelled",
	KindDecode:         "decode",
}

// String returns the machine-readable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Message returns the user-facing message for the kind.
// Decode failures share the unknown-problem message.
func (k Kind) Message() string {
	switch k {
	case KindServerError:
		return "Data not synchronised, database unreachable."
	case KindNoConnectivity:
		return "Data not synchronised, no internet or damaged connection."
	case KindNotFound:
		return "The requested data doesn't exist."
	case KindCancelled:
		return "Data not synchronised, network reachable but too slow."
	default:
		return "Data not synchronised, unknown server problem."
	}
}

// ClassifyStatus maps a non-success HTTP status code to a Kind.
// A zero status means no response was received.
func ClassifyStatus(code int) Kind {
	switch {
	case code == 0:
		return KindNoConnectivity
	case code == http.StatusNotFound:
		return KindNotFound
	case code >= 500 && code <= 599:
		return KindServerError
	default:
		return KindUnknown
	}
}

// RemoteError represents a failed call to the remote case store.
type RemoteError struct {
	Kind       Kind
	Operation  string // "fetch", "upload"
	Endpoint   string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s failed (%s)", e.Operation, e.Endpoint, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrCanceled:
		return e.Kind == KindCancelled
	case ErrRemoteUnavailable:
		return e.Kind == KindServerError || e.Kind == KindNoConnectivity
	}
	return false
}

// Message returns the user-facing message for the error's kind.
func (e *RemoteError) Message() string {
	return e.Kind.Message()
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(kind Kind, operation, endpoint string, statusCode int, err error) *RemoteError {
	return &RemoteError{
		Kind:       kind,
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Err:        err,
	}
}

// KindOf extracts the Kind carried by err.
// Context cancellation and deadline errors map to KindCancelled, any other
// error without a RemoteError in its chain maps to KindUnknown.
func KindOf(err error) Kind {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCanceled) {
		return KindCancelled
	}
	return KindUnknown
}
