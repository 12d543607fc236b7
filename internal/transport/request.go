package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// CheckResponse closes the body and returns a StatusError for a non-2xx
// response.
func CheckResponse(resp *http.Response) error {
	defer closeBody(resp)
	if IsSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	return statusError(resp)
}

// DecodeResponse decodes a JSON response into target, reading at most limit
// bytes. Non-2xx responses return a StatusError; malformed bodies a ParseError.
func DecodeResponse(resp *http.Response, target any, limit int64) error {
	defer closeBody(resp)

	if !IsSuccess(resp.StatusCode) {
		return statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if int64(len(body)) > limit {
		return errors.NewParseError("json", "response", fmt.Sprintf("body exceeds %d bytes", limit), nil)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close response body")
	}
}
