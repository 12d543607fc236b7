// Package response writes the JSON envelope used by the server's
// management endpoints. Every envelope has a data field on success and an
// error field on failure.
//
// The case endpoints consumed by the sync client do not use the envelope;
// they write bare JSON with WriteJSON.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/casesync/pkg/errors"
)

// Response is the standard envelope.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are sent; nothing useful to do with an encode error
	_ = json.NewEncoder(w).Encode(v)
}

// JSON writes resp with status.
func JSON(w http.ResponseWriter, status int, resp Response) {
	WriteJSON(w, status, resp)
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusUnauthorized, Fail("UNAUTHORIZED", message, details))
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// Conflict writes a 409.
func Conflict(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusConflict, Fail("CONFLICT", message, details))
}

// PayloadTooLarge writes a 413.
func PayloadTooLarge(w http.ResponseWriter, details string) {
	JSON(w, http.StatusRequestEntityTooLarge, Fail("PAYLOAD_TOO_LARGE", "Request body too large", details))
}

// RateLimited writes a 429.
func RateLimited(w http.ResponseWriter, details string) {
	JSON(w, http.StatusTooManyRequests, Fail("RATE_LIMITED", "Rate limit exceeded", details))
}

// InternalError writes a 500 without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, details string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", details))
}

// ErrorFromType maps err to a status by its type.
func ErrorFromType(w http.ResponseWriter, err error) {
	var (
		notFound *errors.NotFoundError
		invalid  *errors.ValidationError
		parse    *errors.ParseError
		conflict *errors.ConflictError
	)
	switch {
	case errors.As(err, &conflict):
		Conflict(w, "Stored version is newer", conflict.Error())
	case errors.As(err, &invalid):
		BadRequest(w, "Invalid case", invalid.Error())
	case errors.As(err, &parse):
		BadRequest(w, "Malformed request body", parse.Error())
	case errors.As(err, &notFound):
		NotFound(w, notFound.Error(), "")
	case errors.IsRemoteUnavailable(err):
		ServiceUnavailable(w, "Store unavailable")
	default:
		InternalError(w, err)
	}
}
