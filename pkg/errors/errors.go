// Package errors defines the error values shared by the casesync packages.
//
// Local failures (bad input, store I/O, conflicting writes) use the typed
// errors in this file. Failures talking to the remote case store are
// RemoteErrors, classified by Kind (see remote.go).
package errors

import (
	"errors"
	"fmt"
)

// Aliases for the standard library helpers so callers need one import.
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Sentinels matched by the typed errors below.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrTimeout           = errors.New("operation timed out")
	ErrCanceled          = errors.New("operation canceled")
	// ErrConflict is a write that lost against a newer stored version.
	ErrConflict = errors.New("conflict")
	ErrReadOnly = errors.New("read only")
)

// NotFoundError reports a missing case or store entry.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports a field that failed validation. Case records,
// client options and CLI flags all use it.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError reports a component that cannot start with its
// configuration.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MergeError reports an input set that cannot be reconciled, such as a
// replica holding two records with the same key.
type MergeError struct {
	Source      string
	Target      string
	ConflictIDs []string
	Err         error
}

func (e *MergeError) Error() string {
	if len(e.ConflictIDs) > 0 {
		return fmt.Sprintf("cannot merge %s into %s: duplicate keys %v", e.Source, e.Target, e.ConflictIDs)
	}
	return fmt.Sprintf("cannot merge %s into %s: %v", e.Source, e.Target, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// Is matches ErrInvalidInput.
func (e *MergeError) Is(target error) bool { return target == ErrInvalidInput }

// NewMergeError creates a MergeError.
func NewMergeError(source, target string, conflictIDs []string, err error) *MergeError {
	return &MergeError{Source: source, Target: target, ConflictIDs: conflictIDs, Err: err}
}

// SyncError wraps the failure of one sync run with the stage it failed in:
// fetch, snapshot, reconcile, apply or push.
type SyncError struct {
	UserID int64
	Stage  string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("sync for user %d failed: %v", e.UserID, e.Err)
	}
	return fmt.Sprintf("sync for user %d failed at %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// NewSyncError creates a SyncError.
func NewSyncError(userID int64, stage string, err error) *SyncError {
	return &SyncError{UserID: userID, Stage: stage, Err: err}
}

// ParseError reports undecodable input: a case file, a response body or a
// timestamp string.
type ParseError struct {
	Format  string
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s parse error at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.File, e.Message)
	default:
		return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError reports a failed filesystem or database operation.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError reports a failed operation on one named resource, usually
// a case in a store.
type ResourceError struct {
	Operation string
	Resource  string
	ID        string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Resource, e.Err)
	}
	return fmt.Sprintf("failed to %s %s %s: %v", e.Operation, e.Resource, e.ID, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// TimeoutError reports an operation stopped by its deadline.
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %s", e.Operation, e.Duration, e.Message)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Message: message}
}

// ConflictError is returned when an incoming case is older than the stored
// version with the same key.
type ConflictError struct {
	Key      string
	Stored   string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("case %s: incoming version %s is older than stored version %s",
		e.Key, e.Incoming, e.Stored)
}

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflictError creates a ConflictError.
func NewConflictError(key, stored, incoming string) *ConflictError {
	return &ConflictError{Key: key, Stored: stored, Incoming: incoming}
}

// IsNotFound reports whether err matches ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err matches ErrInvalidInput.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsTimeout reports whether err matches ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCanceled reports whether err matches ErrCanceled.
func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// IsRemoteUnavailable reports whether err matches ErrRemoteUnavailable.
func IsRemoteUnavailable(err error) bool { return errors.Is(err, ErrRemoteUnavailable) }

// IsConflict reports whether err matches ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// WrapIO wraps a non-nil err as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapResource wraps a non-nil err as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapParse wraps a non-nil err as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
