package errors_test

import (
	"errors"
	"testing"

	pkgerrors "github.com/agentstation/casesync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "case", ID: "7/2"}
		assert.Equal(t, "case 7/2 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("case", "1/1")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("modificationtime", nil, "is required")
		assert.Equal(t, "invalid modificationtime: is required", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrInvalidInput))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "invalid configuration"}
		assert.Equal(t, "invalid input: invalid configuration", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}

func TestMergeError(t *testing.T) {
	err := pkgerrors.NewMergeError("local", "remote", []string{"1/1"}, nil)
	assert.Contains(t, err.Error(), "cannot merge local into remote: duplicate keys")
	assert.Contains(t, err.Error(), "1/1")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestSyncError(t *testing.T) {
	base := errors.New("boom")
	err := pkgerrors.NewSyncError(2, "apply", base)
	assert.Equal(t, "sync for user 2 failed at apply: boom", err.Error())
	assert.ErrorIs(t, err, base)

	noStage := pkgerrors.NewSyncError(2, "", base)
	assert.Equal(t, "sync for user 2 failed: boom", noStage.Error())
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := pkgerrors.WrapIO("write", "/tmp/cases.yaml", base)
	assert.Equal(t, "write /tmp/cases.yaml: permission denied", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestRemoteError(t *testing.T) {
	tests := []struct {
		name        string
		kind        pkgerrors.Kind
		status      int
		notFound    bool
		canceled    bool
		unavailable bool
	}{
		{"server error", pkgerrors.KindServerError, 500, false, false, true},
		{"no connectivity", pkgerrors.KindNoConnectivity, 0, false, false, true},
		{"not found", pkgerrors.KindNotFound, 404, true, false, false},
		{"cancelled", pkgerrors.KindCancelled, 0, false, true, false},
		{"decode", pkgerrors.KindDecode, 200, false, false, false},
		{"unknown", pkgerrors.KindUnknown, 418, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewRemoteError(tt.kind, "fetch", "http://remote/casesForUser/2", tt.status, nil)
			assert.Equal(t, tt.notFound, pkgerrors.IsNotFound(err))
			assert.Equal(t, tt.canceled, pkgerrors.IsCanceled(err))
			assert.Equal(t, tt.unavailable, pkgerrors.IsRemoteUnavailable(err))
			assert.Equal(t, tt.kind, pkgerrors.KindOf(err))
			assert.Equal(t, tt.kind.Message(), err.Message())
		})
	}
}

func TestRemoteErrorFormat(t *testing.T) {
	base := errors.New("connection refused")
	err := pkgerrors.NewRemoteError(pkgerrors.KindNoConnectivity, "upload", "http://remote/case", 0, base)
	assert.Equal(t, "upload http://remote/case failed (no_connectivity): connection refused", err.Error())
	assert.ErrorIs(t, err, base)

	withStatus := pkgerrors.NewRemoteError(pkgerrors.KindServerError, "fetch", "http://remote", 503, nil)
	assert.Equal(t, "fetch http://remote failed (server_error): status 503", withStatus.Error())
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want pkgerrors.Kind
	}{
		{0, pkgerrors.KindNoConnectivity},
		{404, pkgerrors.KindNotFound},
		{500, pkgerrors.KindServerError},
		{502, pkgerrors.KindServerError},
		{599, pkgerrors.KindServerError},
		{400, pkgerrors.KindUnknown},
		{401, pkgerrors.KindUnknown},
		{302, pkgerrors.KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pkgerrors.ClassifyStatus(tt.code), "status %d", tt.code)
	}
}

func TestKindMessages(t *testing.T) {
	assert.Equal(t, "Data not synchronised, database unreachable.", pkgerrors.KindServerError.Message())
	assert.Equal(t, "Data not synchronised, no internet or damaged connection.", pkgerrors.KindNoConnectivity.Message())
	assert.Equal(t, "The requested data doesn't exist.", pkgerrors.KindNotFound.Message())
	assert.Equal(t, "Data not synchronised, network reachable but too slow.", pkgerrors.KindCancelled.Message())
	assert.Equal(t, pkgerrors.KindUnknown.Message(), pkgerrors.KindDecode.Message())
	assert.Equal(t, "decode", pkgerrors.KindDecode.String())
	assert.Equal(t, "kind(42)", pkgerrors.Kind(42).String())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, pkgerrors.KindCancelled, pkgerrors.KindOf(pkgerrors.ErrCanceled))
	assert.Equal(t, pkgerrors.KindUnknown, pkgerrors.KindOf(errors.New("other")))

	wrapped := pkgerrors.NewSyncError(2, "fetch",
		pkgerrors.NewRemoteError(pkgerrors.KindNotFound, "fetch", "x", 404, nil))
	assert.Equal(t, pkgerrors.KindNotFound, pkgerrors.KindOf(wrapped))
}

func TestWrapHelpers(t *testing.T) {
	require.NoError(t, pkgerrors.WrapIO("read", "x", nil))
	require.NoError(t, pkgerrors.WrapParse("json", "x", nil))
	require.NoError(t, pkgerrors.WrapResource("upsert", "case", "1/1", nil))

	err := pkgerrors.WrapParse("timestamp", "", errors.New("bad layout"))
	var pe *pkgerrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "timestamp parse error: bad layout", pe.Error())

	err = pkgerrors.WrapResource("remove", "case", "3/4", errors.New("locked"))
	assert.Equal(t, "failed to remove case 3/4: locked", err.Error())
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		pkgerrors.ErrNotFound,
		pkgerrors.ErrInvalidInput,
		pkgerrors.ErrRemoteUnavailable,
		pkgerrors.ErrTimeout,
		pkgerrors.ErrCanceled,
		pkgerrors.ErrConflict,
		pkgerrors.ErrReadOnly,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
	assert.True(t, pkgerrors.IsConflict(pkgerrors.ErrConflict))
	assert.True(t, pkgerrors.IsTimeout(pkgerrors.NewTimeoutError("fetch", "20s", "watchdog")))
}

func TestConflictError(t *testing.T) {
	err := pkgerrors.NewConflictError("1/2", "2024-01-02T00:00:00Z", "2024-01-01T00:00:00Z")
	assert.True(t, pkgerrors.IsConflict(err))
	assert.True(t, pkgerrors.IsConflict(pkgerrors.WrapResource("upsert", "case", "1/2", err)))
	assert.False(t, pkgerrors.IsValidationError(err))
	assert.Equal(t,
		"case 1/2: incoming version 2024-01-01T00:00:00Z is older than stored version 2024-01-02T00:00:00Z",
		err.Error())
}
