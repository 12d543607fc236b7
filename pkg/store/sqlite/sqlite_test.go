package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/store/sqlite"
)

var epoch = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(caseID, author int64, t int) cases.Case {
	return cases.Case{
		CaseID:           caseID,
		DeviceID:         1,
		ModificationTime: cases.NewTimestamp(epoch.Add(time.Duration(t) * time.Second)),
		Author:           author,
	}
}

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path, sqlite.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	s := open(t, filepath.Join(t.TempDir(), "cases.db"))

	require.NoError(t, s.Upsert(ctx, rec(1, 2, 10)))
	require.NoError(t, s.Upsert(ctx, rec(2, 3, 10)))
	require.NoError(t, s.Upsert(ctx, rec(3, 2, 10)))

	list, err := s.ListForUser(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].CaseID)
	assert.Equal(t, int64(3), list[1].CaseID)

	list, err = s.ListForUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, s.Ping(ctx))
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cases.db")

	s, err := sqlite.Open(path, sqlite.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, rec(1, 2, 10)))
	require.NoError(t, s.Upsert(ctx, rec(2, 2, 10)))
	require.NoError(t, s.Upsert(ctx, rec(1, 2, 30)))
	require.NoError(t, s.Close())

	reopened := open(t, path)
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].CaseID)
	assert.True(t, list[0].ModificationTime.Equal(cases.NewTimestamp(epoch.Add(30*time.Second))))
}

func TestOpenValidation(t *testing.T) {
	_, err := sqlite.Open("")
	assert.Error(t, err)

	_, err = sqlite.Open(filepath.Join(t.TempDir(), "x.db"), sqlite.WithSlowThreshold(-time.Second))
	assert.True(t, errors.IsValidationError(err))
}

func TestQueryLogging(t *testing.T) {
	tl := logging.NewTestLogger(t)
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "cases.db"),
		sqlite.WithLogger(tl.Logger), sqlite.WithSlowThreshold(time.Nanosecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.List(context.Background())
	require.NoError(t, err)
	tl.AssertContains(t, "Slow query")
	tl.AssertContains(t, `"sql"`)
}
