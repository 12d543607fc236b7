package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/store/memory"
)

func rec(caseID int64, t int) cases.Case {
	return cases.Case{
		CaseID:           caseID,
		DeviceID:         1,
		ModificationTime: cases.NewTimestamp(time.Unix(int64(t), 0)),
	}
}

func TestPreload(t *testing.T) {
	s, err := memory.New(memory.WithCases(rec(2, 1), rec(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), list[0].CaseID)

	_, err = memory.New(memory.WithCases(rec(1, 1), rec(1, 2)))
	assert.True(t, errors.IsValidationError(err))

	_, err = memory.New(memory.WithCases(cases.Case{CaseID: 1}))
	assert.True(t, errors.IsValidationError(err))
}

func TestReadOnly(t *testing.T) {
	s, err := memory.New(memory.WithCases(rec(1, 1)), memory.WithReadOnly(true))
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, s.Upsert(ctx, rec(2, 1)), errors.ErrReadOnly)
	assert.ErrorIs(t, s.Remove(ctx, rec(1, 1)), errors.ErrReadOnly)
	assert.ErrorIs(t, s.Replace(nil), errors.ErrReadOnly)
	assert.Equal(t, 1, s.Len())
}

func TestReplace(t *testing.T) {
	s, err := memory.New(memory.WithCases(rec(1, 1), rec(2, 1)))
	require.NoError(t, err)

	require.NoError(t, s.Replace([]cases.Case{rec(3, 1)}))
	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].CaseID)

	assert.Error(t, s.Replace([]cases.Case{rec(4, 1), rec(4, 2)}))
	assert.Equal(t, 1, s.Len())
}

func TestListReturnsCopies(t *testing.T) {
	p := int16(3)
	c := rec(1, 1)
	c.Priority = &p
	s, err := memory.New(memory.WithCases(c))
	require.NoError(t, err)

	// the caller's pointer is not retained
	p = 8

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int16(3), *list[0].Priority)
	*list[0].Priority = 5

	got, ok, err := s.Get(context.Background(), c.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int16(3), *got.Priority)
}

func TestConcurrentAccess(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Upsert(ctx, rec(int64(i%5), i+1))
			_, _ = s.List(ctx)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.Len())
}
