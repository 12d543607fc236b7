package reconcile_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/reconcile"
)

var epoch = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// rec builds a case whose modification time is t seconds after epoch.
func rec(caseID, deviceID int64, t int) cases.Case {
	return cases.Case{
		CaseID:           caseID,
		DeviceID:         deviceID,
		ModificationTime: cases.NewTimestamp(epoch.Add(time.Duration(t) * time.Second)),
		Description:      "case",
	}
}

func mustReconcile(t *testing.T, local, remote []cases.Case, opts ...reconcile.Option) *reconcile.Result {
	t.Helper()
	r, err := reconcile.New(append([]reconcile.Option{reconcile.WithLogger(logging.NewNopLogger())}, opts...)...)
	require.NoError(t, err)
	res, err := r.Reconcile(local, remote)
	require.NoError(t, err)
	return res
}

func TestRemoteNewerAndRemoteOnly(t *testing.T) {
	local := []cases.Case{rec(1, 1, 10)}
	remote := []cases.Case{rec(1, 1, 20), rec(2, 1, 5)}

	res := mustReconcile(t, local, remote)

	wantMerged := []cases.Case{rec(1, 1, 20), rec(2, 1, 5)}
	if diff := cmp.Diff(wantMerged, res.Merged); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}

	wantMutations := []reconcile.Mutation{
		reconcile.Remove(rec(1, 1, 10)),
		reconcile.Upsert(rec(1, 1, 20)),
		reconcile.Upsert(rec(2, 1, 5)),
	}
	if diff := cmp.Diff(wantMutations, res.Mutations); diff != "" {
		t.Errorf("mutations mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, res.Stats.Added)
	assert.Equal(t, 1, res.Stats.Updated)
	assert.Equal(t, 0, res.Stats.LocalOnly)
	assert.True(t, res.HasChanges())
	assert.Equal(t, "last-write-wins", res.Strategy)
}

func TestLocalNewerProducesNoMutation(t *testing.T) {
	local := []cases.Case{rec(1, 1, 30)}
	remote := []cases.Case{rec(1, 1, 20)}

	res := mustReconcile(t, local, remote)

	if diff := cmp.Diff(local, res.Merged); diff != "" {
		t.Errorf("merged should equal local (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Mutations)
	assert.False(t, res.HasChanges())
	assert.Equal(t, []cases.Key{{CaseID: 1, DeviceID: 1}}, res.LocalNewer)
	assert.Equal(t, 1, res.Stats.LocalNewer)
}

func TestEqualTimestampsFavourLocal(t *testing.T) {
	local := rec(1, 1, 10)
	local.Description = "local edit"
	remote := rec(1, 1, 10)
	remote.Description = "remote edit"

	res := mustReconcile(t, []cases.Case{local}, []cases.Case{remote})

	require.Len(t, res.Merged, 1)
	assert.Equal(t, "local edit", res.Merged[0].Description)
	assert.Empty(t, res.Mutations)
	assert.Empty(t, res.LocalNewer)
	assert.Equal(t, 1, res.Stats.Unchanged)
}

func TestLocalOnlyRecordsRetained(t *testing.T) {
	local := []cases.Case{rec(9, 9, 1), rec(1, 1, 10)}
	remote := []cases.Case{rec(1, 1, 20)}

	res := mustReconcile(t, local, remote)

	want := []cases.Case{rec(9, 9, 1), rec(1, 1, 20)}
	if diff := cmp.Diff(want, res.Merged); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, res.Stats.LocalOnly)
	for _, m := range res.Mutations {
		assert.NotEqual(t, cases.Key{CaseID: 9, DeviceID: 9}, m.Case.Key())
	}
}

func TestEmptyInputs(t *testing.T) {
	res := mustReconcile(t, nil, nil)
	assert.Empty(t, res.Merged)
	assert.Empty(t, res.Mutations)

	res = mustReconcile(t, nil, []cases.Case{rec(1, 1, 1)})
	assert.Len(t, res.Merged, 1)
	assert.Equal(t, []reconcile.Mutation{reconcile.Upsert(rec(1, 1, 1))}, res.Mutations)
}

func TestDuplicateKeysRejected(t *testing.T) {
	dup := []cases.Case{rec(1, 1, 1), rec(1, 1, 2)}

	_, err := reconcile.Merge(dup, nil)
	require.Error(t, err)
	var me *errors.MergeError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "local", me.Source)
	assert.Equal(t, []string{"1/1"}, me.ConflictIDs)
	assert.ErrorIs(t, err, reconcile.ErrDuplicateKey)

	_, err = reconcile.Merge(nil, dup)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "remote", me.Source)
}

func TestMissingModificationTimeRejected(t *testing.T) {
	_, err := reconcile.Merge(nil, []cases.Case{{CaseID: 1, DeviceID: 1}})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestRemoteAuthoritativeStrategy(t *testing.T) {
	local := []cases.Case{rec(1, 1, 30), rec(2, 2, 5)}
	remote := []cases.Case{rec(1, 1, 20), rec(2, 2, 5)}

	res := mustReconcile(t, local, remote, reconcile.WithStrategy(reconcile.NewRemoteAuthoritativeStrategy()))

	assert.Equal(t, []cases.Case{rec(1, 1, 20), rec(2, 2, 5)}, res.Merged)
	assert.Equal(t, []string{"remove(1/1)@2017-01-01T00:00:30Z", "upsert(1/1)@2017-01-01T00:00:20Z"}, res.MutationStrings())
	assert.Empty(t, res.LocalNewer)
}

func TestCustomStrategy(t *testing.T) {
	never := reconcile.NewCustomStrategy("frozen", "never take remote", func(_, _ cases.Case) reconcile.Decision {
		return reconcile.KeepLocal
	})
	res := mustReconcile(t, []cases.Case{rec(1, 1, 1)}, []cases.Case{rec(1, 1, 99)}, reconcile.WithStrategy(never))
	assert.Empty(t, res.Mutations)
	assert.Equal(t, "frozen", res.Strategy)

	fallback := reconcile.NewCustomStrategy("nil", "", nil)
	assert.Equal(t, reconcile.TakeRemote, fallback.Resolve(rec(1, 1, 1), rec(1, 1, 2)))
}

func TestWithStrategyRejectsNil(t *testing.T) {
	_, err := reconcile.New(reconcile.WithStrategy(nil))
	assert.True(t, errors.IsValidationError(err))
}

func TestStrategyByName(t *testing.T) {
	s, err := reconcile.StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, "last-write-wins", s.Name())

	s, err = reconcile.StrategyByName("remote")
	require.NoError(t, err)
	assert.Equal(t, "remote-authoritative", s.Name())

	_, err = reconcile.StrategyByName("crdt")
	assert.Error(t, err)
}

func TestResultSummary(t *testing.T) {
	res := mustReconcile(t, []cases.Case{rec(1, 1, 10), rec(3, 3, 3)}, []cases.Case{rec(1, 1, 20), rec(2, 1, 5)})
	assert.Equal(t, "1 added, 1 updated, 1 local-only, 0 newer locally (3 mutations).", res.Summary())
	assert.Contains(t, res.String(), "remove(1/1)")

	res = mustReconcile(t, []cases.Case{rec(1, 1, 10)}, []cases.Case{rec(1, 1, 10)})
	assert.Equal(t, "No changes. 1 records in sync, 0 local-only, 0 newer locally.", res.Summary())
}

// randomReplica builds n records drawn from a small key space so that
// local and remote overlap.
func randomReplica(rng *rand.Rand, n int) []cases.Case {
	seen := map[cases.Key]bool{}
	var out []cases.Case
	for len(out) < n {
		c := rec(int64(rng.Intn(8)), int64(rng.Intn(3)), rng.Intn(50))
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

func TestProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		local := randomReplica(rng, rng.Intn(10))
		remote := randomReplica(rng, rng.Intn(10))

		res := mustReconcile(t, local, remote)

		// one record per distinct key, none fabricated
		inputs := map[cases.Key]bool{}
		for _, c := range append(append([]cases.Case{}, local...), remote...) {
			inputs[c.Key()] = true
		}
		assert.Empty(t, cases.CheckUnique(res.Merged))
		assert.Len(t, res.Merged, len(inputs))
		for _, c := range res.Merged {
			assert.True(t, inputs[c.Key()])
		}

		// matched pairs resolve to the strictly later record, ties to local
		merged := map[cases.Key]cases.Case{}
		for _, c := range res.Merged {
			merged[c.Key()] = c
		}
		localByKey := map[cases.Key]cases.Case{}
		for _, c := range local {
			localByKey[c.Key()] = c
		}
		for _, r := range remote {
			l, ok := localByKey[r.Key()]
			if !ok {
				assert.Equal(t, r, merged[r.Key()])
				continue
			}
			if r.NewerThan(l) {
				assert.Equal(t, r, merged[r.Key()])
			} else {
				assert.Equal(t, l, merged[r.Key()])
			}
		}

		// idempotence
		again := mustReconcile(t, res.Merged, remote)
		if diff := cmp.Diff(res.Merged, again.Merged); diff != "" {
			t.Fatalf("second pass changed merged set (-first +second):\n%s", diff)
		}
		assert.Empty(t, again.Mutations)
	}
}

func TestNoMutationWhenLocalWinsEverywhere(t *testing.T) {
	local := []cases.Case{rec(1, 1, 50), rec(2, 1, 40), rec(3, 1, 30)}
	remote := []cases.Case{rec(1, 1, 10), rec(3, 1, 30), rec(2, 1, 1)}

	res := mustReconcile(t, local, remote)
	assert.Empty(t, res.Mutations)
	assert.Equal(t, local, res.Merged)
	assert.Len(t, res.LocalNewer, 2)
}

func TestReconcileLogsSummary(t *testing.T) {
	tl := logging.NewTestLogger(t)
	r, err := reconcile.New(reconcile.WithLogger(tl.Logger))
	require.NoError(t, err)

	_, err = r.Reconcile(nil, []cases.Case{rec(1, 1, 1)})
	require.NoError(t, err)
	tl.AssertContains(t, "Reconciled cases")
	tl.AssertContains(t, `"added":1`)
}

func TestReconcileDoesNotAliasLocal(t *testing.T) {
	local := []cases.Case{rec(1, 1, 1)}
	res := mustReconcile(t, local, []cases.Case{rec(1, 1, 2)})
	assert.Equal(t, rec(1, 1, 1), local[0])
	assert.Equal(t, rec(1, 1, 2), res.Merged[0])
}
