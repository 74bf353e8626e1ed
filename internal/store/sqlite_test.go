package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kaml.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndListResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Empty(t, results, "fresh store should have no results")

	require.NoError(t, s.AppendResult(ctx, &RawResult{
		Timestamp: 100, EventID: "e1", Winner: "alice", Loser: "bob",
	}))
	require.NoError(t, s.AppendResult(ctx, &RawResult{
		Timestamp: 200, EventID: "e2", Winner: "bob", Loser: "carol",
	}))

	results, err = s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "e1", results[0].EventID)
	require.Equal(t, "e2", results[1].EventID)
	require.Equal(t, "alice", results[0].Winner)

	last, err := s.LastEventID(ctx)
	require.NoError(t, err)
	require.Equal(t, "e2", last)
}

func TestAppendResultIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := RawResult{Timestamp: 100, EventID: "e1", Winner: "alice", Loser: "bob"}
	require.NoError(t, s.AppendResult(ctx, &r))
	require.NoError(t, s.AppendResult(ctx, &r))

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestAppendResultsBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendResult(ctx, &RawResult{
		Timestamp: 100, EventID: "e1", Winner: "alice", Loser: "bob",
	}))

	n, err := s.AppendResults(ctx, []RawResult{
		{Timestamp: 100, EventID: "e1", Winner: "alice", Loser: "bob"}, // dup
		{Timestamp: 150, EventID: "e2", Winner: "carol", Loser: "alice"},
		{Timestamp: 160, EventID: "e3", Winner: "alice", Loser: "carol"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n, "only the two new records count")

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestResultsWithAwkwardNamesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	name := `O'Brien, "the wall"` + "\nsecond line"
	require.NoError(t, s.AppendResult(ctx, &RawResult{
		Timestamp: 1, EventID: "e1", Winner: name, Loser: "bob",
	}))

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Equal(t, name, results[0].Winner, "names must round-trip losslessly")
}

func TestEqualTimestampsKeepInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendResult(ctx, &RawResult{
			Timestamp: 42, EventID: id, Winner: "w", Loser: "l",
		}))
	}

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"},
		[]string{results[0].EventID, results[1].EventID, results[2].EventID})
}

func TestSaveAndLoadAliases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loaded, err := s.LoadAliases(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded, "fresh store should have no aliases")

	want := map[int64][]string{
		1: {"alice", "wonder"},
		7: {"bob"},
	}
	require.NoError(t, s.SaveAliases(ctx, want))

	loaded, err = s.LoadAliases(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, want[1], loaded[1])
	require.ElementsMatch(t, want[7], loaded[7])

	// Wholesale rewrite replaces previous contents.
	require.NoError(t, s.SaveAliases(ctx, map[int64][]string{2: {"carol"}}))
	loaded, err = s.LoadAliases(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, []string{"carol"}, loaded[2])
}

func TestReadLegacyCSV(t *testing.T) {
	in := strings.Join([]string{
		"timestamp,id,winner,loser",
		"1000.5,11,alice,bob",
		"not-a-timestamp,12,x,y",
		"1001.0,13, carol ,dave",
		"",
	}, "\n")

	results, skipped, err := ReadLegacyCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 1, skipped)
	require.Len(t, results, 2)
	require.Equal(t, "11", results[0].EventID)
	require.Equal(t, "carol", results[1].Winner, "names are trimmed")
}

func TestReadLegacyCSVEmpty(t *testing.T) {
	results, skipped, err := ReadLegacyCSV(strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Empty(t, results)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"a,b,c", "a_b_c"},
		{"two\nlines", "two lines"},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
