package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifamed/markup-boilerplate/internal/notify"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func run(id, class string, status notify.Status, started time.Time) notify.Event {
	ev := notify.Event{RunID: id, Task: class, Class: class, Mode: "development", Status: status, Started: started, Files: 1}
	if status == notify.StatusFailed {
		ev.Step = "preprocess"
		ev.Error = "boom"
	}
	return ev
}

func TestSQLiteStore_RecentNewestFirst(t *testing.T) {
	store := newStore(t)
	base := time.Now()
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.Append(t.Context(), run(id, "css", notify.StatusSuccess, base.Add(time.Duration(i)*time.Second))))
	}

	events, err := store.Recent(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "r3", events[0].RunID)
	assert.Equal(t, "r2", events[1].RunID)

	all, err := store.Recent(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_RoundTripsEvent(t *testing.T) {
	store := newStore(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := run("r1", "css", notify.StatusFailed, started)
	ev.File = "main.scss"
	ev.Duration = 1500 * time.Millisecond
	store.Notify(t.Context(), ev)

	events, err := store.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, "preprocess", got.Step)
	assert.Equal(t, "main.scss", got.File)
	assert.Equal(t, ev.Duration, got.Duration)
	assert.True(t, started.Equal(got.Started))
}

func TestSQLiteStore_Summaries(t *testing.T) {
	store := newStore(t)
	now := time.Now()
	require.NoError(t, store.Append(t.Context(), run("a", "js", notify.StatusFailed, now)))
	require.NoError(t, store.Append(t.Context(), run("b", "css", notify.StatusSuccess, now)))
	require.NoError(t, store.Append(t.Context(), run("c", "js", notify.StatusSuccess, now)))

	sums, err := store.Summaries(t.Context())
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, ClassSummary{Class: "css", Runs: 1, LastStatus: notify.StatusSuccess, LastRunID: "b"}, sums[0])
	assert.Equal(t, ClassSummary{Class: "js", Runs: 2, Failures: 1, LastStatus: notify.StatusSuccess, LastRunID: "c"}, sums[1])
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := newStore(t)
	now := time.Now()
	require.NoError(t, store.Append(t.Context(), run("old", "html", notify.StatusSuccess, now.Add(-48*time.Hour))))
	require.NoError(t, store.Append(t.Context(), run("new", "html", notify.StatusSuccess, now)))

	n, err := store.Prune(t.Context(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := store.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "new", events[0].RunID)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), run("r1", "fonts", notify.StatusSuccess, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.Recent(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "fonts", events[0].Class)
}
