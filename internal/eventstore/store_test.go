package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendEvent(t *testing.T, store Store, buildID string, payload Typed) {
	t.Helper()
	e, err := NewEvent(buildID, payload)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), e.BuildID(), e.Type(), e.Payload(), map[string]string{"source": "test"}))
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	appendEvent(t, store, "b1", PassStarted{Pass: "legacy", Mode: "production", Target: "app"})

	events, err := store.GetByBuildID(t.Context(), "b1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	var decoded PassStarted
	require.NoError(t, Decode(events[0], &decoded))
	assert.Equal(t, "legacy", decoded.Pass)
	assert.Equal(t, TypePassStarted, events[0].Type())
	assert.Equal(t, "test", events[0].Metadata()["source"])
}

func TestEventStoreGetRangeAndRecent(t *testing.T) {
	store := newStore(t)
	start := time.Now().Add(-time.Second)
	appendEvent(t, store, "b1", PassStarted{Pass: "single"})
	appendEvent(t, store, "b2", PassStarted{Pass: "single"})

	inRange, err := store.GetRange(t.Context(), start, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	recent, err := store.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b2", recent[0].BuildID())
}

func TestHistoryProjection(t *testing.T) {
	store := newStore(t)
	appendEvent(t, store, "b1", PassStarted{Pass: "legacy"})
	appendEvent(t, store, "b1", PassCompleted{Pass: "legacy", DurationMS: 1200, Assets: 3, TotalBytes: 2048})
	appendEvent(t, store, "b1", PassStarted{Pass: "modern"})
	appendEvent(t, store, "b1", PassFailed{Pass: "modern", DurationMS: 300, Error: "Build failed with errors."})
	appendEvent(t, store, "s1", SessionStarted{URL: "http://localhost:8080/", Port: 8080})
	appendEvent(t, store, "s1", CompileCompleted{DurationMS: 50, First: true})
	appendEvent(t, store, "s1", CompileCompleted{DurationMS: 20, Errors: 1})

	history, err := History(t.Context(), store, 100)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "serve", history[0].Pass)
	assert.Equal(t, 2, history[0].Compiles)
	assert.Equal(t, statusSucceeded, history[0].Status)

	assert.Equal(t, "modern", history[1].Pass)
	assert.Equal(t, statusFailed, history[1].Status)
	assert.Equal(t, "Build failed with errors.", history[1].Error)

	assert.Equal(t, "legacy", history[2].Pass)
	assert.Equal(t, 1200*time.Millisecond, history[2].Duration)
	assert.Equal(t, 3, history[2].Assets)
}

func TestFileBackedStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}
