package runs

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/WEILMAX/oma-tracking/internal/modestore"
	"github.com/WEILMAX/oma-tracking/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) (*Manager, *modestore.Store) {
	t.Helper()
	store, err := modestore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.MigrateUp("../../migrations"))
	return NewManager(store), store
}

func TestRunLifecycle(t *testing.T) {
	m, store := setupTestManager(t)

	assert.False(t, m.IsRunActive())
	assert.Empty(t, m.CurrentRunID())

	runID, err := m.StartRun(map[string]any{"eps": 5.0, "min_samples": 100})
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	assert.True(t, m.IsRunActive())
	assert.Equal(t, runID, m.CurrentRunID())

	m.RecordInputRows(5000)
	m.RecordRemovedRows(420)
	m.RecordClusters(3)

	require.NoError(t, m.CompleteRun())
	assert.False(t, m.IsRunActive())

	rec, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, 5000, rec.InputRows)
	assert.Equal(t, 420, rec.RemovedRows)
	assert.Equal(t, 3, rec.ClusterCount)
	assert.True(t, rec.FinishedAt.Valid)
	assert.Contains(t, rec.Params, `"eps":5`)
}

func TestFailRun(t *testing.T) {
	m, store := setupTestManager(t)

	runID, err := m.StartRun(struct{}{})
	require.NoError(t, err)

	require.NoError(t, m.FailRun("input file unreadable"))
	assert.False(t, m.IsRunActive())

	rec, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "failed", rec.Status)
}

func TestCompleteWithoutRunIsNoop(t *testing.T) {
	m, _ := setupTestManager(t)
	require.NoError(t, m.CompleteRun())
	require.NoError(t, m.FailRun("nothing running"))
}

func TestRunTimestampsComeFromClock(t *testing.T) {
	_, store := setupTestManager(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewFakeClock(start)
	m := NewManagerWithClock(store, clock)

	runID, err := m.StartRun(struct{}{})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	require.NoError(t, m.CompleteRun())

	rec, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, start, rec.StartedAt.UTC())
	assert.Equal(t, start.Add(2*time.Minute), rec.FinishedAt.Time.UTC())
}

func TestRunsGetDistinctIDs(t *testing.T) {
	m, _ := setupTestManager(t)

	id1, err := m.StartRun(struct{}{})
	require.NoError(t, err)
	require.NoError(t, m.CompleteRun())

	id2, err := m.StartRun(struct{}{})
	require.NoError(t, err)
	require.NoError(t, m.CompleteRun())

	assert.NotEqual(t, id1, id2)
}
