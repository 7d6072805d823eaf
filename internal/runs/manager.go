// Package runs coordinates the lifecycle of analysis runs: each invocation of
// the pipeline gets a unique run id, collects row and cluster counters while
// it executes, and is finalized in the artifact store when it completes or
// fails.
package runs

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/WEILMAX/oma-tracking/internal/modestore"
	"github.com/WEILMAX/oma-tracking/internal/timeutil"
	"github.com/google/uuid"
)

// Manager coordinates analysis run lifecycle and statistics collection.
// It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	store     *modestore.Store
	clock     timeutil.Clock
	current   *modestore.RunRecord
	startTime time.Time

	// Stats collected during the run
	inputRows    int
	removedRows  int
	clusterCount int
}

// NewManager creates a manager recording runs in the given store.
func NewManager(store *modestore.Store) *Manager {
	return &Manager{store: store, clock: timeutil.RealClock{}}
}

// NewManagerWithClock creates a manager using the given clock for run
// timestamps.
func NewManagerWithClock(store *modestore.Store, clock timeutil.Clock) *Manager {
	return &Manager{store: store, clock: clock}
}

// StartRun begins a new analysis run with the given parameters and returns
// the run ID.
func (m *Manager) StartRun(params any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runID := uuid.New().String()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	m.current = &modestore.RunRecord{
		RunID:     runID,
		StartedAt: m.clock.Now(),
		Params:    string(paramsJSON),
		Status:    "running",
	}

	if err := m.store.InsertRun(*m.current); err != nil {
		m.current = nil
		return "", err
	}

	m.startTime = m.clock.Now()
	m.inputRows = 0
	m.removedRows = 0
	m.clusterCount = 0

	log.Printf("[runs] Started run %s", runID)
	return runID, nil
}

// RecordInputRows adds to the input row count for the current run.
func (m *Manager) RecordInputRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputRows += n
}

// RecordRemovedRows adds to the count of rows dropped as harmonic artifacts.
func (m *Manager) RecordRemovedRows(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedRows += n
}

// RecordClusters adds to the cluster count for the current run.
func (m *Manager) RecordClusters(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusterCount += n
}

// CompleteRun finalizes the current analysis run with its statistics.
func (m *Manager) CompleteRun() error {
	return m.finish("completed")
}

// FailRun marks the current run as failed.
func (m *Manager) FailRun(errMsg string) error {
	m.mu.Lock()
	if m.current != nil {
		log.Printf("[runs] Run %s failed: %s", m.current.RunID, errMsg)
	}
	m.mu.Unlock()
	return m.finish("failed")
}

func (m *Manager) finish(status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}

	rec := *m.current
	rec.FinishedAt = sql.NullTime{Time: m.clock.Now(), Valid: true}
	rec.InputRows = m.inputRows
	rec.RemovedRows = m.removedRows
	rec.ClusterCount = m.clusterCount
	rec.Status = status

	if err := m.store.FinishRun(rec); err != nil {
		return err
	}

	if status == "completed" {
		log.Printf("[runs] Completed run %s: %d rows in, %d removed, %d clusters in %.2fs",
			rec.RunID, rec.InputRows, rec.RemovedRows, rec.ClusterCount, m.clock.Since(m.startTime).Seconds())
	}

	m.current = nil
	return nil
}

// IsRunActive returns true if there is an active analysis run.
func (m *Manager) IsRunActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// CurrentRunID returns the current run ID, or empty string if no run is
// active.
func (m *Manager) CurrentRunID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.RunID
}
