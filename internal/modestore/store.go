// Package modestore persists analysis artifacts: reference cluster sets
// versioned by name, experiments, analysis runs and labeled mode tables.
// It is the repository's artifact store; callers load and save by name and
// version and treat the contents as opaque.
package modestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/WEILMAX/oma-tracking/internal/modal"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite database holding analysis artifacts.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the artifact database at path. Run MigrateUp
// before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

// CreateExperiment registers a named experiment with its artifact location
// and returns its id. Creating an experiment that already exists returns the
// existing id.
func (s *Store) CreateExperiment(name, artifactURI string) (int64, error) {
	var id int64
	err := s.QueryRow(`SELECT experiment_id FROM experiments WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup experiment %q: %w", name, err)
	}
	res, err := s.Exec(`INSERT INTO experiments (name, artifact_uri) VALUES (?, ?)`, name, artifactURI)
	if err != nil {
		return 0, fmt.Errorf("create experiment %q: %w", name, err)
	}
	return res.LastInsertId()
}

// SaveReferenceSet stores a reference cluster set under the next version of
// the given model name and returns that version. Versions start at 1.
func (s *Store) SaveReferenceSet(name string, refs []modal.ReferenceCluster) (int, error) {
	tx, err := s.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(version), 0) + 1 FROM reference_sets WHERE name = ?`, name,
	).Scan(&version); err != nil {
		return 0, fmt.Errorf("next version for %q: %w", name, err)
	}

	res, err := tx.Exec(`INSERT INTO reference_sets (name, version) VALUES (?, ?)`, name, version)
	if err != nil {
		return 0, fmt.Errorf("insert reference set %q v%d: %w", name, version, err)
	}
	setID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, ref := range refs {
		if _, err := tx.Exec(
			`INSERT INTO reference_clusters
				(set_id, label, frequency, max_distance, mean_damping, mean_size, count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			setID, ref.Label, ref.Frequency, ref.MaxDistance, ref.MeanDamping, ref.MeanSize, ref.Count,
		); err != nil {
			return 0, fmt.Errorf("insert reference cluster %q: %w", ref.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// LoadReferenceSet loads a reference cluster set by model name and version.
// Version 0 loads the latest version.
func (s *Store) LoadReferenceSet(name string, version int) ([]modal.ReferenceCluster, error) {
	var setID int64
	var err error
	if version <= 0 {
		err = s.QueryRow(
			`SELECT set_id FROM reference_sets WHERE name = ? ORDER BY version DESC LIMIT 1`, name,
		).Scan(&setID)
	} else {
		err = s.QueryRow(
			`SELECT set_id FROM reference_sets WHERE name = ? AND version = ?`, name, version,
		).Scan(&setID)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no reference set %q version %d", name, version)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.Query(
		`SELECT label, frequency, max_distance, mean_damping, mean_size, count
		 FROM reference_clusters WHERE set_id = ? ORDER BY rowid`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []modal.ReferenceCluster
	for rows.Next() {
		var ref modal.ReferenceCluster
		if err := rows.Scan(&ref.Label, &ref.Frequency, &ref.MaxDistance,
			&ref.MeanDamping, &ref.MeanSize, &ref.Count); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SaveLabeledModes persists a labeled mode table for the given run.
func (s *Store) SaveLabeledModes(runID string, tbl *modal.Table, roles modal.Roles) error {
	labels, ok := tbl.Column(modal.LabelsColumn)
	if !ok {
		return fmt.Errorf("table has no %q column", modal.LabelsColumn)
	}
	freqCol, err := tbl.FrequencyColumn(roles)
	if err != nil {
		return err
	}
	freq, _ := tbl.Column(freqCol)

	var damping, size []float64
	if dampCol, err := tbl.DampingColumn(roles); err == nil {
		damping, _ = tbl.Column(dampCol)
	}
	if tbl.HasColumn(roles.Size) {
		size, _ = tbl.Column(roles.Size)
	}
	at := func(vals []float64, i int) any {
		if vals == nil {
			return nil
		}
		return vals[i]
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO labeled_modes (run_id, timestamp, frequency, damping, size, label)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ts := range tbl.Timestamps() {
		if _, err := stmt.Exec(runID, ts.UTC(), freq[i], at(damping, i), at(size, i), int64(labels[i])); err != nil {
			return fmt.Errorf("insert labeled mode row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LabeledModeCount returns the number of stored labeled rows for a run.
func (s *Store) LabeledModeCount(runID string) (int, error) {
	var n int
	err := s.QueryRow(`SELECT COUNT(*) FROM labeled_modes WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

// RunRecord mirrors one analysis_runs row.
type RunRecord struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Params       string
	InputRows    int
	RemovedRows  int
	ClusterCount int
	Status       string
}

// InsertRun records the start of an analysis run.
func (s *Store) InsertRun(rec RunRecord) error {
	_, err := s.Exec(
		`INSERT INTO analysis_runs (run_id, started_at, params, input_rows, removed_rows, cluster_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.StartedAt.UTC(), rec.Params, rec.InputRows, rec.RemovedRows, rec.ClusterCount, rec.Status)
	return err
}

// FinishRun updates the run's counters and marks it complete.
func (s *Store) FinishRun(rec RunRecord) error {
	_, err := s.Exec(
		`UPDATE analysis_runs
		 SET finished_at = ?, input_rows = ?, removed_rows = ?, cluster_count = ?, status = ?
		 WHERE run_id = ?`,
		rec.FinishedAt.Time.UTC(), rec.InputRows, rec.RemovedRows, rec.ClusterCount, rec.Status, rec.RunID)
	return err
}

// GetRun loads one analysis run by id.
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	rec := &RunRecord{}
	err := s.QueryRow(
		`SELECT run_id, started_at, finished_at, params, input_rows, removed_rows, cluster_count, status
		 FROM analysis_runs WHERE run_id = ?`, runID,
	).Scan(&rec.RunID, &rec.StartedAt, &rec.FinishedAt, &rec.Params,
		&rec.InputRows, &rec.RemovedRows, &rec.ClusterCount, &rec.Status)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
