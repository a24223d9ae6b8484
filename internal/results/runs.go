package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
)

// Run statuses recorded in pipeline_runs.status.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one workflow invocation as recorded in the database.
type Run struct {
	RunID       string
	StartedAt   time.Time
	CompletedAt sql.NullTime
	Status      string
	ExitStatus  sql.NullInt64
	Stages      []string
}

var _ pipeline.RunRecorder = (*DB)(nil)

// StartRun inserts a new run in the running state and returns its ID.
func (db *DB) StartRun(startedAt time.Time, stages []string) (string, error) {
	runID := uuid.New().String()

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return "", fmt.Errorf("failed to serialize stage list: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO pipeline_runs (run_id, started_at, status, stages_json)
		VALUES (?, ?, ?, ?)`,
		runID, startedAt, RunStatusRunning, string(stagesJSON),
	)
	if err != nil {
		return "", err
	}

	log.Printf("[results] Started run %s", runID)
	return runID, nil
}

// CompleteRun marks a run finished, deriving its status from the exit code.
func (db *DB) CompleteRun(runID string, exitStatus int, completedAt time.Time) error {
	status := RunStatusCompleted
	if exitStatus != 0 {
		status = RunStatusFailed
	}

	res, err := db.Exec(`
		UPDATE pipeline_runs
		SET completed_at = ?, status = ?, exit_status = ?
		WHERE run_id = ?`,
		completedAt, status, exitStatus, runID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no run with id %s", runID)
	}

	log.Printf("[results] Completed run %s (%s, exit %d)", runID, status, exitStatus)
	return nil
}

// GetRun returns a single run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, started_at, completed_at, status, exit_status, stages_json
		FROM pipeline_runs
		WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run with id %s", runID)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// defaults to 20.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT run_id, started_at, completed_at, status, exit_status, stages_json
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var stagesJSON string
	if err := row.Scan(&run.RunID, &run.StartedAt, &run.CompletedAt,
		&run.Status, &run.ExitStatus, &stagesJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stagesJSON), &run.Stages); err != nil {
		return nil, fmt.Errorf("run %s has a corrupt stage list: %w", run.RunID, err)
	}
	return &run, nil
}
