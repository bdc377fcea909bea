// Package store persists run tracking for the AST pipeline: one row per run
// plus per-stage progress and recorded errors, in a local sqlite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ast-pipeline/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open connects to the database and creates the schema if needed.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT,
			config TEXT,
			status TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			error_message TEXT,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stage_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			stage TEXT,
			status TEXT,
			rows INTEGER,
			started_at DATETIME,
			ended_at DATETIME
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create run store schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun records a new pipeline run.
func (s *Store) SaveRun(runID string, cfg model.RunConfig) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO runs (id, project, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, cfg.Project, string(cfgJSON), "pending", now, now)
	return err
}

// UpdateRunStatus moves a run to a new status.
func (s *Store) UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunError records a failure for a run.
func (s *Store) SaveRunError(runID, stage string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO run_errors (run_id, stage, error_message, created_at) VALUES (?, ?, ?, ?)`,
		runID, stage, runErr.Error(), now)
	return err
}

// SaveStageProgress records a stage transition.
func (s *Store) SaveStageProgress(runID, stage, status string, rows int, startedAt time.Time, endedAt *time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO stage_progress (run_id, stage, status, rows, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, status, rows, startedAt, endedAt)
	return err
}

// RunInfo is the stored summary of a run.
type RunInfo struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, project, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Project, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun fetches one run with its full configuration.
func (s *Store) GetRun(runID string) (RunInfo, model.RunConfig, error) {
	var (
		info    RunInfo
		cfgJSON string
		cfg     model.RunConfig
	)
	err := s.db.QueryRow(
		`SELECT id, project, config, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&info.ID, &info.Project, &cfgJSON, &info.Status, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return info, cfg, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return info, cfg, err
	}
	return info, cfg, nil
}

// RunError is one recorded failure.
type RunError struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListRunErrors returns a run's recorded errors, oldest first.
func (s *Store) ListRunErrors(runID string) ([]RunError, error) {
	rows, err := s.db.Query(
		`SELECT stage, error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunError
	for rows.Next() {
		var e RunError
		if err := rows.Scan(&e.Stage, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// StageRecord is one stored stage transition.
type StageRecord struct {
	Stage     string     `json:"stage"`
	Status    string     `json:"status"`
	Rows      int        `json:"rows"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// ListStageProgress returns a run's stage transitions, oldest first.
func (s *Store) ListStageProgress(runID string) ([]StageRecord, error) {
	rows, err := s.db.Query(
		`SELECT stage, status, rows, started_at, ended_at FROM stage_progress WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var r StageRecord
		if err := rows.Scan(&r.Stage, &r.Status, &r.Rows, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
