package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS eval_runs (
	run_id        TEXT PRIMARY KEY,
	model_dir     TEXT NOT NULL,
	restore_file  TEXT NOT NULL,
	data_dir      TEXT NOT NULL,
	split         TEXT NOT NULL,
	model_type    TEXT,
	num_steps     INTEGER NOT NULL,
	loss          REAL NOT NULL,
	metrics_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS eval_runs_restore ON eval_runs (restore_file, created_at);
`

// #endregion schema

// #region store-struct
// Store keeps the evaluation history of a model directory in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region record
// Record inserts run, filling RunID and CreatedAt when unset.
func (s *Store) Record(run Run) (Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return Run{}, fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO eval_runs (run_id, model_dir, restore_file, data_dir, split, model_type, num_steps, loss, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ModelDir, run.RestoreFile, run.DataDir, run.Split,
		nullIfEmpty(run.ModelType), run.NumSteps, run.Loss, string(metricsJSON),
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// #endregion record

// #region get
// Get retrieves a run by ID.
func (s *Store) Get(id string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_dir, restore_file, data_dir, split, model_type, num_steps, loss, metrics_json, created_at
		 FROM eval_runs WHERE run_id = ?`, id,
	)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// #endregion get

// #region list
// List returns the most recent runs, newest first. An empty restoreFile
// matches every checkpoint.
func (s *Store) List(restoreFile string, limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, model_dir, restore_file, data_dir, split, model_type, num_steps, loss, metrics_json, created_at
		 FROM eval_runs WHERE (? = '' OR restore_file = ?)
		 ORDER BY created_at DESC LIMIT ?`, restoreFile, restoreFile, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// #endregion list

// #region helpers
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var modelType sql.NullString
	var metricsJSON, createdStr string

	if err := sc.Scan(&run.RunID, &run.ModelDir, &run.RestoreFile, &run.DataDir, &run.Split,
		&modelType, &run.NumSteps, &run.Loss, &metricsJSON, &createdStr); err != nil {
		return Run{}, err
	}
	if modelType.Valid {
		run.ModelType = modelType.String
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return Run{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	created, err := time.Parse(timeLayout, createdStr)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = created
	return run, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
