// Package store persists the history of generated protocol scripts in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"primerpal/internal/logging"
	"primerpal/internal/volume"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("protocol run not found")

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 20

// Run is one generated script.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Path        string
	Style       string
	APILevel    string
	SampleCount int
	TotalWater  float64 // µL
	Volumes     volume.Map
	Checksum    string
	Bytes       int
}

// HistoryStore records protocol runs in the protocol_runs table.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewHistoryStore opens (creating if needed) the database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; keeps concurrent Record calls off SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("history store opened: %s", path)
	return s, nil
}

func (s *HistoryStore) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS protocol_runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		path TEXT NOT NULL,
		style TEXT NOT NULL,
		api_level TEXT NOT NULL,
		sample_count INTEGER NOT NULL,
		total_water REAL NOT NULL,
		volumes_json TEXT NOT NULL,
		checksum TEXT,
		bytes INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON protocol_runs(created_at);
	`
	if _, err := s.db.Exec(runsTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return RunMigrations(s.db)
}

// Path returns the database file path.
func (s *HistoryStore) Path() string { return s.dbPath }

// SchemaVersion reports the schema version of the open database.
func (s *HistoryStore) SchemaVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GetSchemaVersion(s.db)
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Record inserts run and returns it with ID and CreatedAt filled in when
// they were empty.
func (s *HistoryStore) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.SampleCount == 0 {
		run.SampleCount = run.Volumes.Len()
	}

	volumesJSON, err := json.Marshal(run.Volumes)
	if err != nil {
		return run, fmt.Errorf("failed to encode volumes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO protocol_runs (id, created_at, path, style, api_level, sample_count, total_water, volumes_json, checksum, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Path, run.Style, run.APILevel,
		run.SampleCount, run.TotalWater, string(volumesJSON), run.Checksum, run.Bytes,
	)
	if err != nil {
		return run, fmt.Errorf("failed to record run: %w", err)
	}
	logging.Get(logging.CategoryStore).Debug("recorded run %s (%d samples) -> %s", run.ID, run.SampleCount, run.Path)
	return run, nil
}

const selectRuns = `SELECT id, created_at, path, style, api_level, sample_count, total_water, volumes_json, checksum, bytes
	FROM protocol_runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		createdAt   int64
		volumesJSON string
		checksum    sql.NullString
	)
	if err := row.Scan(&run.ID, &createdAt, &run.Path, &run.Style, &run.APILevel,
		&run.SampleCount, &run.TotalWater, &volumesJSON, &checksum, &run.Bytes); err != nil {
		return run, err
	}
	run.CreatedAt = time.Unix(0, createdAt)
	run.Checksum = checksum.String
	if err := json.Unmarshal([]byte(volumesJSON), &run.Volumes); err != nil {
		return run, fmt.Errorf("failed to decode volumes of run %s: %w", run.ID, err)
	}
	return run, nil
}

// Get returns the run with the given id.
func (s *HistoryStore) Get(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the number of recorded runs.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM protocol_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
