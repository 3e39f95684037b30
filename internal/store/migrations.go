package store

import (
	"database/sql"
	"fmt"

	"primerpal/internal/logging"
)

// Schema versions:
// v1: protocol_runs (id, created_at, path, style, api_level, sample_count, total_water, volumes_json)
// v2: checksum and bytes columns
const CurrentSchemaVersion = 2

// Migration adds one column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations bring older history databases up to the current columns.
var pendingMigrations = []Migration{
	{"protocol_runs", "checksum", "TEXT"},
	{"protocol_runs", "bytes", "INTEGER DEFAULT 0"},
}

// RunMigrations adds any missing columns and records the schema version.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	log := logging.Get(logging.CategoryStore)
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			log.Debug("table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	if recordedVersion(db) < CurrentSchemaVersion {
		if err := SetSchemaVersion(db, CurrentSchemaVersion); err != nil {
			return err
		}
	}
	log.Debug("schema migrations complete: applied=%d", applied)
	return nil
}

// columnExists checks a column via PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}

// recordedVersion returns the highest version in schema_versions, 0 if none.
func recordedVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err != nil {
		return 0
	}
	return int(version.Int64)
}

// GetSchemaVersion returns the recorded schema version, or infers it from
// the protocol_runs columns when none was recorded.
func GetSchemaVersion(db *sql.DB) int {
	if v := recordedVersion(db); v > 0 {
		return v
	}
	switch {
	case !tableExists(db, "protocol_runs"):
		return 0
	case columnExists(db, "protocol_runs", "checksum") && columnExists(db, "protocol_runs", "bytes"):
		return 2
	default:
		return 1
	}
}

// SetSchemaVersion records version in schema_versions.
func SetSchemaVersion(db *sql.DB, version int) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	_, err := db.Exec("INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		version, fmt.Sprintf("Migrated to schema version %d", version))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	logging.Store("schema version set to %d", version)
	return nil
}
