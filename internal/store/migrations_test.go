package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primerpal/internal/volume"
)

func TestMigrations_UpgradeV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE protocol_runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		path TEXT NOT NULL,
		style TEXT NOT NULL,
		api_level TEXT NOT NULL,
		sample_count INTEGER NOT NULL,
		total_water REAL NOT NULL,
		volumes_json TEXT NOT NULL
	)`)
	require.NoError(t, err)
	assert.Equal(t, 1, GetSchemaVersion(db))
	require.NoError(t, db.Close())

	s, err := NewHistoryStore(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, CurrentSchemaVersion, s.SchemaVersion())
	assert.True(t, columnExists(s.db, "protocol_runs", "checksum"))
	assert.True(t, columnExists(s.db, "protocol_runs", "bytes"))

	ctx := context.Background()
	rec, err := s.Record(ctx, Run{Path: "a.py", Style: "compact", APILevel: "2.22", Volumes: volume.NewMap(5), Checksum: "ff", Bytes: 12})
	require.NoError(t, err)
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ff", got.Checksum)
	assert.Equal(t, 12, got.Bytes)
}

func TestMigrations_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, RunMigrations(s.db))
	require.NoError(t, RunMigrations(s.db))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetSchemaVersion_Empty(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 0, GetSchemaVersion(db))
	assert.False(t, tableExists(db, "protocol_runs"))
}
