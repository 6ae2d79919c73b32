package localdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MemoryHasSchema(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"users", "cards", "review_logs", "sync_queue", "sync_rejects", "sync_parked_rows", "metadata"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_FileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexisync.db")
	ctx := context.Background()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO metadata (key, value) VALUES ('k', 'v')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var v string
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = 'k'`).Scan(&v))
	assert.Equal(t, "v", v)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?"+connParams, dsn(":memory:"))
	assert.Equal(t, "file:/tmp/a.db?"+connParams, dsn("/tmp/a.db"))
	assert.Equal(t, "file:/tmp/a.db?mode=rwc&"+connParams, dsn("/tmp/a.db?mode=rwc"))
}

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "lexisync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// No idle connections: every query below runs on a fresh connection.
	db.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var fk, timeout int
		require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
		require.NoError(t, db.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
		assert.Equal(t, 1, fk)
		assert.Equal(t, 5000, timeout)
	}
}
