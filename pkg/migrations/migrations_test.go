package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS item (id TEXT PRIMARY KEY);`

func TestOpenAndMigrateDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	db, err := OpenAndMigrateDB(testSchema, path)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO item (id) VALUES ('216502')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// reapplying the schema keeps existing rows
	db, err = OpenAndMigrateDB(testSchema, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM item").Scan(&count))
	require.Equal(t, 1, count)
}

func TestIsRemote(t *testing.T) {
	require.True(t, IsRemote("libsql://siiau.turso.io"))
	require.True(t, IsRemote("https://siiau.turso.io?authToken=x"))
	require.False(t, IsRemote(":memory:"))
	require.False(t, IsRemote("<dev_state>/subscriptions.db"))
}
