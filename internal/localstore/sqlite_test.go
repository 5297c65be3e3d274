package localstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// ":memory:" databases are private to each pooled connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE collections (
  name TEXT PRIMARY KEY,
  payload BLOB NOT NULL,
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
	require.NoError(t, err)

	return db
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	payload, err := r.Get(ctx, "medications")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestSQLiteRepository_SetOverwrites(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "medications", []byte(`[1]`)))
	require.NoError(t, r.Set(ctx, "medications", []byte(`[1,2]`)))

	payload, err := r.Get(ctx, "medications")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2]`), payload)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "medications", []byte(`[]`)))
	require.NoError(t, r.Delete(ctx, "medications"))

	payload, err := r.Get(ctx, "medications")
	require.NoError(t, err)
	assert.Nil(t, payload)

	// deleting an absent collection is not an error
	require.NoError(t, r.Delete(ctx, "medications"))
}

func TestSQLiteRepository_Clear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "medications", []byte(`[]`)))
	require.NoError(t, r.Set(ctx, "common_medications", []byte(`[]`)))
	require.NoError(t, r.Clear(ctx))

	for _, c := range []string{"medications", "common_medications"} {
		payload, err := r.Get(ctx, c)
		require.NoError(t, err)
		assert.Nil(t, payload)
	}
}
