package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medtrack/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the stored payload or nil if the collection was never written.
func (r *SQLiteRepository) Get(ctx context.Context, collection string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE name = ?`, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection[%s]: %w", collection, err)
	}
	return payload, nil
}

// Set overwrites the collection payload. The upsert is a single statement, so
// readers never observe a partial write.
func (r *SQLiteRepository) Set(ctx context.Context, collection string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, collection, payload)
	if err != nil {
		return fmt.Errorf("failed to set collection[%s]: %w", collection, err)
	}
	return nil
}

// Delete removes the collection entirely. Deleting a missing collection is
// not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, collection string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection)
	if err != nil {
		return fmt.Errorf("failed to delete collection[%s]: %w", collection, err)
	}
	return nil
}

// Clear removes every collection.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM collections`)
	if err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	return nil
}
