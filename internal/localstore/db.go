package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/medtrack/internal/localstore/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations sets up goose with the embedded migrations and applies them
// to the cache database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the cache database at dsn, applies migrations and
// returns a Store bound to it. The caller registers the sqlite driver
// (modernc.org/sqlite) with a blank import.
func InitDatabase(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer, and ":memory:" databases are private to
	// each connection, so the pool is pinned to one connection.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return NewStore(NewSQLiteRepository(db)), nil
}
