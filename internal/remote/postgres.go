package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/common"
	"github.com/dmitrijs2005/medtrack/internal/dbx"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresClient implements Client over a *sql.DB pool. Writes that touch
// more than one table run inside a transaction via dbx.WithTx, so a failed
// side effect never leaves a partially applied write behind.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient constructs a client bound to the given pool.
func NewPostgresClient(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// Open opens a connection pool for the given pgx DSN and returns a client
// bound to it. The pool connects lazily; reachability is probed via Ping.
func Open(dsn string) (*PostgresClient, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open remote store: %w", err)
	}
	return NewPostgresClient(db), db, nil
}

// unavailable tags a collaborator failure with the RemoteUnavailable sentinel
// so callers can match the taxonomy with errors.Is.
func unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, common.ErrorRemoteUnavailable, err)
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return unavailable("ping failed", err)
	}
	return nil
}

func (c *PostgresClient) FetchAllEntries(ctx context.Context) ([]models.MedicationEntry, error) {
	query := `
		SELECT id, name, quantity, occurred_at, notes, created_at
		FROM medication_entries
		ORDER BY occurred_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("failed to select entries", err)
	}
	defer rows.Close()

	var result []models.MedicationEntry
	for rows.Next() {
		var item models.MedicationEntry
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.OccurredAt, &item.Notes, &item.CreatedAt); err != nil {
			return nil, unavailable("failed to scan entry", err)
		}
		item.OccurredAt = item.OccurredAt.UTC()
		item.CreatedAt = item.CreatedAt.UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate entries", err)
	}
	return result, nil
}

func (c *PostgresClient) CreateEntry(ctx context.Context, entry models.MedicationEntry) (models.MedicationEntry, error) {
	e := entry
	if e.ID == "" || models.IsPlaceholderID(e.ID) {
		e.ID = uuid.NewString()
	}
	e.Name = strings.TrimSpace(e.Name)
	e.OccurredAt = e.OccurredAt.UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}
	e.PendingSync = false

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			INSERT INTO medication_entries (id, name, quantity, occurred_at, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, e.ID, e.Name, e.Quantity, e.OccurredAt, e.Notes, e.CreatedAt); err != nil {
			return unavailable("failed to insert entry", err)
		}
		return bumpUsage(ctx, tx, e.Name)
	})
	if err != nil {
		return models.MedicationEntry{}, err
	}

	return e, nil
}

func (c *PostgresClient) UpdateEntry(ctx context.Context, id string, fields models.EntryFields) (models.MedicationEntry, error) {
	name := strings.TrimSpace(fields.Name)
	occurredAt := fields.OccurredAt.UTC()

	var createdAt time.Time
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			UPDATE medication_entries
			SET name = $1, quantity = $2, occurred_at = $3, notes = $4
			WHERE id = $5
			RETURNING created_at
		`
		err := tx.QueryRowContext(ctx, query, name, fields.Quantity, occurredAt, fields.Notes, id).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
		}
		if err != nil {
			return unavailable("failed to update entry", err)
		}
		return bumpUsage(ctx, tx, name)
	})
	if err != nil {
		return models.MedicationEntry{}, err
	}

	return models.MedicationEntry{
		ID:         id,
		Name:       name,
		Quantity:   fields.Quantity,
		OccurredAt: occurredAt,
		Notes:      fields.Notes,
		CreatedAt:  createdAt.UTC(),
	}, nil
}

func (c *PostgresClient) DeleteEntry(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM medication_entries WHERE id = $1`, id)
	if err != nil {
		return unavailable("failed to delete entry", err)
	}
	return nil
}

func (c *PostgresClient) FetchCommonNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name FROM common_medications
		ORDER BY usage_count DESC, name ASC
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		// Autocomplete degrades to the built-in list instead of failing.
		return models.DefaultCommonNames(), nil
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return models.DefaultCommonNames(), nil
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return models.DefaultCommonNames(), nil
	}
	return result, nil
}

func (c *PostgresClient) AddCommonName(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	return insertCommonName(ctx, c.db, name)
}

func (c *PostgresClient) ClearAll(ctx context.Context) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM medication_entries`); err != nil {
			return unavailable("failed to clear entries", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM common_medications`); err != nil {
			return unavailable("failed to clear common names", err)
		}
		// Wiping the table also wipes the seed; restore the default list so the
		// autocomplete never comes back empty.
		return seedCommonNames(ctx, tx)
	})
}

// insertCommonName adds name to the autocomplete list at usage 0 unless a
// case-insensitive match already exists.
func insertCommonName(ctx context.Context, db dbx.DBTX, name string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM common_medications WHERE lower(name) = lower($1))`, name).Scan(&exists)
	if err != nil {
		return false, unavailable("failed to check common name", err)
	}
	if exists {
		return false, nil
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO common_medications (id, name, usage_count, last_used_at)
		VALUES ($1, $2, 0, now())
	`, uuid.NewString(), name)
	if err != nil {
		return false, unavailable("failed to insert common name", err)
	}
	return true, nil
}

// bumpUsage increments the autocomplete usage counter for name, creating the
// row at usage 1 when absent.
func bumpUsage(ctx context.Context, db dbx.DBTX, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO common_medications (id, name, usage_count, last_used_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (lower(name)) DO UPDATE
		SET usage_count = common_medications.usage_count + 1, last_used_at = now()
	`, uuid.NewString(), name)
	if err != nil {
		return unavailable("failed to bump usage", err)
	}
	return nil
}
