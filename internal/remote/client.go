// Package remote implements the data-access client for the hosted table
// service: CRUD over the medication entries table plus autocomplete usage
// tracking, backed by PostgreSQL through the pgx stdlib driver.
package remote

import (
	"context"

	"github.com/dmitrijs2005/medtrack/internal/models"
)

// Client is the remote store surface the synchronization controller works
// against. The PostgreSQL implementation lives in this package; tests use
// in-memory fakes.
type Client interface {
	// Ping reports whether the remote store is reachable.
	Ping(ctx context.Context) error

	// EnsureSchema provisions the backing tables if they do not exist yet,
	// creating permissive access policies and seeding the default
	// autocomplete list when the table was just created. Safe to repeat.
	EnsureSchema(ctx context.Context) error

	// FetchAllEntries returns every entry, newest occurred-at first.
	FetchAllEntries(ctx context.Context) ([]models.MedicationEntry, error)

	// CreateEntry inserts an entry, assigning an id when the given one is
	// absent or device-local, and echoes back the normalized record. The
	// autocomplete usage count for the entry name is bumped as a side effect.
	CreateEntry(ctx context.Context, entry models.MedicationEntry) (models.MedicationEntry, error)

	// UpdateEntry overwrites the mutable fields of an existing entry.
	// Returns common.ErrorNotFound when the id is unknown remotely.
	UpdateEntry(ctx context.Context, id string, fields models.EntryFields) (models.MedicationEntry, error)

	// DeleteEntry removes an entry. Deleting an unknown id is not an error.
	DeleteEntry(ctx context.Context, id string) error

	// FetchCommonNames returns autocomplete names ordered by usage count
	// descending then name ascending. On failure it degrades to the built-in
	// default list instead of propagating the error.
	FetchCommonNames(ctx context.Context) ([]string, error)

	// AddCommonName inserts a name with usage 0. Returns false without error
	// when the name already exists case-insensitively.
	AddCommonName(ctx context.Context, name string) (bool, error)

	// ClearAll deletes every entry and every autocomplete row, then re-seeds
	// the default autocomplete list at usage zero.
	ClearAll(ctx context.Context) error
}
