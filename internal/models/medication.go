// Package models defines the medication tracker data types shared by the
// local cache, the remote store client and the synchronization controller.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderIDPrefix marks ids generated on the device for entries created
// while offline. The remote store never issues ids with this prefix, so the
// controller can always tell an unsynced entry from a confirmed one.
const PlaceholderIDPrefix = "offline_"

// MedicationEntry is one recorded dose.
//
// OccurredAt and CreatedAt are stored and compared in UTC; presentation code
// converts to the reference timezone (see the datex package). PendingSync is
// true only for entries created or modified while offline and not yet
// confirmed by the remote store.
type MedicationEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	OccurredAt  time.Time `json:"occurredAt"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	PendingSync bool      `json:"pendingSync,omitempty"`
}

// EntryFields carries the mutable fields of an entry for create/update calls.
type EntryFields struct {
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt"`
	Notes      string    `json:"notes,omitempty"`
}

// Fields returns the mutable fields of e.
func (e MedicationEntry) Fields() EntryFields {
	return EntryFields{Name: e.Name, Quantity: e.Quantity, OccurredAt: e.OccurredAt, Notes: e.Notes}
}

// CommonMedication is an autocomplete candidate tracked by the remote store.
type CommonMedication struct {
	Name       string    `json:"name"`
	UsageCount int       `json:"usageCount"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// SyncState is the queryable session state exposed by the controller.
type SyncState struct {
	IsOnline     bool       `json:"isOnline"`
	Loading      bool       `json:"loading"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	Error        string     `json:"error,omitempty"`
	PendingCount int        `json:"pendingCount"`
}

// NewPlaceholderID generates a device-local id for an entry created offline.
func NewPlaceholderID() string {
	return PlaceholderIDPrefix + uuid.NewString()
}

// IsPlaceholderID reports whether id was generated on the device and is not
// yet known to the remote store.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderIDPrefix)
}

// DefaultCommonNames is the built-in analgesic list used to seed the
// autocomplete collection and as a fallback when the remote store cannot be
// reached.
func DefaultCommonNames() []string {
	return []string{
		"Paracetamol", "Ibuprofeno", "Aspirina", "Naproxeno", "Diclofenaco",
		"Ketorolaco", "Tramadol", "Codeína", "Metamizol", "Celecoxib",
	}
}
