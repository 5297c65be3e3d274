package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaceholderID(t *testing.T) {
	a := NewPlaceholderID()
	b := NewPlaceholderID()

	assert.True(t, IsPlaceholderID(a))
	assert.True(t, IsPlaceholderID(b))
	assert.NotEqual(t, a, b)
}

func TestIsPlaceholderID(t *testing.T) {
	assert.True(t, IsPlaceholderID("offline_123"))
	assert.False(t, IsPlaceholderID("c8c9a3f0-2a40-4f7c-9a06-3c2e8f9f14a1"))
	assert.False(t, IsPlaceholderID(""))
}

func TestMedicationEntry_JSONPendingSync(t *testing.T) {
	e := MedicationEntry{
		ID:         "id1",
		Name:       "Ibuprofeno",
		Quantity:   2,
		OccurredAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	// synced entries must not leak a pendingSync field
	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "pendingSync")

	e.PendingSync = true
	b, err = json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pendingSync":true`)
}

func TestDefaultCommonNames(t *testing.T) {
	names := DefaultCommonNames()
	require.Len(t, names, 10)
	assert.Equal(t, "Paracetamol", names[0])

	// callers may mutate the returned slice without affecting later calls
	names[0] = strings.ToUpper(names[0])
	assert.Equal(t, "Paracetamol", DefaultCommonNames()[0])
}

func TestMedicationEntry_Fields(t *testing.T) {
	e := MedicationEntry{
		ID:         "id1",
		Name:       "Tramadol",
		Quantity:   1,
		OccurredAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Notes:      "after breakfast",
		CreatedAt:  time.Now().UTC(),
	}
	f := e.Fields()
	assert.Equal(t, EntryFields{
		Name:       "Tramadol",
		Quantity:   1,
		OccurredAt: e.OccurredAt,
		Notes:      "after breakfast",
	}, f)
}
