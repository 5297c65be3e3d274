package localstore

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/medtrack/internal/common"
	"github.com/dmitrijs2005/medtrack/internal/models"
)

// Store is the typed cache layer over a Repository. It serializes each
// collection as one JSON payload.
//
// A payload that fails to parse is treated exactly like an absent collection:
// corrupt cached data degrades to "no cached data" and is never surfaced to
// the caller.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// LoadEntries returns the cached medication entries, or an empty slice when
// the collection is absent or unparseable.
func (s *Store) LoadEntries(ctx context.Context) ([]models.MedicationEntry, error) {
	payload, err := s.repo.Get(ctx, common.CollectionMedications)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return []models.MedicationEntry{}, nil
	}

	var entries []models.MedicationEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return []models.MedicationEntry{}, nil
	}
	return entries, nil
}

// SaveEntries overwrites the cached medication entries.
func (s *Store) SaveEntries(ctx context.Context, entries []models.MedicationEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, common.CollectionMedications, payload)
}

// LoadCommonNames returns the cached autocomplete names, or an empty slice
// when the collection is absent or unparseable.
func (s *Store) LoadCommonNames(ctx context.Context) ([]string, error) {
	payload, err := s.repo.Get(ctx, common.CollectionCommonNames)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return []string{}, nil
	}

	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return []string{}, nil
	}
	return names, nil
}

// SaveCommonNames overwrites the cached autocomplete names.
func (s *Store) SaveCommonNames(ctx context.Context, names []string) error {
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, common.CollectionCommonNames, payload)
}

// ClearEntries removes the medication collection.
func (s *Store) ClearEntries(ctx context.Context) error {
	return s.repo.Delete(ctx, common.CollectionMedications)
}

// ClearCommonNames removes the autocomplete collection.
func (s *Store) ClearCommonNames(ctx context.Context) error {
	return s.repo.Delete(ctx, common.CollectionCommonNames)
}
