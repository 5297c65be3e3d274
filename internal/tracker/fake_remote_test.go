package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/common"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/google/uuid"
)

// fakeRemote is an in-memory remote.Client with switchable failure modes.
type fakeRemote struct {
	mu sync.Mutex

	entries map[string]models.MedicationEntry
	usage   map[string]int // keyed by lowercased name; value is usage count
	display map[string]string

	unreachable  bool
	failCreateAt int // fail the nth create call (1-based), 0 = never
	createCalls  int
	schemaCalls  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		entries: make(map[string]models.MedicationEntry),
		usage:   make(map[string]int),
		display: make(map[string]string),
	}
}

func (f *fakeRemote) seedDefaults() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range models.DefaultCommonNames() {
		key := strings.ToLower(name)
		f.usage[key] = 0
		f.display[key] = name
	}
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return fmt.Errorf("ping: %w", common.ErrorRemoteUnavailable)
	}
	return nil
}

func (f *fakeRemote) EnsureSchema(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaCalls++
	if f.unreachable {
		return fmt.Errorf("provision: %w", common.ErrorRemoteUnavailable)
	}
	return nil
}

func (f *fakeRemote) FetchAllEntries(ctx context.Context) ([]models.MedicationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return nil, fmt.Errorf("fetch: %w", common.ErrorRemoteUnavailable)
	}
	result := make([]models.MedicationEntry, 0, len(f.entries))
	for _, e := range f.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.After(result[j].OccurredAt) })
	return result, nil
}

func (f *fakeRemote) CreateEntry(ctx context.Context, entry models.MedicationEntry) (models.MedicationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.unreachable || (f.failCreateAt > 0 && f.createCalls == f.failCreateAt) {
		return models.MedicationEntry{}, fmt.Errorf("create: %w", common.ErrorRemoteUnavailable)
	}

	e := entry
	if e.ID == "" || models.IsPlaceholderID(e.ID) {
		e.ID = uuid.NewString()
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.PendingSync = false
	f.entries[e.ID] = e
	f.bumpUsageLocked(e.Name)
	return e, nil
}

func (f *fakeRemote) UpdateEntry(ctx context.Context, id string, fields models.EntryFields) (models.MedicationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return models.MedicationEntry{}, fmt.Errorf("update: %w", common.ErrorRemoteUnavailable)
	}
	existing, ok := f.entries[id]
	if !ok {
		return models.MedicationEntry{}, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	existing.Name = strings.TrimSpace(fields.Name)
	existing.Quantity = fields.Quantity
	existing.OccurredAt = fields.OccurredAt
	existing.Notes = fields.Notes
	f.entries[id] = existing
	f.bumpUsageLocked(existing.Name)
	return existing, nil
}

func (f *fakeRemote) DeleteEntry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return fmt.Errorf("delete: %w", common.ErrorRemoteUnavailable)
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeRemote) FetchCommonNames(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return models.DefaultCommonNames(), nil
	}
	type row struct {
		name  string
		usage int
	}
	rows := make([]row, 0, len(f.usage))
	for key, usage := range f.usage {
		rows = append(rows, row{name: f.display[key], usage: usage})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].usage != rows[j].usage {
			return rows[i].usage > rows[j].usage
		}
		return rows[i].name < rows[j].name
	})
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.name
	}
	return names, nil
}

func (f *fakeRemote) AddCommonName(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return false, fmt.Errorf("add common name: %w", common.ErrorRemoteUnavailable)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	key := strings.ToLower(name)
	if _, ok := f.usage[key]; ok {
		return false, nil
	}
	f.usage[key] = 0
	f.display[key] = name
	return true, nil
}

func (f *fakeRemote) ClearAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return fmt.Errorf("clear: %w", common.ErrorRemoteUnavailable)
	}
	f.entries = make(map[string]models.MedicationEntry)
	f.usage = make(map[string]int)
	f.display = make(map[string]string)
	for _, name := range models.DefaultCommonNames() {
		key := strings.ToLower(name)
		f.usage[key] = 0
		f.display[key] = name
	}
	return nil
}

func (f *fakeRemote) bumpUsageLocked(name string) {
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	f.usage[key]++
	if _, ok := f.display[key]; !ok {
		f.display[key] = name
	}
}

func (f *fakeRemote) setUnreachable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable = v
}

func (f *fakeRemote) entryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
