package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/medtrack/internal/common"
	"github.com/dmitrijs2005/medtrack/internal/localstore"
	"github.com/dmitrijs2005/medtrack/internal/logging"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/dmitrijs2005/medtrack/internal/tracker"
)

// memRemote is a minimal in-memory remote store for handler tests.
type memRemote struct {
	mu      sync.Mutex
	entries map[string]models.MedicationEntry
	names   []string
}

func newMemRemote() *memRemote {
	return &memRemote{
		entries: make(map[string]models.MedicationEntry),
		names:   models.DefaultCommonNames(),
	}
}

func (m *memRemote) Ping(ctx context.Context) error         { return nil }
func (m *memRemote) EnsureSchema(ctx context.Context) error { return nil }

func (m *memRemote) FetchAllEntries(ctx context.Context) ([]models.MedicationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.MedicationEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OccurredAt.After(result[j].OccurredAt) })
	return result, nil
}

func (m *memRemote) CreateEntry(ctx context.Context, entry models.MedicationEntry) (models.MedicationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" || models.IsPlaceholderID(entry.ID) {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.PendingSync = false
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *memRemote) UpdateEntry(ctx context.Context, id string, fields models.EntryFields) (models.MedicationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.entries[id]
	if !ok {
		return models.MedicationEntry{}, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
	}
	existing.Name = fields.Name
	existing.Quantity = fields.Quantity
	existing.OccurredAt = fields.OccurredAt
	existing.Notes = fields.Notes
	m.entries[id] = existing
	return existing, nil
}

func (m *memRemote) DeleteEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *memRemote) FetchCommonNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...), nil
}

func (m *memRemote) AddCommonName(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	for _, existing := range m.names {
		if strings.EqualFold(existing, name) {
			return false, nil
		}
	}
	m.names = append(m.names, name)
	return true, nil
}

func (m *memRemote) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]models.MedicationEntry)
	m.names = models.DefaultCommonNames()
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRemote) {
	t.Helper()

	cache, err := localstore.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	remote := newMemRemote()

	tr := tracker.New(remote, cache, logger, tracker.Config{})
	tr.Startup(context.Background())

	srv := httptest.NewServer(NewHandler(tr, logger).Routes())
	t.Cleanup(srv.Close)
	return srv, remote
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddAndListMedications(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", models.EntryFields{
		Name:       "Ibuprofeno",
		Quantity:   2,
		OccurredAt: time.Now().UTC(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.MedicationEntry](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.False(t, models.IsPlaceholderID(created.ID))
	assert.False(t, created.PendingSync)

	resp, err := http.Get(srv.URL + "/api/v1/medications")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]models.MedicationEntry](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Ibuprofeno", list[0].Name)
}

func TestAddMedication_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/medications", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddMedication_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", models.EntryFields{Name: "  ", Quantity: 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateMedication_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/medications/missing", models.EntryFields{
		Name:       "X",
		Quantity:   1,
		OccurredAt: time.Now().UTC(),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeleteMedication(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", models.EntryFields{
		Name:       "Tramadol",
		Quantity:   1,
		OccurredAt: time.Now().UTC(),
	})
	created := decodeBody[models.MedicationEntry](t, resp)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/medications/"+created.ID, models.EntryFields{
		Name:       "Tramadol",
		Quantity:   3,
		OccurredAt: created.OccurredAt,
		Notes:      "after lunch",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[models.MedicationEntry](t, resp)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "after lunch", updated.Notes)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/medications/"+created.ID, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/v1/medications")
	require.NoError(t, err)
	list := decodeBody[[]models.MedicationEntry](t, resp)
	assert.Empty(t, list)
}

func TestCommonMedications(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/common-medications")
	require.NoError(t, err)
	names := decodeBody[[]string](t, resp)
	assert.Contains(t, names, "Paracetamol")

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/common-medications", map[string]string{"name": "Omeprazol"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	names = decodeBody[[]string](t, resp)
	assert.Contains(t, names, "Omeprazol")
}

func TestStatusAndSync(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	state := decodeBody[models.SyncState](t, resp)
	assert.True(t, state.IsOnline)
	assert.Zero(t, state.PendingCount)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state = decodeBody[models.SyncState](t, resp)
	assert.Zero(t, state.PendingCount)
}

func TestCalendarView_InvalidMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/calendar/2025/13")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCalendarView(t *testing.T) {
	srv, _ := newTestServer(t)

	occurred := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", models.EntryFields{
		Name:       "Naproxeno",
		Quantity:   1,
		OccurredAt: occurred,
	})
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/calendar/2025/3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buckets := decodeBody[map[string][]models.MedicationEntry](t, resp)
	require.Len(t, buckets, 1)
	for day, entries := range buckets {
		assert.Equal(t, "2025-03-15", day)
		require.Len(t, entries, 1)
	}
}

func TestExport(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "medicamentos_")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestClearData(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", models.EntryFields{
		Name:       "Aspirina",
		Quantity:   1,
		OccurredAt: time.Now().UTC(),
	})
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/data", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/v1/medications")
	require.NoError(t, err)
	list := decodeBody[[]models.MedicationEntry](t, resp)
	assert.Empty(t, list)
}

func TestListMedications_Filters(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, e := range []models.EntryFields{
		{Name: "Ibuprofeno", Quantity: 1, OccurredAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
		{Name: "Paracetamol", Quantity: 1, OccurredAt: time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/medications", e)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/v1/medications?q=ibu")
	require.NoError(t, err)
	list := decodeBody[[]models.MedicationEntry](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Ibuprofeno", list[0].Name)

	resp, err = http.Get(srv.URL + "/api/v1/medications?from=2025-04-01&to=2025-04-30")
	require.NoError(t, err)
	list = decodeBody[[]models.MedicationEntry](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Paracetamol", list[0].Name)

	resp, err = http.Get(srv.URL + "/api/v1/medications?from=not-a-date")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
