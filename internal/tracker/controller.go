// Package tracker implements the synchronization controller: it owns the
// in-memory medication collections for the session, decides whether reads and
// writes go through the remote store or the on-device cache, and reconciles
// pending offline writes when connectivity returns.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/localstore"
	"github.com/dmitrijs2005/medtrack/internal/logging"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/dmitrijs2005/medtrack/internal/remote"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/medtrack/internal/common"
)

// DefaultResyncAfter is how stale the last successful load may be before a
// connectivity transition to online triggers a full reload.
const DefaultResyncAfter = 5 * time.Minute

// Config carries controller tuning. Zero values select the defaults.
type Config struct {
	// ResyncAfter overrides DefaultResyncAfter.
	ResyncAfter time.Duration

	// SelfProvision makes the controller run remote schema provisioning once
	// per session. Deployments that run the migrate command leave this off.
	SelfProvision bool
}

// Controller serializes all data operations behind one mutex, so effects on
// the in-memory collections apply atomically relative to each other. The
// online flag is the only state touched by connectivity notifications, which
// arrive from outside the operation flow.
type Controller struct {
	remote remote.Client
	cache  *localstore.Store
	logger logging.Logger

	resyncAfter   time.Duration
	selfProvision bool

	online      atomic.Bool
	loading     atomic.Bool
	provisioned atomic.Bool

	mu          sync.Mutex
	entries     []models.MedicationEntry
	commonNames []string
	lastSync    time.Time
	lastErr     string

	now func() time.Time
}

func New(client remote.Client, cache *localstore.Store, logger logging.Logger, cfg Config) *Controller {
	resyncAfter := cfg.ResyncAfter
	if resyncAfter <= 0 {
		resyncAfter = DefaultResyncAfter
	}
	return &Controller{
		remote:        client,
		cache:         cache,
		logger:        logger,
		resyncAfter:   resyncAfter,
		selfProvision: cfg.SelfProvision,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Startup probes connectivity, provisions the remote schema when configured
// to, and performs the initial load. Provisioning failure leaves the
// controller usable in a degraded state; data operations surface their own
// errors.
func (c *Controller) Startup(ctx context.Context) {
	online := c.remote.Ping(ctx) == nil
	c.online.Store(online)

	if online && c.selfProvision {
		c.provision(ctx)
	}

	if err := c.Load(ctx); err != nil {
		c.logger.Warn(ctx, "initial load failed", "error", err)
	}
}

func (c *Controller) provision(ctx context.Context) {
	if c.provisioned.Load() {
		return
	}
	if err := c.remote.EnsureSchema(ctx); err != nil {
		c.logger.Error(ctx, "schema provisioning failed", "error", err)
		c.mu.Lock()
		c.lastErr = fmt.Sprintf("error initializing database tables: %v", err)
		c.mu.Unlock()
		return
	}
	c.provisioned.Store(true)
}

// HandleConnectivityChange records the new online state. On the transition to
// online it provisions the schema if still needed and reloads when the last
// successful sync is older than the resync window.
func (c *Controller) HandleConnectivityChange(ctx context.Context, online bool) {
	was := c.online.Swap(online)
	if was == online {
		return
	}
	c.logger.Info(ctx, "connectivity changed", "online", online)

	if !online {
		return
	}

	if c.selfProvision {
		c.provision(ctx)
	}

	c.mu.Lock()
	stale := c.lastSync.IsZero() || c.now().Sub(c.lastSync) > c.resyncAfter
	c.mu.Unlock()

	if stale {
		// Replaying pending writes first keeps offline-created entries from
		// being clobbered by the reload; with nothing pending this is exactly
		// a full load.
		if err := c.SyncPendingChanges(ctx); err != nil {
			c.logger.Warn(ctx, "resync after reconnect failed", "error", err)
		}
	}
}

// IsOnline reports the current connectivity state.
func (c *Controller) IsOnline() bool {
	return c.online.Load()
}

// State returns the queryable session state for persistent UI signals.
func (c *Controller) State() models.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.SyncState{
		IsOnline: c.online.Load(),
		Loading:  c.loading.Load(),
		Error:    c.lastErr,
	}
	if !c.lastSync.IsZero() {
		t := c.lastSync
		s.LastSyncAt = &t
	}
	for _, e := range c.entries {
		if e.PendingSync {
			s.PendingCount++
		}
	}
	return s
}

// Medications returns a snapshot of the in-memory entry list.
func (c *Controller) Medications() []models.MedicationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.MedicationEntry(nil), c.entries...)
}

// CommonMedications returns a snapshot of the autocomplete names.
func (c *Controller) CommonMedications() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commonNames...)
}

// GetMedicationByID returns the entry with the given id from the snapshot.
func (c *Controller) GetMedicationByID(id string) (models.MedicationEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.MedicationEntry{}, false
}

// Load replaces the in-memory state: from the remote store when online (with
// write-through to the cache), from the cache when offline. A failed remote
// fetch leaves the previous good state effectively intact by falling back to
// the cache, and keeps the failure recorded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Controller) loadLocked(ctx context.Context) error {
	c.loading.Store(true)
	defer c.loading.Store(false)

	if !c.online.Load() {
		c.loadLocalLocked(ctx)
		return nil
	}

	var (
		entries []models.MedicationEntry
		names   []string
	)
	// Entries and common names do not depend on each other; fetch them as
	// independent tasks and join before touching state.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = c.remote.FetchAllEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = c.remote.FetchCommonNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.lastErr = fmt.Sprintf("error loading data: %v", err)
		c.logger.Error(ctx, "remote load failed, falling back to cache", "error", err)
		c.loadLocalLocked(ctx)
		return err
	}

	if entries == nil {
		entries = []models.MedicationEntry{}
	}
	c.entries = entries
	c.commonNames = names
	c.lastSync = c.now()
	c.lastErr = ""

	c.mirrorEntriesLocked(ctx)
	c.mirrorCommonNamesLocked(ctx)
	return nil
}

// loadLocalLocked loads both collections from the cache. An empty common-name
// collection is seeded with the default list and the seed is persisted.
// Cache failures degrade to empty data and are never surfaced.
func (c *Controller) loadLocalLocked(ctx context.Context) {
	entries, err := c.cache.LoadEntries(ctx)
	if err != nil {
		c.logger.Warn(ctx, "cache read failed, starting empty", "error", err)
		entries = []models.MedicationEntry{}
	}
	c.entries = entries

	names, err := c.cache.LoadCommonNames(ctx)
	if err != nil {
		c.logger.Warn(ctx, "cache read failed, starting empty", "error", err)
		names = nil
	}
	if len(names) == 0 {
		names = models.DefaultCommonNames()
		if err := c.cache.SaveCommonNames(ctx, names); err != nil {
			c.logger.Warn(ctx, "failed to persist default common names", "error", err)
		}
	}
	c.commonNames = names
}

// AddMedication records a dose. Online it goes through the remote store;
// offline it synthesizes a placeholder entry marked for later sync. The new
// entry is prepended and mirrored to the cache on either path.
func (c *Controller) AddMedication(ctx context.Context, fields models.EntryFields) (models.MedicationEntry, error) {
	fields, err := normalizeFields(fields, c.now())
	if err != nil {
		return models.MedicationEntry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Store(true)
	defer c.loading.Store(false)

	var entry models.MedicationEntry
	if c.online.Load() {
		entry, err = c.remote.CreateEntry(ctx, models.MedicationEntry{
			Name:       fields.Name,
			Quantity:   fields.Quantity,
			OccurredAt: fields.OccurredAt,
			Notes:      fields.Notes,
			CreatedAt:  c.now(),
		})
		if err != nil {
			c.lastErr = fmt.Sprintf("error adding medication: %v", err)
			return models.MedicationEntry{}, err
		}
	} else {
		entry = models.MedicationEntry{
			ID:          models.NewPlaceholderID(),
			Name:        fields.Name,
			Quantity:    fields.Quantity,
			OccurredAt:  fields.OccurredAt,
			Notes:       fields.Notes,
			CreatedAt:   c.now(),
			PendingSync: true,
		}
	}

	c.entries = append([]models.MedicationEntry{entry}, c.entries...)
	c.lastErr = ""
	c.mirrorEntriesLocked(ctx)
	return entry, nil
}

// UpdateMedication rewrites the mutable fields of an entry. Online the write
// goes through the remote store first and a missing id surfaces NotFound with
// memory unchanged. Offline the fields are merged into the matching entry and
// it is marked pending; an unknown id is a silent no-op returning the zero
// entry.
func (c *Controller) UpdateMedication(ctx context.Context, id string, fields models.EntryFields) (models.MedicationEntry, error) {
	fields, err := normalizeFields(fields, c.now())
	if err != nil {
		return models.MedicationEntry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Store(true)
	defer c.loading.Store(false)

	var entry models.MedicationEntry
	if c.online.Load() {
		entry, err = c.remote.UpdateEntry(ctx, id, fields)
		if err != nil {
			c.lastErr = fmt.Sprintf("error updating medication: %v", err)
			return models.MedicationEntry{}, err
		}
		c.replaceEntryLocked(entry)
	} else {
		matched := false
		for i := range c.entries {
			if c.entries[i].ID == id {
				entry = models.MedicationEntry{
					ID:          id,
					Name:        fields.Name,
					Quantity:    fields.Quantity,
					OccurredAt:  fields.OccurredAt,
					Notes:       fields.Notes,
					CreatedAt:   c.entries[i].CreatedAt,
					PendingSync: true,
				}
				c.entries[i] = entry
				matched = true
				break
			}
		}
		if !matched {
			// Nothing to merge into; do not fabricate a record.
			return models.MedicationEntry{}, nil
		}
	}

	c.lastErr = ""
	c.mirrorEntriesLocked(ctx)
	return entry, nil
}

func (c *Controller) replaceEntryLocked(entry models.MedicationEntry) {
	for i := range c.entries {
		if c.entries[i].ID == entry.ID {
			c.entries[i] = entry
			return
		}
	}
}

// DeleteMedication removes an entry. Online the remote delete runs first;
// once it succeeds (or is skipped offline) the entry is removed from memory
// and cache unconditionally. Offline deletes are locally final: there is no
// pending-delete tracking, so they are never replayed to the remote store.
func (c *Controller) DeleteMedication(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Store(true)
	defer c.loading.Store(false)

	if c.online.Load() {
		if err := c.remote.DeleteEntry(ctx, id); err != nil {
			c.lastErr = fmt.Sprintf("error deleting medication: %v", err)
			return err
		}
	}

	kept := c.entries[:0:0]
	for _, e := range c.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	c.lastErr = ""
	c.mirrorEntriesLocked(ctx)
	return nil
}

// AddToCommonMedications registers a name for autocomplete. Duplicate names
// are skipped case-insensitively. Online the in-memory list is only updated
// when the remote store reports the insert succeeded; offline the update is
// unconditional. New names join the end of the list: they carry zero usage,
// and the canonical usage ordering is restored by the next remote load.
func (c *Controller) AddToCommonMedications(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.commonNames {
		if strings.EqualFold(existing, name) {
			return nil
		}
	}

	if c.online.Load() {
		added, err := c.remote.AddCommonName(ctx, name)
		if err != nil {
			c.lastErr = fmt.Sprintf("error adding common medication: %v", err)
			return err
		}
		if !added {
			return nil
		}
	}

	c.commonNames = append(c.commonNames, name)
	c.lastErr = ""
	c.mirrorCommonNamesLocked(ctx)
	return nil
}

// SyncPendingChanges replays offline writes to the remote store: entries with
// placeholder ids are created (the server assigns fresh ids), the rest are
// updated. The first failure aborts the remainder without rolling back what
// already synced; partial sync stays visible through PendingCount. A trailing
// full load reconciles memory with the server's view.
func (c *Controller) SyncPendingChanges(ctx context.Context) error {
	if !c.online.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Store(true)
	defer c.loading.Store(false)

	for _, e := range c.entries {
		if !e.PendingSync {
			continue
		}

		var err error
		if models.IsPlaceholderID(e.ID) {
			create := e
			create.ID = ""
			create.PendingSync = false
			_, err = c.remote.CreateEntry(ctx, create)
		} else {
			_, err = c.remote.UpdateEntry(ctx, e.ID, e.Fields())
		}
		if err != nil {
			c.lastErr = fmt.Sprintf("error syncing changes: %v", err)
			return err
		}
	}

	return c.loadLocked(ctx)
}

// ExportData serializes the in-memory entry list as pretty-printed JSON. It
// is a pure snapshot: stored state is not touched, and pending-sync markers
// appear as held in memory.
func (c *Controller) ExportData() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.entries
	if entries == nil {
		entries = []models.MedicationEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ClearAllData wipes both collections. The cache keys are cleared first on
// either path; online the remote store is wiped too and the common names are
// reloaded from it (degrading to the default list on failure).
func (c *Controller) ClearAllData(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Store(true)
	defer c.loading.Store(false)

	if err := c.cache.ClearEntries(ctx); err != nil {
		c.logger.Warn(ctx, "failed to clear cached entries", "error", err)
	}
	if err := c.cache.ClearCommonNames(ctx); err != nil {
		c.logger.Warn(ctx, "failed to clear cached common names", "error", err)
	}

	if c.online.Load() {
		if err := c.remote.ClearAll(ctx); err != nil {
			c.lastErr = fmt.Sprintf("error clearing data: %v", err)
			return err
		}
		c.entries = []models.MedicationEntry{}

		names, err := c.remote.FetchCommonNames(ctx)
		if err != nil {
			names = models.DefaultCommonNames()
		}
		c.commonNames = names
	} else {
		c.entries = []models.MedicationEntry{}
		c.commonNames = models.DefaultCommonNames()
	}

	c.lastErr = ""
	c.mirrorCommonNamesLocked(ctx)
	return nil
}

func (c *Controller) mirrorEntriesLocked(ctx context.Context) {
	if err := c.cache.SaveEntries(ctx, c.entries); err != nil {
		c.logger.Warn(ctx, "failed to mirror entries to cache", "error", err)
	}
}

func (c *Controller) mirrorCommonNamesLocked(ctx context.Context) {
	if err := c.cache.SaveCommonNames(ctx, c.commonNames); err != nil {
		c.logger.Warn(ctx, "failed to mirror common names to cache", "error", err)
	}
}

func normalizeFields(fields models.EntryFields, now time.Time) (models.EntryFields, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	if fields.Name == "" {
		return fields, fmt.Errorf("name is required: %w", common.ErrorValidation)
	}
	if fields.Quantity <= 0 {
		return fields, fmt.Errorf("quantity must be positive: %w", common.ErrorValidation)
	}
	if fields.OccurredAt.IsZero() {
		fields.OccurredAt = now
	} else {
		fields.OccurredAt = fields.OccurredAt.UTC()
	}
	return fields, nil
}
