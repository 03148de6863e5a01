// cache_store.go
// --------------
// CacheStore is the two-tier (LRU + pinned) response cache backed by a
// durable SQL table (§4.2, §6). Grounded on
// jonesrussell-north-cloud__cache_entry.go's CacheEntry/metadata shape and
// l0p7-PassCtrl/internal/runtime/cache's Lookup/Store contract split from
// its backend — there Redis, here SQL per §6.
package linkbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linkbridge/linkbridge/internal/sqlstore"
	"github.com/linkbridge/linkbridge/internal/timeutil"
)

// CacheEntry is §3's cache entry value object.
type CacheEntry struct {
	Key       string
	Data      map[string]any
	IsLRU     bool
	CreatedAt time.Time
	Duration  *time.Duration
}

// Expired reports whether the entry's TTL has elapsed, per §3.
func (e *CacheEntry) Expired() bool {
	if e.Duration == nil {
		return false
	}
	return time.Now().After(e.CreatedAt.Add(*e.Duration))
}

// CacheStore is the process-wide singleton §4.4/§9 describes.
type CacheStore struct {
	mu          sync.Mutex
	db          *sqlstore.DB
	lru         *LRU[string, *CacheEntry]
	pinned      map[string]*CacheEntry
	initialized bool
	log         *logrus.Entry
}

// NewCacheStore builds a CacheStore over db with the given LRU tier
// capacity (§4.2 defaults this to 100 at the call site, not here).
func NewCacheStore(db *sqlstore.DB, lruCapacity int, log *logrus.Entry) *CacheStore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	store := &CacheStore{
		db:     db,
		pinned: make(map[string]*CacheEntry),
		log:    log.WithField("component", "cache_store"),
	}
	store.lru = NewLRU[string, *CacheEntry](lruCapacity, store.onEvict)
	return store
}

// onEvict is the LRU tier's eviction callback: it deletes the DB row for
// the evicted entry, keeping memory and DB coherent per §4.2's durability
// invariant. DB errors are swallowed and logged, per §4.6.
func (s *CacheStore) onEvict(entry *CacheEntry) {
	if err := s.db.DeleteCache(entry.Key); err != nil {
		s.log.WithError(err).WithField("key", entry.Key).Warn("evicted cache row could not be deleted")
	}
}

// Init opens the DB (already open by construction) and populates both
// tiers by scanning all rows, one query per tier. Public ops are a
// no-op/none before this completes, per §4.2.
func (s *CacheStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.EnsureCacheTable(); err != nil {
		return err
	}

	lruRows, err := s.db.ScanCache(true)
	if err != nil {
		return fmt.Errorf("cache_store: scan lru tier: %w", err)
	}
	for _, row := range lruRows {
		entry, err := rowToEntry(row)
		if err != nil {
			s.log.WithError(err).WithField("key", row.ID).Warn("dropping malformed cache row")
			continue
		}
		s.lru.Put(entry.Key, entry)
	}

	pinnedRows, err := s.db.ScanCache(false)
	if err != nil {
		return fmt.Errorf("cache_store: scan pinned tier: %w", err)
	}
	for _, row := range pinnedRows {
		entry, err := rowToEntry(row)
		if err != nil {
			s.log.WithError(err).WithField("key", row.ID).Warn("dropping malformed cache row")
			continue
		}
		s.pinned[entry.Key] = entry
	}

	s.initialized = true
	s.log.WithFields(logrus.Fields{"lru": len(lruRows), "pinned": len(pinnedRows)}).Info("cache store initialized")
	return nil
}

// Save creates an entry with createdAt = now, writes it to the selected
// tier, and upserts the DB row (§4.2). Cross-tier moves are unsupported —
// tier identity is treated as immutable per key, per §9 open question (ii).
func (s *CacheStore) Save(key string, data map[string]any, duration *time.Duration, useLRU bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}

	entry := &CacheEntry{Key: key, Data: data, IsLRU: useLRU, CreatedAt: time.Now(), Duration: duration}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache_store: encode data for %s: %w", key, err)
	}
	row := sqlstore.CacheRow{
		ID:         key,
		Data:       string(encoded),
		IsLRU:      useLRU,
		CreateTime: timeutil.FormatISO8601(entry.CreatedAt),
	}
	if duration != nil {
		secs := int64(duration.Seconds())
		row.Duration = &secs
	}
	if err := s.db.UpsertCache(row); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache upsert failed, memory view remains authoritative")
	}

	if useLRU {
		s.lru.Put(key, entry)
	} else {
		s.pinned[key] = entry
	}
	return nil
}

// Load looks up key in the selected tier. An expired hit is removed and
// reported as a miss; a live hit on the LRU tier updates recency order.
func (s *CacheStore) Load(key string, useLRU bool) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, false
	}

	if useLRU {
		entry, ok := s.lru.Get(key)
		if !ok {
			return nil, false
		}
		if entry.Expired() {
			s.lru.Remove(key)
			s.deleteRow(key)
			return nil, false
		}
		return entry.Data, true
	}

	entry, ok := s.pinned[key]
	if !ok {
		return nil, false
	}
	if entry.Expired() {
		delete(s.pinned, key)
		s.deleteRow(key)
		return nil, false
	}
	return entry.Data, true
}

func (s *CacheStore) deleteRow(key string) {
	if err := s.db.DeleteCache(key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("expired cache row could not be deleted")
	}
}

// Clear truncates both tiers and the DB.
func (s *CacheStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Clear()
	s.pinned = make(map[string]*CacheEntry)
	if err := s.db.TruncateCache(); err != nil {
		return fmt.Errorf("cache_store: truncate: %w", err)
	}
	return nil
}

func rowToEntry(row sqlstore.CacheRow) (*CacheEntry, error) {
	data, err := decodeJSONObject([]byte(row.Data))
	if err != nil {
		return nil, err
	}
	createdAt, err := timeutil.ParseISO8601(row.CreateTime)
	if err != nil {
		return nil, err
	}
	entry := &CacheEntry{Key: row.ID, Data: data, IsLRU: row.IsLRU, CreatedAt: createdAt}
	if row.Duration != nil {
		d := time.Duration(*row.Duration) * time.Second
		entry.Duration = &d
	}
	return entry, nil
}
