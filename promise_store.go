// promise_store.go
// ----------------
// PromiseStore is the durable per-business queue of requests awaiting
// successful completion (§4.3, §6). Grounded on
// AnandSundar-go-idempotency__store.go and dejobratic-tbd__idempotency.go's
// Get/Save-by-key store contract shape.
package linkbridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/linkbridge/linkbridge/internal/sqlstore"
)

// PromiseStore is the process-wide singleton §4.4 describes.
type PromiseStore struct {
	mu          sync.Mutex
	db          *sqlstore.DB
	byBusiness  map[string][]*Request
	initialized bool
	log         *logrus.Entry
}

// NewPromiseStore builds a PromiseStore over db.
func NewPromiseStore(db *sqlstore.DB, log *logrus.Entry) *PromiseStore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PromiseStore{
		db:         db,
		byBusiness: make(map[string][]*Request),
		log:        log.WithField("component", "promise_store"),
	}
}

// Init opens the DB, loads all persisted records, groups them by business
// identifier, and rehydrates each into a Request, per §4.3.
func (s *PromiseStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.EnsurePromiseTable(); err != nil {
		return err
	}

	rows, err := s.db.ScanPromises()
	if err != nil {
		return fmt.Errorf("promise_store: scan: %w", err)
	}

	for _, row := range rows {
		req, err := deserializeRequest([]byte(row.Data))
		if err != nil {
			s.log.WithError(err).WithField("key", row.ID).Warn("dropping malformed promise row")
			continue
		}
		s.byBusiness[row.BusinessID] = append(s.byBusiness[row.BusinessID], req)
	}

	s.initialized = true
	s.log.WithField("businesses", len(s.byBusiness)).Info("promise store initialized")
	return nil
}

// Save appends request to its business's in-memory list (updating in place
// if its promise key is already present) and upserts the DB row keyed by
// promise key, per §4.3.
func (s *PromiseStore) Save(req *Request) error {
	if req.Promise.key == "" {
		return fmt.Errorf("promise_store: save: request has no promise key")
	}

	encoded, err := serializeRequest(req)
	if err != nil {
		return fmt.Errorf("promise_store: serialize %s: %w", req.Promise.key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrStoreNotInitialized
	}

	list := s.byBusiness[req.BusinessIdentifier]
	replaced := false
	for i, existing := range list {
		if existing.Promise.key == req.Promise.key {
			list[i] = req
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, req)
	}
	s.byBusiness[req.BusinessIdentifier] = list

	if err := s.db.UpsertPromise(sqlstore.PromiseRow{
		ID:         req.Promise.key,
		BusinessID: req.BusinessIdentifier,
		Path:       req.APIPath,
		Data:       string(encoded),
	}); err != nil {
		s.log.WithError(err).WithField("key", req.Promise.key).Warn("promise upsert failed, memory view remains authoritative")
	}
	return nil
}

// LoadBusinessRequests returns businessId's persisted Requests, in
// insertion order, optionally filtered to those whose apiPath is in paths
// (§4.3). An empty or absent paths returns everything.
func (s *PromiseStore) LoadBusinessRequests(businessID string, paths []string) []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}

	list := s.byBusiness[businessID]
	if len(paths) == 0 {
		out := make([]*Request, len(list))
		copy(out, list)
		return out
	}

	allowed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allowed[p] = struct{}{}
	}
	var out []*Request
	for _, req := range list {
		if _, ok := allowed[req.APIPath]; ok {
			out = append(out, req)
		}
	}
	return out
}

// Delete removes the entry matching promiseKey from businessId's list and
// from the DB, per §4.3.
func (s *PromiseStore) Delete(businessID, promiseKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrStoreNotInitialized
	}

	list := s.byBusiness[businessID]
	for i, req := range list {
		if req.Promise.key == promiseKey {
			s.byBusiness[businessID] = append(list[:i], list[i+1:]...)
			break
		}
	}

	if err := s.db.DeletePromise(promiseKey); err != nil {
		s.log.WithError(err).WithField("key", promiseKey).Warn("promise delete failed, memory view remains authoritative")
	}
	return nil
}

// Clear drops all in-memory lists and truncates the DB.
func (s *PromiseStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byBusiness = make(map[string][]*Request)
	if err := s.db.TruncatePromises(); err != nil {
		return fmt.Errorf("promise_store: truncate: %w", err)
	}
	return nil
}
