package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used as the test fake and for
// ephemeral runs where durability is not wanted. All methods are
// mutex-guarded; batches are atomic because the lock is held for the
// whole Put.
type MemoryStore struct {
	mu sync.RWMutex

	// order preserves insertion order of record keys so repeated scans are
	// deterministic, which keeps stable-ranking behaviour reproducible.
	order   []recordKey
	records map[recordKey]Record

	docs map[string]Document
}

// recordKey is the upsert key of a chunk record.
type recordKey struct {
	chunkID string
	vendor  Vendor
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]Record),
		docs:    make(map[string]Document),
	}
}

// Put upserts the batch under a single lock acquisition.
func (s *MemoryStore) Put(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		key := recordKey{chunkID: rec.Chunk.ID, vendor: rec.Vendor}
		if _, exists := s.records[key]; !exists {
			s.order = append(s.order, key)
		}
		s.records[key] = rec
	}
	return nil
}

// QueryByVendor returns every record tagged with the given vendor in
// insertion order.
func (s *MemoryStore) QueryByVendor(_ context.Context, vendor Vendor) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, key := range s.order {
		if key.vendor == vendor {
			out = append(out, s.records[key])
		}
	}
	return out, nil
}

// DeleteByDocument removes every record belonging to the document across
// all vendors. A no-op when the document has no records.
func (s *MemoryStore) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.order[:0]
	for _, key := range s.order {
		if s.records[key].Chunk.DocumentID == documentID {
			delete(s.records, key)
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// SaveDocument inserts or replaces a document by ID.
func (s *MemoryStore) SaveDocument(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	s.docs[doc.ID] = doc
	return nil
}

// GetDocument returns the document with the given ID.
func (s *MemoryStore) GetDocument(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *MemoryStore) ListDocuments(_ context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	// Creation-time ordering; ties broken by ID for determinism.
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// DeleteDocument removes the document registration. Idempotent.
func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

var _ Store = (*MemoryStore)(nil)
