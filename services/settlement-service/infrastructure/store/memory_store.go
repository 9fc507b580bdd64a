package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
)

// Store operations, as passed to a FailureFunc
const (
	OpGet   = "get"
	OpPut   = "put"
	OpQuery = "query"
)

// FailureFunc lets tests make individual store calls fail
type FailureFunc func(op, collection, key string) error

// MemoryStore is an in-process DocumentStore. Documents are deep-copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]repository.Document
	failure     FailureFunc
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]repository.Document),
	}
}

// SetFailureFunc installs (or with nil removes) a failure hook
func (s *MemoryStore) SetFailureFunc(fn FailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = fn
}

func (s *MemoryStore) fail(op, collection, key string) error {
	if s.failure == nil {
		return nil
	}
	return s.failure(op, collection, key)
}

// Get implements repository.DocumentStore
func (s *MemoryStore) Get(ctx context.Context, collection, key string) (repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fail(OpGet, collection, key); err != nil {
		return nil, err
	}

	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return cloneDocument(doc), nil
}

// Put implements repository.DocumentStore
func (s *MemoryStore) Put(ctx context.Context, collection, key string, doc repository.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail(OpPut, collection, key); err != nil {
		return err
	}

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]repository.Document)
	}
	s.collections[collection][key] = cloneDocument(doc)
	return nil
}

// Query implements repository.DocumentStore. Values compare by their
// string form; results are ordered by key.
func (s *MemoryStore) Query(ctx context.Context, collection, field string, value interface{}) ([]repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fail(OpQuery, collection, ""); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(s.collections[collection]))
	for key := range s.collections[collection] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	want := fmt.Sprint(value)
	results := []repository.Document{}
	for _, key := range keys {
		doc := s.collections[collection][key]
		if got, ok := doc[field]; ok && fmt.Sprint(got) == want {
			results = append(results, cloneDocument(doc))
		}
	}
	return results, nil
}

// Ping implements repository.HealthChecker
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of documents in a collection
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func cloneDocument(doc repository.Document) repository.Document {
	if doc == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(doc)).(map[string]interface{})
}

func cloneValue(value interface{}) interface{} {
	switch v := value.(type) {
	case repository.Document:
		return cloneValue(map[string]interface{}(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[key] = cloneValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
