package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

// Service wraps a Store and guarantees the collection exists before any
// read or write reaches the backend. Initialization happens at most
// once per process on the first operation; concurrent callers block
// until the winner finishes. A failed initialization is retried on the
// next operation rather than being cached.
type Service struct {
	store Store

	mu          sync.Mutex
	initialized bool
}

// NewService wraps store with lazy collection initialization.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) ensureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := s.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("initializing collection: %w", err)
	}
	s.initialized = true
	return nil
}

// AddDocuments appends documents to the collection, creating it first
// if needed.
func (s *Service) AddDocuments(ctx context.Context, docs []Document) ([]string, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return s.store.AddDocuments(ctx, docs)
}

// Search runs a similarity search, creating the collection first if
// needed so a search before any ingestion returns empty results rather
// than a missing-collection error.
func (s *Service) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return s.store.Search(ctx, query, k)
}

// Info returns collection metadata.
func (s *Service) Info(ctx context.Context) (*CollectionInfo, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return s.store.Info(ctx)
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
