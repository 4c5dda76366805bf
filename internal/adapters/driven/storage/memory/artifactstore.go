package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is an in-memory implementation of driven.ArtifactStore.
type ArtifactStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		blobs: make(map[string][]byte),
	}
}

// Put stores a copy of data under name.
func (s *ArtifactStore) Put(_ context.Context, name string, data []byte) error {
	if name == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the artifact.
func (s *ArtifactStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrArtifactMissing)
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether name has been written.
func (s *ArtifactStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[name]
	return ok, nil
}

// Names returns the stored artifact names in no particular order.
func (s *ArtifactStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.blobs))
	for n := range s.blobs {
		names = append(names, n)
	}
	return names
}

// Location returns the store location.
func (s *ArtifactStore) Location() string {
	return ":memory:"
}
