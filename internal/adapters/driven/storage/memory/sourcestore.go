package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
// It keeps a private copy of the last saved ledger.
type SourceStore struct {
	mu     sync.RWMutex
	ledger *domain.SourceLedger
	saves  int
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{}
}

// Load returns a copy of the last saved ledger, or an empty one.
func (s *SourceStore) Load(_ context.Context) (*domain.SourceLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ledger == nil {
		return domain.NewSourceLedger(), nil
	}
	return s.ledger.Clone(), nil
}

// Save replaces the stored ledger.
func (s *SourceStore) Save(_ context.Context, ledger *domain.SourceLedger) error {
	if ledger == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = ledger.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *SourceStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Location returns the store location.
func (s *SourceStore) Location() string {
	return ":memory:"
}
