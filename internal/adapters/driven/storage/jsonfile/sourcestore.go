package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// SourceFileName is the ledger file written inside the output directory.
const SourceFileName = "source_tracking.json"

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore keeps the source ledger in one JSON document.
type SourceStore struct {
	mu   sync.Mutex
	path string
}

// NewSourceStore creates a store writing to path.
func NewSourceStore(path string) *SourceStore {
	return &SourceStore{path: path}
}

// Load reads the ledger. A missing file yields an empty ledger.
func (s *SourceStore) Load(_ context.Context) (*domain.SourceLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewSourceLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading source ledger: %w", err)
	}

	ledger := domain.NewSourceLedger()
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil, fmt.Errorf("parsing %s: %w: %w", s.path, domain.ErrInvalidArtifact, err)
	}

	// Older or hand-edited files may omit a section.
	if ledger.Sources == nil {
		ledger.Sources = make(map[string]domain.SourceRecord)
	}
	if ledger.URLToID == nil {
		ledger.URLToID = make(map[string]string)
	}
	if ledger.ContentToSources == nil {
		ledger.ContentToSources = make(map[string][]string)
	}
	return ledger, nil
}

// Save replaces the ledger file.
func (s *SourceStore) Save(_ context.Context, ledger *domain.SourceLedger) error {
	if ledger == nil {
		return fmt.Errorf("saving ledger: %w", domain.ErrInvalidInput)
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding source ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

// Location returns the ledger file path.
func (s *SourceStore) Location() string {
	return s.path
}
