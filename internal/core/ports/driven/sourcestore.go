package driven

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// SourceStore persists the source tracker's ledger as a single snapshot.
type SourceStore interface {
	// Load returns the persisted ledger.
	// Returns an empty ledger, not an error, if nothing has been saved yet.
	Load(ctx context.Context) (*domain.SourceLedger, error)

	// Save replaces the persisted ledger.
	Save(ctx context.Context, ledger *domain.SourceLedger) error

	// Location describes where the ledger lives.
	Location() string
}
