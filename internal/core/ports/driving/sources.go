package driving

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// SourceTracker deduplicates source URLs and links content to them.
type SourceTracker interface {
	// AddSource tracks url and returns its source ID. Re-adding a URL that
	// normalises to a tracked one returns the existing ID.
	AddSource(url, amcName, title string, sourceType domain.SourceType) string

	// LinkContentToSource records that contentID is backed by url.
	// Untracked URLs are ignored. Returns true if a new link was recorded.
	LinkContentToSource(contentID, url string) bool

	// GetSourceByURL returns the record for url, or nil.
	GetSourceByURL(url string) *domain.SourceRecord

	// GetSourceByID returns the record for id, or nil.
	GetSourceByID(id string) *domain.SourceRecord

	// GetSourcesForContent returns the sources backing contentID in link order.
	GetSourcesForContent(contentID string) []domain.SourceRecord

	// GetSourcesByAMC returns the sources for an AMC, ignoring case.
	GetSourcesByAMC(amcName string) []domain.SourceRecord

	// AllSources returns every source, or those of one type if sourceType is set.
	AllSources(sourceType domain.SourceType) []domain.SourceRecord

	// ValidateSource probes a source and records the outcome.
	ValidateSource(ctx context.Context, id string) bool

	// ValidateAll probes every unvalidated source. Returns the number accessible.
	ValidateAll(ctx context.Context) int

	// Statistics summarises the ledger.
	Statistics() domain.SourceStatistics

	// Save persists the ledger.
	Save(ctx context.Context) error

	// Load replaces in-memory state with the persisted ledger.
	Load(ctx context.Context) error

	// Reset forgets every source and link.
	Reset()
}
