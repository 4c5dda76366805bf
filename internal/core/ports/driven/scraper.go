package driven

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// Scraper fetches source pages.
//
// Per-URL failures do not abort the scrape: successful documents are
// returned alongside an errors.Join of the individual failures.
type Scraper interface {
	// Scrape fetches every configured URL.
	Scrape(ctx context.Context) ([]domain.ScrapedDocument, error)

	// URLCount returns how many URLs a Scrape call will attempt.
	URLCount() int
}

// Cleaner turns a scraped page into plain text plus extracted facts.
type Cleaner interface {
	// Clean processes one document.
	// Returns domain.ErrContentTooShort for pages with too little text.
	Clean(ctx context.Context, doc domain.ScrapedDocument) (*domain.ProcessedDocument, error)
}

// URLProber checks that a URL is reachable without fetching its content.
type URLProber interface {
	// Probe returns nil if the URL answered with a success status.
	Probe(ctx context.Context, url string) error
}
