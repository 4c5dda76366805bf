package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure SourceTracker implements the interface.
var _ driving.SourceTracker = (*SourceTracker)(nil)

// SourceTracker deduplicates source URLs and records which content each
// source backs. It is safe for concurrent use.
type SourceTracker struct {
	mu       sync.RWMutex
	store    driven.SourceStore
	prober   driven.URLProber
	classify func(url string) domain.SourceType
	now      func() time.Time
	ledger   *domain.SourceLedger
}

// TrackerOption configures a SourceTracker.
type TrackerOption func(*SourceTracker)

// WithProber sets the reachability prober used by validation.
// Without one every validated source is marked inaccessible.
func WithProber(p driven.URLProber) TrackerOption {
	return func(t *SourceTracker) {
		t.prober = p
	}
}

// WithClassifier sets how a source type is inferred when AddSource is
// called without one.
func WithClassifier(fn func(url string) domain.SourceType) TrackerOption {
	return func(t *SourceTracker) {
		if fn != nil {
			t.classify = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) TrackerOption {
	return func(t *SourceTracker) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewSourceTracker creates an empty tracker. store may be nil, in which
// case Save and Load return domain.ErrNotConfigured.
func NewSourceTracker(store driven.SourceStore, opts ...TrackerOption) *SourceTracker {
	t := &SourceTracker{
		store:    store,
		classify: domain.DefaultCatalog().ClassifyURL,
		now:      time.Now,
		ledger:   domain.NewSourceLedger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddSource tracks url and returns its ID. An empty URL is not tracked and
// yields "". An invalid sourceType is replaced by the classifier's guess.
func (t *SourceTracker) AddSource(url, amcName, title string, sourceType domain.SourceType) string {
	norm := domain.NormalizeURL(url)
	if norm == "" {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ledger.URLToID[norm]; ok {
		return id
	}

	if !sourceType.IsValid() {
		sourceType = t.classify(url)
	}

	id := domain.SourceIDFor(url)
	t.ledger.Sources[id] = domain.SourceRecord{
		ID:          id,
		URL:         strings.TrimSpace(url),
		AMCName:     amcName,
		Title:       title,
		Type:        sourceType,
		Domain:      domain.URLHost(url),
		FirstSeenAt: t.now(),
	}
	t.ledger.URLToID[norm] = id
	return id
}

// LinkContentToSource records contentID against the source for url.
func (t *SourceTracker) LinkContentToSource(contentID, url string) bool {
	if contentID == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.ledger.URLToID[domain.NormalizeURL(url)]
	if !ok {
		return false
	}
	for _, existing := range t.ledger.ContentToSources[contentID] {
		if existing == id {
			return false
		}
	}
	t.ledger.ContentToSources[contentID] = append(t.ledger.ContentToSources[contentID], id)
	return true
}

// GetSourceByURL returns the record for url, or nil.
func (t *SourceTracker) GetSourceByURL(url string) *domain.SourceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.ledger.URLToID[domain.NormalizeURL(url)]
	if !ok {
		return nil
	}
	return t.recordLocked(id)
}

// GetSourceByID returns the record for id, or nil.
func (t *SourceTracker) GetSourceByID(id string) *domain.SourceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recordLocked(id)
}

// GetSourcesForContent returns the sources linked to contentID in link order.
func (t *SourceTracker) GetSourcesForContent(contentID string) []domain.SourceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := t.ledger.ContentToSources[contentID]
	out := make([]domain.SourceRecord, 0, len(ids))
	for _, id := range ids {
		if rec := t.recordLocked(id); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// GetSourcesByAMC returns the sources for amcName, ignoring case.
func (t *SourceTracker) GetSourcesByAMC(amcName string) []domain.SourceRecord {
	return t.collect(func(r domain.SourceRecord) bool {
		return strings.EqualFold(strings.TrimSpace(r.AMCName), strings.TrimSpace(amcName))
	})
}

// AllSources returns every source, or only those of sourceType when it is set.
func (t *SourceTracker) AllSources(sourceType domain.SourceType) []domain.SourceRecord {
	return t.collect(func(r domain.SourceRecord) bool {
		return sourceType == "" || r.Type == sourceType
	})
}

// ValidateSource probes the source and records the outcome.
// Unknown IDs return false without side effects.
func (t *SourceTracker) ValidateSource(ctx context.Context, id string) bool {
	rec := t.GetSourceByID(id)
	if rec == nil {
		return false
	}

	accessible := false
	if t.prober != nil {
		if err := t.prober.Probe(ctx, rec.URL); err != nil {
			logger.Debug("source %s not accessible: %v", rec.URL, err)
		} else {
			accessible = true
		}
	}

	validatedAt := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	// The source may have been reset while probing.
	current, ok := t.ledger.Sources[id]
	if !ok {
		return false
	}
	current.Validated = true
	current.IsAccessible = &accessible
	current.ValidatedAt = &validatedAt
	t.ledger.Sources[id] = current
	return accessible
}

// ValidateAll probes every source that has not been validated yet and
// returns how many of them are accessible.
func (t *SourceTracker) ValidateAll(ctx context.Context) int {
	pending := t.collect(func(r domain.SourceRecord) bool { return !r.Validated })

	accessible := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			logger.Warn("source validation interrupted: %v", ctx.Err())
			break
		}
		if t.ValidateSource(ctx, rec.ID) {
			accessible++
		}
	}
	logger.Debug("validated %d sources, %d accessible", len(pending), accessible)
	return accessible
}

// Statistics summarises the ledger.
func (t *SourceTracker) Statistics() domain.SourceStatistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := domain.SourceStatistics{
		TotalSources:  len(t.ledger.Sources),
		SourcesByType: make(map[domain.SourceType]int),
	}
	amcs := make(map[string]struct{})
	for _, r := range t.ledger.Sources {
		stats.SourcesByType[r.Type]++
		if r.AMCName != "" {
			amcs[strings.ToLower(r.AMCName)] = struct{}{}
		}
		if r.Validated {
			stats.ValidatedSources++
		}
		if r.Accessible() {
			stats.AccessibleSources++
		}
	}
	stats.UniqueAMCs = len(amcs)
	for _, ids := range t.ledger.ContentToSources {
		stats.TotalContentLinks += len(ids)
	}
	return stats
}

// Save persists a snapshot of the ledger.
func (t *SourceTracker) Save(ctx context.Context) error {
	if t.store == nil {
		return domain.ErrNotConfigured
	}
	t.mu.RLock()
	snapshot := t.ledger.Clone()
	t.mu.RUnlock()

	return t.store.Save(ctx, snapshot)
}

// Load replaces in-memory state with the persisted ledger. The URL index is
// rebuilt from the records, and links to unknown sources are dropped.
func (t *SourceTracker) Load(ctx context.Context) error {
	if t.store == nil {
		return domain.ErrNotConfigured
	}
	persisted, err := t.store.Load(ctx)
	if err != nil {
		return err
	}

	ledger := domain.NewSourceLedger()
	if persisted != nil {
		for id, rec := range persisted.Sources {
			rec.ID = id
			ledger.Sources[id] = rec
			ledger.URLToID[domain.NormalizeURL(rec.URL)] = id
		}
		for contentID, ids := range persisted.ContentToSources {
			kept := make([]string, 0, len(ids))
			seen := make(map[string]struct{}, len(ids))
			for _, id := range ids {
				if _, ok := ledger.Sources[id]; !ok {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				kept = append(kept, id)
			}
			if len(kept) > 0 {
				ledger.ContentToSources[contentID] = kept
			}
		}
	}

	t.mu.Lock()
	t.ledger = ledger
	t.mu.Unlock()
	return nil
}

// Reset forgets every source and link.
func (t *SourceTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ledger = domain.NewSourceLedger()
}

func (t *SourceTracker) recordLocked(id string) *domain.SourceRecord {
	rec, ok := t.ledger.Sources[id]
	if !ok {
		return nil
	}
	return &rec
}

// collect returns matching records ordered by first sighting, then ID.
func (t *SourceTracker) collect(keep func(domain.SourceRecord) bool) []domain.SourceRecord {
	t.mu.RLock()
	out := make([]domain.SourceRecord, 0, len(t.ledger.Sources))
	for _, r := range t.ledger.Sources {
		if keep(r) {
			out = append(out, r)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeenAt.Equal(out[j].FirstSeenAt) {
			return out[i].FirstSeenAt.Before(out[j].FirstSeenAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
