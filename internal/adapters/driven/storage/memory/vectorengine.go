package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// DefaultMaxBatchSize is the Upsert limit used when none is given.
const DefaultMaxBatchSize = 100

// Ensure VectorEngine implements the interface.
var _ driven.VectorEngine = (*VectorEngine)(nil)

// VectorEngine is a brute-force in-memory implementation of driven.VectorEngine.
type VectorEngine struct {
	mu         sync.RWMutex
	collection string
	maxBatch   int
	dims       int
	records    map[string]driven.VectorRecord
}

// NewVectorEngine creates an empty engine. A maxBatch of 0 uses the default.
func NewVectorEngine(collection string, maxBatch int) *VectorEngine {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &VectorEngine{
		collection: collection,
		maxBatch:   maxBatch,
		records:    make(map[string]driven.VectorRecord),
	}
}

// Upsert inserts or overwrites records by ID.
func (e *VectorEngine) Upsert(_ context.Context, records []driven.VectorRecord) error {
	if len(records) > e.maxBatch {
		return fmt.Errorf("batch of %d exceeds limit %d: %w", len(records), e.maxBatch, domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
		}
		if len(r.Embedding) > 0 {
			if e.dims == 0 {
				e.dims = len(r.Embedding)
			} else if len(r.Embedding) != e.dims {
				return fmt.Errorf("record %q has %d dimensions, collection has %d: %w",
					r.ID, len(r.Embedding), e.dims, domain.ErrInvalidInput)
			}
		}
	}

	for _, r := range records {
		e.records[r.ID] = copyRecord(r)
	}
	return nil
}

// Query returns the n nearest records to embedding.
func (e *VectorEngine) Query(
	_ context.Context,
	embedding []float32,
	n int,
	where map[string]any,
) ([]driven.VectorMatch, error) {
	if n <= 0 {
		return nil, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	matches := make([]driven.VectorMatch, 0, len(e.records))
	for _, r := range e.records {
		if len(r.Embedding) == 0 || !domain.MatchesFilter(r.Metadata, where) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			VectorRecord: copyRecord(r),
			Distance:     domain.CosineDistance(embedding, r.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// Get returns the records with the given IDs in request order.
func (e *VectorEngine) Get(_ context.Context, ids []string) ([]driven.VectorRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]driven.VectorRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := e.records[id]; ok {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

// Filter returns records matching where, ordered by ID.
func (e *VectorEngine) Filter(_ context.Context, where map[string]any, limit int) ([]driven.VectorRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.records))
	for id, r := range e.records {
		if domain.MatchesFilter(r.Metadata, where) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]driven.VectorRecord, len(ids))
	for i, id := range ids {
		out[i] = copyRecord(e.records[id])
	}
	return out, nil
}

// Count returns the number of stored records.
func (e *VectorEngine) Count(_ context.Context) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records), nil
}

// Reset removes every record.
func (e *VectorEngine) Reset(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = make(map[string]driven.VectorRecord)
	e.dims = 0
	return nil
}

// MaxBatchSize returns the Upsert limit.
func (e *VectorEngine) MaxBatchSize() int {
	return e.maxBatch
}

// SupportsWhere returns true.
func (e *VectorEngine) SupportsWhere() bool {
	return true
}

// Info describes the engine.
func (e *VectorEngine) Info() driven.EngineInfo {
	return driven.EngineInfo{Engine: "memory", Collection: e.collection, Location: ":memory:"}
}

// Close is a no-op.
func (e *VectorEngine) Close() error {
	return nil
}

func copyRecord(r driven.VectorRecord) driven.VectorRecord {
	out := driven.VectorRecord{ID: r.ID, Document: r.Document}
	if r.Embedding != nil {
		out.Embedding = append([]float32(nil), r.Embedding...)
	}
	out.Metadata = make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		out.Metadata[k] = v
	}
	return out
}
