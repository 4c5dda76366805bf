package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure VectorIndex implements the interface.
var _ driving.VectorIndex = (*VectorIndex)(nil)

// DefaultQueryResults is used when a query asks for no explicit count.
const DefaultQueryResults = 5

// Suffixes and prefixes used when flattening nested metadata.
const (
	jsonFieldSuffix = "_json"
	infoFieldPrefix = "info_"
)

// VectorIndex stores embedded chunks in a VectorEngine and answers queries.
type VectorIndex struct {
	engine   driven.VectorEngine
	embedder driven.EmbeddingService
}

// NewVectorIndex creates an index over engine. embedder may be nil, in
// which case queries must carry an explicit embedding.
func NewVectorIndex(engine driven.VectorEngine, embedder driven.EmbeddingService) *VectorIndex {
	return &VectorIndex{
		engine:   engine,
		embedder: embedder,
	}
}

// AddChunks validates chunks and upserts them in engine-sized batches.
// Repeated IDs within one call collapse to the last occurrence.
func (v *VectorIndex) AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if v.engine == nil {
		return 0, domain.ErrVectorIndexUnavailable
	}

	records := make([]driven.VectorRecord, 0, len(chunks))
	position := make(map[string]int, len(chunks))
	for _, c := range chunks {
		if err := c.ValidateForStorage(); err != nil {
			return 0, err
		}
		rec := driven.VectorRecord{
			ID:        c.ID,
			Document:  c.Content,
			Embedding: c.Embedding,
			Metadata:  PrepareMetadata(c),
		}
		if i, seen := position[c.ID]; seen {
			records[i] = rec
			continue
		}
		position[c.ID] = len(records)
		records = append(records, rec)
	}

	size := v.engine.MaxBatchSize()
	if size <= 0 {
		size = len(records)
	}

	written := 0
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		if err := v.engine.Upsert(ctx, records[start:end]); err != nil {
			return written, fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err)
		}
		written += end - start
		logger.Debug("stored %d/%d chunks", written, len(records))
	}
	return written, nil
}

// Query embeds the request text when no embedding is supplied and returns
// the nearest chunks, best first.
func (v *VectorIndex) Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryResult, error) {
	if v.engine == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	n := req.NResults
	if n <= 0 {
		n = DefaultQueryResults
	}

	embedding := req.Embedding
	if len(embedding) == 0 {
		if v.embedder == nil {
			return nil, domain.ErrEmbeddingUnavailable
		}
		if req.Text == "" {
			return nil, fmt.Errorf("query has neither text nor embedding: %w", domain.ErrInvalidInput)
		}
		vec, err := v.embedder.Embed(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		embedding = vec
	}

	var matches []driven.VectorMatch
	var err error
	if len(req.Where) == 0 || v.engine.SupportsWhere() {
		matches, err = v.engine.Query(ctx, embedding, n, req.Where)
	} else {
		matches, err = v.postFilteredQuery(ctx, embedding, n, req.Where)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vector engine: %w", err)
	}

	results := make([]domain.QueryResult, len(matches))
	for i, m := range matches {
		results[i] = domain.QueryResult{
			ChunkID:  m.ID,
			Content:  m.Document,
			Metadata: m.Metadata,
			Distance: m.Distance,
			Score:    1 - m.Distance,
		}
	}
	return results, nil
}

// postFilteredQuery ranks the whole collection and applies where locally.
func (v *VectorIndex) postFilteredQuery(
	ctx context.Context,
	embedding []float32,
	n int,
	where map[string]any,
) ([]driven.VectorMatch, error) {
	total, err := v.engine.Count(ctx)
	if err != nil {
		return nil, err
	}
	all, err := v.engine.Query(ctx, embedding, total, nil)
	if err != nil {
		return nil, err
	}
	out := make([]driven.VectorMatch, 0, n)
	for _, m := range all {
		if domain.MatchesFilter(m.Metadata, where) {
			out = append(out, m)
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}

// GetByID returns stored records in request order. Unknown IDs are skipped.
func (v *VectorIndex) GetByID(ctx context.Context, ids []string) ([]domain.StoredRecord, error) {
	if v.engine == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	recs, err := v.engine.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	return toStored(recs), nil
}

// FilterByMetadata returns up to limit records whose metadata equals where.
func (v *VectorIndex) FilterByMetadata(ctx context.Context, where map[string]any, limit int) ([]domain.StoredRecord, error) {
	if v.engine == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	recs, err := v.engine.Filter(ctx, where, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to filter records: %w", err)
	}
	return toStored(recs), nil
}

// Count returns the number of stored chunks.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	if v.engine == nil {
		return 0, domain.ErrVectorIndexUnavailable
	}
	return v.engine.Count(ctx)
}

// Reset removes every stored chunk.
func (v *VectorIndex) Reset(ctx context.Context) error {
	if v.engine == nil {
		return domain.ErrVectorIndexUnavailable
	}
	if err := v.engine.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return nil
}

// CollectionInfo describes the collection.
func (v *VectorIndex) CollectionInfo(ctx context.Context) (domain.CollectionInfo, error) {
	if v.engine == nil {
		return domain.CollectionInfo{}, domain.ErrVectorIndexUnavailable
	}
	count, err := v.engine.Count(ctx)
	if err != nil {
		return domain.CollectionInfo{}, err
	}
	info := v.engine.Info()
	return domain.CollectionInfo{
		Name:     info.Collection,
		Count:    count,
		Location: info.Location,
		Engine:   info.Engine,
	}, nil
}

// PrepareMetadata flattens a chunk's metadata for a store that only accepts
// scalars. Scalars pass through. Structured facts are kept whole as
// structured_info_json and also exposed as info_<field> when scalar.
// Any other nested value is stored as <key>_json.
func PrepareMetadata(c domain.Chunk) map[string]any {
	out := make(map[string]any, len(c.Metadata)+6)

	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := c.Metadata[k]
		if k == domain.MetaStructuredInfo {
			if info, ok := val.(map[string]any); ok {
				for field, fv := range info {
					if s, ok := scalar(fv); ok {
						out[infoFieldPrefix+field] = s
					}
				}
			}
		}
		if s, ok := scalar(val); ok {
			out[k] = s
			continue
		}
		if val == nil {
			continue
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			logger.Warn("dropping metadata %q on chunk %s: %v", k, c.ID, err)
			continue
		}
		out[k+jsonFieldSuffix] = string(encoded)
	}

	out[domain.MetaSourceURL] = c.SourceURL
	out[domain.MetaChunkIndex] = int64(c.Index)
	out[domain.MetaContentLength] = int64(len([]rune(c.Content)))
	if c.EmbeddingModel != "" {
		out[domain.MetaEmbeddingModel] = c.EmbeddingModel
	}
	if c.PlatformURL != "" {
		out[domain.MetaPlatformURL] = c.PlatformURL
	}
	return out
}

// scalar normalises v to string, bool, int64 or float64.
func scalar(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float32:
		return float64(x), true
	default:
		return nil, false
	}
}

func toStored(recs []driven.VectorRecord) []domain.StoredRecord {
	out := make([]domain.StoredRecord, len(recs))
	for i, r := range recs {
		out[i] = domain.StoredRecord{ID: r.ID, Content: r.Document, Metadata: r.Metadata}
	}
	return out
}
