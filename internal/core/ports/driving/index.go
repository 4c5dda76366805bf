package driving

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// VectorIndex persists embedded chunks and answers similarity queries.
type VectorIndex interface {
	// AddChunks stores chunks, overwriting any with the same ID.
	// Returns the number of chunks written.
	AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Query returns the closest chunks to the request, best first.
	Query(ctx context.Context, req domain.QueryRequest) ([]domain.QueryResult, error)

	// GetByID returns stored records by chunk ID.
	GetByID(ctx context.Context, ids []string) ([]domain.StoredRecord, error)

	// FilterByMetadata returns stored records matching where exactly.
	FilterByMetadata(ctx context.Context, where map[string]any, limit int) ([]domain.StoredRecord, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset removes every stored chunk.
	Reset(ctx context.Context) error

	// CollectionInfo describes the collection.
	CollectionInfo(ctx context.Context) (domain.CollectionInfo, error)
}
