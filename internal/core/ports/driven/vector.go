package driven

import "context"

// VectorEngine is the physical vector store behind the vector index.
// It only accepts flat scalar metadata (string, bool, int64, float64).
type VectorEngine interface {
	// Upsert inserts or overwrites records by ID.
	// Callers never pass more than MaxBatchSize records at once.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns the n nearest records to embedding, closest first.
	// where is only passed when SupportsWhere returns true.
	Query(ctx context.Context, embedding []float32, n int, where map[string]any) ([]VectorMatch, error)

	// Get returns the records with the given IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]VectorRecord, error)

	// Filter returns up to limit records whose metadata matches where.
	// A limit of 0 means no limit.
	Filter(ctx context.Context, where map[string]any, limit int) ([]VectorRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset removes every record.
	Reset(ctx context.Context) error

	// MaxBatchSize is the largest Upsert the engine accepts in one call.
	MaxBatchSize() int

	// SupportsWhere reports whether Query can filter by metadata itself.
	SupportsWhere() bool

	// Info describes the engine for collection info.
	Info() EngineInfo

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored item.
type VectorRecord struct {
	// ID is the chunk ID.
	ID string

	// Document is the chunk text.
	Document string

	// Embedding is the stored vector. Engines may omit it on reads.
	Embedding []float32

	// Metadata holds flat scalar values only.
	Metadata map[string]any
}

// VectorMatch is a similarity search hit.
type VectorMatch struct {
	VectorRecord

	// Distance is the cosine distance (1 - cosine similarity).
	Distance float64
}

// EngineInfo describes a vector engine.
type EngineInfo struct {
	// Engine names the backend (memory, sqlite, pgvector).
	Engine string

	// Collection is the collection or table name.
	Collection string

	// Location is where the data lives (file path, DSN host, "memory").
	Location string
}
