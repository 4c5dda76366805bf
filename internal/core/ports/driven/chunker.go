package driven

import "github.com/custodia-labs/fundlink/internal/core/domain"

// Chunker splits text into retrievable chunks.
type Chunker interface {
	// Name returns the chunking strategy for logging.
	Name() string

	// Chunk splits one text. metadata is attached to every chunk.
	Chunk(text string, metadata map[string]any) []domain.Chunk

	// ProcessDocuments chunks each document independently and concatenates
	// the results. Chunk IDs are unique across the returned slice.
	ProcessDocuments(docs []domain.ProcessedDocument) []domain.Chunk
}
