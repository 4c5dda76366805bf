package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// chunkIDMarker separates the document discriminator from the chunk ordinal.
const chunkIDMarker = "#chunk-"

// Chunk is a bounded segment of document text and the unit of retrieval.
// Chunks are created by the chunker; later stages only attach the
// embedding and platform link fields.
type Chunk struct {
	// ID is stable for a given source and position, and unique process-wide.
	ID string `json:"chunk_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Index is the position within the source document, starting at 0.
	Index int `json:"chunk_index"`

	// SourceURL is the page the chunk was cut from.
	SourceURL string `json:"source_url"`

	// Metadata is the document metadata the chunk inherited.
	Metadata map[string]any `json:"metadata"`

	// Embedding is the vector representation. Set by the embedding stage.
	Embedding []float32 `json:"embedding,omitempty"`

	// EmbeddingModel names the model that produced Embedding.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// EmbeddingDimension is len(Embedding) at the time it was attached.
	EmbeddingDimension int `json:"embedding_dimension,omitempty"`

	// PlatformURL is the resolved canonical link. Set by the mapping stage.
	// Serialised only in the final artifact.
	PlatformURL string `json:"-"`
}

// ChunkID builds the identifier for the chunk at index within the document
// identified by discriminator.
func ChunkID(discriminator string, index int) string {
	return discriminator + chunkIDMarker + strconv.Itoa(index)
}

// ChunkDiscriminator returns the document part of a chunk ID.
func ChunkDiscriminator(id string) string {
	if i := strings.LastIndex(id, chunkIDMarker); i >= 0 {
		return id[:i]
	}
	return id
}

// WithEmbedding returns a copy of the chunk carrying vec.
func (c Chunk) WithEmbedding(vec []float32, model string) Chunk {
	c.Embedding = vec
	c.EmbeddingModel = model
	c.EmbeddingDimension = len(vec)
	return c
}

// HasEmbedding returns true if an embedding has been attached.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ValidateForStorage checks the fields a vector index requires.
// A failure is an invariant violation, not a data-quality issue.
func (c Chunk) ValidateForStorage() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("chunk at index %d has no id: %w", c.Index, ErrInvariantViolation)
	case !c.HasEmbedding():
		return fmt.Errorf("chunk %q has no embedding: %w", c.ID, ErrInvariantViolation)
	case c.EmbeddingDimension != 0 && c.EmbeddingDimension != len(c.Embedding):
		return fmt.Errorf("chunk %q embedding dimension %d != %d: %w",
			c.ID, c.EmbeddingDimension, len(c.Embedding), ErrInvariantViolation)
	}
	return nil
}

// CheckUniqueIDs returns an invariant violation naming the first repeated
// chunk ID, or nil if every ID is distinct.
func CheckUniqueIDs(chunks []Chunk) error {
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate chunk id %q: %w", c.ID, ErrInvariantViolation)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}
