package driven

import "context"

// EmbeddingService turns text into vectors. Storage and search belong to
// VectorEngine; the two are paired only through Dimensions.
//
// Implementations: hashing (offline, deterministic), Ollama, OpenAI and
// Gemini.
type EmbeddingService interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// ModelName is recorded in chunk metadata as embedding_model.
	ModelName() string

	// Ping checks the backend is reachable without embedding anything.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
