// Package gemini provides an embedding service adapter using the Google
// Gemini API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel = "text-embedding-004"

	// MaxBatch is the API's limit on contents per BatchEmbedContents call.
	MaxBatch = 100
)

var modelDimensions = map[string]int{
	"text-embedding-004":   768,
	"embedding-001":        768,
	"gemini-embedding-001": 3072,
}

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model (default: text-embedding-004).
	Model string

	// Dimensions is used only for models missing from the built-in table.
	Dimensions int
}

// batchFunc embeds one request's worth of texts.
type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbeddingService generates retrieval-document embeddings with Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
	batch      batchFunc
}

// NewEmbeddingService creates a client for the Gemini API.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key: %w", domain.ErrNotConfigured)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	em := client.EmbeddingModel(cfg.Model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	s := newService(cfg, func(ctx context.Context, texts []string) ([][]float32, error) {
		b := em.NewBatch()
		for _, t := range texts {
			b.AddContent(genai.Text(t))
		}
		resp, err := em.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, err
		}
		out := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			if e != nil {
				out[i] = e.Values
			}
		}
		return out, nil
	})
	s.client = client
	return s, nil
}

func newService(cfg Config, batch batchFunc) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	dims, ok := modelDimensions[cfg.Model]
	if !ok {
		dims = cfg.Dimensions
	}
	return &EmbeddingService{model: cfg.Model, dimensions: dims, batch: batch}
}

// Embed generates a vector embedding for one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in calls of at most MaxBatch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatch {
		end := min(start+MaxBatch, len(texts))
		vecs, err := s.batch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed: %w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(vecs), end-start)
		}
		for i, v := range vecs {
			if len(v) == 0 {
				return nil, fmt.Errorf("gemini: no embedding returned for input %d", start+i)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short probe text; the API has no cheaper authenticated call.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *EmbeddingService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
