// Package hashing provides an offline embedding service based on the
// hashing trick: tokens are hashed into a fixed number of signed buckets
// and the resulting term-frequency vector is L2-normalised.
//
// It needs no model or network, produces identical vectors across runs,
// and is the default provider so a fresh install can ingest and query
// without credentials.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size used when none is configured.
const DefaultDimensions = 384

// ModelName is reported as the embedding model.
const ModelName = "feature-hashing-v1"

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.'’][\p{L}\p{N}]+)*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "by": {}, "for": {}, "with": {}, "as": {}, "is": {}, "are": {},
	"was": {}, "be": {}, "it": {}, "this": {}, "that": {}, "from": {},
}

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder.
// Dimensions <= 0 selects DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
// Text without any tokens yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.vector(t)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		s.add(acc, tok, 1)
		// Bigrams keep some word order ("exit load" vs "load exit").
		if i > 0 {
			s.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(len(acc)))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}
