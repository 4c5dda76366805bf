package postprocessors

import (
	"strings"

	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/logger"
	"github.com/custodia-labs/fundlink/internal/postprocessors/chunker"
)

// Config keys understood by the chunker builders.
const (
	KeyChunkSize    = "chunk_size"
	KeyChunkOverlap = "chunk_overlap"
	KeyStrategy     = "strategy"
	KeyMinChunkSize = "min_chunk_size"
)

// RegisterDefaults registers a builder for every built-in chunking strategy.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	for _, s := range chunker.Strategies() {
		name := string(s)
		r.Register(name, func(cfg map[string]any) (driven.Chunker, error) {
			return buildChunker(name, cfg), nil
		})
	}
}

// DefaultRegistry returns a registry with the built-in strategies registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// BuildChunker creates the chunker named by cfg["strategy"].
// An unknown or missing strategy falls back to sentence chunking; this is
// a configuration problem, not a fatal one.
func BuildChunker(r *Registry, cfg map[string]any) (driven.Chunker, error) {
	name, _ := cfg[KeyStrategy].(string)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = string(chunker.StrategySentence)
	}
	if !r.Has(name) {
		logger.Warn("unknown chunking strategy %q, falling back to %s", name, chunker.StrategySentence)
		name = string(chunker.StrategySentence)
	}
	return r.Build(name, cfg)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target characters per chunk (default: 500)
//   - chunk_overlap (int): Characters carried into the next chunk (default: 50)
//   - min_chunk_size (int): Shorter chunks are dropped (default: 50)
func buildChunker(strategy string, cfg map[string]any) *chunker.Processor {
	opts := []chunker.Option{chunker.WithStrategy(strategy)}

	if size, ok := getIntFromConfig(cfg, KeyChunkSize); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, KeyChunkOverlap); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if minSize, ok := getIntFromConfig(cfg, KeyMinChunkSize); ok {
		opts = append(opts, chunker.WithMinChunkSize(minSize))
	}

	return chunker.New(opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
// The boolean reports whether the key held a number.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
