// Package embedding selects and constructs the configured embedding
// service adapter.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ollamaDimensions lists native sizes of common Ollama embedding models.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
}

// New creates the embedding service named by settings.Provider.
// An empty provider selects the hashing embedder.
func New(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings.Provider == "" {
		settings.Provider = domain.EmbeddingProviderHashing
	}
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("embedding provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("embedding provider %s requires an API key: %w",
			settings.Provider, domain.ErrNotConfigured)
	}

	switch settings.Provider {
	case domain.EmbeddingProviderOllama:
		dims := settings.Dimensions
		if dims == 0 {
			dims = ollamaDimensions[settings.Model]
		}
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dims,
		}), nil

	case domain.EmbeddingProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Retries:    openai.DefaultRetries,
		})

	case domain.EmbeddingProviderGemini:
		return gemini.NewEmbeddingService(ctx, gemini.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return hashing.NewEmbeddingService(settings.Dimensions), nil
	}
}

// NewValidated creates the embedding service and pings it.
// The service is closed again if the ping fails.
func NewValidated(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := New(ctx, settings)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, svc.ModelName(), err)
	}
	return svc, nil
}
