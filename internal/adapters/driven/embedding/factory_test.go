package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/fundlink/internal/core/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		settings  domain.EmbeddingSettings
		wantModel string
		wantDims  int
		wantErr   error
	}{
		{
			name:      "empty provider selects hashing",
			settings:  domain.EmbeddingSettings{},
			wantModel: hashing.ModelName,
			wantDims:  hashing.DefaultDimensions,
		},
		{
			name:      "hashing honours dimensions",
			settings:  domain.EmbeddingSettings{Provider: domain.EmbeddingProviderHashing, Dimensions: 64},
			wantModel: hashing.ModelName,
			wantDims:  64,
		},
		{
			name:      "ollama known model",
			settings:  domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOllama, Model: "all-minilm"},
			wantModel: "all-minilm",
			wantDims:  384,
		},
		{
			name:      "ollama default model",
			settings:  domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOllama},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name:      "openai with key",
			settings:  domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOpenAI, APIKey: "sk-test"},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
		{
			name:     "openai without key",
			settings: domain.EmbeddingSettings{Provider: domain.EmbeddingProviderOpenAI},
			wantErr:  domain.ErrNotConfigured,
		},
		{
			name:     "gemini without key",
			settings: domain.EmbeddingSettings{Provider: domain.EmbeddingProviderGemini},
			wantErr:  domain.ErrNotConfigured,
		},
		{
			name:     "unknown provider",
			settings: domain.EmbeddingSettings{Provider: "cohere"},
			wantErr:  domain.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(context.Background(), tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()

			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestNewValidated_Hashing(t *testing.T) {
	svc, err := NewValidated(context.Background(), domain.EmbeddingSettings{})
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestNewValidated_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewValidated(context.Background(), domain.EmbeddingSettings{
		Provider: domain.EmbeddingProviderOllama,
		BaseURL:  server.URL,
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
