package domain

import "time"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHashing is the offline feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderGemini is the Google Gemini API.
	EmbeddingProviderGemini EmbeddingProvider = "gemini"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHashing, EmbeddingProviderOllama, EmbeddingProviderOpenAI, EmbeddingProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI || p == EmbeddingProviderGemini
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// VectorEngineKind identifies the physical vector store.
type VectorEngineKind string

// Available vector engines.
const (
	VectorEngineMemory   VectorEngineKind = "memory"
	VectorEngineSQLite   VectorEngineKind = "sqlite"
	VectorEnginePgvector VectorEngineKind = "pgvector"
)

// IsValid returns true if the engine is recognised.
func (k VectorEngineKind) IsValid() bool {
	switch k {
	case VectorEngineMemory, VectorEngineSQLite, VectorEnginePgvector:
		return true
	default:
		return false
	}
}

// StoreKind identifies a persistence backend for ledgers and artifacts.
type StoreKind string

// Available store kinds.
const (
	StoreJSON   StoreKind = "json"
	StoreSQLite StoreKind = "sqlite"
	StoreFile   StoreKind = "file"
	StoreS3     StoreKind = "s3"
)

// ChunkerSettings configures chunking.
type ChunkerSettings struct {
	// ChunkSize is the target maximum characters per chunk.
	ChunkSize int

	// ChunkOverlap is the trailing context carried into the next chunk.
	ChunkOverlap int

	// Strategy is one of sentence, paragraph, semantic, fixed_size.
	Strategy string

	// MinChunkSize drops chunks shorter than this after trimming.
	MinChunkSize int
}

// PipelineSettings configures an ingestion run.
type PipelineSettings struct {
	// OutputDir holds stage artifacts.
	OutputDir string

	// SourceURLs is the scraper's input file.
	SourceURLs string

	// EmbedBatchSize is the number of texts per embedding call.
	EmbedBatchSize int

	// EmbedConcurrency bounds parallel embedding calls.
	EmbedConcurrency int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider EmbeddingProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Dimensions of 0 selects the provider's or model's native size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings configures the vector index.
type VectorSettings struct {
	Engine     VectorEngineKind
	Collection string
	Path       string
	DSN        string
}

// SourceSettings configures source ledger persistence.
type SourceSettings struct {
	Store StoreKind
	Path  string
}

// ArtifactSettings configures stage artifact persistence.
type ArtifactSettings struct {
	Store  StoreKind
	Bucket string
	Prefix string
	Region string
}

// PlatformSettings overrides the link-target platform.
type PlatformSettings struct {
	Name    string
	Domain  string
	BaseURL string

	// Catalog is an optional YAML file replacing the built-in catalog.
	Catalog string
}

// NetworkSettings throttles outbound requests.
type NetworkSettings struct {
	ValidationRatePerSecond float64
	ScraperRatePerSecond    float64
	Timeout                 time.Duration
}

// Settings is the full application configuration.
type Settings struct {
	Chunker   ChunkerSettings
	Pipeline  PipelineSettings
	Embedding EmbeddingSettings
	Vector    VectorSettings
	Sources   SourceSettings
	Artifacts ArtifactSettings
	Platform  PlatformSettings
	Network   NetworkSettings
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Chunker: ChunkerSettings{
			ChunkSize:    500,
			ChunkOverlap: 50,
			Strategy:     "sentence",
			MinChunkSize: 50,
		},
		Pipeline: PipelineSettings{
			OutputDir:        "data",
			SourceURLs:       "source_urls.json",
			EmbedBatchSize:   32,
			EmbedConcurrency: 4,
		},
		Embedding: EmbeddingSettings{
			Provider: EmbeddingProviderHashing,
		},
		Vector: VectorSettings{
			Engine:     VectorEngineSQLite,
			Collection: "mutual_funds_faq",
		},
		Sources: SourceSettings{
			Store: StoreJSON,
		},
		Artifacts: ArtifactSettings{
			Store: StoreFile,
		},
		Platform: PlatformSettings{
			Name:    "Groww",
			Domain:  "groww.in",
			BaseURL: "https://groww.in",
		},
		Network: NetworkSettings{
			ValidationRatePerSecond: 2,
			ScraperRatePerSecond:    1,
			Timeout:                 10 * time.Second,
		},
	}
}
