package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkSize        = "chunker.chunk_size"
	KeyChunkOverlap     = "chunker.chunk_overlap"
	KeyChunkStrategy    = "chunker.strategy"
	KeyMinChunkSize     = "chunker.min_chunk_size"
	KeyOutputDir        = "pipeline.output_dir"
	KeySourceURLs       = "pipeline.source_urls"
	KeyEmbedBatchSize   = "pipeline.embed_batch_size"
	KeyEmbedConcurrency = "pipeline.embed_concurrency"
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyVectorEngine     = "vector.engine"
	KeyVectorCollection = "vector.collection"
	KeyVectorPath       = "vector.path"
	KeyVectorDSN        = "vector.dsn"
	KeySourcesStore     = "sources.store"
	KeySourcesPath      = "sources.path"
	KeyArtifactsStore   = "artifacts.store"
	KeyArtifactsBucket  = "artifacts.bucket"
	KeyArtifactsPrefix  = "artifacts.prefix"
	KeyArtifactsRegion  = "artifacts.region"
	KeyPlatformName     = "platform.name"
	KeyPlatformDomain   = "platform.domain"
	KeyPlatformBaseURL  = "platform.base_url"
	KeyPlatformCatalog  = "platform.catalog"
	KeyValidationRate   = "validation.rate_per_second"
	KeyScraperRate      = "scraper.rate_per_second"
	KeyNetworkTimeout   = "network.timeout"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindDuration
)

var settingKeys = map[string]keyKind{
	KeyChunkSize:        kindInt,
	KeyChunkOverlap:     kindInt,
	KeyChunkStrategy:    kindString,
	KeyMinChunkSize:     kindInt,
	KeyOutputDir:        kindString,
	KeySourceURLs:       kindString,
	KeyEmbedBatchSize:   kindInt,
	KeyEmbedConcurrency: kindInt,
	KeyEmbedProvider:    kindString,
	KeyEmbedModel:       kindString,
	KeyEmbedBaseURL:     kindString,
	KeyEmbedAPIKey:      kindString,
	KeyEmbedDimensions:  kindInt,
	KeyVectorEngine:     kindString,
	KeyVectorCollection: kindString,
	KeyVectorPath:       kindString,
	KeyVectorDSN:        kindString,
	KeySourcesStore:     kindString,
	KeySourcesPath:      kindString,
	KeyArtifactsStore:   kindString,
	KeyArtifactsBucket:  kindString,
	KeyArtifactsPrefix:  kindString,
	KeyArtifactsRegion:  kindString,
	KeyPlatformName:     kindString,
	KeyPlatformDomain:   kindString,
	KeyPlatformBaseURL:  kindString,
	KeyPlatformCatalog:  kindString,
	KeyValidationRate:   kindFloat,
	KeyScraperRate:      kindFloat,
	KeyNetworkTimeout:   kindDuration,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings. Invalid stored values fall
// back to their defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Chunker: domain.ChunkerSettings{
			ChunkSize:    s.getInt(KeyChunkSize, d.Chunker.ChunkSize),
			ChunkOverlap: s.getInt(KeyChunkOverlap, d.Chunker.ChunkOverlap),
			Strategy:     s.getString(KeyChunkStrategy, d.Chunker.Strategy),
			MinChunkSize: s.getInt(KeyMinChunkSize, d.Chunker.MinChunkSize),
		},
		Pipeline: domain.PipelineSettings{
			OutputDir:        s.getString(KeyOutputDir, d.Pipeline.OutputDir),
			SourceURLs:       s.getString(KeySourceURLs, d.Pipeline.SourceURLs),
			EmbedBatchSize:   s.getInt(KeyEmbedBatchSize, d.Pipeline.EmbedBatchSize),
			EmbedConcurrency: s.getInt(KeyEmbedConcurrency, d.Pipeline.EmbedConcurrency),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(d.Embedding.Provider),
			Model:      s.getString(KeyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(KeyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions: s.getInt(KeyEmbedDimensions, d.Embedding.Dimensions),
		},
		Vector: domain.VectorSettings{
			Engine:     s.getEngine(d.Vector.Engine),
			Collection: s.getString(KeyVectorCollection, d.Vector.Collection),
			Path:       s.configStore.GetString(KeyVectorPath),
			DSN:        s.configStore.GetString(KeyVectorDSN),
		},
		Sources: domain.SourceSettings{
			Store: s.getStoreKind(KeySourcesStore, d.Sources.Store, domain.StoreJSON, domain.StoreSQLite),
			Path:  s.configStore.GetString(KeySourcesPath),
		},
		Artifacts: domain.ArtifactSettings{
			Store:  s.getStoreKind(KeyArtifactsStore, d.Artifacts.Store, domain.StoreFile, domain.StoreS3),
			Bucket: s.configStore.GetString(KeyArtifactsBucket),
			Prefix: s.configStore.GetString(KeyArtifactsPrefix),
			Region: s.configStore.GetString(KeyArtifactsRegion),
		},
		Platform: domain.PlatformSettings{
			Name:    s.getString(KeyPlatformName, d.Platform.Name),
			Domain:  s.getString(KeyPlatformDomain, d.Platform.Domain),
			BaseURL: s.getString(KeyPlatformBaseURL, d.Platform.BaseURL),
			Catalog: s.configStore.GetString(KeyPlatformCatalog),
		},
		Network: domain.NetworkSettings{
			ValidationRatePerSecond: s.getFloat(KeyValidationRate, d.Network.ValidationRatePerSecond),
			ScraperRatePerSecond:    s.getFloat(KeyScraperRate, d.Network.ScraperRatePerSecond),
			Timeout:                 s.getDuration(KeyNetworkTimeout, d.Network.Timeout),
		},
	}

	return settings, nil
}

// Set validates and stores one dotted key, then persists the store.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	typed, err := parseSetting(key, kind, strings.TrimSpace(value))
	if err != nil {
		return err
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Keys returns every recognised key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetValue returns the effective value of key, defaults applied.
func (s *SettingsService) GetValue(key string) (string, error) {
	if _, ok := settingKeys[key]; !ok {
		return "", fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	return settingValues(settings)[key], nil
}

func settingValues(st *domain.Settings) map[string]string {
	itoa := strconv.Itoa
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	return map[string]string{
		KeyChunkSize:        itoa(st.Chunker.ChunkSize),
		KeyChunkOverlap:     itoa(st.Chunker.ChunkOverlap),
		KeyChunkStrategy:    st.Chunker.Strategy,
		KeyMinChunkSize:     itoa(st.Chunker.MinChunkSize),
		KeyOutputDir:        st.Pipeline.OutputDir,
		KeySourceURLs:       st.Pipeline.SourceURLs,
		KeyEmbedBatchSize:   itoa(st.Pipeline.EmbedBatchSize),
		KeyEmbedConcurrency: itoa(st.Pipeline.EmbedConcurrency),
		KeyEmbedProvider:    st.Embedding.Provider.String(),
		KeyEmbedModel:       st.Embedding.Model,
		KeyEmbedBaseURL:     st.Embedding.BaseURL,
		KeyEmbedAPIKey:      st.Embedding.APIKey,
		KeyEmbedDimensions:  itoa(st.Embedding.Dimensions),
		KeyVectorEngine:     string(st.Vector.Engine),
		KeyVectorCollection: st.Vector.Collection,
		KeyVectorPath:       st.Vector.Path,
		KeyVectorDSN:        st.Vector.DSN,
		KeySourcesStore:     string(st.Sources.Store),
		KeySourcesPath:      st.Sources.Path,
		KeyArtifactsStore:   string(st.Artifacts.Store),
		KeyArtifactsBucket:  st.Artifacts.Bucket,
		KeyArtifactsPrefix:  st.Artifacts.Prefix,
		KeyArtifactsRegion:  st.Artifacts.Region,
		KeyPlatformName:     st.Platform.Name,
		KeyPlatformDomain:   st.Platform.Domain,
		KeyPlatformBaseURL:  st.Platform.BaseURL,
		KeyPlatformCatalog:  st.Platform.Catalog,
		KeyValidationRate:   ftoa(st.Network.ValidationRatePerSecond),
		KeyScraperRate:      ftoa(st.Network.ScraperRatePerSecond),
		KeyNetworkTimeout:   st.Network.Timeout.String(),
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func parseSetting(key string, kind keyKind, value string) (any, error) {
	invalid := func(reason string) error {
		return fmt.Errorf("%s: %s: %w", key, reason, domain.ErrInvalidInput)
	}

	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, invalid("expected a non-negative integer")
		}
		return int64(n), nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return nil, invalid("expected a positive number")
		}
		return f, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, invalid("expected a duration such as 10s")
		}
		return value, nil
	}

	switch key {
	case KeyEmbedProvider:
		if !domain.EmbeddingProvider(value).IsValid() {
			return nil, invalid("expected hashing, ollama, openai or gemini")
		}
	case KeyVectorEngine:
		if !domain.VectorEngineKind(value).IsValid() {
			return nil, invalid("expected memory, sqlite or pgvector")
		}
	case KeySourcesStore:
		if value != string(domain.StoreJSON) && value != string(domain.StoreSQLite) {
			return nil, invalid("expected json or sqlite")
		}
	case KeyArtifactsStore:
		if value != string(domain.StoreFile) && value != string(domain.StoreS3) {
			return nil, invalid("expected file or s3")
		}
	}
	return value, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	f := s.configStore.GetFloat(key)
	if f <= 0 {
		return defaultVal
	}
	return f
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		logger.Warn("ignoring invalid %s %q", key, val)
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	val := s.configStore.GetString(KeyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.EmbeddingProvider(val)
	if !provider.IsValid() {
		logger.Warn("unknown embedding provider %q, using %s", val, defaultVal)
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getEngine(defaultVal domain.VectorEngineKind) domain.VectorEngineKind {
	val := s.configStore.GetString(KeyVectorEngine)
	if val == "" {
		return defaultVal
	}
	engine := domain.VectorEngineKind(val)
	if !engine.IsValid() {
		logger.Warn("unknown vector engine %q, using %s", val, defaultVal)
		return defaultVal
	}
	return engine
}

func (s *SettingsService) getStoreKind(key string, defaultVal domain.StoreKind, allowed ...domain.StoreKind) domain.StoreKind {
	val := domain.StoreKind(s.configStore.GetString(key))
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	if val != "" {
		logger.Warn("unknown %s %q, using %s", key, val, defaultVal)
	}
	return defaultVal
}
