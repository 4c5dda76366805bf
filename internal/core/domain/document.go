package domain

import (
	"fmt"
	"time"
)

// Metadata keys shared across the pipeline stages.
const (
	MetaURL            = "url"
	MetaSourceURL      = "source_url"
	MetaAMCName        = "amc_name"
	MetaAMCID          = "amc_id"
	MetaAMCSlug        = "amc_slug"
	MetaTitle          = "title"
	MetaScrapedAt      = "scraped_at"
	MetaFundSlug       = "fund_slug"
	MetaFundURL        = "fund_url"
	MetaGrowwURL       = "groww_url"
	MetaPlatformURL    = "groww_page_url"
	MetaStructuredInfo = "structured_info"
	MetaChunkIndex     = "chunk_index"
	MetaContentLength  = "content_length"
	MetaEmbeddingModel = "embedding_model"
	MetaContentType    = "content_type"
)

// ScrapedDocument is a page fetched by the scraper, before cleaning.
type ScrapedDocument struct {
	// URL is where the page was fetched from.
	URL string `json:"url"`

	// AMCName is the asset management company the page belongs to.
	AMCName string `json:"amc_name"`

	// AMCID is the short identifier of the AMC (e.g. "hdfc").
	AMCID string `json:"amc_id"`

	// Title is the page title.
	Title string `json:"title"`

	// Content is the raw page body (usually HTML).
	Content string `json:"content"`

	// ScrapedAt is when the page was fetched.
	ScrapedAt time.Time `json:"scraped_at"`
}

// Metadata returns the provenance fields carried into processing.
func (d ScrapedDocument) Metadata() map[string]any {
	return map[string]any{
		MetaURL:       d.URL,
		MetaAMCName:   d.AMCName,
		MetaAMCID:     d.AMCID,
		MetaTitle:     d.Title,
		MetaScrapedAt: d.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

// ProcessedDocument is cleaned text plus extracted facts, ready for chunking.
type ProcessedDocument struct {
	// Content is the plain-text body.
	Content string `json:"content"`

	// StructuredInfo holds named facts extracted from the content
	// (expense ratio, exit load, ...).
	StructuredInfo map[string]any `json:"structured_info"`

	// Metadata carries provenance: url, amc_name, amc_id, title, scraped_at.
	Metadata map[string]any `json:"metadata"`
}

// URL returns the document's source URL from its metadata.
func (d ProcessedDocument) URL() string {
	return MetadataString(d.Metadata, MetaURL)
}

// MetadataString reads a metadata value as a string.
// Missing and nil values yield "".
func MetadataString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// CopyMetadata returns a shallow copy of m that is safe to mutate.
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
