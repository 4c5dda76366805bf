package domain

import (
	"net/url"
	"strings"
	"time"
)

// ContentType classifies a page by what it describes.
type ContentType string

// Known content types.
const (
	ContentTypeAMCPage        ContentType = "amc_page"
	ContentTypeFundPage       ContentType = "fund_page"
	ContentTypeSchemePage     ContentType = "scheme_page"
	ContentTypeBlogPost       ContentType = "blog_post"
	ContentTypeComparisonPage ContentType = "comparison_page"
	ContentTypeUnknown        ContentType = "unknown"
)

// ClassifyContent infers the content type from a URL path.
func ClassifyContent(rawURL string) ContentType {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(rawURL)))
	if err != nil {
		return ContentTypeUnknown
	}
	path := u.Path + "/"

	switch {
	case strings.Contains(path, "/amc/"):
		return ContentTypeAMCPage
	case strings.Contains(path, "/mutual-funds/"):
		if strings.Contains(path, "/top/") || strings.Contains(path, "/best-") {
			return ContentTypeComparisonPage
		}
		return ContentTypeFundPage
	case strings.Contains(path, "/scheme"):
		return ContentTypeSchemePage
	case strings.Contains(path, "/blog/"):
		return ContentTypeBlogPost
	default:
		return ContentTypeUnknown
	}
}

// IssueKind names a data quality problem.
type IssueKind string

// Quality issue kinds.
const (
	IssueMissingFields      IssueKind = "missing_fields"
	IssueInvalidURL         IssueKind = "invalid_url"
	IssueContentLength      IssueKind = "invalid_content_length"
	IssueLowQuality         IssueKind = "low_quality_content"
	IssueNoStructuredInfo   IssueKind = "no_structured_info"
	IssueEmptyContent       IssueKind = "empty_content"
	IssueMissingSourceURL   IssueKind = "missing_source_url"
	IssueMissingEmbedding   IssueKind = "missing_embedding"
	IssueZeroEmbedding      IssueKind = "zero_embedding"
	IssueInvalidEmbedding   IssueKind = "invalid_embedding_values"
	IssueDimensionMismatch  IssueKind = "inconsistent_dimensions"
	IssueInvalidPlatformURL IssueKind = "invalid_platform_url"
	IssueNonPlatformMapping IssueKind = "non_platform_mapping"
)

// QualityIssue is one problem found in one item.
type QualityIssue struct {
	Kind   IssueKind `json:"type"`
	Index  int       `json:"index"`
	Ref    string    `json:"ref,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// DuplicatePair names two items with the same normalised content. First is
// the earlier occurrence.
type DuplicatePair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// DocumentCheck is the result of checking scraped or processed documents.
type DocumentCheck struct {
	Total      int             `json:"total_documents"`
	Valid      int             `json:"valid_documents"`
	Issues     []QualityIssue  `json:"issues"`
	Duplicates []DuplicatePair `json:"duplicates,omitempty"`
}

// ChunkCheck is the result of checking chunks and their provenance.
type ChunkCheck struct {
	Total         int                 `json:"total_chunks"`
	Valid         int                 `json:"valid_chunks"`
	Issues        []QualityIssue      `json:"issues"`
	Duplicates    []DuplicatePair     `json:"duplicate_chunks,omitempty"`
	UniqueSources int                 `json:"unique_sources"`
	UniqueAMCs    int                 `json:"unique_amcs"`
	ContentTypes  map[ContentType]int `json:"content_types"`
}

// EmbeddingCheck is the result of checking chunk embeddings.
type EmbeddingCheck struct {
	Total      int            `json:"total_chunks"`
	Valid      int            `json:"valid_embeddings"`
	Issues     []QualityIssue `json:"issues"`
	Dimensions []int          `json:"embedding_dimensions"`
}

// MappingCheck is the result of checking resolved platform links.
type MappingCheck struct {
	Total        int            `json:"total_chunks"`
	Mapped       int            `json:"chunks_with_mapping"`
	FromPlatform int            `json:"chunks_from_platform_source"`
	MappingRate  float64        `json:"mapping_rate"`
	Issues       []QualityIssue `json:"issues"`
}

// QualityReport collects the checks of one validation pass. Sections for
// data that was not available are nil.
type QualityReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Scraped     *DocumentCheck  `json:"scraped_data,omitempty"`
	Processed   *DocumentCheck  `json:"processed_docs,omitempty"`
	Chunks      *ChunkCheck     `json:"chunks,omitempty"`
	Embeddings  *EmbeddingCheck `json:"embeddings,omitempty"`
	Mappings    *MappingCheck   `json:"platform_mappings,omitempty"`
}

// IssueCount returns the number of issues across all sections.
func (r *QualityReport) IssueCount() int {
	if r == nil {
		return 0
	}
	n := 0
	if r.Scraped != nil {
		n += len(r.Scraped.Issues)
	}
	if r.Processed != nil {
		n += len(r.Processed.Issues)
	}
	if r.Chunks != nil {
		n += len(r.Chunks.Issues)
	}
	if r.Embeddings != nil {
		n += len(r.Embeddings.Issues)
	}
	if r.Mappings != nil {
		n += len(r.Mappings.Issues)
	}
	return n
}

// DuplicateChunks returns the number of chunks that repeat earlier content.
func (r *QualityReport) DuplicateChunks() int {
	if r == nil || r.Chunks == nil {
		return 0
	}
	return len(r.Chunks.Duplicates)
}

// Empty returns true if the report has no sections.
func (r *QualityReport) Empty() bool {
	return r == nil || (r.Scraped == nil && r.Processed == nil && r.Chunks == nil &&
		r.Embeddings == nil && r.Mappings == nil)
}
