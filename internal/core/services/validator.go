package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Content length bounds applied to scraped pages.
const (
	DefaultMinContentLength = 50
	DefaultMaxContentLength = 100000
)

// Low-quality thresholds: text that is mostly whitespace, or whose words
// are mostly repeats.
const (
	minTextRatio       = 0.5
	minUniqueWordRatio = 0.3
)

// DataValidator checks the output of each pipeline stage for quality
// problems. Problems are reported, never fixed.
type DataValidator struct {
	minContent     int
	maxContent     int
	platformDomain string
	now            func() time.Time
}

// ValidatorOption configures a DataValidator.
type ValidatorOption func(*DataValidator)

// WithContentLength sets the accepted page length range in characters.
func WithContentLength(minLen, maxLen int) ValidatorOption {
	return func(v *DataValidator) {
		if minLen >= 0 && maxLen >= minLen {
			v.minContent = minLen
			v.maxContent = maxLen
		}
	}
}

// WithValidatorClock overrides the report timestamp source.
func WithValidatorClock(fn func() time.Time) ValidatorOption {
	return func(v *DataValidator) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewDataValidator creates a validator. platformDomain is the host that
// resolved links must point at.
func NewDataValidator(platformDomain string, opts ...ValidatorOption) *DataValidator {
	v := &DataValidator{
		minContent:     DefaultMinContentLength,
		maxContent:     DefaultMaxContentLength,
		platformDomain: strings.ToLower(strings.TrimPrefix(platformDomain, "www.")),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// QualityInput is the data a validation pass looks at. Any part may be
// empty; its report section is then omitted.
type QualityInput struct {
	Scraped   []domain.ScrapedDocument
	Processed []domain.ProcessedDocument
	Chunks    []domain.Chunk
}

// Report runs every check that has data. Embedding and mapping checks
// apply to Chunks when any chunk carries an embedding or a platform link.
func (v *DataValidator) Report(in QualityInput) *domain.QualityReport {
	r := &domain.QualityReport{GeneratedAt: v.now().UTC()}

	if len(in.Scraped) > 0 {
		c := v.ValidateScraped(in.Scraped)
		r.Scraped = &c
	}
	if len(in.Processed) > 0 {
		c := v.ValidateProcessed(in.Processed)
		r.Processed = &c
	}
	if len(in.Chunks) > 0 {
		c := v.ValidateChunks(in.Chunks)
		r.Chunks = &c
		if anyChunk(in.Chunks, func(c domain.Chunk) bool { return len(c.Embedding) > 0 }) {
			e := v.ValidateEmbeddings(in.Chunks)
			r.Embeddings = &e
		}
		if anyChunk(in.Chunks, func(c domain.Chunk) bool { return c.PlatformURL != "" }) {
			m := v.ValidateMappings(in.Chunks)
			r.Mappings = &m
		}
	}

	if n := r.IssueCount(); n > 0 {
		logger.Warn("Data validation found %d issues", n)
	}
	return r
}

// ValidateScraped checks fetched pages for missing fields, malformed URLs,
// out-of-range length, low-quality text and duplicate content.
func (v *DataValidator) ValidateScraped(docs []domain.ScrapedDocument) domain.DocumentCheck {
	check := domain.DocumentCheck{Total: len(docs), Issues: []domain.QualityIssue{}}
	bad := make(map[int]bool)
	report := func(issue domain.QualityIssue) {
		check.Issues = append(check.Issues, issue)
		bad[issue.Index] = true
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.URL) == "" || doc.Content == "" {
			report(domain.QualityIssue{Kind: domain.IssueMissingFields, Index: i, Ref: doc.URL})
			continue
		}
		if !validURL(doc.URL) {
			report(domain.QualityIssue{Kind: domain.IssueInvalidURL, Index: i, Ref: doc.URL})
		}
		if n := utf8.RuneCountInString(doc.Content); n < v.minContent || n > v.maxContent {
			report(domain.QualityIssue{
				Kind: domain.IssueContentLength, Index: i, Ref: doc.URL,
				Detail: fmt.Sprintf("%d characters", n),
			})
		}
		if lowQuality(doc.Content) {
			report(domain.QualityIssue{Kind: domain.IssueLowQuality, Index: i, Ref: doc.URL})
		}
	}

	refs := make([]string, len(docs))
	texts := make([]string, len(docs))
	for i, doc := range docs {
		refs[i], texts[i] = doc.URL, doc.Content
	}
	check.Duplicates = duplicates(refs, texts)
	check.Valid = len(docs) - len(bad)
	logger.Debug("validated %d scraped documents: %d valid", check.Total, check.Valid)
	return check
}

// ValidateProcessed checks cleaned documents for missing metadata, short
// content and missing structured facts.
func (v *DataValidator) ValidateProcessed(docs []domain.ProcessedDocument) domain.DocumentCheck {
	check := domain.DocumentCheck{Total: len(docs), Issues: []domain.QualityIssue{}}
	bad := make(map[int]bool)

	for i, doc := range docs {
		ref := doc.URL()
		switch {
		case doc.Metadata == nil:
			check.Issues = append(check.Issues, domain.QualityIssue{Kind: domain.IssueMissingFields, Index: i, Ref: ref})
			bad[i] = true
			continue
		case utf8.RuneCountInString(doc.Content) < v.minContent:
			check.Issues = append(check.Issues, domain.QualityIssue{
				Kind: domain.IssueContentLength, Index: i, Ref: ref,
				Detail: fmt.Sprintf("%d characters", utf8.RuneCountInString(doc.Content)),
			})
			bad[i] = true
		}
		// Pages without extracted facts are still usable.
		if len(doc.StructuredInfo) == 0 {
			check.Issues = append(check.Issues, domain.QualityIssue{Kind: domain.IssueNoStructuredInfo, Index: i, Ref: ref})
		}
	}

	check.Valid = len(docs) - len(bad)
	return check
}

// ValidateChunks checks chunk identity, content and provenance, and reports
// chunks that repeat earlier content.
func (v *DataValidator) ValidateChunks(chunks []domain.Chunk) domain.ChunkCheck {
	check := domain.ChunkCheck{
		Total:        len(chunks),
		Issues:       []domain.QualityIssue{},
		ContentTypes: make(map[domain.ContentType]int),
	}
	bad := make(map[int]bool)
	report := func(issue domain.QualityIssue) {
		check.Issues = append(check.Issues, issue)
		bad[issue.Index] = true
	}
	sources := make(map[string]bool)
	amcs := make(map[string]bool)

	for i, c := range chunks {
		if c.ID == "" {
			report(domain.QualityIssue{Kind: domain.IssueMissingFields, Index: i, Detail: "chunk_id"})
			continue
		}
		if strings.TrimSpace(c.Content) == "" {
			report(domain.QualityIssue{Kind: domain.IssueEmptyContent, Index: i, Ref: c.ID})
		}

		src := c.SourceURL
		if src == "" {
			src = domain.MetadataString(c.Metadata, domain.MetaURL)
		}
		switch {
		case src == "":
			report(domain.QualityIssue{Kind: domain.IssueMissingSourceURL, Index: i, Ref: c.ID})
		case !validURL(src):
			report(domain.QualityIssue{Kind: domain.IssueInvalidURL, Index: i, Ref: c.ID, Detail: src})
		default:
			sources[src] = true
		}

		if amc := domain.MetadataString(c.Metadata, domain.MetaAMCName); amc != "" {
			amcs[strings.ToLower(amc)] = true
		}
		check.ContentTypes[domain.ClassifyContent(src)]++
	}

	refs := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		refs[i], texts[i] = c.ID, c.Content
	}
	check.Duplicates = duplicates(refs, texts)
	check.UniqueSources = len(sources)
	check.UniqueAMCs = len(amcs)
	check.Valid = len(chunks) - len(bad)
	return check
}

// ValidateEmbeddings checks every chunk has a finite, non-zero vector and
// that all vectors share one dimension.
func (v *DataValidator) ValidateEmbeddings(chunks []domain.Chunk) domain.EmbeddingCheck {
	check := domain.EmbeddingCheck{Total: len(chunks), Issues: []domain.QualityIssue{}}
	bad := make(map[int]bool)
	report := func(issue domain.QualityIssue) {
		check.Issues = append(check.Issues, issue)
		bad[issue.Index] = true
	}
	dims := make(map[int]bool)

	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			report(domain.QualityIssue{Kind: domain.IssueMissingEmbedding, Index: i, Ref: c.ID})
			continue
		}
		dims[len(c.Embedding)] = true

		zero, finite := true, true
		for _, x := range c.Embedding {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				finite = false
			}
			if x != 0 {
				zero = false
			}
		}
		if !finite {
			report(domain.QualityIssue{Kind: domain.IssueInvalidEmbedding, Index: i, Ref: c.ID})
		} else if zero {
			report(domain.QualityIssue{Kind: domain.IssueZeroEmbedding, Index: i, Ref: c.ID})
		}
	}

	check.Dimensions = make([]int, 0, len(dims))
	for d := range dims {
		check.Dimensions = append(check.Dimensions, d)
	}
	sort.Ints(check.Dimensions)
	if len(check.Dimensions) > 1 {
		check.Issues = append(check.Issues, domain.QualityIssue{
			Kind: domain.IssueDimensionMismatch, Index: -1,
			Detail: fmt.Sprintf("dimensions %v", check.Dimensions),
		})
	}

	check.Valid = len(chunks) - len(bad)
	return check
}

// ValidateMappings checks resolved links are well-formed platform URLs and
// reports the mapping rate.
func (v *DataValidator) ValidateMappings(chunks []domain.Chunk) domain.MappingCheck {
	check := domain.MappingCheck{Total: len(chunks), Issues: []domain.QualityIssue{}}

	for i, c := range chunks {
		if v.onPlatform(c.SourceURL) {
			check.FromPlatform++
		}
		if c.PlatformURL == "" {
			continue
		}
		check.Mapped++
		if !validURL(c.PlatformURL) {
			check.Issues = append(check.Issues, domain.QualityIssue{
				Kind: domain.IssueInvalidPlatformURL, Index: i, Ref: c.ID, Detail: c.PlatformURL,
			})
			continue
		}
		if !v.onPlatform(c.PlatformURL) {
			check.Issues = append(check.Issues, domain.QualityIssue{
				Kind: domain.IssueNonPlatformMapping, Index: i, Ref: c.ID, Detail: c.PlatformURL,
			})
		}
	}

	if check.Total > 0 {
		check.MappingRate = float64(check.Mapped) / float64(check.Total) * 100
	}
	return check
}

func (v *DataValidator) onPlatform(raw string) bool {
	if v.platformDomain == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == v.platformDomain || strings.HasSuffix(host, "."+v.platformDomain)
}

// validURL accepts absolute http(s) URLs whose host is a dotted name or
// localhost.
func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || (strings.Contains(host, ".") && !strings.HasSuffix(host, "."))
}

// lowQuality flags text that is mostly whitespace or mostly repeated words.
func lowQuality(text string) bool {
	if text == "" {
		return true
	}
	if float64(len(strings.TrimSpace(text))) < float64(len(text))*minTextRatio {
		return true
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return true
	}
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	return float64(len(unique))/float64(len(words)) < minUniqueWordRatio
}

// duplicates pairs each item whose normalised text repeats an earlier one
// with that earlier item.
func duplicates(refs, texts []string) []domain.DuplicatePair {
	var out []domain.DuplicatePair
	first := make(map[string]string, len(texts))
	for i, text := range texts {
		h := contentHash(text)
		if ref, ok := first[h]; ok {
			out = append(out, domain.DuplicatePair{First: ref, Second: refs[i]})
			continue
		}
		first[h] = refs[i]
	}
	return out
}

func contentHash(text string) string {
	normalised := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

func anyChunk(chunks []domain.Chunk, keep func(domain.Chunk) bool) bool {
	for _, c := range chunks {
		if keep(c) {
			return true
		}
	}
	return false
}
