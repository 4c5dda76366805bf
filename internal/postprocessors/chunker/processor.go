// Package chunker splits document text into overlapping, size-bounded chunks.
//
// Four strategies are supported: sentence, paragraph, semantic (section
// headers) and fixed_size (raw character windows). Sizes are measured in
// runes so multi-byte characters are never split.
package chunker

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default target number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of trailing characters carried
// into the next chunk.
const DefaultChunkOverlap = 50

// DefaultMinChunkSize is the default minimum trimmed chunk length.
const DefaultMinChunkSize = 50

// Strategy selects how text is segmented before packing.
type Strategy string

// Available strategies.
const (
	StrategySentence  Strategy = "sentence"
	StrategyParagraph Strategy = "paragraph"
	StrategySemantic  Strategy = "semantic"
	StrategyFixedSize Strategy = "fixed_size"
)

// Strategies returns every supported strategy.
func Strategies() []Strategy {
	return []Strategy{StrategySentence, StrategyParagraph, StrategySemantic, StrategyFixedSize}
}

// ParseStrategy converts a name to a Strategy. Unrecognised names report false.
func ParseStrategy(name string) (Strategy, bool) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, true
		}
	}
	return StrategySentence, false
}

// Processor splits document content into chunks.
// It implements the driven.Chunker interface and is safe for concurrent use.
type Processor struct {
	chunkSize    int
	overlap      int
	minChunkSize int
	strategy     Strategy
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the minimum trimmed chunk length. Zero keeps everything.
func WithMinChunkSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.minChunkSize = size
		}
	}
}

// WithStrategy selects the segmentation strategy.
// Unknown names fall back to sentence chunking with a warning.
func WithStrategy(name string) Option {
	return func(p *Processor) {
		s, ok := ParseStrategy(name)
		if !ok {
			logger.Warn("unknown chunking strategy %q, falling back to %s", name, StrategySentence)
		}
		p.strategy = s
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultChunkOverlap,
		minChunkSize: DefaultMinChunkSize,
		strategy:     StrategySentence,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the active strategy.
func (p *Processor) Name() string {
	return string(p.strategy)
}

// Strategy returns the active strategy.
func (p *Processor) Strategy() Strategy {
	return p.strategy
}

// Chunk splits text into chunks carrying metadata.
// The chunk ID discriminator is metadata's url, or a content fingerprint
// when there is none.
func (p *Processor) Chunk(text string, metadata map[string]any) []domain.Chunk {
	return p.build(discriminator(text, metadata), text, metadata)
}

// ProcessDocuments chunks each document independently, restarting
// chunk_index at 0 per document. Structured info is copied into chunk
// metadata. Documents sharing a discriminator get a "~n" suffix so IDs
// stay unique across the result.
func (p *Processor) ProcessDocuments(docs []domain.ProcessedDocument) []domain.Chunk {
	var all []domain.Chunk
	seen := make(map[string]int, len(docs))

	for _, doc := range docs {
		meta := domain.CopyMetadata(doc.Metadata)
		if len(doc.StructuredInfo) > 0 {
			meta[domain.MetaStructuredInfo] = doc.StructuredInfo
		}

		disc := discriminator(doc.Content, meta)
		if n := seen[disc]; n > 0 {
			seen[disc] = n + 1
			disc = fmt.Sprintf("%s~%d", disc, n)
		} else {
			seen[disc] = 1
		}

		chunks := p.build(disc, doc.Content, meta)
		logger.Debug("chunked %s into %d chunks", disc, len(chunks))
		all = append(all, chunks...)
	}

	return all
}

// build segments text and assigns identity. Short chunks are dropped
// before indexes are assigned, so indexes stay contiguous.
func (p *Processor) build(disc, text string, metadata map[string]any) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sourceURL := domain.MetadataString(metadata, domain.MetaURL)

	var chunks []domain.Chunk
	for _, content := range p.segment(text) {
		if utf8.RuneCountInString(strings.TrimSpace(content)) < p.minChunkSize {
			continue
		}
		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:        domain.ChunkID(disc, index),
			Content:   content,
			Index:     index,
			SourceURL: sourceURL,
			Metadata:  domain.CopyMetadata(metadata),
		})
	}

	return chunks
}

// segment applies the configured strategy.
func (p *Processor) segment(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	switch p.strategy {
	case StrategyParagraph:
		return p.pack(SplitParagraphs(text), "\n\n")
	case StrategySemantic:
		sections := DetectSections(text)
		if len(sections) == 0 {
			return p.pack(SplitSentences(text), " ")
		}
		return p.pack(p.sectionUnits(sections), "\n\n")
	case StrategyFixedSize:
		return p.windows(text)
	default:
		return p.pack(SplitSentences(text), " ")
	}
}

// sectionUnits keeps sections that fit in a chunk whole. Larger sections are
// broken into paragraphs, and paragraphs that still do not fit are packed by
// sentence, so only a single sentence can exceed chunkSize.
func (p *Processor) sectionUnits(sections []string) []string {
	units := make([]string, 0, len(sections))
	for _, section := range sections {
		if utf8.RuneCountInString(section) <= p.chunkSize {
			units = append(units, section)
			continue
		}
		for _, para := range SplitParagraphs(section) {
			if utf8.RuneCountInString(para) <= p.chunkSize {
				units = append(units, para)
				continue
			}
			units = append(units, p.pack(SplitSentences(para), " ")...)
		}
	}
	return units
}

func discriminator(text string, metadata map[string]any) string {
	if u := domain.MetadataString(metadata, domain.MetaURL); u != "" {
		return u
	}
	sum := sha1.Sum([]byte(text)) //nolint:gosec // fingerprint only
	return "doc-" + hex.EncodeToString(sum[:6])
}
