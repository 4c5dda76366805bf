package services

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// Stage artifact envelopes. Each carries its payload and a small summary.

type scrapedArtifact struct {
	ScrapedContent []domain.ScrapedDocument `json:"scraped_content"`
	Metadata       artifactSummary          `json:"metadata"`
}

type processedArtifact struct {
	ProcessedDocuments []domain.ProcessedDocument `json:"processed_documents"`
	Metadata           artifactSummary            `json:"metadata"`
}

type chunksArtifact struct {
	Chunks   []domain.Chunk  `json:"chunks"`
	Metadata artifactSummary `json:"metadata"`
}

// finalChunk exposes the resolved link, which plain chunks do not serialise.
type finalChunk struct {
	domain.Chunk
	PlatformURL *string `json:"groww_page_url"`
}

type finalArtifact struct {
	Chunks   []finalChunk    `json:"chunks"`
	Metadata artifactSummary `json:"metadata"`
}

type artifactSummary struct {
	TotalDocuments int    `json:"total_documents,omitempty"`
	TotalChunks    int    `json:"total_chunks,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

func encodeScraped(docs []domain.ScrapedDocument) ([]byte, error) {
	return json.MarshalIndent(scrapedArtifact{
		ScrapedContent: nonNil(docs),
		Metadata:       artifactSummary{TotalDocuments: len(docs)},
	}, "", "  ")
}

func decodeScraped(data []byte) ([]domain.ScrapedDocument, error) {
	var a scrapedArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", domain.ArtifactScraped, domain.ErrInvalidArtifact, err)
	}
	return a.ScrapedContent, nil
}

func encodeProcessed(docs []domain.ProcessedDocument) ([]byte, error) {
	return json.MarshalIndent(processedArtifact{
		ProcessedDocuments: nonNil(docs),
		Metadata:           artifactSummary{TotalDocuments: len(docs)},
	}, "", "  ")
}

func decodeProcessed(data []byte) ([]domain.ProcessedDocument, error) {
	var a processedArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", domain.ArtifactProcessed, domain.ErrInvalidArtifact, err)
	}
	return a.ProcessedDocuments, nil
}

func encodeChunks(chunks []domain.Chunk, model string) ([]byte, error) {
	return json.MarshalIndent(chunksArtifact{
		Chunks:   nonNil(chunks),
		Metadata: artifactSummary{TotalChunks: len(chunks), EmbeddingModel: model},
	}, "", "  ")
}

func decodeChunks(name string, data []byte) ([]domain.Chunk, error) {
	var a chunksArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, domain.ErrInvalidArtifact, err)
	}
	return a.Chunks, nil
}

func encodeFinal(chunks []domain.Chunk, model string) ([]byte, error) {
	out := make([]finalChunk, len(chunks))
	for i, c := range chunks {
		out[i] = finalChunk{Chunk: c}
		if c.PlatformURL != "" {
			link := c.PlatformURL
			out[i].PlatformURL = &link
		}
	}
	return json.MarshalIndent(finalArtifact{
		Chunks:   out,
		Metadata: artifactSummary{TotalChunks: len(chunks), EmbeddingModel: model},
	}, "", "  ")
}

func decodeFinal(data []byte) ([]domain.Chunk, error) {
	var a finalArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", domain.ArtifactFinal, domain.ErrInvalidArtifact, err)
	}
	chunks := make([]domain.Chunk, len(a.Chunks))
	for i, fc := range a.Chunks {
		chunks[i] = fc.Chunk
		if fc.PlatformURL != nil {
			chunks[i].PlatformURL = *fc.PlatformURL
		}
	}
	return chunks, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func encodeStats(stats *domain.PipelineStats) ([]byte, error) {
	return json.MarshalIndent(stats, "", "  ")
}

func decodeStats(data []byte) (*domain.PipelineStats, error) {
	var stats domain.PipelineStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", domain.ArtifactStats, domain.ErrInvalidArtifact, err)
	}
	if stats.Errors == nil {
		stats.Errors = []string{}
	}
	return &stats, nil
}

func encodeReport(report *domain.QualityReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
