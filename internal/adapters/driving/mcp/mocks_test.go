package mcp

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// mockIndex is a mock implementation of driving.VectorIndex.
type mockIndex struct {
	results []domain.QueryResult
	count   int
	err     error
	lastReq domain.QueryRequest
}

func (m *mockIndex) AddChunks(_ context.Context, chunks []domain.Chunk) (int, error) {
	return len(chunks), m.err
}

func (m *mockIndex) Query(_ context.Context, req domain.QueryRequest) ([]domain.QueryResult, error) {
	m.lastReq = req
	return m.results, m.err
}

func (m *mockIndex) GetByID(_ context.Context, _ []string) ([]domain.StoredRecord, error) {
	return nil, m.err
}

func (m *mockIndex) FilterByMetadata(_ context.Context, _ map[string]any, _ int) ([]domain.StoredRecord, error) {
	return nil, m.err
}

func (m *mockIndex) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

func (m *mockIndex) Reset(_ context.Context) error {
	return m.err
}

func (m *mockIndex) CollectionInfo(_ context.Context) (domain.CollectionInfo, error) {
	return domain.CollectionInfo{Name: "test", Count: m.count}, m.err
}

// mockPipeline is a mock implementation of driving.IngestionPipeline.
type mockPipeline struct {
	last *domain.PipelineStats
	err  error
}

func (m *mockPipeline) Run(_ context.Context, _ domain.RunOptions) (*domain.PipelineStats, error) {
	return m.last, m.err
}

func (m *mockPipeline) State() domain.Stage {
	return domain.StageIdle
}

func (m *mockPipeline) Stats() *domain.PipelineStats {
	return m.last
}

func (m *mockPipeline) LastStats(_ context.Context) (*domain.PipelineStats, error) {
	return m.last, m.err
}

func (m *mockPipeline) Validate(_ context.Context) (*domain.QualityReport, error) {
	return nil, domain.ErrArtifactMissing
}
