package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

func TestVectorIndex_AddChunks_SplitsBatches(t *testing.T) {
	engine := newRecordingEngine(2, false)
	index := NewVectorIndex(engine, nil)
	ctx := context.Background()

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = embeddedChunk(fmt.Sprintf("c%d", i), "text", []float32{1, 0, 0}, nil)
	}

	written, err := index.AddChunks(ctx, chunks)

	require.NoError(t, err)
	assert.Equal(t, 5, written)
	assert.Equal(t, []int{2, 2, 1}, engine.batches)
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestVectorIndex_AddChunks_Idempotent(t *testing.T) {
	index := NewVectorIndex(newRecordingEngine(0, false), nil)
	ctx := context.Background()
	chunks := []domain.Chunk{
		embeddedChunk("a", "one", []float32{1, 0, 0}, nil),
		embeddedChunk("b", "two", []float32{0, 1, 0}, nil),
	}

	_, err := index.AddChunks(ctx, chunks)
	require.NoError(t, err)
	_, err = index.AddChunks(ctx, chunks)
	require.NoError(t, err)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestVectorIndex_AddChunks_DuplicateInCallLastWins(t *testing.T) {
	index := NewVectorIndex(newRecordingEngine(0, false), nil)
	ctx := context.Background()

	written, err := index.AddChunks(ctx, []domain.Chunk{
		embeddedChunk("a", "first", []float32{1, 0, 0}, nil),
		embeddedChunk("a", "second", []float32{1, 0, 0}, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	recs, err := index.GetByID(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "second", recs[0].Content)
}

func TestVectorIndex_AddChunks_RejectsMissingEmbedding(t *testing.T) {
	index := NewVectorIndex(newRecordingEngine(0, false), nil)

	_, err := index.AddChunks(context.Background(), []domain.Chunk{{ID: "a", Content: "x"}})

	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestVectorIndex_NoEngine(t *testing.T) {
	index := NewVectorIndex(nil, nil)
	ctx := context.Background()

	_, err := index.AddChunks(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
	_, err = index.Query(ctx, domain.QueryRequest{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
	_, err = index.Count(ctx)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func seedIndex(t *testing.T, noWhere bool) (*VectorIndex, *fakeEmbedder) {
	t.Helper()
	emb := &fakeEmbedder{}
	index := NewVectorIndex(newRecordingEngine(0, noWhere), emb)
	_, err := index.AddChunks(context.Background(), []domain.Chunk{
		embeddedChunk("general", "general fund overview", []float32{1, 0, 0}, map[string]any{domain.MetaAMCName: "HDFC"}),
		embeddedChunk("expense", "expense ratio is 0.5%", []float32{0, 1, 0}, map[string]any{domain.MetaAMCName: "HDFC"}),
		embeddedChunk("expense-sbi", "expense ratio is 0.9%", []float32{0, 0.9, 0.1}, map[string]any{domain.MetaAMCName: "SBI"}),
	})
	require.NoError(t, err)
	return index, emb
}

func TestVectorIndex_Query_EmbedsText(t *testing.T) {
	index, emb := seedIndex(t, false)

	results, err := index.Query(context.Background(), domain.QueryRequest{Text: "what is the expense ratio", NResults: 2})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "expense", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, 1, emb.calls)
}

func TestVectorIndex_Query_ExplicitEmbeddingSkipsEmbedder(t *testing.T) {
	index, emb := seedIndex(t, false)

	results, err := index.Query(context.Background(), domain.QueryRequest{Embedding: []float32{1, 0, 0}})

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "general", results[0].ChunkID)
	assert.Zero(t, emb.calls)
}

func TestVectorIndex_Query_NoEmbedder(t *testing.T) {
	index := NewVectorIndex(newRecordingEngine(0, false), nil)

	_, err := index.Query(context.Background(), domain.QueryRequest{Text: "x"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestVectorIndex_Query_WhereServerAndClientSide(t *testing.T) {
	for _, noWhere := range []bool{false, true} {
		t.Run(fmt.Sprintf("noWhere=%v", noWhere), func(t *testing.T) {
			index, _ := seedIndex(t, noWhere)

			results, err := index.Query(context.Background(), domain.QueryRequest{
				Embedding: []float32{0, 1, 0},
				NResults:  5,
				Where:     map[string]any{domain.MetaAMCName: "SBI"},
			})

			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "expense-sbi", results[0].ChunkID)
		})
	}
}

func TestVectorIndex_FilterAndInfo(t *testing.T) {
	index, _ := seedIndex(t, false)
	ctx := context.Background()

	recs, err := index.FilterByMetadata(ctx, map[string]any{domain.MetaAMCName: "HDFC"}, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	info, err := index.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionInfo{Name: "test", Count: 3, Location: ":memory:", Engine: "memory"}, info)

	require.NoError(t, index.Reset(ctx))
	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPrepareMetadata(t *testing.T) {
	c := embeddedChunk("a", "héllo", []float32{1}, map[string]any{
		domain.MetaAMCName: "HDFC Mutual Fund",
		domain.MetaAMCID:   "hdfc",
		domain.MetaTitle:   "Top 100",
		domain.MetaStructuredInfo: map[string]any{
			"expense_ratio": "0.5%",
			"managers":      []any{"A", "B"},
		},
		"tags":  []string{"x"},
		"count": 3,
		"nil":   nil,
	})
	c.Index = 4
	c.PlatformURL = "https://groww.in/mutual-funds/x"

	meta := PrepareMetadata(c)

	assert.Equal(t, "HDFC Mutual Fund", meta[domain.MetaAMCName])
	assert.Equal(t, "hdfc", meta[domain.MetaAMCID])
	assert.Equal(t, "Top 100", meta[domain.MetaTitle])
	assert.Equal(t, c.SourceURL, meta[domain.MetaSourceURL])
	assert.Equal(t, int64(4), meta[domain.MetaChunkIndex])
	assert.Equal(t, int64(5), meta[domain.MetaContentLength])
	assert.Equal(t, "fake-embed", meta[domain.MetaEmbeddingModel])
	assert.Equal(t, "https://groww.in/mutual-funds/x", meta[domain.MetaPlatformURL])
	assert.Equal(t, int64(3), meta["count"])
	assert.Equal(t, "0.5%", meta["info_expense_ratio"])
	assert.NotContains(t, meta, "info_managers")
	assert.JSONEq(t, `{"expense_ratio":"0.5%","managers":["A","B"]}`, meta["structured_info_json"].(string))
	assert.Equal(t, `["x"]`, meta["tags_json"])
	assert.NotContains(t, meta, domain.MetaStructuredInfo)
	assert.NotContains(t, meta, "nil")

	for k, v := range meta {
		switch v.(type) {
		case string, bool, int64, float64:
		default:
			t.Errorf("metadata %q has non-scalar type %T", k, v)
		}
	}
}
