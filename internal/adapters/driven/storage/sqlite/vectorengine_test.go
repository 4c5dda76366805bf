package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

func record(id string, vec []float32, meta map[string]any) driven.VectorRecord {
	return driven.VectorRecord{ID: id, Document: "doc " + id, Embedding: vec, Metadata: meta}
}

func seedEngine(t *testing.T) *VectorEngine {
	t.Helper()
	engine := setupTestStore(t).VectorEngine("funds")
	require.NoError(t, engine.Upsert(context.Background(), []driven.VectorRecord{
		record("a", []float32{1, 0, 0}, map[string]any{"amc_name": "HDFC Mutual Fund", "chunk_index": int64(0)}),
		record("b", []float32{0, 1, 0}, map[string]any{"amc_name": "SBI Mutual Fund", "chunk_index": int64(1)}),
		record("c", []float32{0.9, 0.1, 0}, map[string]any{"amc_name": "HDFC Mutual Fund", "ratio": 0.75}),
	}))
	return engine
}

func TestVectorEngine_UpsertAndCount(t *testing.T) {
	engine := seedEngine(t)

	n, err := engine.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVectorEngine_UpsertOverwrites(t *testing.T) {
	engine := seedEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Upsert(ctx, []driven.VectorRecord{
		record("a", []float32{0, 0, 1}, map[string]any{"amc_name": "Axis Mutual Fund"}),
	}))

	n, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := engine.Get(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0, 0, 1}, got[0].Embedding)
	assert.Equal(t, "Axis Mutual Fund", got[0].Metadata["amc_name"])
}

func TestVectorEngine_UpsertRejects(t *testing.T) {
	engine := seedEngine(t)
	ctx := context.Background()

	err := engine.Upsert(ctx, []driven.VectorRecord{record("", []float32{1, 0, 0}, nil)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = engine.Upsert(ctx, []driven.VectorRecord{record("d", []float32{1, 0}, nil)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	big := make([]driven.VectorRecord, MaxBatchSize+1)
	for i := range big {
		big[i] = record(fmt.Sprintf("r%d", i), []float32{1, 0, 0}, nil)
	}
	err = engine.Upsert(ctx, big)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorEngine_Query(t *testing.T) {
	engine := seedEngine(t)

	matches, err := engine.Query(context.Background(), []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "c", matches[1].ID)
	assert.Equal(t, "doc a", matches[0].Document)
}

func TestVectorEngine_QueryWhere(t *testing.T) {
	engine := seedEngine(t)

	matches, err := engine.Query(context.Background(), []float32{1, 0, 0}, 5,
		map[string]any{"amc_name": "SBI Mutual Fund"})
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].ID)
}

func TestVectorEngine_QueryZeroN(t *testing.T) {
	engine := seedEngine(t)

	matches, err := engine.Query(context.Background(), []float32{1, 0, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorEngine_GetPreservesOrderAndTypes(t *testing.T) {
	engine := seedEngine(t)

	got, err := engine.Get(context.Background(), []string{"c", "missing", "b"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, 0.75, got[0].Metadata["ratio"])
	assert.Equal(t, int64(1), got[1].Metadata["chunk_index"])
}

func TestVectorEngine_Filter(t *testing.T) {
	engine := seedEngine(t)
	ctx := context.Background()

	got, err := engine.Filter(ctx, map[string]any{"amc_name": "HDFC Mutual Fund"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	limited, err := engine.Filter(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestVectorEngine_CollectionsAreIsolated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	funds := store.VectorEngine("funds")
	other := store.VectorEngine("other")

	require.NoError(t, funds.Upsert(ctx, []driven.VectorRecord{record("a", []float32{1, 0}, nil)}))
	require.NoError(t, other.Upsert(ctx, []driven.VectorRecord{record("a", []float32{1, 0, 0}, nil)}))

	require.NoError(t, other.Reset(ctx))

	n, err := funds.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVectorEngine_ResetAllowsNewDimensions(t *testing.T) {
	engine := seedEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Reset(ctx))
	require.NoError(t, engine.Upsert(ctx, []driven.VectorRecord{record("x", []float32{1, 0, 0, 0, 0}, nil)}))

	n, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorEngine_Info(t *testing.T) {
	store := setupTestStore(t)
	engine := store.VectorEngine("funds")

	assert.Equal(t, driven.EngineInfo{Engine: "sqlite", Collection: "funds", Location: store.Path()}, engine.Info())
	assert.True(t, engine.SupportsWhere())
	assert.Equal(t, MaxBatchSize, engine.MaxBatchSize())
	assert.NoError(t, engine.Close())
}
