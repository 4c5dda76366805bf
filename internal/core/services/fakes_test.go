package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// fakeEmbedder maps text to a tiny deterministic vector.
type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	failOn  string
	batches [][]string
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := []float32{1, 0, 0}
	switch {
	case strings.Contains(text, "expense"):
		v = []float32{0, 1, 0}
	case strings.Contains(text, "exit"):
		v = []float32{0, 0, 1}
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding backend down")
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn != "" && strings.Contains(t, f.failOn) {
			return nil, errors.New("embedding backend down")
		}
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return 3 }
func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// recordingEngine wraps the memory engine, records batch sizes and can
// pretend it has no server-side filtering.
type recordingEngine struct {
	*memory.VectorEngine
	noWhere bool
	batches []int
}

func newRecordingEngine(maxBatch int, noWhere bool) *recordingEngine {
	return &recordingEngine{VectorEngine: memory.NewVectorEngine("test", maxBatch), noWhere: noWhere}
}

func (e *recordingEngine) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	e.batches = append(e.batches, len(records))
	return e.VectorEngine.Upsert(ctx, records)
}

func (e *recordingEngine) Query(ctx context.Context, emb []float32, n int, where map[string]any) ([]driven.VectorMatch, error) {
	if e.noWhere && len(where) > 0 {
		return nil, errors.New("where not supported")
	}
	return e.VectorEngine.Query(ctx, emb, n, where)
}

func (e *recordingEngine) SupportsWhere() bool {
	return !e.noWhere
}

func embeddedChunk(id, content string, vec []float32, meta map[string]any) domain.Chunk {
	c := domain.Chunk{
		ID:        id,
		Content:   content,
		SourceURL: "https://www.hdfcfund.com/" + id,
		Metadata:  meta,
	}
	return c.WithEmbedding(vec, "fake-embed")
}
