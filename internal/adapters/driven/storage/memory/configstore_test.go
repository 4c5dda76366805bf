package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Empty(t *testing.T) {
	s := NewConfigStore()

	assert.Empty(t, s.Snapshot())
	assert.Equal(t, ":memory:", s.Path())
}

func TestNewConfigStore_Seeded(t *testing.T) {
	base := map[string]any{"chunker.chunk_size": 500, "vector.engine": "sqlite"}
	override := map[string]any{"vector.engine": "memory"}

	s := NewConfigStore(base, override)
	base["chunker.chunk_size"] = 1

	assert.Equal(t, 500, s.GetInt("chunker.chunk_size"))
	assert.Equal(t, "memory", s.GetString("vector.engine"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	s := NewConfigStore(map[string]any{
		"int":      7,
		"int64":    int64(8),
		"float":    9.0,
		"fraction": 9.5,
		"string":   "sentence",
	})

	assert.Equal(t, 7, s.GetInt("int"))
	assert.Equal(t, 8, s.GetInt("int64"))
	assert.Equal(t, 9, s.GetInt("float"))
	assert.Zero(t, s.GetInt("fraction"))
	assert.Zero(t, s.GetInt("string"))
	assert.Equal(t, "sentence", s.GetString("string"))
	assert.Empty(t, s.GetString("int"))
	assert.InDelta(t, 9.5, s.GetFloat("fraction"), 1e-9)
	assert.InDelta(t, 7.0, s.GetFloat("int"), 1e-9)
	assert.InDelta(t, 8.0, s.GetFloat("int64"), 1e-9)
	assert.Zero(t, s.GetFloat("string"))
	assert.Zero(t, s.GetFloat("missing"))
}

func TestConfigStore_SetAndSave(t *testing.T) {
	s := NewConfigStore()

	require.NoError(t, s.Set("embedding.provider", "ollama"))
	require.NoError(t, s.Save())
	require.NoError(t, s.Save())
	require.NoError(t, s.Load())

	val, ok := s.Get("embedding.provider")
	assert.True(t, ok)
	assert.Equal(t, "ollama", val)
	assert.Equal(t, 2, s.Saves())
}

func TestConfigStore_Concurrency(t *testing.T) {
	s := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			_ = s.Set("pipeline.embed_batch_size", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = s.GetInt("pipeline.embed_batch_size")
		}()
		go func() {
			defer wg.Done()
			_ = s.Save()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Saves())
	_, ok := s.Get("pipeline.embed_batch_size")
	assert.True(t, ok)
}
