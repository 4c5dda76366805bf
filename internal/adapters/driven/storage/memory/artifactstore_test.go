package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

func TestArtifactStore_PutGet(t *testing.T) {
	store := NewArtifactStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.ArtifactChunks, []byte(`{"chunks":[]}`)))

	data, err := store.Get(ctx, domain.ArtifactChunks)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunks":[]}`, string(data))

	ok, err := store.Exists(ctx, domain.ArtifactChunks)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{domain.ArtifactChunks}, store.Names())
}

func TestArtifactStore_GetMissing(t *testing.T) {
	store := NewArtifactStore()

	_, err := store.Get(context.Background(), "nope.json")

	assert.ErrorIs(t, err, domain.ErrArtifactMissing)
}

func TestArtifactStore_PutEmptyName(t *testing.T) {
	store := NewArtifactStore()
	err := store.Put(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
