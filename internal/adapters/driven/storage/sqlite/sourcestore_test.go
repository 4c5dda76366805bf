package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

func sampleLedger() *domain.SourceLedger {
	seen := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	validated := seen.Add(time.Hour)
	up := true

	ledger := domain.NewSourceLedger()
	ledger.Sources["src-a"] = domain.SourceRecord{
		ID:           "src-a",
		URL:          "https://www.hdfcfund.com/funds/top-100",
		AMCName:      "HDFC Mutual Fund",
		Title:        "HDFC Top 100",
		Type:         domain.SourceTypeAMC,
		Domain:       "www.hdfcfund.com",
		Validated:    true,
		IsAccessible: &up,
		ValidatedAt:  &validated,
		FirstSeenAt:  seen,
	}
	ledger.Sources["src-b"] = domain.SourceRecord{
		ID:          "src-b",
		URL:         "https://groww.in/mutual-funds/amc/hdfc-mutual-funds",
		AMCName:     "HDFC Mutual Fund",
		Type:        domain.SourceTypePlatform,
		Domain:      "groww.in",
		FirstSeenAt: seen.Add(time.Minute),
	}
	ledger.URLToID["https://www.hdfcfund.com/funds/top-100"] = "src-a"
	ledger.URLToID["https://groww.in/mutual-funds/amc/hdfc-mutual-funds"] = "src-b"
	ledger.ContentToSources["chunk-1"] = []string{"src-b", "src-a"}
	ledger.ContentToSources["chunk-2"] = []string{"src-a"}
	return ledger
}

func TestSourceStore_LoadEmpty(t *testing.T) {
	store := setupTestStore(t)

	ledger, err := store.SourceStore().Load(context.Background())
	require.NoError(t, err)

	assert.Empty(t, ledger.Sources)
	assert.Empty(t, ledger.URLToID)
	assert.Empty(t, ledger.ContentToSources)
}

func TestSourceStore_SaveAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	want := sampleLedger()

	require.NoError(t, store.SourceStore().Save(ctx, want))

	got, err := store.SourceStore().Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestSourceStore_LinkOrderPreserved(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SourceStore().Save(ctx, sampleLedger()))
	got, err := store.SourceStore().Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"src-b", "src-a"}, got.ContentToSources["chunk-1"])
}

func TestSourceStore_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SourceStore().Save(ctx, sampleLedger()))

	smaller := sampleLedger()
	delete(smaller.Sources, "src-b")
	delete(smaller.URLToID, "https://groww.in/mutual-funds/amc/hdfc-mutual-funds")
	smaller.ContentToSources = map[string][]string{"chunk-2": {"src-a"}}
	require.NoError(t, store.SourceStore().Save(ctx, smaller))

	got, err := store.SourceStore().Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Sources, 1)
	assert.Equal(t, map[string][]string{"chunk-2": {"src-a"}}, got.ContentToSources)
}

func TestSourceStore_SkipsDanglingLinks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ledger := sampleLedger()
	ledger.ContentToSources["chunk-3"] = []string{"missing"}
	require.NoError(t, store.SourceStore().Save(ctx, ledger))

	got, err := store.SourceStore().Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, got.ContentToSources, "chunk-3")
}

func TestSourceStore_SaveNil(t *testing.T) {
	store := setupTestStore(t)

	err := store.SourceStore().Save(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSourceStore_Location(t *testing.T) {
	store := setupTestStore(t)

	assert.Equal(t, store.Path(), store.SourceStore().Location())
}
