package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fundlink/internal/core/domain"
)

type stubProber struct {
	mu     sync.Mutex
	down   map[string]bool
	probed []string
}

func (p *stubProber) Probe(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, url)
	if p.down[url] {
		return errors.New("status 404")
	}
	return nil
}

func fixedClock() func() time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestTracker(opts ...TrackerOption) (*SourceTracker, *memory.SourceStore) {
	store := memory.NewSourceStore()
	opts = append([]TrackerOption{WithClock(fixedClock())}, opts...)
	return NewSourceTracker(store, opts...), store
}

func TestSourceTracker_AddSource_Deduplicates(t *testing.T) {
	tracker, _ := newTestTracker()

	id1 := tracker.AddSource("https://groww.in/mutual-funds/hdfc-top-100", "HDFC Mutual Fund", "", "")
	id2 := tracker.AddSource("  HTTPS://GROWW.IN/mutual-funds/hdfc-top-100/ ", "Other", "x", domain.SourceTypeAMC)

	assert.Equal(t, id1, id2)
	assert.Len(t, tracker.AllSources(""), 1)

	rec := tracker.GetSourceByID(id1)
	require.NotNil(t, rec)
	assert.Equal(t, "HDFC Mutual Fund", rec.AMCName)
	assert.Equal(t, domain.SourceTypePlatform, rec.Type)
	assert.Equal(t, "groww.in", rec.Domain)
	assert.False(t, rec.Validated)
	assert.Nil(t, rec.IsAccessible)
}

func TestSourceTracker_AddSource_ClassifiesType(t *testing.T) {
	tracker, _ := newTestTracker()

	tests := []struct {
		url      string
		expected domain.SourceType
	}{
		{"https://www.sebi.gov.in/circular", domain.SourceTypeSEBI},
		{"https://www.amfiindia.com/nav", domain.SourceTypeAMFI},
		{"https://www.hdfcfund.com/factsheet", domain.SourceTypeAMC},
		{"https://example.com/blog", domain.SourceTypeExternal},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id := tracker.AddSource(tt.url, "", "", "")
			assert.Equal(t, tt.expected, tracker.GetSourceByID(id).Type)
		})
	}
}

func TestSourceTracker_AddSource_ExplicitTypeWins(t *testing.T) {
	tracker, _ := newTestTracker()
	id := tracker.AddSource("https://example.com", "", "", domain.SourceTypeAMFI)
	assert.Equal(t, domain.SourceTypeAMFI, tracker.GetSourceByID(id).Type)
}

func TestSourceTracker_AddSource_EmptyURL(t *testing.T) {
	tracker, _ := newTestTracker()
	assert.Empty(t, tracker.AddSource("   ", "HDFC", "", ""))
	assert.Empty(t, tracker.AllSources(""))
}

func TestSourceTracker_LinkContent(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.AddSource("https://a.com/x", "A", "", "")
	tracker.AddSource("https://b.com/y", "B", "", "")

	assert.True(t, tracker.LinkContentToSource("chunk-1", "https://a.com/x"))
	assert.False(t, tracker.LinkContentToSource("chunk-1", "https://A.com/x/"), "duplicate link")
	assert.True(t, tracker.LinkContentToSource("chunk-1", "https://b.com/y"))
	assert.False(t, tracker.LinkContentToSource("chunk-1", "https://untracked.com"))
	assert.False(t, tracker.LinkContentToSource("", "https://a.com/x"))

	sources := tracker.GetSourcesForContent("chunk-1")
	require.Len(t, sources, 2)
	assert.Equal(t, "https://a.com/x", sources[0].URL)
	assert.Equal(t, "https://b.com/y", sources[1].URL)
	assert.Empty(t, tracker.GetSourcesForContent("unknown"))
	assert.Equal(t, 2, tracker.Statistics().TotalContentLinks)
}

func TestSourceTracker_GetSourceByURL(t *testing.T) {
	tracker, _ := newTestTracker()
	id := tracker.AddSource("https://a.com/x", "A", "Page", "")

	rec := tracker.GetSourceByURL("https://a.com/x/")
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ID)
	assert.Nil(t, tracker.GetSourceByURL("https://nope.com"))
	assert.Nil(t, tracker.GetSourceByID("src_missing"))
}

func TestSourceTracker_GetSourcesByAMC(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.AddSource("https://a.com/1", "HDFC Mutual Fund", "", "")
	tracker.AddSource("https://a.com/2", "SBI Mutual Fund", "", "")
	tracker.AddSource("https://a.com/3", "hdfc mutual fund", "", "")

	got := tracker.GetSourcesByAMC("HDFC MUTUAL FUND")

	require.Len(t, got, 2)
	assert.Equal(t, "https://a.com/1", got[0].URL)
	assert.Equal(t, "https://a.com/3", got[1].URL)
}

func TestSourceTracker_AllSources_ByType(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.AddSource("https://groww.in/a", "", "", "")
	tracker.AddSource("https://sebi.gov.in/b", "", "", "")

	assert.Len(t, tracker.AllSources(""), 2)
	platform := tracker.AllSources(domain.SourceTypePlatform)
	require.Len(t, platform, 1)
	assert.Equal(t, "https://groww.in/a", platform[0].URL)
}

func TestSourceTracker_ValidateSource(t *testing.T) {
	prober := &stubProber{down: map[string]bool{"https://down.com": true}}
	tracker, _ := newTestTracker(WithProber(prober))
	ctx := context.Background()

	up := tracker.AddSource("https://up.com", "", "", "")
	down := tracker.AddSource("https://down.com", "", "", "")

	assert.True(t, tracker.ValidateSource(ctx, up))
	assert.False(t, tracker.ValidateSource(ctx, down))
	assert.False(t, tracker.ValidateSource(ctx, "src_unknown"))

	rec := tracker.GetSourceByID(down)
	assert.True(t, rec.Validated)
	require.NotNil(t, rec.IsAccessible)
	assert.False(t, *rec.IsAccessible)
	assert.NotNil(t, rec.ValidatedAt)

	stats := tracker.Statistics()
	assert.Equal(t, 2, stats.ValidatedSources)
	assert.Equal(t, 1, stats.AccessibleSources)
}

func TestSourceTracker_ValidateSource_NoProber(t *testing.T) {
	tracker, _ := newTestTracker()
	id := tracker.AddSource("https://up.com", "", "", "")

	assert.False(t, tracker.ValidateSource(context.Background(), id))
	assert.True(t, tracker.GetSourceByID(id).Validated)
}

func TestSourceTracker_ValidateAll_SkipsValidated(t *testing.T) {
	prober := &stubProber{down: map[string]bool{"https://c.com": true}}
	tracker, _ := newTestTracker(WithProber(prober))
	ctx := context.Background()

	a := tracker.AddSource("https://a.com", "", "", "")
	tracker.AddSource("https://b.com", "", "", "")
	tracker.AddSource("https://c.com", "", "", "")
	tracker.ValidateSource(ctx, a)

	accessible := tracker.ValidateAll(ctx)

	assert.Equal(t, 1, accessible)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, prober.probed)
}

func TestSourceTracker_ValidateAll_Cancelled(t *testing.T) {
	prober := &stubProber{}
	tracker, _ := newTestTracker(WithProber(prober))
	tracker.AddSource("https://a.com", "", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Zero(t, tracker.ValidateAll(ctx))
	assert.Empty(t, prober.probed)
}

func TestSourceTracker_Statistics(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.AddSource("https://groww.in/a", "HDFC", "", "")
	tracker.AddSource("https://groww.in/b", "hdfc", "", "")
	tracker.AddSource("https://sebi.gov.in/c", "", "", "")

	stats := tracker.Statistics()

	assert.Equal(t, 3, stats.TotalSources)
	assert.Equal(t, 1, stats.UniqueAMCs)
	assert.Equal(t, 2, stats.SourcesByType[domain.SourceTypePlatform])
	assert.Equal(t, 1, stats.SourcesByType[domain.SourceTypeSEBI])
}

func TestSourceTracker_SaveLoad_RoundTrip(t *testing.T) {
	tracker, store := newTestTracker()
	ctx := context.Background()

	id := tracker.AddSource("https://a.com/x", "A", "Title", "")
	tracker.LinkContentToSource("chunk-1", "https://a.com/x")
	require.NoError(t, tracker.Save(ctx))

	restored := NewSourceTracker(store)
	require.NoError(t, restored.Load(ctx))

	assert.Equal(t, tracker.Statistics(), restored.Statistics())
	assert.Equal(t, id, restored.GetSourceByURL("https://a.com/x").ID)
	assert.Len(t, restored.GetSourcesForContent("chunk-1"), 1)
}

func TestSourceTracker_Load_DropsDanglingLinks(t *testing.T) {
	store := memory.NewSourceStore()
	ctx := context.Background()

	ledger := domain.NewSourceLedger()
	ledger.Sources["src_a"] = domain.SourceRecord{ID: "src_a", URL: "https://a.com/"}
	ledger.ContentToSources["c1"] = []string{"src_a", "src_gone", "src_a"}
	ledger.ContentToSources["c2"] = []string{"src_gone"}
	require.NoError(t, store.Save(ctx, ledger))

	tracker := NewSourceTracker(store)
	require.NoError(t, tracker.Load(ctx))

	assert.Len(t, tracker.GetSourcesForContent("c1"), 1)
	assert.Empty(t, tracker.GetSourcesForContent("c2"))
	require.NotNil(t, tracker.GetSourceByURL("https://a.com"))
	assert.Equal(t, 1, tracker.Statistics().TotalContentLinks)
}

func TestSourceTracker_NoStore(t *testing.T) {
	tracker := NewSourceTracker(nil)
	ctx := context.Background()

	assert.ErrorIs(t, tracker.Save(ctx), domain.ErrNotConfigured)
	assert.ErrorIs(t, tracker.Load(ctx), domain.ErrNotConfigured)
}

func TestSourceTracker_Reset(t *testing.T) {
	tracker, _ := newTestTracker()
	tracker.AddSource("https://a.com", "", "", "")
	tracker.LinkContentToSource("c", "https://a.com")

	tracker.Reset()

	assert.Zero(t, tracker.Statistics().TotalSources)
	assert.Empty(t, tracker.GetSourcesForContent("c"))
}

func TestSourceTracker_ConcurrentAdds(t *testing.T) {
	tracker, _ := newTestTracker()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.AddSource("https://same.com/page", "A", "", "")
		}()
	}
	wg.Wait()

	assert.Len(t, tracker.AllSources(""), 1)
}
