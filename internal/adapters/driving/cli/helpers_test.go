package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/services"
)

// fakePipeline records runs and returns canned stats.
type fakePipeline struct {
	mu        sync.Mutex
	runs      []domain.RunOptions
	stats     *domain.PipelineStats
	err       error
	last      *domain.PipelineStats
	lastErr   error
	report    *domain.QualityReport
	reportErr error
}

func (p *fakePipeline) Run(_ context.Context, opts domain.RunOptions) (*domain.PipelineStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, opts)
	return p.stats, p.err
}

func (p *fakePipeline) State() domain.Stage {
	return domain.StageDone
}

func (p *fakePipeline) Stats() *domain.PipelineStats {
	return p.stats
}

func (p *fakePipeline) LastStats(_ context.Context) (*domain.PipelineStats, error) {
	if p.lastErr != nil {
		return nil, p.lastErr
	}
	if p.last == nil {
		return nil, domain.ErrArtifactMissing
	}
	return p.last, nil
}

func (p *fakePipeline) Validate(_ context.Context) (*domain.QualityReport, error) {
	if p.reportErr != nil {
		return nil, p.reportErr
	}
	if p.report == nil {
		return nil, domain.ErrArtifactMissing
	}
	return p.report, nil
}

func (p *fakePipeline) Runs() []domain.RunOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RunOptions(nil), p.runs...)
}

// testEnv is a fully wired in-memory service set.
type testEnv struct {
	index    *services.VectorIndex
	tracker  *services.SourceTracker
	settings *services.SettingsService
	pipeline *fakePipeline
	embedder *hashing.EmbeddingService
}

func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	embedder := hashing.NewEmbeddingService(128)
	env := &testEnv{
		index:    services.NewVectorIndex(memory.NewVectorEngine("test_funds", 0), embedder),
		tracker:  services.NewSourceTracker(memory.NewSourceStore()),
		settings: services.NewSettingsService(memory.NewConfigStore()),
		pipeline: &fakePipeline{},
		embedder: embedder,
	}

	SetServices(&Services{
		Index:    env.index,
		Pipeline: env.pipeline,
		Resolver: services.NewLinkResolver(domain.DefaultCatalog()),
		Sources:  env.tracker,
		Settings: env.settings,
	})
	t.Cleanup(func() {
		svc = nil
		bootstrap = nil
		resetFlags(rootCmd)
	})
	return env
}

// seed embeds and stores two chunks from different AMCs.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	chunks := []domain.Chunk{
		{
			ID:          "hdfc-top-100#0",
			Content:     "The expense ratio of HDFC Top 100 Fund is 0.5% per annum.",
			SourceURL:   "https://www.hdfcfund.com/top-100",
			Metadata:    map[string]any{domain.MetaAMCName: "HDFC Mutual Fund", domain.MetaTitle: "HDFC Top 100"},
			PlatformURL: "https://groww.in/mutual-funds/hdfc-top-100#expense-ratio",
		},
		{
			ID:        "sbi-bluechip#0",
			Content:   "Exit load of 1% applies if redeemed within one year of allotment.",
			SourceURL: "https://www.sbimf.com/bluechip",
			Metadata:  map[string]any{domain.MetaAMCName: "SBI Mutual Fund", domain.MetaTitle: "SBI Bluechip"},
		},
	}
	for i := range chunks {
		emb, err := e.embedder.Embed(context.Background(), chunks[i].Content)
		require.NoError(t, err)
		chunks[i].Embedding = emb
	}

	n, err := e.index.AddChunks(context.Background(), chunks)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func finishedStats(runID string) *domain.PipelineStats {
	stats := domain.NewPipelineStats(runID, testTime)
	stats.State = domain.StageDone.String()
	stats.URLsProcessed = 3
	stats.DocumentsScraped = 3
	stats.DocumentsProcessed = 2
	stats.ChunksCreated = 10
	stats.ChunksEmbedded = 10
	stats.ChunksStored = 10
	stats.ChunksMapped = 7
	stats.SourcesTracked = 2
	stats.Finish(testTime.Add(1500 * time.Millisecond))
	return stats
}
