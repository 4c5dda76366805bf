package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.IngestionPipeline = (*Pipeline)(nil)

// Pipeline defaults.
const (
	DefaultEmbedBatchSize   = 32
	DefaultEmbedConcurrency = 4
)

// PipelineDeps are the collaborators an ingestion run needs.
// Scraper may be nil when runs always resume from a persisted stage.
// Artifacts may be nil, in which case nothing is persisted and runs
// cannot resume. Validator may be nil, which skips the quality report.
type PipelineDeps struct {
	Scraper   driven.Scraper
	Cleaner   driven.Cleaner
	Chunker   driven.Chunker
	Embedder  driven.EmbeddingService
	Resolver  driving.LinkResolver
	Index     driving.VectorIndex
	Tracker   driving.SourceTracker
	Artifacts driven.ArtifactStore
	Validator *DataValidator
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEmbedBatchSize sets the number of texts per embedding call.
func WithEmbedBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithEmbedConcurrency bounds the number of embedding calls in flight.
func WithEmbedConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPipelineClock overrides the time source.
func WithPipelineClock(fn func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if fn != nil {
			p.now = fn
		}
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(fn func() string) PipelineOption {
	return func(p *Pipeline) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// Pipeline sequences scrape, process, chunk, embed, map and store,
// persisting an artifact after each stage so later runs can resume.
type Pipeline struct {
	deps        PipelineDeps
	batchSize   int
	concurrency int
	now         func() time.Time
	newID       func() string

	mu      sync.RWMutex
	running bool
	state   domain.Stage
	stats   *domain.PipelineStats
}

// NewPipeline creates a pipeline over deps.
func NewPipeline(deps PipelineDeps, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		deps:        deps,
		batchSize:   DefaultEmbedBatchSize,
		concurrency: DefaultEmbedConcurrency,
		now:         time.Now,
		newID:       uuid.NewString,
		state:       domain.StageIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the stage the current or last run reached.
func (p *Pipeline) State() domain.Stage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Stats returns a copy of the current or last run's statistics, or nil
// before the first run.
func (p *Pipeline) Stats() *domain.PipelineStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats.Clone()
}

// LastStats returns the statistics of this process's most recent run or,
// if none ran yet, those persisted by a previous process.
// Returns domain.ErrArtifactMissing when no run has been recorded.
func (p *Pipeline) LastStats(ctx context.Context) (*domain.PipelineStats, error) {
	if stats := p.Stats(); stats != nil {
		return stats, nil
	}
	if p.deps.Artifacts == nil {
		return nil, fmt.Errorf("%s: %w", domain.ArtifactStats, domain.ErrArtifactMissing)
	}
	data, err := p.deps.Artifacts.Get(ctx, domain.ArtifactStats)
	if err != nil {
		return nil, err
	}
	return decodeStats(data)
}

// Run executes one ingestion run.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) Run(ctx context.Context, opts domain.RunOptions) (*domain.PipelineStats, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.end()

	logger.Info("Starting ingestion run %s", p.Stats().RunID)

	var (
		scraped   []domain.ScrapedDocument
		processed []domain.ProcessedDocument
		chunks    []domain.Chunk
		err       error
	)

	// 1. Resume from a persisted stage, if asked.
	if opts.ResumeFrom != domain.StageIdle {
		scraped, processed, chunks, err = p.resume(ctx, opts.ResumeFrom)
		if err != nil {
			return p.fail(ctx, err)
		}
	}

	// 2. Scrape.
	if p.State() < domain.StageScraped {
		if scraped, err = p.scrape(ctx); err != nil {
			return p.fail(ctx, err)
		}
	}

	// 3. Clean and extract.
	if p.State() < domain.StageProcessed {
		if processed, err = p.process(ctx, scraped); err != nil {
			return p.fail(ctx, err)
		}
	}

	// 4. Chunk.
	if p.State() < domain.StageChunked {
		if chunks, err = p.chunk(ctx, processed); err != nil {
			return p.fail(ctx, err)
		}
	}

	// 5. Embed.
	if p.State() < domain.StageEmbedded {
		if chunks, err = p.embed(ctx, chunks); err != nil {
			return p.fail(ctx, err)
		}
	}

	// 6. Resolve platform links and record attribution.
	if p.State() < domain.StageMapped {
		if err = p.mapLinks(ctx, chunks, opts.ValidateSources); err != nil {
			return p.fail(ctx, err)
		}
	}

	// 7. Check data quality.
	p.checkQuality(ctx, QualityInput{Scraped: scraped, Processed: processed, Chunks: chunks})

	// 8. Store.
	if err = p.store(ctx, chunks, opts.ResetIndex); err != nil {
		return p.fail(ctx, err)
	}

	// 9. Done.
	p.finish(ctx, domain.StageDone)
	stats := p.Stats()
	if stats.Succeeded() {
		logger.Info("Ingestion run %s completed in %.1fs", stats.RunID, stats.DurationSeconds)
	} else {
		logger.Warn("Ingestion run %s completed with %d errors", stats.RunID, len(stats.Errors))
	}
	return stats, nil
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("pipeline already running: %w", domain.ErrStageOrder)
	}
	p.running = true
	p.state = domain.StageIdle
	p.stats = domain.NewPipelineStats(p.newID(), p.now())
	return nil
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// record mutates the live stats under the lock.
func (p *Pipeline) record(fn func(s *domain.PipelineStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.stats)
}

func (p *Pipeline) addError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	p.record(func(s *domain.PipelineStats) { s.Errors = append(s.Errors, msg) })
}

// advance moves to the next stage. Stages never skip or move backwards.
func (p *Pipeline) advance(to domain.Stage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if to != p.state.Next() {
		return fmt.Errorf("cannot move from %s to %s: %w", p.state, to, domain.ErrStageOrder)
	}
	p.state = to
	p.stats.State = to.String()
	return nil
}

// finish stamps the end time and persists the run statistics.
func (p *Pipeline) finish(ctx context.Context, final domain.Stage) {
	p.mu.Lock()
	p.state = final
	p.stats.State = final.String()
	p.stats.Finish(p.now())
	snapshot := p.stats.Clone()
	p.mu.Unlock()

	if p.deps.Artifacts == nil {
		return
	}
	data, err := encodeStats(snapshot)
	if err == nil {
		err = p.deps.Artifacts.Put(ctx, domain.ArtifactStats, data)
	}
	if err != nil {
		logger.Warn("failed to save %s: %v", domain.ArtifactStats, err)
	}
}

// fail finalises the stats of a run that hit a fatal error.
func (p *Pipeline) fail(ctx context.Context, err error) (*domain.PipelineStats, error) {
	logger.Error("ingestion run failed at stage %s: %v", p.State(), err)
	p.record(func(s *domain.PipelineStats) { s.AddError("fatal: %v", err) })
	p.finish(ctx, p.State())
	return p.Stats(), err
}

// persist writes an artifact. Failures degrade the run but do not stop it.
func (p *Pipeline) persist(ctx context.Context, name string, encode func() ([]byte, error)) {
	if p.deps.Artifacts == nil {
		return
	}
	data, err := encode()
	if err == nil {
		err = p.deps.Artifacts.Put(ctx, name, data)
	}
	if err != nil {
		p.addError("saving %s: %v", name, err)
		return
	}
	logger.Debug("saved %s to %s", name, p.deps.Artifacts.Location())
}

// resume loads the artifact persisted on entering from and fast-forwards.
func (p *Pipeline) resume(
	ctx context.Context,
	from domain.Stage,
) ([]domain.ScrapedDocument, []domain.ProcessedDocument, []domain.Chunk, error) {
	if !from.Resumable() {
		return nil, nil, nil, fmt.Errorf("cannot resume from %s: %w", from, domain.ErrInvalidInput)
	}
	if p.deps.Artifacts == nil {
		return nil, nil, nil, fmt.Errorf("artifact store: %w", domain.ErrNotConfigured)
	}

	logger.Section(fmt.Sprintf("Resume: %s", from))
	data, err := p.deps.Artifacts.Get(ctx, from.Artifact())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load %s: %w", from.Artifact(), err)
	}

	var (
		scraped   []domain.ScrapedDocument
		processed []domain.ProcessedDocument
		chunks    []domain.Chunk
	)
	switch from {
	case domain.StageScraped:
		scraped, err = decodeScraped(data)
		p.record(func(s *domain.PipelineStats) {
			s.URLsProcessed = len(scraped)
			s.DocumentsScraped = len(scraped)
		})
	case domain.StageProcessed:
		processed, err = decodeProcessed(data)
		p.record(func(s *domain.PipelineStats) { s.DocumentsProcessed = len(processed) })
	case domain.StageChunked:
		chunks, err = decodeChunks(domain.ArtifactChunks, data)
		p.record(func(s *domain.PipelineStats) { s.ChunksCreated = len(chunks) })
	case domain.StageEmbedded:
		chunks, err = decodeChunks(domain.ArtifactEmbedded, data)
		p.record(func(s *domain.PipelineStats) {
			s.ChunksCreated = len(chunks)
			s.ChunksEmbedded = len(chunks)
		})
	case domain.StageMapped:
		chunks, err = decodeFinal(data)
		p.record(func(s *domain.PipelineStats) {
			s.ChunksCreated = len(chunks)
			s.ChunksEmbedded = len(chunks)
			for _, c := range chunks {
				if c.PlatformURL != "" {
					s.ChunksMapped++
				}
			}
		})
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if err := domain.CheckUniqueIDs(chunks); err != nil {
		return nil, nil, nil, err
	}

	p.mu.Lock()
	p.state = from
	p.stats.State = from.String()
	p.mu.Unlock()
	logger.Info("Loaded %s from a previous run", from.Artifact())
	return scraped, processed, chunks, nil
}

func (p *Pipeline) scrape(ctx context.Context) ([]domain.ScrapedDocument, error) {
	logger.Section("Stage: scrape")
	if p.deps.Scraper == nil {
		return nil, fmt.Errorf("scraper: %w", domain.ErrNotConfigured)
	}

	docs, err := p.deps.Scraper.Scrape(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	p.record(func(s *domain.PipelineStats) {
		s.URLsProcessed = p.deps.Scraper.URLCount()
		s.DocumentsScraped = len(docs)
	})
	for _, e := range splitErrors(err) {
		p.addError("scraping: %v", e)
	}
	logger.Info("Scraped %d documents", len(docs))

	p.persist(ctx, domain.ArtifactScraped, func() ([]byte, error) { return encodeScraped(docs) })
	return docs, p.advance(domain.StageScraped)
}

func (p *Pipeline) process(ctx context.Context, scraped []domain.ScrapedDocument) ([]domain.ProcessedDocument, error) {
	logger.Section("Stage: process")
	if p.deps.Cleaner == nil {
		return nil, fmt.Errorf("cleaner: %w", domain.ErrNotConfigured)
	}

	processed := make([]domain.ProcessedDocument, 0, len(scraped))
	for _, doc := range scraped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if doc.URL == "" {
			p.addError("processing: document %q has no url", doc.Title)
			continue
		}
		out, err := p.deps.Cleaner.Clean(ctx, doc)
		if err != nil {
			p.addError("processing %s: %v", doc.URL, err)
			continue
		}
		processed = append(processed, *out)
		p.record(func(s *domain.PipelineStats) { s.DocumentsProcessed++ })
	}
	logger.Info("Processed %d of %d documents", len(processed), len(scraped))

	p.persist(ctx, domain.ArtifactProcessed, func() ([]byte, error) { return encodeProcessed(processed) })
	return processed, p.advance(domain.StageProcessed)
}

func (p *Pipeline) chunk(ctx context.Context, processed []domain.ProcessedDocument) ([]domain.Chunk, error) {
	logger.Section("Stage: chunk")
	if p.deps.Chunker == nil {
		return nil, fmt.Errorf("chunker: %w", domain.ErrNotConfigured)
	}

	chunks := p.deps.Chunker.ProcessDocuments(processed)
	if err := domain.CheckUniqueIDs(chunks); err != nil {
		return nil, err
	}
	p.record(func(s *domain.PipelineStats) { s.ChunksCreated = len(chunks) })
	logger.Info("Created %d chunks with the %s chunker", len(chunks), p.deps.Chunker.Name())

	p.persist(ctx, domain.ArtifactChunks, func() ([]byte, error) { return encodeChunks(chunks, "") })
	return chunks, p.advance(domain.StageChunked)
}

// embed attaches embeddings in parallel batches. Output order matches input
// order; chunks from a failed batch are dropped and recorded.
func (p *Pipeline) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	logger.Section("Stage: embed")
	if p.deps.Embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	model := p.deps.Embedder.ModelName()

	type batchResult struct {
		vectors [][]float32
		err     error
	}
	nBatches := (len(chunks) + p.batchSize - 1) / p.batchSize
	results := make([]batchResult, nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for b := 0; b < nBatches; b++ {
		start := b * p.batchSize
		end := min(start+p.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		g.Go(func() error {
			vecs, err := p.deps.Embedder.EmbedBatch(gctx, texts)
			if err == nil && len(vecs) != len(texts) {
				err = fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(texts))
			}
			results[b] = batchResult{vectors: vecs, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedded := make([]domain.Chunk, 0, len(chunks))
	for b, res := range results {
		start := b * p.batchSize
		end := min(start+p.batchSize, len(chunks))
		if res.err != nil {
			p.addError("embedding chunks %d-%d: %v", start, end-1, res.err)
			continue
		}
		for i, c := range chunks[start:end] {
			if len(res.vectors[i]) == 0 {
				p.addError("embedding %s: empty vector", c.ID)
				continue
			}
			embedded = append(embedded, c.WithEmbedding(res.vectors[i], model))
		}
	}
	p.record(func(s *domain.PipelineStats) { s.ChunksEmbedded = len(embedded) })
	logger.Info("Embedded %d of %d chunks with %s", len(embedded), len(chunks), model)

	p.persist(ctx, domain.ArtifactEmbedded, func() ([]byte, error) { return encodeChunks(embedded, model) })
	return embedded, p.advance(domain.StageEmbedded)
}

// mapLinks resolves platform links in place and records each chunk's sources.
func (p *Pipeline) mapLinks(ctx context.Context, chunks []domain.Chunk, validate bool) error {
	logger.Section("Stage: map")
	if p.deps.Resolver == nil {
		return fmt.Errorf("link resolver: %w", domain.ErrNotConfigured)
	}

	mapped := 0
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata[domain.MetaContentType] = string(domain.ClassifyContent(chunks[i].SourceURL))
		chunks[i].PlatformURL = p.deps.Resolver.Resolve(chunks[i])
		if chunks[i].PlatformURL != "" {
			mapped++
		}
		p.track(chunks[i])
	}
	p.record(func(s *domain.PipelineStats) { s.ChunksMapped = mapped })
	logger.Info("Mapped %d of %d chunks to platform pages", mapped, len(chunks))

	if p.deps.Tracker != nil {
		if validate {
			accessible := p.deps.Tracker.ValidateAll(ctx)
			logger.Info("%d sources accessible", accessible)
		}
		if err := p.deps.Tracker.Save(ctx); err != nil && !errors.Is(err, domain.ErrNotConfigured) {
			p.addError("saving source ledger: %v", err)
		}
		total := p.deps.Tracker.Statistics().TotalSources
		p.record(func(s *domain.PipelineStats) { s.SourcesTracked = total })
	}

	model := ""
	if p.deps.Embedder != nil {
		model = p.deps.Embedder.ModelName()
	}
	p.persist(ctx, domain.ArtifactFinal, func() ([]byte, error) { return encodeFinal(chunks, model) })
	return p.advance(domain.StageMapped)
}

// checkQuality builds and persists the data quality report. Issues are
// counted in stats but are not run errors.
func (p *Pipeline) checkQuality(ctx context.Context, in QualityInput) {
	if p.deps.Validator == nil {
		return
	}
	logger.Section("Stage: validate")
	report := p.deps.Validator.Report(in)
	p.record(func(s *domain.PipelineStats) {
		s.QualityIssues = report.IssueCount()
		s.DuplicateChunks = report.DuplicateChunks()
	})
	logger.Info("Data quality: %d issues, %d duplicate chunks", report.IssueCount(), report.DuplicateChunks())
	p.persist(ctx, domain.ArtifactValidation, func() ([]byte, error) { return encodeReport(report) })
}

// Validate checks the persisted artifacts of the last run without running
// any stage, and saves the report. Missing artifacts are skipped; the
// chunks are taken from the latest chunk artifact present.
func (p *Pipeline) Validate(ctx context.Context) (*domain.QualityReport, error) {
	if p.deps.Artifacts == nil || p.deps.Validator == nil {
		return nil, fmt.Errorf("validation: %w", domain.ErrNotConfigured)
	}

	var in QualityInput
	if data, err := p.optionalArtifact(ctx, domain.ArtifactScraped); err != nil {
		return nil, err
	} else if data != nil {
		if in.Scraped, err = decodeScraped(data); err != nil {
			return nil, err
		}
	}
	if data, err := p.optionalArtifact(ctx, domain.ArtifactProcessed); err != nil {
		return nil, err
	} else if data != nil {
		if in.Processed, err = decodeProcessed(data); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{domain.ArtifactFinal, domain.ArtifactEmbedded, domain.ArtifactChunks} {
		data, err := p.optionalArtifact(ctx, name)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		if name == domain.ArtifactFinal {
			in.Chunks, err = decodeFinal(data)
		} else {
			in.Chunks, err = decodeChunks(name, data)
		}
		if err != nil {
			return nil, err
		}
		break
	}

	report := p.deps.Validator.Report(in)
	if report.Empty() {
		return nil, fmt.Errorf("nothing to validate: %w", domain.ErrArtifactMissing)
	}
	data, err := encodeReport(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	if err := p.deps.Artifacts.Put(ctx, domain.ArtifactValidation, data); err != nil {
		return nil, fmt.Errorf("saving %s: %w", domain.ArtifactValidation, err)
	}
	return report, nil
}

// optionalArtifact returns nil data, not an error, for a missing artifact.
func (p *Pipeline) optionalArtifact(ctx context.Context, name string) ([]byte, error) {
	data, err := p.deps.Artifacts.Get(ctx, name)
	if errors.Is(err, domain.ErrArtifactMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return data, nil
}

// track registers the chunk's source URL and its resolved platform page.
func (p *Pipeline) track(c domain.Chunk) {
	t := p.deps.Tracker
	if t == nil {
		return
	}
	amc := domain.MetadataString(c.Metadata, domain.MetaAMCName)
	if c.SourceURL == "" {
		p.addError("tracking %s: chunk has no source url", c.ID)
	} else if t.AddSource(c.SourceURL, amc, domain.MetadataString(c.Metadata, domain.MetaTitle), "") != "" {
		t.LinkContentToSource(c.ID, c.SourceURL)
	}
	if c.PlatformURL != "" && c.PlatformURL != c.SourceURL {
		if t.AddSource(c.PlatformURL, amc, "", domain.SourceTypePlatform) != "" {
			t.LinkContentToSource(c.ID, c.PlatformURL)
		}
	}
}

func (p *Pipeline) store(ctx context.Context, chunks []domain.Chunk, reset bool) error {
	logger.Section("Stage: store")
	if p.deps.Index == nil {
		return domain.ErrVectorIndexUnavailable
	}

	if reset {
		if err := p.deps.Index.Reset(ctx); err != nil {
			p.addError("resetting vector index: %v", err)
		} else {
			logger.Info("Vector index reset")
		}
	}

	written, err := p.deps.Index.AddChunks(ctx, chunks)
	p.record(func(s *domain.PipelineStats) { s.ChunksStored = written })
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) || ctx.Err() != nil {
			return err
		}
		p.addError("storing chunks: %v", err)
	}
	logger.Info("Stored %d chunks", written)
	return p.advance(domain.StageStored)
}

// splitErrors flattens an errors.Join value into its parts.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
