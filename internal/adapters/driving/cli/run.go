package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

var (
	runResumeFrom   string
	runSkipScraping bool
	runResetIndex   bool
	runValidate     bool
	runWatch        bool
	runDebounce     time.Duration
)

// progressInterval is how often a running pipeline is polled for its stage.
var progressInterval = 500 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline",
	Long: `Scrapes the configured source URLs, cleans and chunks the content, embeds
the chunks, maps them to platform links and stores them in the vector index.

Each stage persists an artifact, so a run can resume from any stage:
  scraped, processed, chunked, embedded, mapped

With --watch the pipeline runs again whenever the source list changes.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runResumeFrom, "resume-from", "", "resume from a persisted stage")
	runCmd.Flags().BoolVar(&runSkipScraping, "skip-scraping", false, "reuse the last scraped content (same as --resume-from scraped)")
	runCmd.Flags().BoolVar(&runResetIndex, "reset-index", false, "clear the vector index before storing")
	runCmd.Flags().BoolVar(&runValidate, "validate", false, "probe newly tracked sources for reachability")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "re-run when the source list changes")
	runCmd.Flags().DurationVar(&runDebounce, "debounce", 2*time.Second, "quiet period before a watched change triggers a run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	pipeline, err := pipelineService()
	if err != nil {
		return err
	}

	opts, err := runOptions()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stats, err := runWithProgress(ctx, cmd, pipeline, opts)
	printRunSummary(cmd, stats)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if !runWatch {
		return nil
	}

	// Later runs start from scratch and never reset the index again.
	opts.ResumeFrom = domain.StageIdle
	opts.ResetIndex = false
	return watchSources(ctx, cmd, pipeline, opts)
}

func runOptions() (domain.RunOptions, error) {
	opts := domain.RunOptions{
		ResetIndex:      runResetIndex,
		ValidateSources: runValidate,
	}

	switch {
	case runResumeFrom != "" && runSkipScraping:
		return opts, errors.New("--resume-from and --skip-scraping are mutually exclusive")
	case runSkipScraping:
		opts.ResumeFrom = domain.StageScraped
	case runResumeFrom != "":
		stage, err := domain.ParseStage(runResumeFrom)
		if err != nil {
			return opts, err
		}
		if !stage.Resumable() {
			return opts, fmt.Errorf("cannot resume from stage %q", stage)
		}
		opts.ResumeFrom = stage
	}
	return opts, nil
}

// runWithProgress runs the pipeline while reporting stage transitions.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.IngestionPipeline,
	opts domain.RunOptions,
) (*domain.PipelineStats, error) {
	type result struct {
		stats *domain.PipelineStats
		err   error
	}

	done := make(chan result, 1)
	go func() {
		stats, err := pipeline.Run(ctx, opts)
		done <- result{stats, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	last := domain.StageIdle
	for {
		select {
		case r := <-done:
			return r.stats, r.err
		case <-ticker.C:
			if stage := pipeline.State(); stage != last {
				cmd.Printf("Stage: %s\n", stage)
				last = stage
			}
		}
	}
}

func printRunSummary(cmd *cobra.Command, stats *domain.PipelineStats) {
	if stats == nil {
		return
	}

	cmd.Println()
	cmd.Printf("Run %s: %s (%.1fs)\n", stats.RunID, stats.State, stats.DurationSeconds)
	cmd.Printf("  URLs:       %d\n", stats.URLsProcessed)
	cmd.Printf("  Scraped:    %d\n", stats.DocumentsScraped)
	cmd.Printf("  Processed:  %d\n", stats.DocumentsProcessed)
	cmd.Printf("  Chunks:     %d created, %d embedded, %d stored\n",
		stats.ChunksCreated, stats.ChunksEmbedded, stats.ChunksStored)
	cmd.Printf("  Mapped:     %d\n", stats.ChunksMapped)
	cmd.Printf("  Sources:    %d\n", stats.SourcesTracked)

	if !stats.Succeeded() {
		cmd.Printf("  Errors:     %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			cmd.Printf("    - %s\n", e)
		}
	}
}

// watchSources re-runs the pipeline whenever the source list file changes.
// The parent directory is watched so editors that replace the file are seen.
func watchSources(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.IngestionPipeline,
	opts domain.RunOptions,
) error {
	if svc == nil || svc.SourceListPath == "" {
		return errors.New("no source list to watch")
	}
	path, err := filepath.Abs(svc.SourceListPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", svc.SourceListPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", path)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("source list event: %s", event)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(runDebounce)
			trigger = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)

		case <-trigger:
			trigger = nil
			cmd.Println("Source list changed, re-running ingestion...")
			stats, err := runWithProgress(ctx, cmd, pipeline, opts)
			printRunSummary(cmd, stats)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("ingestion failed: %v", err)
			}
		}
	}
}
