package driving

import (
	"context"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// IngestionPipeline runs the scrape-to-index state machine.
type IngestionPipeline interface {
	// Run executes one run. Per-item failures are recorded in the returned
	// stats; an error is returned only for fatal failures, in which case
	// the stats describe the run up to that point.
	Run(ctx context.Context, opts domain.RunOptions) (*domain.PipelineStats, error)

	// State returns the stage the current or last run reached.
	State() domain.Stage

	// Stats returns a copy of the current or last run's statistics.
	Stats() *domain.PipelineStats

	// LastStats falls back to the persisted statistics of an earlier
	// process when this one has not run yet.
	LastStats(ctx context.Context) (*domain.PipelineStats, error)

	// Validate checks the persisted artifacts for data quality problems
	// and saves the report.
	Validate(ctx context.Context) (*domain.QualityReport, error)
}
