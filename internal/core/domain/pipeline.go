package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a state of the ingestion pipeline. Stages advance strictly in
// declaration order.
type Stage int

// Pipeline stages.
const (
	StageIdle Stage = iota
	StageScraped
	StageProcessed
	StageChunked
	StageEmbedded
	StageMapped
	StageStored
	StageDone
)

var stageNames = [...]string{
	StageIdle:      "idle",
	StageScraped:   "scraped",
	StageProcessed: "processed",
	StageChunked:   "chunked",
	StageEmbedded:  "embedded",
	StageMapped:    "mapped",
	StageStored:    "stored",
	StageDone:      "done",
}

// String returns the lower-case stage name.
func (s Stage) String() string {
	if s < StageIdle || s > StageDone {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Next returns the stage that follows s. Done is terminal.
func (s Stage) Next() Stage {
	if s >= StageDone {
		return StageDone
	}
	return s + 1
}

// ParseStage converts a stage name to a Stage.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageIdle, fmt.Errorf("stage %q: %w", name, ErrInvalidInput)
}

// Artifact file names, one per resumable stage.
const (
	ArtifactScraped   = "scraped_content.json"
	ArtifactProcessed = "processed_content.json"
	ArtifactChunks    = "chunks.json"
	ArtifactEmbedded  = "chunks_with_embeddings.json"
	ArtifactFinal     = "chunks_final.json"
	ArtifactStats     = "pipeline_stats.json"

	// ArtifactValidation is the data quality report. It belongs to no
	// stage and is never resumed from.
	ArtifactValidation = "validation_results.json"
)

// Artifact returns the file name persisted on entering s, or "" for
// stages that persist nothing.
func (s Stage) Artifact() string {
	switch s {
	case StageScraped:
		return ArtifactScraped
	case StageProcessed:
		return ArtifactProcessed
	case StageChunked:
		return ArtifactChunks
	case StageEmbedded:
		return ArtifactEmbedded
	case StageMapped:
		return ArtifactFinal
	case StageDone:
		return ArtifactStats
	default:
		return ""
	}
}

// Resumable returns true if a run can start from a persisted artifact of s.
func (s Stage) Resumable() bool {
	return s >= StageScraped && s <= StageMapped
}

// PipelineStats records one ingestion run. Counters only increase during a
// run and are reset at the start of the next.
type PipelineStats struct {
	RunID              string     `json:"run_id"`
	State              string     `json:"state"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	DurationSeconds    float64    `json:"duration_seconds"`
	URLsProcessed      int        `json:"urls_processed"`
	DocumentsScraped   int        `json:"documents_scraped"`
	DocumentsProcessed int        `json:"documents_processed"`
	ChunksCreated      int        `json:"chunks_created"`
	ChunksEmbedded     int        `json:"chunks_embedded"`
	ChunksStored       int        `json:"chunks_stored"`
	ChunksMapped       int        `json:"chunks_mapped_to_groww"`
	SourcesTracked     int        `json:"sources_tracked"`
	QualityIssues      int        `json:"quality_issues"`
	DuplicateChunks    int        `json:"duplicate_chunks"`
	Errors             []string   `json:"errors"`
}

// NewPipelineStats starts the bookkeeping for a run.
func NewPipelineStats(runID string, start time.Time) *PipelineStats {
	return &PipelineStats{
		RunID:     runID,
		State:     StageIdle.String(),
		StartTime: start,
		Errors:    []string{},
	}
}

// AddError appends a formatted error message.
func (s *PipelineStats) AddError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// Finish records the end time and duration.
func (s *PipelineStats) Finish(end time.Time) {
	s.EndTime = &end
	s.DurationSeconds = end.Sub(s.StartTime).Seconds()
}

// Succeeded returns true if the run recorded no errors. A run with errors
// is degraded: its output exists but is incomplete.
func (s *PipelineStats) Succeeded() bool {
	return len(s.Errors) == 0
}

// Clone returns a deep copy safe to hand to callers.
func (s *PipelineStats) Clone() *PipelineStats {
	if s == nil {
		return nil
	}
	c := *s
	c.Errors = append([]string(nil), s.Errors...)
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	return &c
}

// RunOptions controls one pipeline run.
type RunOptions struct {
	// ResumeFrom loads the artifact persisted on entering this stage and
	// continues with the next one. StageIdle runs everything.
	ResumeFrom Stage

	// ResetIndex clears the vector index before storing.
	ResetIndex bool

	// ValidateSources probes newly tracked sources after mapping.
	ValidateSources bool
}
