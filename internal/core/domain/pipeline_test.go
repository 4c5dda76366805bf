package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_SequenceAndNames(t *testing.T) {
	expected := []string{"idle", "scraped", "processed", "chunked", "embedded", "mapped", "stored", "done"}

	s := StageIdle
	for i, name := range expected {
		assert.Equal(t, name, s.String(), "position %d", i)
		s = s.Next()
	}
	assert.Equal(t, StageDone, StageDone.Next())
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage(" Embedded ")
	require.NoError(t, err)
	assert.Equal(t, StageEmbedded, s)

	_, err = ParseStage("nope")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStage_Artifact(t *testing.T) {
	assert.Equal(t, ArtifactScraped, StageScraped.Artifact())
	assert.Equal(t, ArtifactProcessed, StageProcessed.Artifact())
	assert.Equal(t, ArtifactChunks, StageChunked.Artifact())
	assert.Equal(t, ArtifactEmbedded, StageEmbedded.Artifact())
	assert.Equal(t, ArtifactFinal, StageMapped.Artifact())
	assert.Equal(t, ArtifactStats, StageDone.Artifact())
	assert.Empty(t, StageStored.Artifact())
	assert.Empty(t, StageIdle.Artifact())

	assert.True(t, StageScraped.Resumable())
	assert.True(t, StageMapped.Resumable())
	assert.False(t, StageStored.Resumable())
	assert.False(t, StageIdle.Resumable())
}

func TestPipelineStats_Lifecycle(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stats := NewPipelineStats("run-1", start)

	assert.True(t, stats.Succeeded())
	assert.NotNil(t, stats.Errors)

	stats.AddError("scrape %s: %s", "https://x", "timeout")
	assert.False(t, stats.Succeeded())
	assert.Equal(t, []string{"scrape https://x: timeout"}, stats.Errors)

	stats.Finish(start.Add(90 * time.Second))
	require.NotNil(t, stats.EndTime)
	assert.InDelta(t, 90.0, stats.DurationSeconds, 0.001)

	clone := stats.Clone()
	clone.Errors[0] = "changed"
	assert.Equal(t, "scrape https://x: timeout", stats.Errors[0])
}
