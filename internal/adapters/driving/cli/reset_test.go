package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetCmd_Confirmed(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t)
	seedSources(env)

	out, err := execute(t, "reset", "--yes", "--sources")

	require.NoError(t, err)
	assert.Contains(t, out, "Vector index cleared.")
	assert.Contains(t, out, "Source ledger cleared.")

	count, err := env.index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, env.tracker.Statistics().TotalSources)
}

func TestResetCmd_Prompt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantOut   string
	}{
		{name: "declined", input: "n\n", wantCount: 2, wantOut: "Aborted."},
		{name: "empty answer", input: "\n", wantCount: 2, wantOut: "Aborted."},
		{name: "accepted", input: "yes\n", wantCount: 0, wantOut: "Vector index cleared."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServices(t)
			env.seed(t)
			rootCmd.SetIn(strings.NewReader(tt.input))

			out, err := execute(t, "reset")

			require.NoError(t, err)
			assert.Contains(t, out, "Continue? [y/N]")
			assert.Contains(t, out, tt.wantOut)
			count, err := env.index.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestResetCmd_KeepsSourcesByDefault(t *testing.T) {
	env := setupTestServices(t)
	seedSources(env)

	_, err := execute(t, "reset", "-y")

	require.NoError(t, err)
	assert.Equal(t, 3, env.tracker.Statistics().TotalSources)
}
