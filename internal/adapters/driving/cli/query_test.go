package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasLimitFlag(t *testing.T) {
	flag := queryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestQueryCmd_TableOutput(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t)

	out, err := execute(t, "query", "-n", "1", "what is the expense ratio")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] HDFC Top 100")
	assert.Contains(t, out, "AMC: HDFC Mutual Fund")
	assert.Contains(t, out, "Link: https://groww.in/mutual-funds/hdfc-top-100#expense-ratio")
	assert.Contains(t, out, "Source: https://www.hdfcfund.com/top-100")
	assert.NotContains(t, out, "[2]")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t)

	out, err := execute(t, "query", "--json", "--amc", "SBI Mutual Fund", "exit load")
	require.NoError(t, err)

	var results []struct {
		ChunkID  string `json:"chunk_id"`
		Citation struct {
			Category  string `json:"category"`
			Primary   string `json:"primary_url"`
			Secondary string `json:"secondary_url"`
		} `json:"citation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "sbi-bluechip#0", results[0].ChunkID)
	assert.Equal(t, "exit_load", results[0].Citation.Category)
	// No fund is known, so the AMC page is cited ahead of the source.
	assert.Equal(t, "https://groww.in/mutual-funds/amc/sbi-mutual-funds", results[0].Citation.Primary)
	assert.Equal(t, "https://www.sbimf.com/bluechip", results[0].Citation.Secondary)
}

func TestQueryCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "query", "nav")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestQueryCmd_InvalidWhere(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "query", "--where", "amc_name", "nav")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")
}

func TestQueryCmd_NotConfigured(t *testing.T) {
	t.Cleanup(func() { svc = nil })
	SetServices(&Services{})

	_, err := execute(t, "query", "nav")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector index not configured")
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  map[string]any
	}{
		{name: "none", pairs: nil, want: nil},
		{
			name:  "typed values",
			pairs: []string{"amc_name=HDFC Mutual Fund", "chunk_index=2", "score=0.5", "validated=true"},
			want: map[string]any{
				"amc_name":    "HDFC Mutual Fund",
				"chunk_index": int64(2),
				"score":       0.5,
				"validated":   true,
			},
		},
		{
			name:  "value may contain equals",
			pairs: []string{"url=https://x.example/?a=b"},
			want:  map[string]any{"url": "https://x.example/?a=b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhere(tt.pairs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseWhere([]string{"=value"})
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n  b\tc", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
