package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/services"
)

const snippetLength = 240

var (
	queryLimit int
	queryWhere []string
	queryAMC   string
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Query the fund index",
	Long: `Runs a similarity search over the indexed chunks and cites, for each hit,
the platform page or official source that answers the question.

Filters match stored metadata exactly, for example:
  fundlink query "exit load" --where amc_name="HDFC Mutual Fund"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 5, "maximum number of results")
	queryCmd.Flags().StringArrayVar(&queryWhere, "where", nil, "metadata filter as key=value (repeatable)")
	queryCmd.Flags().StringVar(&queryAMC, "amc", "", "restrict results to one AMC name")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

// citedResult is one query hit with its citation.
type citedResult struct {
	domain.QueryResult
	Citation domain.Citation `json:"citation"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	index, err := indexService()
	if err != nil {
		return err
	}
	resolver, err := resolverService()
	if err != nil {
		return err
	}

	where, err := parseWhere(queryWhere)
	if err != nil {
		return err
	}
	if queryAMC != "" {
		if where == nil {
			where = map[string]any{}
		}
		where[domain.MetaAMCName] = queryAMC
	}

	query := args[0]
	results, err := index.Query(cmd.Context(), domain.QueryRequest{
		Text:     query,
		NResults: queryLimit,
		Where:    where,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	cited := make([]citedResult, len(results))
	for i := range results {
		cited[i] = citedResult{
			QueryResult: results[i],
			Citation:    services.Cite(resolver, query, results[i]),
		}
	}

	if queryJSON {
		return printJSON(cmd, cited)
	}
	outputQueryTable(cmd, cited)
	return nil
}

// parseWhere turns key=value pairs into a metadata filter. Values that
// parse as booleans or numbers are matched as such.
func parseWhere(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	where := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		where[key] = parseFilterValue(strings.TrimSpace(value))
	}
	return where, nil
}

func parseFilterValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

func outputQueryTable(cmd *cobra.Command, results []citedResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		r := results[i]
		title := domain.MetadataString(r.Metadata, domain.MetaTitle)
		if title == "" {
			title = r.ChunkID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, r.Score)
		if amc := domain.MetadataString(r.Metadata, domain.MetaAMCName); amc != "" {
			cmd.Printf("      AMC: %s\n", amc)
		}
		cmd.Printf("      %s\n", snippet(r.Content, snippetLength))
		if r.Citation.Primary != "" {
			cmd.Printf("      Link: %s\n", r.Citation.Primary)
		}
		if r.Citation.Secondary != "" {
			cmd.Printf("      Source: %s\n", r.Citation.Secondary)
		}
		cmd.Printf("      %s\n", r.Citation.Message)
		cmd.Println()
	}
}

// snippet collapses whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
