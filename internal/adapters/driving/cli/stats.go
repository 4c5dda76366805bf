package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

var (
	statsJSON    bool
	statsMapping bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index, source and ingestion statistics",
	Long: `Summarises the vector collection, the tracked sources and the last
ingestion run. With --mapping, platform link coverage is computed over every
stored chunk.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	statsCmd.Flags().BoolVar(&statsMapping, "mapping", false, "compute platform link coverage")
	rootCmd.AddCommand(statsCmd)
}

// statsReport is everything the stats command prints.
type statsReport struct {
	Collection domain.CollectionInfo     `json:"collection"`
	Sources    *domain.SourceStatistics  `json:"sources,omitempty"`
	LastRun    *domain.PipelineStats     `json:"last_run,omitempty"`
	Mapping    *domain.MappingStatistics `json:"mapping,omitempty"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	index, err := indexService()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var report statsReport
	if report.Collection, err = index.CollectionInfo(ctx); err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	if tracker, err := sourceService(); err == nil {
		s := tracker.Statistics()
		report.Sources = &s
	}

	if pipeline, err := pipelineService(); err == nil {
		last, err := pipeline.LastStats(ctx)
		switch {
		case err == nil:
			report.LastRun = last
		case !errors.Is(err, domain.ErrArtifactMissing):
			return fmt.Errorf("reading last run: %w", err)
		}
	}

	if statsMapping {
		resolver, err := resolverService()
		if err != nil {
			return err
		}
		records, err := index.FilterByMetadata(ctx, nil, 0)
		if err != nil {
			return fmt.Errorf("reading chunks: %w", err)
		}
		chunks := make([]domain.Chunk, len(records))
		for i, r := range records {
			chunks[i] = domain.QueryResult{ChunkID: r.ID, Content: r.Content, Metadata: r.Metadata}.Chunk()
		}
		m := resolver.MappingStatistics(chunks)
		report.Mapping = &m
	}

	if statsJSON {
		return printJSON(cmd, report)
	}
	cmd.Print(renderStats(report, stylesFor(cmd.OutOrStdout())))
	return nil
}

func renderStats(r statsReport, st styles) string {
	var b strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %v\n", st.Label.Render(fmt.Sprintf("%-14s", label)), value)
	}

	b.WriteString(st.Title.Render("Collection") + "\n")
	line("Name:", r.Collection.Name)
	line("Engine:", r.Collection.Engine)
	line("Chunks:", r.Collection.Count)
	if r.Collection.Location != "" {
		line("Location:", r.Collection.Location)
	}

	if r.Sources != nil {
		b.WriteString("\n" + st.Title.Render("Sources") + "\n")
		line("Total:", r.Sources.TotalSources)
		line("AMCs:", r.Sources.UniqueAMCs)
		line("Validated:", r.Sources.ValidatedSources)
		line("Accessible:", r.Sources.AccessibleSources)
		line("Content links:", r.Sources.TotalContentLinks)
	}

	b.WriteString("\n" + st.Title.Render("Last run") + "\n")
	if r.LastRun == nil {
		b.WriteString("  " + st.Muted.Render("no ingestion run recorded") + "\n")
	} else {
		state := st.Success.Render(r.LastRun.State)
		if !r.LastRun.Succeeded() {
			state = st.Warning.Render(fmt.Sprintf("%s (%d errors)", r.LastRun.State, len(r.LastRun.Errors)))
		}
		line("Run:", r.LastRun.RunID)
		line("State:", state)
		line("Started:", r.LastRun.StartTime.Format("2006-01-02 15:04:05"))
		line("Duration:", fmt.Sprintf("%.1fs", r.LastRun.DurationSeconds))
		line("Stored:", r.LastRun.ChunksStored)
		line("Mapped:", r.LastRun.ChunksMapped)
		line("Quality:", fmt.Sprintf("%d issues, %d duplicate chunks", r.LastRun.QualityIssues, r.LastRun.DuplicateChunks))
	}

	if r.Mapping != nil {
		b.WriteString("\n" + st.Title.Render("Link mapping") + "\n")
		line("Mapped:", fmt.Sprintf("%d of %d (%.1f%%)", r.Mapping.MappedChunks, r.Mapping.TotalChunks, r.Mapping.MappingRate))
		line("From platform:", r.Mapping.FromPlatformSource)
		line("Uncategorised:", r.Mapping.Uncategorised)

		keys := make([]string, 0, len(r.Mapping.ByCategory))
		for k := range r.Mapping.ByCategory {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "    %-20s %d\n", k, r.Mapping.ByCategory[k])
		}
	}

	return b.String()
}
