package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

var (
	sourcesAMC  string
	sourcesType string
	sourcesJSON bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect tracked sources",
	Long: `Lists the deduplicated source URLs recorded during ingestion, with their
type, AMC and reachability.`,
	RunE: runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked sources",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesShowCmd = &cobra.Command{
	Use:   "show [source-id-or-url]",
	Short: "Show one source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesShow,
}

var sourcesValidateCmd = &cobra.Command{
	Use:   "validate [source-id]",
	Short: "Probe sources for reachability",
	Long: `Probes a single source, or every source when no ID is given, and saves
the outcome to the source ledger.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSourcesValidate,
}

var sourcesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise tracked sources",
	Args:  cobra.NoArgs,
	RunE:  runSourcesStats,
}

func init() {
	for _, c := range []*cobra.Command{sourcesCmd, sourcesListCmd} {
		c.Flags().StringVar(&sourcesAMC, "amc", "", "only sources for this AMC name")
		c.Flags().StringVar(&sourcesType, "type", "", "only sources of this type (groww, amc, sebi, amfi, external)")
	}
	for _, c := range []*cobra.Command{sourcesCmd, sourcesListCmd, sourcesShowCmd, sourcesStatsCmd} {
		c.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")
	}

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesShowCmd)
	sourcesCmd.AddCommand(sourcesValidateCmd)
	sourcesCmd.AddCommand(sourcesStatsCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	tracker, err := sourceService()
	if err != nil {
		return err
	}

	sourceType := domain.SourceType(sourcesType)
	if sourceType != "" && !sourceType.IsValid() {
		return fmt.Errorf("unknown source type %q", sourcesType)
	}

	var records []domain.SourceRecord
	if sourcesAMC != "" {
		for _, r := range tracker.GetSourcesByAMC(sourcesAMC) {
			if sourceType == "" || r.Type == sourceType {
				records = append(records, r)
			}
		}
	} else {
		records = tracker.AllSources(sourceType)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].URL < records[j].URL })

	if sourcesJSON {
		if records == nil {
			records = []domain.SourceRecord{}
		}
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No sources tracked.")
		return nil
	}

	cmd.Printf("%-22s  %-8s  %-10s  %s\n", "ID", "TYPE", "STATUS", "URL")
	for i := range records {
		cmd.Printf("%-22s  %-8s  %-10s  %s\n",
			records[i].ID, records[i].Type, sourceStatus(records[i]), records[i].URL)
	}
	cmd.Printf("\n%d source(s)\n", len(records))
	return nil
}

func runSourcesShow(cmd *cobra.Command, args []string) error {
	tracker, err := sourceService()
	if err != nil {
		return err
	}

	rec := tracker.GetSourceByID(args[0])
	if rec == nil {
		rec = tracker.GetSourceByURL(args[0])
	}
	if rec == nil {
		return fmt.Errorf("source %q: %w", args[0], domain.ErrNotFound)
	}

	if sourcesJSON {
		return printJSON(cmd, rec)
	}

	cmd.Printf("ID:         %s\n", rec.ID)
	cmd.Printf("URL:        %s\n", rec.URL)
	if rec.Title != "" {
		cmd.Printf("Title:      %s\n", rec.Title)
	}
	cmd.Printf("AMC:        %s\n", rec.AMCName)
	cmd.Printf("Type:       %s\n", rec.Type)
	cmd.Printf("Domain:     %s\n", rec.Domain)
	cmd.Printf("Status:     %s\n", sourceStatus(*rec))
	if rec.ValidatedAt != nil {
		cmd.Printf("Validated:  %s\n", rec.ValidatedAt.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("First seen: %s\n", rec.FirstSeenAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runSourcesValidate(cmd *cobra.Command, args []string) error {
	tracker, err := sourceService()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		if tracker.GetSourceByID(args[0]) == nil {
			return fmt.Errorf("source %q: %w", args[0], domain.ErrNotFound)
		}
		if tracker.ValidateSource(ctx, args[0]) {
			cmd.Printf("Source %s is accessible.\n", args[0])
		} else {
			cmd.Printf("Source %s is not accessible.\n", args[0])
		}
	} else {
		total := len(tracker.AllSources(""))
		cmd.Printf("Validating %d source(s)...\n", total)
		accessible := tracker.ValidateAll(ctx)
		cmd.Printf("%d of %d source(s) accessible.\n", accessible, total)
	}

	if err := tracker.Save(ctx); err != nil {
		return fmt.Errorf("saving sources: %w", err)
	}
	return nil
}

func runSourcesStats(cmd *cobra.Command, _ []string) error {
	tracker, err := sourceService()
	if err != nil {
		return err
	}

	stats := tracker.Statistics()
	if sourcesJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Sources:        %d\n", stats.TotalSources)
	cmd.Printf("AMCs:           %d\n", stats.UniqueAMCs)
	cmd.Printf("Validated:      %d\n", stats.ValidatedSources)
	cmd.Printf("Accessible:     %d\n", stats.AccessibleSources)
	cmd.Printf("Content links:  %d\n", stats.TotalContentLinks)

	types := make([]string, 0, len(stats.SourcesByType))
	for t := range stats.SourcesByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	if len(types) > 0 {
		cmd.Println("By type:")
		for _, t := range types {
			cmd.Printf("  %-10s %d\n", t, stats.SourcesByType[domain.SourceType(t)])
		}
	}
	return nil
}

func sourceStatus(r domain.SourceRecord) string {
	switch {
	case !r.Validated:
		return "unchecked"
	case r.Accessible():
		return "ok"
	default:
		return "down"
	}
}
