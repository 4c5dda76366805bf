package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

var (
	validateJSON    bool
	validateVerbose bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the last run's data for quality problems",
	Long: `Re-reads the artifacts of the last ingestion run and reports duplicate
content, short or repetitive pages, missing provenance, bad embeddings and
links that do not point at the platform. The report is saved as
validation_results.json next to the other artifacts.`,
	Args: cobra.NoArgs,
	RunE: runQualityCheck,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output as JSON")
	validateCmd.Flags().BoolVar(&validateVerbose, "issues", false, "list every issue")
	rootCmd.AddCommand(validateCmd)
}

func runQualityCheck(cmd *cobra.Command, _ []string) error {
	pipeline, err := pipelineService()
	if err != nil {
		return err
	}

	report, err := pipeline.Validate(cmd.Context())
	if err != nil {
		return fmt.Errorf("validating artifacts: %w", err)
	}

	if validateJSON {
		return printJSON(cmd, report)
	}
	cmd.Print(renderReport(report, validateVerbose, stylesFor(cmd.OutOrStdout())))
	return nil
}

func renderReport(r *domain.QualityReport, listIssues bool, st styles) string {
	var b strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %v\n", st.Label.Render(fmt.Sprintf("%-14s", label)), value)
	}
	issues := func(list []domain.QualityIssue) {
		if !listIssues {
			return
		}
		for _, i := range list {
			text := string(i.Kind)
			if i.Ref != "" {
				text += " " + i.Ref
			}
			if i.Detail != "" {
				text += " (" + i.Detail + ")"
			}
			b.WriteString("    " + st.Warning.Render(text) + "\n")
		}
	}

	if r.Scraped != nil {
		b.WriteString(st.Title.Render("Scraped pages") + "\n")
		line("Valid:", fmt.Sprintf("%d of %d", r.Scraped.Valid, r.Scraped.Total))
		line("Duplicates:", len(r.Scraped.Duplicates))
		issues(r.Scraped.Issues)
	}
	if r.Processed != nil {
		b.WriteString("\n" + st.Title.Render("Processed pages") + "\n")
		line("Valid:", fmt.Sprintf("%d of %d", r.Processed.Valid, r.Processed.Total))
		issues(r.Processed.Issues)
	}
	if r.Chunks != nil {
		b.WriteString("\n" + st.Title.Render("Chunks") + "\n")
		line("Valid:", fmt.Sprintf("%d of %d", r.Chunks.Valid, r.Chunks.Total))
		line("Duplicates:", len(r.Chunks.Duplicates))
		line("Sources:", r.Chunks.UniqueSources)
		line("AMCs:", r.Chunks.UniqueAMCs)
		kinds := make([]string, 0, len(r.Chunks.ContentTypes))
		for k := range r.Chunks.ContentTypes {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&b, "    %-20s %d\n", k, r.Chunks.ContentTypes[domain.ContentType(k)])
		}
		issues(r.Chunks.Issues)
	}
	if r.Embeddings != nil {
		b.WriteString("\n" + st.Title.Render("Embeddings") + "\n")
		line("Valid:", fmt.Sprintf("%d of %d", r.Embeddings.Valid, r.Embeddings.Total))
		line("Dimensions:", r.Embeddings.Dimensions)
		issues(r.Embeddings.Issues)
	}
	if r.Mappings != nil {
		b.WriteString("\n" + st.Title.Render("Platform links") + "\n")
		line("Mapped:", fmt.Sprintf("%d of %d (%.1f%%)", r.Mappings.Mapped, r.Mappings.Total, r.Mappings.MappingRate))
		line("From platform:", r.Mappings.FromPlatform)
		issues(r.Mappings.Issues)
	}

	total := r.IssueCount()
	summary := st.Success.Render("no issues found")
	if total > 0 {
		summary = st.Warning.Render(fmt.Sprintf("%d issues found", total))
	}
	b.WriteString("\n" + summary + "\n")
	return b.String()
}
