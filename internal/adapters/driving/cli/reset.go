package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	resetSources bool
	resetYes     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the vector index",
	Long: `Removes every chunk from the vector collection. With --sources the source
ledger is cleared too.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetSources, "sources", false, "also clear tracked sources")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	index, err := indexService()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !resetYes {
		what := "the vector index"
		if resetSources {
			what += " and all tracked sources"
		}
		cmd.Printf("This will delete %s. Continue? [y/N]: ", what)

		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := index.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	cmd.Println("Vector index cleared.")

	if resetSources {
		tracker, err := sourceService()
		if err != nil {
			return err
		}
		tracker.Reset()
		if err := tracker.Save(ctx); err != nil {
			return fmt.Errorf("saving sources: %w", err)
		}
		cmd.Println("Source ledger cleared.")
	}
	return nil
}
