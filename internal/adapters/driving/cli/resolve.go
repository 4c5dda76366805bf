package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

var (
	resolveSourceURL string
	resolveAMC       string
	resolveFundURL   string
	resolveJSON      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [text]",
	Short: "Resolve text to a platform link",
	Long: `Classifies text into an information category and builds the platform page
that answers it. The fund is identified by --fund-url, the AMC by --amc.

Example:
  fundlink resolve "exit load of 1%" --fund-url https://groww.in/mutual-funds/hdfc-top-100`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [category]",
	Short: "List information categories and link templates",
	Long: `List the information categories in match priority order, or show one
category with its keywords and link template.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalog,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSourceURL, "source-url", "", "where the text came from")
	resolveCmd.Flags().StringVar(&resolveAMC, "amc", "", "AMC name")
	resolveCmd.Flags().StringVar(&resolveFundURL, "fund-url", "", "platform fund page identifying the scheme")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output as JSON")
	catalogCmd.Flags().BoolVar(&resolveJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(catalogCmd)
}

// resolution is the output of the resolve command.
type resolution struct {
	Category  string `json:"category,omitempty"`
	URL       string `json:"url,omitempty"`
	Primary   string `json:"primary_url,omitempty"`
	Secondary string `json:"secondary_url,omitempty"`
	Message   string `json:"message"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	resolver, err := resolverService()
	if err != nil {
		return err
	}

	meta := map[string]any{}
	if resolveAMC != "" {
		meta[domain.MetaAMCName] = resolveAMC
	}
	if resolveFundURL != "" {
		meta[domain.MetaFundURL] = resolveFundURL
	}
	chunk := domain.Chunk{Content: args[0], SourceURL: resolveSourceURL, Metadata: meta}

	out := resolution{
		Category: resolver.IdentifyInfoCategory(args[0]),
		URL:      resolver.Resolve(chunk),
	}
	out.Primary, out.Secondary = resolver.Priority(args[0], chunk, out.URL)
	out.Message = resolver.FallbackMessage(out.Category, out.Primary)

	if resolveJSON {
		return printJSON(cmd, out)
	}

	category := out.Category
	if category == "" {
		category = "(none)"
	}
	cmd.Printf("Category: %s\n", category)
	if out.URL != "" {
		cmd.Printf("Link:     %s\n", out.URL)
	}
	if out.Secondary != "" {
		cmd.Printf("Source:   %s\n", out.Secondary)
	}
	cmd.Println(out.Message)
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	resolver, err := resolverService()
	if err != nil {
		return err
	}

	catalog := resolver.Catalog()
	if len(args) == 1 {
		return showCategory(cmd, catalog, args[0])
	}
	if resolveJSON {
		return printJSON(cmd, catalog)
	}

	cmd.Printf("Platform: %s (%s)\n\n", catalog.Platform.Name, catalog.Platform.BaseURL)
	cmd.Printf("%-20s  %-9s  %-40s  %s\n", "CATEGORY", "PLATFORM", "TEMPLATE", "KEYWORDS")
	for _, c := range catalog.Categories {
		where := "yes"
		switch {
		case c.ExternalRequired:
			where = "external"
		case !c.OnPlatform():
			where = "no"
		}
		cmd.Printf("%-20s  %-9s  %-40s  %s\n", c.Key, where, linkTemplate(c), strings.Join(c.Keywords, ", "))
	}
	return nil
}

func showCategory(cmd *cobra.Command, catalog domain.Catalog, key string) error {
	c, ok := catalog.Category(key)
	if !ok {
		return fmt.Errorf("%q: %w (known: %s)", key, domain.ErrUnknownCategory, strings.Join(catalog.Keys(), ", "))
	}
	if resolveJSON {
		return printJSON(cmd, c)
	}

	cmd.Printf("Category: %s\n", c.Key)
	cmd.Printf("On %s: %t\n", catalog.Platform.Name, c.OnPlatform())
	cmd.Printf("External: %t\n", c.ExternalRequired)
	if t := linkTemplate(c); t != "" {
		cmd.Printf("Template: %s\n", t)
	}
	cmd.Printf("Keywords: %s\n", strings.Join(c.Keywords, ", "))
	return nil
}

func linkTemplate(c domain.InfoCategory) string {
	if c.Anchor == "" {
		return c.URLTemplate
	}
	return c.URLTemplate + "#" + c.Anchor
}
