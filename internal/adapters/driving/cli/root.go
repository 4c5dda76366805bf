package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fundlink/internal/core/ports/driving"
	"github.com/custodia-labs/fundlink/internal/logger"
)

// version is overridden at build time.
var version = "dev"

// Services holds the driving ports the commands use.
type Services struct {
	Index    driving.VectorIndex
	Pipeline driving.IngestionPipeline
	Resolver driving.LinkResolver
	Sources  driving.SourceTracker
	Settings driving.SettingsService

	// SourceListPath is the scraper input file watched by run --watch.
	SourceListPath string

	// Close releases whatever the services hold open. May be nil.
	Close func() error
}

// Options are the global flags passed to Bootstrap.
type Options struct {
	ConfigDir string
	Ephemeral bool
	Verbose   bool

	// SettingsOnly asks for the settings service alone, so configuration
	// can be repaired when the rest cannot be built.
	SettingsOnly bool
}

// Bootstrap builds the services for a command invocation.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

// scopeAnnotation marks commands that need less than the full services.
const scopeAnnotation = "fundlink/scope"

// Command scopes.
const (
	scopeNone     = "none"
	scopeSettings = "settings"
)

var (
	bootstrap Bootstrap
	svc       *Services
	rootOpts  Options
)

var rootCmd = &cobra.Command{
	Use:   "fundlink",
	Short: "Mutual fund retrieval index with platform link attribution",
	Long: `fundlink scrapes mutual fund pages, chunks and embeds them into a vector
index, and attributes every chunk to its source and to the canonical page on
the investment platform.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&rootOpts.ConfigDir, "config-dir", "", "configuration directory (default ~/.fundlink)")
	flags.BoolVar(&rootOpts.Ephemeral, "ephemeral", false, "keep settings and data in memory only")
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(rootOpts.Verbose)

	scope := cmd.Annotations[scopeAnnotation]
	if scope == scopeNone || svc != nil || bootstrap == nil {
		return nil
	}

	opts := rootOpts
	opts.SettingsOnly = scope == scopeSettings
	s, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	svc = s
	return nil
}

// SetServices injects prebuilt services, bypassing Bootstrap.
func SetServices(s *Services) {
	svc = s
}

// Execute runs the root command. boot is invoked once, before the first
// command that needs services.
func Execute(ctx context.Context, boot Bootstrap, v string) error {
	bootstrap = boot
	if v != "" {
		version = v
	}
	defer closeServices()

	return rootCmd.ExecuteContext(ctx)
}

func closeServices() {
	if svc == nil || svc.Close == nil {
		return
	}
	if err := svc.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
}

func indexService() (driving.VectorIndex, error) {
	if svc == nil || svc.Index == nil {
		return nil, errors.New("vector index not configured")
	}
	return svc.Index, nil
}

func pipelineService() (driving.IngestionPipeline, error) {
	if svc == nil || svc.Pipeline == nil {
		return nil, errors.New("ingestion pipeline not configured")
	}
	return svc.Pipeline, nil
}

func resolverService() (driving.LinkResolver, error) {
	if svc == nil || svc.Resolver == nil {
		return nil, errors.New("link resolver not configured")
	}
	return svc.Resolver, nil
}

func sourceService() (driving.SourceTracker, error) {
	if svc == nil || svc.Sources == nil {
		return nil, errors.New("source tracker not configured")
	}
	return svc.Sources, nil
}

func settingsService() (driving.SettingsService, error) {
	if svc == nil || svc.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return svc.Settings, nil
}
