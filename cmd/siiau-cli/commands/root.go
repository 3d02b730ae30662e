package commands

import (
	"context"
	"fmt"
	"os"
	"siiau-backend/internal/config"
	"siiau-backend/lib/scrapers/siiau"
	"siiau-backend/lib/telemetry"
	"siiau-backend/services/catalog"

	"github.com/spf13/cobra"
)

var (
	configPath string
	htmlPath   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "siiau-cli",
	Short: "siiau-cli queries the SIIAU course offering and manages seat subscriptions.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "Path to the config file.")
	flags.StringVar(&htmlPath, "html", "", "Read the course offering from a saved page instead of fetching it.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fileFetcher serves a saved course offering page.
type fileFetcher struct {
	path string
}

func (f fileFetcher) Fetch(ctx context.Context, req siiau.FetchRequest) ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", siiau.ErrTransport, err)
	}
	return raw, nil
}

func readConfig() (config.Config, error) {
	return config.Read(configPath)
}

// loadCatalog runs a single refresh and returns the resulting service.
func loadCatalog(ctx context.Context, cfg config.Config) (*catalog.Service, catalog.RefreshResult, error) {
	var fetcher siiau.Fetcher
	if htmlPath != "" {
		fetcher = fileFetcher{path: htmlPath}
	} else {
		client, err := cfg.Catalog.Client(nil)
		if err != nil {
			return nil, catalog.RefreshResult{}, err
		}
		fetcher = client
	}

	opts, err := cfg.CatalogOptions(fetcher)
	if err != nil {
		return nil, catalog.RefreshResult{}, err
	}
	service := catalog.NewService(opts)
	res, err := service.Refresh(ctx)
	if err != nil {
		return nil, catalog.RefreshResult{}, err
	}
	return service, res, nil
}
