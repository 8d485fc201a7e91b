package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/internal/config"
	"github.com/civicdata/opendata-cli/internal/fetcher"
	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "opendata-cli",
	Short: "Public open-data acquisition toolkit",
	Long:  "Resolves, downloads, and extracts public datasets, flattens CityBikes station feeds, and tidies Statistics Canada labour tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newFetcher builds the shared HTTP fetcher from config.
func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
	})
}

// newCityBikes builds the CityBikes API client from config.
func newCityBikes() citybikes.Client {
	return citybikes.NewClient(
		citybikes.WithBaseURL(cfg.CityBikes.BaseURL),
		citybikes.WithUserAgent(cfg.HTTP.UserAgent),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
