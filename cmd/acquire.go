package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicdata/opendata-cli/internal/acquire"
	"github.com/civicdata/opendata-cli/internal/resolver"
)

var (
	acquireDiscovery   string
	acquireRule        string
	acquireField       string
	acquirePattern     string
	acquireDest        string
	acquireArchive     bool
	acquireManifest    string
	acquireConcurrency int
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Resolve, download, and extract a dataset",
	Long: `Resolves a discovery endpoint to the real download URL, streams the
resource into a destination directory, and unpacks zip archives in place.

Examples:
  # Single source: JSON discovery document naming the download in a field
  opendata-cli acquire --discovery https://example.org/api/latest \
    --rule json-field --field result.url --dest ./data --archive

  # Single source: first URL-shaped string in the response body
  opendata-cli acquire --discovery https://example.org/releases.txt \
    --rule url-match --dest ./data

  # Batch of sources from a YAML manifest
  opendata-cli acquire --manifest sources.yaml --concurrency 4`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := newFetcher()

		if acquireManifest != "" {
			m, err := acquire.LoadManifest(acquireManifest)
			if err != nil {
				return err
			}

			concurrency := acquireConcurrency
			if concurrency == 0 {
				concurrency = cfg.Acquire.Concurrency
			}

			results, err := acquire.RunManifest(ctx, f, m, concurrency)
			if err != nil {
				return err
			}
			for i, res := range results {
				fmt.Fprintf(os.Stdout, "%s: %s (%d extracted)\n",
					m.Sources[i].Name, res.ResolvedURL, len(res.Extracted))
			}
			return nil
		}

		if acquireDiscovery == "" {
			return eris.New("acquire: either --discovery or --manifest is required")
		}

		rule, err := buildRule(acquireRule, acquireField, acquirePattern)
		if err != nil {
			return err
		}

		dest := acquireDest
		if dest == "" {
			dest = cfg.Acquire.DestDir
		}

		res, err := acquire.Run(ctx, f, acquire.Request{
			Discovery: acquireDiscovery,
			Rule:      rule,
			DestDir:   dest,
			Archive:   acquireArchive,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "resolved: %s\n", res.ResolvedURL)
		if acquireArchive {
			for _, path := range res.Extracted {
				fmt.Fprintf(os.Stdout, "extracted: %s\n", path)
			}
		} else {
			fmt.Fprintf(os.Stdout, "saved: %s\n", res.FilePath)
		}
		return nil
	},
}

// buildRule builds a resolver rule from the flag triple.
func buildRule(rule, field, pattern string) (resolver.Rule, error) {
	switch rule {
	case "json-field":
		if field == "" {
			return nil, eris.New("acquire: --rule json-field requires --field")
		}
		return resolver.JSONField{Path: field}, nil
	case "url-match":
		if pattern == "" {
			return resolver.NewFirstURLMatch(), nil
		}
		pat, err := regexp.Compile(pattern)
		if err != nil {
			return nil, eris.Wrap(err, "acquire: compile --pattern")
		}
		return resolver.FirstURLMatch{Pattern: pat}, nil
	default:
		return nil, eris.Errorf("acquire: unknown rule %q (want json-field or url-match)", rule)
	}
}

func init() {
	acquireCmd.Flags().StringVar(&acquireDiscovery, "discovery", "", "discovery endpoint URL")
	acquireCmd.Flags().StringVar(&acquireRule, "rule", "json-field", "URL extraction rule (json-field, url-match)")
	acquireCmd.Flags().StringVar(&acquireField, "field", "", "dot-separated JSON field path for json-field")
	acquireCmd.Flags().StringVar(&acquirePattern, "pattern", "", "regexp override for url-match")
	acquireCmd.Flags().StringVar(&acquireDest, "dest", "", "destination directory (default from config)")
	acquireCmd.Flags().BoolVar(&acquireArchive, "archive", false, "treat the resource as a zip archive and extract it")
	acquireCmd.Flags().StringVar(&acquireManifest, "manifest", "", "YAML manifest of acquisition sources")
	acquireCmd.Flags().IntVar(&acquireConcurrency, "concurrency", 0, "parallel sources for manifest runs (default from config)")
	rootCmd.AddCommand(acquireCmd)
}
