package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/internal/export"
	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

var (
	stationsNetwork string
	stationsNear    string
	stationsFormat  string
	stationsOutput  string
)

var stationsCmd = &cobra.Command{
	Use:   "stations [city]",
	Short: "Flatten a network's station feed into tabular records",
	Long: `Fetches a bike-share network's station document and flattens it into
one record per station.

The network is picked either by city name (first directory entry whose
city contains the argument, case-insensitively) or directly by id with
--network.

Examples:
  opendata-cli stations vancouver
  opendata-cli stations vancouver --near 49.28,-123.12
  opendata-cli stations --network mobi-vancouver --format csv
  opendata-cli stations montreal --output stations.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := newCityBikes()

		networkID := stationsNetwork
		if networkID == "" {
			if len(args) == 0 {
				return eris.New("stations: a city argument or --network is required")
			}
			id, err := citybikes.FindNetworkID(ctx, c, args[0])
			if err != nil {
				return err
			}
			networkID = id
			zap.L().Info("matched network", zap.String("city", args[0]), zap.String("network", networkID))
		}

		records, err := citybikes.FetchStations(ctx, c, networkID)
		if err != nil {
			return err
		}

		if stationsNear != "" {
			lat, lng, err := parseNear(stationsNear)
			if err != nil {
				return err
			}
			citybikes.SortByProximity(records, lat, lng)
		}

		return writeRecords(records, stationsFormat, stationsOutput)
	},
}

// parseNear splits a "lat,lng" flag value.
func parseNear(s string) (float64, float64, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("stations: --near wants lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "stations: --near latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "stations: --near longitude %q", parts[1])
	}
	return lat, lng, nil
}

// writeRecords renders station records in the requested format, to stdout
// or a file. An .xlsx output path forces the xlsx format.
func writeRecords(records []citybikes.StationRecord, format, output string) error {
	if strings.HasSuffix(output, ".xlsx") || format == "xlsx" {
		if output == "" {
			return eris.New("stations: xlsx format requires --output")
		}
		return export.WriteXLSX(output, "stations", export.Stations(records))
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return eris.Wrapf(err, "stations: create %s", output)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	switch format {
	case "table", "":
		return export.WriteText(out, export.Stations(records))
	case "csv":
		return export.WriteCSV(out, export.Stations(records))
	case "json":
		return export.WriteJSON(out, records)
	default:
		return eris.Errorf("stations: unknown format %q (want table, csv, json, xlsx)", format)
	}
}

func init() {
	stationsCmd.Flags().StringVar(&stationsNetwork, "network", "", "network id, bypassing the city lookup")
	stationsCmd.Flags().StringVar(&stationsNear, "near", "", "sort by distance from lat,lng")
	stationsCmd.Flags().StringVar(&stationsFormat, "format", "table", "output format (table, csv, json, xlsx)")
	stationsCmd.Flags().StringVar(&stationsOutput, "output", "", "write to a file instead of stdout")
	rootCmd.AddCommand(stationsCmd)
}
