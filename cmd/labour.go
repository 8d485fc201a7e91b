package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/internal/export"
	"github.com/civicdata/opendata-cli/internal/labour"
)

var (
	labourGeo      string
	labourStat     string
	labourDataType string
	labourEncoding string
	labourExclude  []string
	labourFormat   string
	labourOutput   string
)

var labourCmd = &cobra.Command{
	Use:   "labour <table.csv>",
	Short: "Tidy a Statistics Canada labour force table",
	Long: `Filters a downloaded labour force survey full-table CSV down to one
geography, statistic, and data type, and emits a flat date-sorted series.

Examples:
  opendata-cli labour ./data/14100022.csv
  opendata-cli labour ./data/14100022.csv --geo Ontario --format csv
  opendata-cli labour ./data/14100022.csv --output labour.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := labour.ReadFile(args[0], labour.Options{
			Geography:         orDefault(labourGeo, cfg.Labour.Geography),
			Statistic:         orDefault(labourStat, cfg.Labour.Statistic),
			DataType:          orDefault(labourDataType, cfg.Labour.DataType),
			ExcludeIndustries: labourExclude,
			Encoding:          orDefault(labourEncoding, cfg.Labour.Encoding),
		})
		if err != nil {
			return err
		}
		zap.L().Info("tidied labour table", zap.String("path", args[0]), zap.Int("rows", len(rows)))

		if strings.HasSuffix(labourOutput, ".xlsx") || labourFormat == "xlsx" {
			if labourOutput == "" {
				return eris.New("labour: xlsx format requires --output")
			}
			return export.WriteXLSX(labourOutput, "labour", export.Labour(rows))
		}

		out := os.Stdout
		if labourOutput != "" {
			f, err := os.Create(labourOutput)
			if err != nil {
				return eris.Wrapf(err, "labour: create %s", labourOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		switch labourFormat {
		case "table", "":
			return export.WriteText(out, export.Labour(rows))
		case "csv":
			return export.WriteCSV(out, export.Labour(rows))
		case "json":
			return export.WriteJSON(out, rows)
		default:
			return eris.Errorf("labour: unknown format %q (want table, csv, json, xlsx)", labourFormat)
		}
	},
}

// orDefault falls back to the config value when the flag is unset.
func orDefault(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

func init() {
	labourCmd.Flags().StringVar(&labourGeo, "geo", "", "geography filter (default from config)")
	labourCmd.Flags().StringVar(&labourStat, "statistic", "", "statistic filter (default from config)")
	labourCmd.Flags().StringVar(&labourDataType, "data-type", "", "data type filter (default from config)")
	labourCmd.Flags().StringVar(&labourEncoding, "encoding", "", "source charset, e.g. latin1 (default from config)")
	labourCmd.Flags().StringSliceVar(&labourExclude, "exclude", nil, "industry labels to drop")
	labourCmd.Flags().StringVar(&labourFormat, "format", "table", "output format (table, csv, json, xlsx)")
	labourCmd.Flags().StringVar(&labourOutput, "output", "", "write to a file instead of stdout")
	rootCmd.AddCommand(labourCmd)
}
