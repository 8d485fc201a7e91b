package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicdata/opendata-cli/internal/export"
	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

var networksCity string

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List bike-share networks from the CityBikes directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		networks, err := newCityBikes().Networks(ctx)
		if err != nil {
			return err
		}

		if networksCity != "" {
			networks = filterNetworks(networks, networksCity)
		}

		return export.WriteText(os.Stdout, networksTable(networks))
	},
}

// filterNetworks keeps directory entries whose city contains the needle,
// case-insensitively.
func filterNetworks(networks []citybikes.NetworkSummary, city string) []citybikes.NetworkSummary {
	needle := strings.ToLower(city)
	var out []citybikes.NetworkSummary
	for _, n := range networks {
		if strings.Contains(strings.ToLower(n.Location.City), needle) {
			out = append(out, n)
		}
	}
	return out
}

// networksTable renders directory entries for the terminal.
func networksTable(networks []citybikes.NetworkSummary) export.Table {
	t := export.Table{
		Header: []string{"id", "name", "city", "country"},
		Rows:   make([][]string, 0, len(networks)),
	}
	for _, n := range networks {
		t.Rows = append(t.Rows, []string{n.ID, n.Name, n.Location.City, n.Location.Country})
	}
	return t
}

func init() {
	networksCmd.Flags().StringVar(&networksCity, "city", "", "filter networks by city substring")
	rootCmd.AddCommand(networksCmd)
}
