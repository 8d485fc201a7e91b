package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdata/opendata-cli/pkg/citybikes"
)

func TestBuildRule(t *testing.T) {
	rule, err := buildRule("json-field", "result.url", "")
	require.NoError(t, err)
	assert.Equal(t, "json-field:result.url", rule.Name())

	rule, err = buildRule("url-match", "", "")
	require.NoError(t, err)
	assert.Equal(t, "url-match", rule.Name())

	_, err = buildRule("json-field", "", "")
	require.Error(t, err)

	_, err = buildRule("url-match", "", "([unclosed")
	require.Error(t, err)

	_, err = buildRule("xpath", "", "")
	require.Error(t, err)
}

func TestParseNear(t *testing.T) {
	lat, lng, err := parseNear("49.28, -123.12")
	require.NoError(t, err)
	assert.InDelta(t, 49.28, lat, 1e-9)
	assert.InDelta(t, -123.12, lng, 1e-9)

	_, _, err = parseNear("49.28")
	require.Error(t, err)

	_, _, err = parseNear("north,west")
	require.Error(t, err)
}

func TestFilterNetworks(t *testing.T) {
	networks := []citybikes.NetworkSummary{
		{ID: "bixi-montreal", Location: citybikes.Location{City: "Montréal"}},
		{ID: "mobi-vancouver", Location: citybikes.Location{City: "Vancouver"}},
	}

	got := filterNetworks(networks, "VANCOUVER")
	require.Len(t, got, 1)
	assert.Equal(t, "mobi-vancouver", got[0].ID)

	assert.Empty(t, filterNetworks(networks, "toronto"))
}

func TestNetworksTable(t *testing.T) {
	table := networksTable([]citybikes.NetworkSummary{
		{ID: "mobi-vancouver", Name: "Mobi", Location: citybikes.Location{City: "Vancouver", Country: "CA"}},
	})

	assert.Equal(t, []string{"id", "name", "city", "country"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"mobi-vancouver", "Mobi", "Vancouver", "CA"}, table.Rows[0])
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "Ontario", orDefault("Ontario", "Canada"))
	assert.Equal(t, "Canada", orDefault("", "Canada"))
}

func TestWriteRecords_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.csv")
	records := []citybikes.StationRecord{
		{Name: "Main Street", BikesAvailable: 9, SlotsAvailable: 3, Latitude: 49.27, Longitude: -123.1},
	}

	require.NoError(t, writeRecords(records, "csv", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Main Street,9,3,49.27,-123.1")
}

func TestWriteRecords_XLSXRequiresOutput(t *testing.T) {
	err := writeRecords(nil, "xlsx", "")
	require.Error(t, err)
}

func TestWriteRecords_UnknownFormat(t *testing.T) {
	err := writeRecords(nil, "parquet", filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
