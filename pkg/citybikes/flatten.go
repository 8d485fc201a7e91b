package citybikes

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotFound marks a city lookup that matched no network.
var ErrNotFound = eris.New("no matching network")

// ErrMalformedData marks a station document whose parallel arrays differ
// in length.
var ErrMalformedData = eris.New("malformed station data")

// StationRecord is one flattened station. Records are independent of each
// other; source order is preserved.
type StationRecord struct {
	Name           string  `json:"name"`
	BikesAvailable int     `json:"bikes_available"`
	SlotsAvailable int     `json:"slots_available"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// FindNetworkID resolves a city name to a network id by case-insensitive
// substring match against each directory entry's city, returning the first
// match in document order. Multiple networks can share a city name, so
// first-match-wins is the tie-break.
func FindNetworkID(ctx context.Context, c Client, city string) (string, error) {
	networks, err := c.Networks(ctx)
	if err != nil {
		return "", err
	}

	needle := strings.ToLower(city)
	for _, n := range networks {
		if strings.Contains(strings.ToLower(n.Location.City), needle) {
			return n.ID, nil
		}
	}

	return "", eris.Wrapf(ErrNotFound, "no network city matches %q", city)
}

// FetchStations fetches a network's station document and flattens it.
func FetchStations(ctx context.Context, c Client, networkID string) ([]StationRecord, error) {
	network, err := c.Network(ctx, networkID)
	if err != nil {
		return nil, err
	}

	records, err := Flatten(network.Stations)
	if err != nil {
		return nil, eris.Wrapf(err, "network %s", networkID)
	}
	return records, nil
}

// Flatten zips the parallel arrays positionally into StationRecords. All
// five arrays must be the same length; a divergence rejects the whole
// document rather than truncating or padding.
func Flatten(s StationArrays) ([]StationRecord, error) {
	n := len(s.Name)
	if len(s.FreeBikes) != n || len(s.EmptySlots) != n || len(s.Latitude) != n || len(s.Longitude) != n {
		return nil, eris.Wrapf(ErrMalformedData,
			"parallel array length mismatch: name=%d free_bikes=%d empty_slots=%d latitude=%d longitude=%d",
			n, len(s.FreeBikes), len(s.EmptySlots), len(s.Latitude), len(s.Longitude),
		)
	}

	records := make([]StationRecord, n)
	for i := 0; i < n; i++ {
		records[i] = StationRecord{
			Name:           s.Name[i],
			BikesAvailable: s.FreeBikes[i],
			SlotsAvailable: s.EmptySlots[i],
			Latitude:       s.Latitude[i],
			Longitude:      s.Longitude[i],
		}
	}

	return records, nil
}
