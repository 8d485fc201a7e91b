package citybikes

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// SortByProximity stably orders records by planar distance from the given
// coordinate, nearest first. Planar degree distance is enough to order
// stations within one city; ties keep source order.
func SortByProximity(records []StationRecord, lat, lng float64) {
	origin := geom.Coord{lng, lat}
	sort.SliceStable(records, func(i, j int) bool {
		di := xy.Distance(origin, geom.Coord{records[i].Longitude, records[i].Latitude})
		dj := xy.Distance(origin, geom.Coord{records[j].Longitude, records[j].Latitude})
		return di < dj
	})
}
