// Package study holds the studies shown as pins on the map.
package study

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Location follows the Kakao convention: X is the longitude and Y the
// latitude.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (l Location) Point() orb.Point {
	return orb.Point{l.X, l.Y}
}

type Study struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	PlaceName   string   `json:"place_name,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`
	Location    Location `json:"location"`
}

// IDs returns the keys of studies in ascending order.
func IDs(studies map[string]Study) []string {
	ids := make([]string, 0, len(studies))
	for id := range studies {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

// FeatureCollection renders studies as GeoJSON points, ordered by id.
func FeatureCollection(studies map[string]Study) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range IDs(studies) {
		s := studies[id]

		f := geojson.NewFeature(s.Location.Point())
		f.ID = id
		f.Properties["id"] = id
		f.Properties["title"] = s.Title
		if s.Category != "" {
			f.Properties["category"] = s.Category
		}
		if s.PlaceName != "" {
			f.Properties["place_name"] = s.PlaceName
		}

		fc.Append(f)
	}

	return fc
}
