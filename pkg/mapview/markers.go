package mapview

import (
	"github.com/manzanit0/studymap/pkg/study"
)

var defaultMarkerImage = MarkerImage{Src: "/images/pinMarker.svg", Width: 56, Height: 56}

var defaultClusterStyle = ClusterStyle{
	Width:        "50px",
	Height:       "50px",
	Background:   "rgba(92, 198, 186, 0.85)",
	BorderRadius: "25px",
	Color:        "#fff",
	TextAlign:    "center",
	FontWeight:   "bold",
	LineHeight:   "51px",
}

// Selection is what a marker carries back to the click handler.
type Selection struct {
	ID    string      `json:"id"`
	Study study.Study `json:"study"`
}

// ClickHandler receives the studies under a clicked marker or cluster.
type ClickHandler func(selections []Selection)

// SetMarkers replaces every pin on the map with one per study. Nearby pins
// are grouped by the SDK clusterer.
//
// With a nil onClick the pins are inert. Otherwise clicking a pin centers the
// map on it and calls onClick with that study, and clicking a cluster centers
// the map on the cluster and calls onClick with all of its studies.
func (c *Client) SetMarkers(studies map[string]study.Study, onClick ClickHandler) error {
	if c.view == nil {
		return ErrNotInitialized
	}

	if c.clusterer != nil {
		c.clusterer.Clear()
	}

	clusterer := c.sdk.NewClusterer(ClustererOptions{
		Map:              c.view,
		AverageCenter:    true,
		MinLevel:         1,
		DisableClickZoom: true,
		Styles:           []ClusterStyle{c.opts.clusterStyle},
	})

	if onClick != nil {
		clusterer.OnClusterClick(func(cl Cluster) {
			_ = c.MoveCenter(cl.Center(), true)
			onClick(selectionsOf(cl.Markers()))
		})
	}

	markers := make([]Marker, 0, len(studies))
	for _, id := range study.IDs(studies) {
		s := studies[id]
		sel := Selection{ID: id, Study: s}
		position := Coordinate{Latitude: s.Location.Y, Longitude: s.Location.X}

		marker := c.sdk.NewMarker(MarkerOptions{
			Position: position,
			Image:    c.opts.markerImage,
			Tag:      sel,
		})

		if onClick != nil {
			marker.OnClick(func() {
				_ = c.MoveCenter(position, true)
				onClick([]Selection{sel})
			})
		}

		markers = append(markers, marker)
	}

	clusterer.AddMarkers(markers)

	c.clusterer = clusterer
	c.markers = markers

	return nil
}

// Markers returns the studies currently pinned, ordered by id.
func (c *Client) Markers() []Selection {
	return selectionsOf(c.markers)
}

func selectionsOf(markers []Marker) []Selection {
	selections := make([]Selection, 0, len(markers))
	for _, m := range markers {
		if sel, ok := m.Tag().(Selection); ok {
			selections = append(selections, sel)
		}
	}

	return selections
}
