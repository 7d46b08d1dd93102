package headless

import (
	"sync"

	"github.com/manzanit0/studymap/pkg/mapview"
)

type Clusterer struct {
	mu       *sync.Mutex
	opts     mapview.ClustererOptions
	m        *Map
	markers  []*Marker
	handlers []func(mapview.Cluster)
}

var _ mapview.Clusterer = (*Clusterer)(nil)

func (c *Clusterer) Options() mapview.ClustererOptions {
	return c.opts
}

func (c *Clusterer) AddMarkers(markers []mapview.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range markers {
		if hm, ok := m.(*Marker); ok {
			c.markers = append(c.markers, hm)
		}
	}
}

func (c *Clusterer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markers = nil
	if c.m == nil {
		return
	}

	out := c.m.clusterers[:0]
	for _, v := range c.m.clusterers {
		if v != c {
			out = append(out, v)
		}
	}
	c.m.clusterers = out
	c.m = nil
}

func (c *Clusterer) OnClusterClick(fn func(mapview.Cluster)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers = append(c.handlers, fn)
}

// Markers returns the markers held by the clusterer.
func (c *Clusterer) Markers() []*Marker {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*Marker(nil), c.markers...)
}

// ClickCluster simulates a click on a cluster made of markers and returns
// the cluster passed to the listeners.
func (c *Clusterer) ClickCluster(markers ...*Marker) mapview.Cluster {
	cl := newCluster(markers, c.opts.AverageCenter)

	c.mu.Lock()
	handlers := append([]func(mapview.Cluster){}, c.handlers...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(cl)
	}

	return cl
}

type cluster struct {
	center  mapview.Coordinate
	markers []mapview.Marker
}

func newCluster(markers []*Marker, averageCenter bool) *cluster {
	cl := &cluster{markers: make([]mapview.Marker, 0, len(markers))}
	if len(markers) == 0 {
		return cl
	}

	var lat, lng float64
	for _, m := range markers {
		cl.markers = append(cl.markers, m)
		lat += m.position.Latitude
		lng += m.position.Longitude
	}

	if averageCenter {
		n := float64(len(markers))
		cl.center = mapview.Coordinate{Latitude: lat / n, Longitude: lng / n}
	} else {
		cl.center = markers[0].position
	}

	return cl
}

func (c *cluster) Center() mapview.Coordinate {
	return c.center
}

func (c *cluster) Markers() []mapview.Marker {
	return c.markers
}
