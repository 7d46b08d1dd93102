// Package headless is an in-memory mapview.SDK. It keeps track of what would
// be on screen (center, level, overlays, markers) and lets callers simulate
// marker and cluster clicks. It never groups markers by itself.
package headless

import (
	"sync"

	"github.com/manzanit0/studymap/pkg/mapview"
)

type Move int

const (
	MoveNone Move = iota
	MovePan
	MoveJump
)

func (m Move) String() string {
	switch m {
	case MovePan:
		return "pan"
	case MoveJump:
		return "jump"
	default:
		return "none"
	}
}

type SDK struct {
	mu   *sync.Mutex
	maps []*Map
}

var _ mapview.SDK = (*SDK)(nil)

func New() *SDK {
	return &SDK{mu: &sync.Mutex{}}
}

func (s *SDK) NewMap(container string, opts mapview.MapOptions) mapview.Map {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Map{mu: s.mu, container: container, center: opts.Center, level: opts.Level}
	s.maps = append(s.maps, m)
	return m
}

// Maps returns every map created so far, oldest first.
func (s *SDK) Maps() []*Map {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*Map(nil), s.maps...)
}

func (s *SDK) NewMarker(opts mapview.MarkerOptions) mapview.Marker {
	return &Marker{mu: s.mu, position: opts.Position, image: opts.Image, tag: opts.Tag}
}

func (s *SDK) NewCustomOverlay(opts mapview.OverlayOptions) mapview.Overlay {
	o := &Overlay{mu: s.mu, position: opts.Position, content: opts.Content}
	if opts.Map != nil {
		o.SetMap(opts.Map)
	}

	return o
}

func (s *SDK) NewClusterer(opts mapview.ClustererOptions) mapview.Clusterer {
	c := &Clusterer{mu: s.mu, opts: opts}

	if m, ok := opts.Map.(*Map); ok {
		s.mu.Lock()
		c.m = m
		m.clusterers = append(m.clusterers, c)
		s.mu.Unlock()
	}

	return c
}

type Map struct {
	mu         *sync.Mutex
	container  string
	center     mapview.Coordinate
	level      int
	lastMove   Move
	overlays   []*Overlay
	clusterers []*Clusterer
}

var _ mapview.Map = (*Map)(nil)

func (m *Map) Container() string {
	return m.container
}

func (m *Map) Center() mapview.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.center
}

func (m *Map) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.level
}

func (m *Map) PanTo(c mapview.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.center = c
	m.lastMove = MovePan
}

func (m *Map) SetCenter(c mapview.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.center = c
	m.lastMove = MoveJump
}

// LastMove reports how the center was last changed.
func (m *Map) LastMove() Move {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastMove
}

// Overlays returns the overlays currently attached to the map.
func (m *Map) Overlays() []*Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Overlay(nil), m.overlays...)
}

// Clusterers returns the clusterers currently attached to the map.
func (m *Map) Clusterers() []*Clusterer {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*Clusterer(nil), m.clusterers...)
}

// Markers returns every marker shown through the map's clusterers.
func (m *Map) Markers() []*Marker {
	m.mu.Lock()
	defer m.mu.Unlock()

	var markers []*Marker
	for _, c := range m.clusterers {
		markers = append(markers, c.markers...)
	}

	return markers
}

type Marker struct {
	mu       *sync.Mutex
	position mapview.Coordinate
	image    mapview.MarkerImage
	tag      any
	handlers []func()
}

var _ mapview.Marker = (*Marker)(nil)

func (m *Marker) Position() mapview.Coordinate {
	return m.position
}

func (m *Marker) Image() mapview.MarkerImage {
	return m.image
}

func (m *Marker) Tag() any {
	return m.tag
}

func (m *Marker) OnClick(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, fn)
}

// Clickable reports whether any click listener is registered.
func (m *Marker) Clickable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.handlers) > 0
}

// Click fires the marker's click listeners.
func (m *Marker) Click() {
	m.mu.Lock()
	handlers := append([]func(){}, m.handlers...)
	m.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

type Overlay struct {
	mu       *sync.Mutex
	position mapview.Coordinate
	content  string
	m        *Map
}

var _ mapview.Overlay = (*Overlay)(nil)

func (o *Overlay) Position() mapview.Coordinate {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.position
}

func (o *Overlay) Content() string {
	return o.content
}

func (o *Overlay) SetPosition(c mapview.Coordinate) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.position = c
}

func (o *Overlay) SetMap(m mapview.Map) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.m != nil {
		o.m.overlays = removeOverlay(o.m.overlays, o)
		o.m = nil
	}

	if hm, ok := m.(*Map); ok && hm != nil {
		o.m = hm
		hm.overlays = append(hm.overlays, o)
	}
}

func removeOverlay(overlays []*Overlay, o *Overlay) []*Overlay {
	out := overlays[:0]
	for _, v := range overlays {
		if v != o {
			out = append(out, v)
		}
	}

	return out
}
