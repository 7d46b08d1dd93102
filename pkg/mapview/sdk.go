package mapview

// The interfaces below describe the mapping SDK this package drives. They
// mirror the primitives of the Kakao Maps JavaScript SDK: a map view, markers,
// custom HTML overlays and a marker clusterer. Implementations own rendering,
// tiling and clustering.

type SDK interface {
	NewMap(container string, opts MapOptions) Map
	NewMarker(opts MarkerOptions) Marker
	NewCustomOverlay(opts OverlayOptions) Overlay
	NewClusterer(opts ClustererOptions) Clusterer
}

type Map interface {
	Center() Coordinate
	Level() int
	// PanTo moves the center with an animation; SetCenter jumps.
	PanTo(c Coordinate)
	SetCenter(c Coordinate)
}

type Marker interface {
	Position() Coordinate
	// Tag returns the value given in MarkerOptions.Tag.
	Tag() any
	OnClick(fn func())
}

type Overlay interface {
	Position() Coordinate
	SetPosition(c Coordinate)
	// SetMap attaches the overlay to m, or detaches it when m is nil.
	SetMap(m Map)
}

type Clusterer interface {
	AddMarkers(markers []Marker)
	// Clear removes every marker and detaches the clusterer from its map.
	Clear()
	OnClusterClick(fn func(Cluster))
}

type Cluster interface {
	Center() Coordinate
	Markers() []Marker
}

type MapOptions struct {
	Center Coordinate
	Level  int
}

type MarkerImage struct {
	Src    string
	Width  int
	Height int
}

type MarkerOptions struct {
	Position Coordinate
	Image    MarkerImage
	Tag      any
}

type OverlayOptions struct {
	Position Coordinate
	Content  string
	Map      Map
}

type ClusterStyle struct {
	Width        string
	Height       string
	Background   string
	BorderRadius string
	Color        string
	TextAlign    string
	FontWeight   string
	LineHeight   string
}

type ClustererOptions struct {
	Map Map
	// AverageCenter places the cluster at the mean of its markers instead of
	// at the first marker.
	AverageCenter bool
	// MinLevel is the smallest map level at which markers are clustered.
	MinLevel         int
	DisableClickZoom bool
	Styles           []ClusterStyle
}
