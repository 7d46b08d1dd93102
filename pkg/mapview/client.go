// Package mapview drives a map view for the study finder: it centers the map,
// shows where the user is, searches places and addresses, and pins studies.
//
// A Client owns one map view, at most one "current location" overlay and one
// marker set. It is meant for a single caller and does no locking; callers
// sharing a Client across goroutines must serialize access themselves.
// Overlapping asynchronous calls (two searches, two location requests) are
// neither de-duplicated nor cancelled and apply their effects in completion
// order.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/manzanit0/studymap/pkg/geolocation"
	"github.com/manzanit0/studymap/pkg/kakao"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const (
	// Gangnam station.
	DefaultLatitude  = 37.4981588
	DefaultLongitude = 127.0278715
	DefaultLevel     = 3
)

const geoMarkerContent = `<div class="marker"><div class="dot"></div><div class="pulse"></div></div>`

type Client struct {
	sdk     SDK
	search  kakao.Client
	locator geolocation.Locator
	opts    options

	view      Map
	geoMarker Overlay
	clusterer Clusterer
	markers   []Marker
}

type options struct {
	center       Coordinate
	level        int
	markerImage  MarkerImage
	clusterStyle ClusterStyle
}

type Option func(*options)

func WithDefaultCenter(c Coordinate) Option {
	return func(o *options) {
		o.center = c
	}
}

func WithDefaultLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

func WithMarkerImage(img MarkerImage) Option {
	return func(o *options) {
		o.markerImage = img
	}
}

func WithClusterStyle(s ClusterStyle) Option {
	return func(o *options) {
		o.clusterStyle = s
	}
}

func New(sdk SDK, search kakao.Client, locator geolocation.Locator, opts ...Option) *Client {
	o := options{
		center:       Coordinate{Latitude: DefaultLatitude, Longitude: DefaultLongitude},
		level:        DefaultLevel,
		markerImage:  defaultMarkerImage,
		clusterStyle: defaultClusterStyle,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{sdk: sdk, search: search, locator: locator, opts: o}
}

// InitMapView creates the map view inside container. Calling it again
// replaces the view; the geo marker and markers of the previous view are
// forgotten.
func (c *Client) InitMapView(container string) {
	c.view = c.sdk.NewMap(container, MapOptions{Center: c.opts.center, Level: c.opts.level})
	c.geoMarker = nil
	c.clusterer = nil
	c.markers = nil

	slog.Debug("map view initialized", "container", container, "level", c.opts.level)
}

func (c *Client) Center() (Coordinate, error) {
	if c.view == nil {
		return Coordinate{}, ErrNotInitialized
	}

	return c.view.Center(), nil
}

// MoveCenter pans to coord when smooth is set and jumps otherwise.
func (c *Client) MoveCenter(coord Coordinate, smooth bool) error {
	if c.view == nil {
		return ErrNotInitialized
	}

	if smooth {
		c.view.PanTo(coord)
	} else {
		c.view.SetCenter(coord)
	}

	return nil
}

func (c *Client) MoveCenterByCoords(lat, lng float64, smooth bool) error {
	return c.MoveCenter(Coordinate{Latitude: lat, Longitude: lng}, smooth)
}

// SetGeoMarker asks the location service where the user is, centers the map
// there and draws the pulsing dot. A previous dot is removed first. Nothing
// changes on the map when the location cannot be obtained.
func (c *Client) SetGeoMarker(ctx context.Context) error {
	if c.view == nil {
		return ErrNotInitialized
	}

	pos, err := c.currentPosition(ctx)
	if err != nil {
		return err
	}

	if err := c.MoveCenter(pos, true); err != nil {
		return err
	}

	if c.geoMarker != nil {
		c.geoMarker.SetMap(nil)
	}

	c.geoMarker = c.sdk.NewCustomOverlay(OverlayOptions{
		Position: pos,
		Content:  geoMarkerContent,
		Map:      c.view,
	})

	return nil
}

// MoveGeoMarker refreshes the position of the dot drawn by SetGeoMarker.
func (c *Client) MoveGeoMarker(ctx context.Context) error {
	if c.view == nil || c.geoMarker == nil {
		return ErrNotInitialized
	}

	pos, err := c.currentPosition(ctx)
	if err != nil {
		return err
	}

	if err := c.MoveCenter(pos, true); err != nil {
		return err
	}

	c.geoMarker.SetPosition(pos)
	return nil
}

// GeoMarker reports the position of the current location dot, if any.
func (c *Client) GeoMarker() (Coordinate, bool) {
	if c.geoMarker == nil {
		return Coordinate{}, false
	}

	return c.geoMarker.Position(), true
}

func (c *Client) currentPosition(ctx context.Context) (Coordinate, error) {
	p, err := c.locator.CurrentPosition(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return Coordinate{}, err
		}

		return Coordinate{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}

	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}, nil
}

func (c *Client) SearchByKeyword(ctx context.Context, req kakao.KeywordRequest) (*kakao.KeywordResult, error) {
	res, err := c.search.SearchByKeyword(ctx, req)
	if err != nil {
		return nil, searchError("search by keyword", err)
	}

	return res, nil
}

func (c *Client) SearchByAddress(ctx context.Context, req kakao.AddressRequest) (*kakao.AddressResult, error) {
	res, err := c.search.SearchByAddress(ctx, req)
	if err != nil {
		return nil, searchError("search by address", err)
	}

	return res, nil
}

func (c *Client) SearchByCategory(ctx context.Context, req kakao.CategoryRequest) (*kakao.KeywordResult, error) {
	res, err := c.search.SearchByCategory(ctx, req)
	if err != nil {
		return nil, searchError("search by category", err)
	}

	return res, nil
}

// searchError keeps validation failures as they are; they never reached the
// network.
func searchError(op string, err error) error {
	if errors.Is(err, kakao.ErrInvalidRequest) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return &NetworkError{Op: op, Err: err}
}
