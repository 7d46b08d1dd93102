package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/manzanit0/studymap/pkg/alert"
	"github.com/manzanit0/studymap/pkg/geocode"
	"github.com/manzanit0/studymap/pkg/geolocation"
	"github.com/manzanit0/studymap/pkg/kakao"
	"github.com/manzanit0/studymap/pkg/mapview"
	"github.com/manzanit0/studymap/pkg/mapview/headless"
	"github.com/manzanit0/studymap/pkg/study"
)

var errNotFound = errors.New("not found")

// server exposes a single map session over HTTP. mu serializes every call
// touching the session since mapview.Client does no locking of its own.
type server struct {
	mu       sync.Mutex
	client   *mapview.Client
	sdk      *headless.SDK
	selected []mapview.Selection

	geocoder geocode.Client
	studies  study.Repository
	notifier alert.Notifier
}

func newServer(client *mapview.Client, sdk *headless.SDK, geocoder geocode.Client, studies study.Repository, notifier alert.Notifier) *server {
	return &server{
		client:   client,
		sdk:      sdk,
		geocoder: geocoder,
		studies:  studies,
		notifier: notifier,
	}
}

func (s *server) routes(r gin.IRouter) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.GET("/search/keyword", s.searchKeyword)
	r.GET("/search/address", s.searchAddress)
	r.GET("/search/category", s.searchCategory)

	r.GET("/geocode", s.geocode)
	r.GET("/geocode/reverse", s.reverseGeocode)

	r.GET("/studies.geojson", s.studiesGeoJSON)

	r.GET("/map", s.mapState)
	r.POST("/map/center", s.moveCenter)
	r.POST("/map/geomarker", s.setGeoMarker)
	r.PUT("/map/geomarker", s.moveGeoMarker)
	r.POST("/map/markers", s.setMarkers)
	r.POST("/map/markers/:id/click", s.clickMarker)
	r.POST("/map/clusters/click", s.clickCluster)
}

type searchQuery struct {
	Query             string   `form:"query"`
	CategoryGroupCode string   `form:"category_group_code"`
	Page              int      `form:"page"`
	Size              int      `form:"size"`
	Sort              string   `form:"sort"`
	AnalyzeType       string   `form:"analyze_type"`
	X                 *float64 `form:"x"`
	Y                 *float64 `form:"y"`
	Radius            int      `form:"radius"`
}

func (q searchQuery) near() (*kakao.Near, error) {
	if q.X == nil && q.Y == nil {
		return nil, nil
	}

	if q.X == nil || q.Y == nil {
		return nil, fmt.Errorf("%w: x and y go together", kakao.ErrInvalidRequest)
	}

	return &kakao.Near{Latitude: *q.Y, Longitude: *q.X, Radius: q.Radius}, nil
}

// The search endpoints never touch the map session and run without the lock.

func (s *server) searchKeyword(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	near, err := q.near()
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.client.SearchByKeyword(c.Request.Context(), kakao.KeywordRequest{
		Query:             q.Query,
		Page:              q.Page,
		Size:              q.Size,
		Sort:              kakao.Sort(q.Sort),
		CategoryGroupCode: q.CategoryGroupCode,
		Near:              near,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *server) searchAddress(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.client.SearchByAddress(c.Request.Context(), kakao.AddressRequest{
		Query:       q.Query,
		Page:        q.Page,
		Size:        q.Size,
		AnalyzeType: kakao.AnalyzeType(q.AnalyzeType),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *server) searchCategory(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	near, err := q.near()
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.client.SearchByCategory(c.Request.Context(), kakao.CategoryRequest{
		CategoryGroupCode: q.CategoryGroupCode,
		Page:              q.Page,
		Size:              q.Size,
		Sort:              kakao.Sort(q.Sort),
		Near:              near,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *server) geocode(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	loc, err := s.geocoder.Geocode(query)
	if err != nil {
		s.fail(c, geocodeError("geocode", err))
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (s *server) reverseGeocode(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if err := errors.Join(errLat, errLng); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Errorf("parse coordinates: %w", err).Error()})
		return
	}

	if !validCoordinate(lat, lng) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	loc, err := s.geocoder.ReverseGeocode(lat, lng)
	if err != nil {
		s.fail(c, geocodeError("reverse geocode", err))
		return
	}

	c.JSON(http.StatusOK, loc)
}

// geocodeError keeps "no match" apart from provider failures.
func geocodeError(op string, err error) error {
	if errors.Is(err, geocode.ErrNotFound) {
		return err
	}

	return &mapview.NetworkError{Op: op, Err: err}
}

// studiesGeoJSON exports the studies, optionally limited to a
// bbox=minLng,minLat,maxLng,maxLat.
func (s *server) studiesGeoJSON(c *gin.Context) {
	ctx := c.Request.Context()

	var studies map[string]study.Study
	var err error
	if bbox := c.Query("bbox"); bbox != "" {
		bound, parseErr := parseBound(bbox)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
			return
		}

		studies, err = s.studies.ListStudiesWithin(ctx, bound)
	} else {
		studies, err = s.studies.ListStudies(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "unable to list studies", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to list studies"})
		return
	}

	b, err := study.FeatureCollection(studies).MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/geo+json", b)
}

func parseBound(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 values, got %d", len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("parse bbox: %w", err)
		}
		v[i] = f
	}

	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox min exceeds max")
	}

	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

type mapStateResponse struct {
	Center    mapview.Coordinate  `json:"center"`
	Level     int                 `json:"level"`
	GeoMarker *mapview.Coordinate `json:"geo_marker"`
	Markers   []string            `json:"markers"`
}

func (s *server) mapState(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.respondState(c)
}

// respondState must be called with mu held.
func (s *server) respondState(c *gin.Context) {
	center, err := s.client.Center()
	if err != nil {
		s.fail(c, err)
		return
	}

	res := mapStateResponse{Center: center, Markers: []string{}}
	if m := s.currentMap(); m != nil {
		res.Level = m.Level()
	}

	if pos, ok := s.client.GeoMarker(); ok {
		res.GeoMarker = &pos
	}

	for _, sel := range s.client.Markers() {
		res.Markers = append(res.Markers, sel.ID)
	}

	c.JSON(http.StatusOK, res)
}

type moveCenterRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Smooth    bool     `json:"smooth"`
}

func (s *server) moveCenter(c *gin.Context) {
	var req moveCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validCoordinate(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.MoveCenterByCoords(*req.Latitude, *req.Longitude, req.Smooth); err != nil {
		s.fail(c, err)
		return
	}

	s.respondState(c)
}

// positionRequest optionally carries the device position, as the X-Latitude
// and X-Longitude headers do.
type positionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
}

func (s *server) bindPosition(c *gin.Context) bool {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	if req.Latitude == nil && req.Longitude == nil {
		return true
	}

	if req.Latitude == nil || req.Longitude == nil || !validCoordinate(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must both be valid"})
		return false
	}

	ctx := geolocation.WithPosition(c.Request.Context(), geolocation.Position{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
	})
	c.Request = c.Request.WithContext(ctx)

	return true
}

func (s *server) setGeoMarker(c *gin.Context) {
	if !s.bindPosition(c) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.SetGeoMarker(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	s.respondState(c)
}

func (s *server) moveGeoMarker(c *gin.Context) {
	if !s.bindPosition(c) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.MoveGeoMarker(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}

	s.respondState(c)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (s *server) setMarkers(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	studies, err := s.loadStudies(c, req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.SetMarkers(studies, s.onSelect); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"markers": s.client.Markers()})
}

// loadStudies fetches ids, or every study when ids is empty.
func (s *server) loadStudies(c *gin.Context, ids []string) (map[string]study.Study, error) {
	ctx := c.Request.Context()
	if len(ids) == 0 {
		return s.studies.ListStudies(ctx)
	}

	studies := make(map[string]study.Study, len(ids))
	for _, id := range ids {
		st, err := s.studies.GetStudy(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get study %s: %w", id, err)
		}

		if st == nil {
			return nil, fmt.Errorf("study %s: %w", id, errNotFound)
		}

		studies[id] = *st
	}

	return studies, nil
}

// onSelect runs inside a click, with mu held.
func (s *server) onSelect(selections []mapview.Selection) {
	s.selected = selections
}

type selectionResponse struct {
	Selections []mapview.Selection `json:"selections"`
	Center     mapview.Coordinate  `json:"center"`
}

func (s *server) clickMarker(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	markers := s.markersByID()
	marker, ok := markers[c.Param("id")]
	if !ok {
		s.fail(c, fmt.Errorf("marker %s: %w", c.Param("id"), errNotFound))
		return
	}

	s.selected = nil
	marker.Click()

	s.respondSelection(c)
}

func (s *server) clickCluster(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a cluster needs at least one id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.currentMap()
	if m == nil || len(m.Clusterers()) == 0 {
		s.fail(c, fmt.Errorf("clusters: %w", errNotFound))
		return
	}

	markers := s.markersByID()
	members := make([]*headless.Marker, 0, len(req.IDs))
	for _, id := range req.IDs {
		marker, ok := markers[id]
		if !ok {
			s.fail(c, fmt.Errorf("marker %s: %w", id, errNotFound))
			return
		}
		members = append(members, marker)
	}

	s.selected = nil
	m.Clusterers()[0].ClickCluster(members...)

	s.respondSelection(c)
}

func (s *server) respondSelection(c *gin.Context) {
	center, err := s.client.Center()
	if err != nil {
		s.fail(c, err)
		return
	}

	selections := s.selected
	if selections == nil {
		selections = []mapview.Selection{}
	}

	c.JSON(http.StatusOK, selectionResponse{Selections: selections, Center: center})
}

func (s *server) currentMap() *headless.Map {
	maps := s.sdk.Maps()
	if len(maps) == 0 {
		return nil
	}

	return maps[len(maps)-1]
}

func (s *server) markersByID() map[string]*headless.Marker {
	byID := map[string]*headless.Marker{}

	m := s.currentMap()
	if m == nil {
		return byID
	}

	for _, marker := range m.Markers() {
		if sel, ok := marker.Tag().(mapview.Selection); ok {
			byID[sel.ID] = marker
		}
	}

	return byID
}

// fail writes err as a JSON error. Failures the user should hear about are
// also handed to the notifier.
func (s *server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status != http.StatusBadRequest && status != http.StatusNotFound {
		s.notifier.Fire(c.Request.Context(), mapview.AlertFor(err))
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var netErr *mapview.NetworkError
	switch {
	case errors.Is(err, kakao.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound), errors.Is(err, geocode.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mapview.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, mapview.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
