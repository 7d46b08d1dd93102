package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codingsince1985/geo-golang"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/manzanit0/studymap/pkg/alert"
	"github.com/manzanit0/studymap/pkg/geocode"
	"github.com/manzanit0/studymap/pkg/geolocation"
	"github.com/manzanit0/studymap/pkg/kakao"
	"github.com/manzanit0/studymap/pkg/mapview"
	"github.com/manzanit0/studymap/pkg/mapview/headless"
	"github.com/manzanit0/studymap/pkg/middleware"
	"github.com/manzanit0/studymap/pkg/study"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recorder struct {
	alerts []alert.Alert
}

func (r *recorder) Fire(_ context.Context, a alert.Alert) {
	r.alerts = append(r.alerts, a)
}

func (r *recorder) Recover(context.Context) {}

type stubGeocoder struct {
	loc *geocode.Location
	err error
}

func (s stubGeocoder) Geocode(string) (*geocode.Location, error) {
	return s.loc, s.err
}

func (s stubGeocoder) ReverseGeocode(lat, lng float64) (*geocode.Location, error) {
	if s.err != nil {
		return nil, s.err
	}

	return &geocode.Location{Latitude: lat, Longitude: lng, Name: "서울 강남구 역삼동 858"}, nil
}

var testStudies = study.InMemory{
	"a": {ID: "a", Title: "Go 스터디", Location: study.Location{X: 127.0276, Y: 37.4979}},
	"b": {ID: "b", Title: "알고리즘 스터디", Location: study.Location{X: 127.0286, Y: 37.4989}},
	"c": {ID: "c", Title: "부산 스터디", Location: study.Location{X: 129.0756, Y: 35.1796}},
}

type testEnv struct {
	router   *gin.Engine
	notifier *recorder
	upstream *http.Request
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	return newTestEnvWithGeocoder(t, handler, stubGeocoder{loc: &geocode.Location{Latitude: 37.4979, Longitude: 127.0276}})
}

func newTestEnvWithGeocoder(t *testing.T, handler http.HandlerFunc, geocoder geocode.Client) *testEnv {
	t.Helper()

	env := &testEnv{notifier: &recorder{}}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.upstream = r.Clone(context.Background())
		handler(w, r)
	}))
	t.Cleanup(upstream.Close)

	search := kakao.NewClient(upstream.Client(), "secret-token", kakao.WithBaseURL(upstream.URL))

	sdk := headless.New()
	client := mapview.New(sdk, search, geolocation.FromContext())
	client.InitMapView("map")

	s := newServer(client, sdk, geocoder, testStudies, env.notifier)

	env.router = gin.New()
	env.router.Use(middleware.Position())
	s.routes(env.router)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unable to decode %q: %s", w.Body.String(), err.Error())
	}

	return v
}

func okHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	w := env.do(t, http.MethodGet, "/ping", nil)
	if w.Code != http.StatusOK || w.Body.String() != `{"message":"pong"}` {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSearchKeyword(t *testing.T) {
	env := newTestEnv(t, okHandler(`{"meta": {"total_count": 1, "pageable_count": 1, "is_end": true}, "documents": [{"id": "21160803", "place_name": "강남역 2호선", "x": "127.027621", "y": "37.497942"}]}`))

	w := env.do(t, http.MethodGet, "/search/keyword?query=%EA%B0%95%EB%82%A8%EC%97%AD&page=1&size=15&sort=accuracy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	res := decode[kakao.KeywordResult](t, w)
	if len(res.Documents) != 1 || res.Documents[0].PlaceName != "강남역 2호선" {
		t.Errorf("unexpected result: %+v", res)
	}

	q := env.upstream.URL.Query()
	if q.Get("query") != "강남역" || q.Get("page") != "1" || q.Get("size") != "15" || q.Get("sort") != "accuracy" {
		t.Errorf("unexpected upstream query: %v", q)
	}

	if got := env.upstream.Header.Get("Authorization"); got != "KakaoAK secret-token" {
		t.Errorf("got Authorization %q", got)
	}
}

func TestSearchAddressAndCategory(t *testing.T) {
	env := newTestEnv(t, okHandler(`{"meta": {"total_count": 0, "pageable_count": 0, "is_end": true}, "documents": []}`))

	w := env.do(t, http.MethodGet, "/search/address?query=%EA%B0%95%EB%82%A8%EB%8C%80%EB%A1%9C&analyze_type=exact", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if env.upstream.URL.Path != "/v2/local/search/address.json" || env.upstream.URL.Query().Get("analyze_type") != "exact" {
		t.Errorf("unexpected upstream request: %s", env.upstream.URL)
	}

	w = env.do(t, http.MethodGet, "/search/category?category_group_code=CE7&x=127.0276&y=37.4979&radius=500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	q := env.upstream.URL.Query()
	if env.upstream.URL.Path != "/v2/local/search/category.json" || q.Get("x") != "127.0276" || q.Get("y") != "37.4979" || q.Get("radius") != "500" {
		t.Errorf("unexpected upstream request: %s", env.upstream.URL)
	}
}

func TestSearchErrors(t *testing.T) {
	testCases := []struct {
		desc       string
		path       string
		handler    http.HandlerFunc
		wantStatus int
		wantAlerts int
	}{
		{
			desc:       "invalid requests are rejected without an alert",
			path:       "/search/keyword?query=x&sort=popularity",
			handler:    okHandler(`{}`),
			wantStatus: http.StatusBadRequest,
		},
		{
			desc:       "x without y is rejected",
			path:       "/search/keyword?query=x&x=127",
			handler:    okHandler(`{}`),
			wantStatus: http.StatusBadRequest,
		},
		{
			desc: "upstream failures are bad gateways and alert the user",
			path: "/search/keyword?query=x",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"errorType": "AccessDeniedError", "message": "wrong appKey"}`))
			},
			wantStatus: http.StatusBadGateway,
			wantAlerts: 1,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			env := newTestEnv(t, tC.handler)

			w := env.do(t, http.MethodGet, tC.path, nil)
			if w.Code != tC.wantStatus {
				t.Errorf("got %d, want %d: %s", w.Code, tC.wantStatus, w.Body.String())
			}

			if len(env.notifier.alerts) != tC.wantAlerts {
				t.Fatalf("got %d alerts, want %d", len(env.notifier.alerts), tC.wantAlerts)
			}

			if tC.wantAlerts > 0 && env.notifier.alerts[0].Title != mapview.TitleNetworkError {
				t.Errorf("got alert %+v", env.notifier.alerts[0])
			}
		})
	}
}

func TestGeocode(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	w := env.do(t, http.MethodGet, "/geocode?query=%EA%B0%95%EB%82%A8%EC%97%AD", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if loc := decode[geocode.Location](t, w); loc.Latitude != 37.4979 {
		t.Errorf("unexpected location: %+v", loc)
	}

	w = env.do(t, http.MethodGet, "/geocode/reverse?lat=37.4979&lng=127.0276", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if loc := decode[geocode.Location](t, w); loc.Name != "서울 강남구 역삼동 858" {
		t.Errorf("unexpected location: %+v", loc)
	}

	if w := env.do(t, http.MethodGet, "/geocode/reverse?lat=north", nil); w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/geocode", nil); w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}
}

func TestGeocodeErrors(t *testing.T) {
	testCases := []struct {
		desc       string
		geocoder   geocode.Client
		path       string
		wantStatus int
		wantAlert  bool
	}{
		{
			desc:       "no match is a 404 without alert",
			geocoder:   geocode.NewClient(emptyGeoProvider{}),
			path:       "/geocode?query=nowhere",
			wantStatus: http.StatusNotFound,
		},
		{
			desc:       "no reverse match is a 404 without alert",
			geocoder:   geocode.NewClient(emptyGeoProvider{}),
			path:       "/geocode/reverse?lat=37.4979&lng=127.0276",
			wantStatus: http.StatusNotFound,
		},
		{
			desc:       "out of range coordinates are rejected",
			geocoder:   stubGeocoder{err: errors.New("should not be called")},
			path:       "/geocode/reverse?lat=999&lng=0",
			wantStatus: http.StatusBadRequest,
		},
		{
			desc:       "provider failures are network errors",
			geocoder:   stubGeocoder{err: errors.New("connection refused")},
			path:       "/geocode?query=%EA%B0%95%EB%82%A8%EC%97%AD",
			wantStatus: http.StatusBadGateway,
			wantAlert:  true,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			env := newTestEnvWithGeocoder(t, okHandler(`{}`), tC.geocoder)

			w := env.do(t, http.MethodGet, tC.path, nil)
			if w.Code != tC.wantStatus {
				t.Fatalf("got %d, want %d: %s", w.Code, tC.wantStatus, w.Body.String())
			}

			if got := len(env.notifier.alerts) == 1; got != tC.wantAlert {
				t.Errorf("expected alert %t, got %+v", tC.wantAlert, env.notifier.alerts)
			}

			if tC.wantAlert && env.notifier.alerts[0].Title != mapview.TitleNetworkError {
				t.Errorf("got alert %+v", env.notifier.alerts[0])
			}
		})
	}
}

type emptyGeoProvider struct{}

func (emptyGeoProvider) Geocode(string) (*geo.Location, error) { return nil, nil }

func (emptyGeoProvider) ReverseGeocode(float64, float64) (*geo.Address, error) { return nil, nil }

func TestStudiesGeoJSON(t *testing.T) {
	testCases := []struct {
		desc       string
		path       string
		wantStatus int
		wantIDs    []string
	}{
		{desc: "all studies", path: "/studies.geojson", wantStatus: http.StatusOK, wantIDs: []string{"a", "b", "c"}},
		{desc: "studies within seoul", path: "/studies.geojson?bbox=126.9,37.4,127.1,37.6", wantStatus: http.StatusOK, wantIDs: []string{"a", "b"}},
		{desc: "malformed bbox", path: "/studies.geojson?bbox=1,2,3", wantStatus: http.StatusBadRequest},
		{desc: "inverted bbox", path: "/studies.geojson?bbox=127.1,37.6,126.9,37.4", wantStatus: http.StatusBadRequest},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			env := newTestEnv(t, okHandler(`{}`))

			w := env.do(t, http.MethodGet, tC.path, nil)
			if w.Code != tC.wantStatus {
				t.Fatalf("got %d, want %d: %s", w.Code, tC.wantStatus, w.Body.String())
			}

			if tC.wantStatus != http.StatusOK {
				return
			}

			if ct := w.Header().Get("Content-Type"); ct != "application/geo+json" {
				t.Errorf("got content type %q", ct)
			}

			fc := decode[struct {
				Features []struct {
					ID string `json:"id"`
				} `json:"features"`
			}](t, w)

			var ids []string
			for _, f := range fc.Features {
				ids = append(ids, f.ID)
			}

			if diff := cmp.Diff(tC.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapCenter(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	state := decode[mapStateResponse](t, env.do(t, http.MethodGet, "/map", nil))
	if state.Center != (mapview.Coordinate{Latitude: mapview.DefaultLatitude, Longitude: mapview.DefaultLongitude}) || state.Level != 3 {
		t.Errorf("unexpected initial state: %+v", state)
	}

	w := env.do(t, http.MethodPost, "/map/center", gin.H{"latitude": 35.1796, "longitude": 129.0756, "smooth": true})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	state = decode[mapStateResponse](t, w)
	if state.Center != (mapview.Coordinate{Latitude: 35.1796, Longitude: 129.0756}) {
		t.Errorf("got center %+v", state.Center)
	}

	for _, body := range []gin.H{{"latitude": 35.1796}, {"latitude": 91, "longitude": 0}} {
		if w := env.do(t, http.MethodPost, "/map/center", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v: got %d, want 400", body, w.Code)
		}
	}
}

func TestGeoMarker(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	w := env.do(t, http.MethodPut, "/map/geomarker", gin.H{"latitude": 37.5, "longitude": 127})
	if w.Code != http.StatusConflict {
		t.Errorf("moving before setting: got %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/map/geomarker", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("no position: got %d, want 422", w.Code)
	}

	w = env.do(t, http.MethodPost, "/map/geomarker", gin.H{"latitude": 37.4979, "longitude": 127.0276})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	state := decode[mapStateResponse](t, w)
	want := mapview.Coordinate{Latitude: 37.4979, Longitude: 127.0276}
	if state.GeoMarker == nil || *state.GeoMarker != want || state.Center != want {
		t.Errorf("unexpected state: %+v", state)
	}

	w = env.do(t, http.MethodPut, "/map/geomarker", nil, "X-Latitude", "37.5", "X-Longitude", "127.01")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	state = decode[mapStateResponse](t, w)
	want = mapview.Coordinate{Latitude: 37.5, Longitude: 127.01}
	if state.GeoMarker == nil || *state.GeoMarker != want {
		t.Errorf("unexpected state: %+v", state)
	}

	titles := []string{}
	for _, a := range env.notifier.alerts {
		titles = append(titles, a.Title)
	}

	if diff := cmp.Diff([]string{mapview.TitleMapError, mapview.TitleLocationError}, titles); diff != "" {
		t.Errorf("alerts mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkers(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	w := env.do(t, http.MethodPost, "/map/markers", gin.H{"ids": []string{"a", "b"}})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if state := decode[mapStateResponse](t, env.do(t, http.MethodGet, "/map", nil)); !cmp.Equal(state.Markers, []string{"a", "b"}) {
		t.Errorf("got markers %v", state.Markers)
	}

	w = env.do(t, http.MethodPost, "/map/markers/a/click", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	res := decode[selectionResponse](t, w)
	want := []mapview.Selection{{ID: "a", Study: testStudies["a"]}}
	if diff := cmp.Diff(want, res.Selections); diff != "" {
		t.Errorf("selections mismatch (-want +got):\n%s", diff)
	}

	if res.Center != (mapview.Coordinate{Latitude: 37.4979, Longitude: 127.0276}) {
		t.Errorf("expected the map to center on the marker, got %+v", res.Center)
	}

	w = env.do(t, http.MethodPost, "/map/clusters/click", gin.H{"ids": []string{"a", "b"}})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	res = decode[selectionResponse](t, w)
	if len(res.Selections) != 2 {
		t.Errorf("expected both studies, got %+v", res.Selections)
	}

	if math.Abs(res.Center.Latitude-(37.4979+37.4989)/2) > 1e-9 {
		t.Errorf("expected the map to center on the cluster, got %+v", res.Center)
	}
}

func TestMarkersReplaceAndErrors(t *testing.T) {
	env := newTestEnv(t, okHandler(`{}`))

	if w := env.do(t, http.MethodPost, "/map/markers", nil); w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodPost, "/map/markers", gin.H{"ids": []string{"c"}}); w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if state := decode[mapStateResponse](t, env.do(t, http.MethodGet, "/map", nil)); !cmp.Equal(state.Markers, []string{"c"}) {
		t.Errorf("only the second set should remain, got %v", state.Markers)
	}

	testCases := []struct {
		desc       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"unknown study", http.MethodPost, "/map/markers", gin.H{"ids": []string{"zzz"}}, http.StatusNotFound},
		{"unknown marker", http.MethodPost, "/map/markers/a/click", nil, http.StatusNotFound},
		{"cluster without ids", http.MethodPost, "/map/clusters/click", gin.H{"ids": []string{}}, http.StatusBadRequest},
		{"cluster with unknown ids", http.MethodPost, "/map/clusters/click", gin.H{"ids": []string{"a"}}, http.StatusNotFound},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			if w := env.do(t, tC.method, tC.path, tC.body); w.Code != tC.wantStatus {
				t.Errorf("got %d, want %d: %s", w.Code, tC.wantStatus, w.Body.String())
			}
		})
	}

	if len(env.notifier.alerts) != 0 {
		t.Errorf("client errors should not alert, got %+v", env.notifier.alerts)
	}
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		desc string
		err  error
		want int
	}{
		{"invalid request", fmt.Errorf("search: %w", kakao.ErrInvalidRequest), http.StatusBadRequest},
		{"not found", fmt.Errorf("study x: %w", errNotFound), http.StatusNotFound},
		{"not initialized", mapview.ErrNotInitialized, http.StatusConflict},
		{"location unavailable", fmt.Errorf("%w: %w", mapview.ErrLocationUnavailable, geolocation.ErrUnavailable), http.StatusUnprocessableEntity},
		{"network", &mapview.NetworkError{Op: "search", Err: errors.New("timeout")}, http.StatusBadGateway},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			if got := statusFor(tC.err); got != tC.want {
				t.Errorf("got %d, want %d", got, tC.want)
			}
		})
	}
}
