package mapview

import (
	"context"
	"errors"

	"github.com/manzanit0/studymap/pkg/alert"
	"github.com/manzanit0/studymap/pkg/kakao"
	"github.com/manzanit0/studymap/pkg/study"
)

const (
	TitleNetworkError  = "네트워크 에러"
	TitleLocationError = "위치 정보 에러"
	TitleMapError      = "지도 에러"

	TextLocationRequired = "스터디 검색을 위해 위치 정보가 필요해요 😭"
	TextMapNotReady      = "지도가 아직 준비되지 않았어요"
)

// AlertFor builds the alert shown to the user for err.
func AlertFor(err error) alert.Alert {
	a := alert.Alert{Severity: alert.SeverityError, ConfirmText: alert.DefaultConfirmText}

	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		a.Title = TitleNetworkError
		a.Text = netErr.Err.Error()
	case errors.Is(err, ErrLocationUnavailable):
		a.Title = TitleLocationError
		a.Text = TextLocationRequired
	case errors.Is(err, ErrNotInitialized):
		a.Title = TitleMapError
		a.Text = TextMapNotReady
	default:
		a.Title = TitleNetworkError
		a.Text = err.Error()
	}

	return a
}

// Reporter exposes the Client operations with errors routed to a Notifier
// instead of being returned. Failed searches yield a nil result, so callers
// cannot tell a failure from an empty answer except through the alert.
type Reporter struct {
	c *Client
	n alert.Notifier
}

func NewReporter(c *Client, n alert.Notifier) *Reporter {
	return &Reporter{c: c, n: n}
}

func (r *Reporter) Client() *Client {
	return r.c
}

func (r *Reporter) InitMapView(container string) {
	r.c.InitMapView(container)
}

func (r *Reporter) MoveCenter(ctx context.Context, coord Coordinate, smooth bool) {
	r.report(ctx, r.c.MoveCenter(coord, smooth))
}

func (r *Reporter) MoveCenterByCoords(ctx context.Context, lat, lng float64, smooth bool) {
	r.report(ctx, r.c.MoveCenterByCoords(lat, lng, smooth))
}

func (r *Reporter) SetGeoMarker(ctx context.Context) {
	r.report(ctx, r.c.SetGeoMarker(ctx))
}

func (r *Reporter) MoveGeoMarker(ctx context.Context) {
	r.report(ctx, r.c.MoveGeoMarker(ctx))
}

func (r *Reporter) SearchByKeyword(ctx context.Context, req kakao.KeywordRequest) *kakao.KeywordResult {
	res, err := r.c.SearchByKeyword(ctx, req)
	r.report(ctx, err)
	return res
}

func (r *Reporter) SearchByAddress(ctx context.Context, req kakao.AddressRequest) *kakao.AddressResult {
	res, err := r.c.SearchByAddress(ctx, req)
	r.report(ctx, err)
	return res
}

func (r *Reporter) SearchByCategory(ctx context.Context, req kakao.CategoryRequest) *kakao.KeywordResult {
	res, err := r.c.SearchByCategory(ctx, req)
	r.report(ctx, err)
	return res
}

func (r *Reporter) SetMarkers(ctx context.Context, studies map[string]study.Study, onClick ClickHandler) {
	r.report(ctx, r.c.SetMarkers(studies, onClick))
}

func (r *Reporter) report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	r.n.Fire(ctx, AlertFor(err))
}
