// Package kakao is a client for the Kakao Local REST API: keyword, address and
// category search plus coordinate to address conversion.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://dapi.kakao.com"

const (
	keywordPath  = "/v2/local/search/keyword.json"
	addressPath  = "/v2/local/search/address.json"
	categoryPath = "/v2/local/search/category.json"
	coordPath    = "/v2/local/geo/coord2address.json"
)

const (
	DefaultPage = 1
	DefaultSize = 15

	maxPage        = 45
	maxKeywordSize = 15
	maxAddressSize = 30
	maxRadius      = 20000
)

var ErrInvalidRequest = errors.New("invalid request")

type Client interface {
	SearchByKeyword(ctx context.Context, req KeywordRequest) (*KeywordResult, error)
	SearchByAddress(ctx context.Context, req AddressRequest) (*AddressResult, error)
	SearchByCategory(ctx context.Context, req CategoryRequest) (*KeywordResult, error)
	CoordToAddress(ctx context.Context, lat, lng float64) (*CoordToAddressResult, error)
}

type Option func(*client)

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit caps outgoing requests per second. Callers block on the
// limiter until their context is done.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

func NewClient(h *http.Client, apiKey string, opts ...Option) Client {
	c := &client{h: h, apiKey: apiKey, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

type client struct {
	h       *http.Client
	apiKey  string
	baseURL string
	limiter *rate.Limiter
}

var _ Client = (*client)(nil)

func (c *client) SearchByKeyword(ctx context.Context, req KeywordRequest) (*KeywordResult, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}

	params, err := pageParams(req.Page, req.Size, maxKeywordSize)
	if err != nil {
		return nil, err
	}

	sort, err := sortParam(req.Sort)
	if err != nil {
		return nil, err
	}

	params.Set("query", req.Query)
	params.Set("sort", sort)
	if req.CategoryGroupCode != "" {
		params.Set("category_group_code", req.CategoryGroupCode)
	}

	if err := nearParams(params, req.Near); err != nil {
		return nil, err
	}

	var res KeywordResult
	if err := c.get(ctx, keywordPath, params, &res); err != nil {
		return nil, fmt.Errorf("search keyword: %w", err)
	}

	return &res, nil
}

func (c *client) SearchByAddress(ctx context.Context, req AddressRequest) (*AddressResult, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}

	params, err := pageParams(req.Page, req.Size, maxAddressSize)
	if err != nil {
		return nil, err
	}

	analyzeType := req.AnalyzeType
	switch analyzeType {
	case "":
		analyzeType = AnalyzeSimilar
	case AnalyzeSimilar, AnalyzeExact:
	default:
		return nil, fmt.Errorf("%w: unknown analyze_type %q", ErrInvalidRequest, analyzeType)
	}

	params.Set("query", req.Query)
	params.Set("analyze_type", string(analyzeType))

	var res AddressResult
	if err := c.get(ctx, addressPath, params, &res); err != nil {
		return nil, fmt.Errorf("search address: %w", err)
	}

	return &res, nil
}

func (c *client) SearchByCategory(ctx context.Context, req CategoryRequest) (*KeywordResult, error) {
	if req.CategoryGroupCode == "" {
		return nil, fmt.Errorf("%w: empty category group code", ErrInvalidRequest)
	}

	params, err := pageParams(req.Page, req.Size, maxKeywordSize)
	if err != nil {
		return nil, err
	}

	sort, err := sortParam(req.Sort)
	if err != nil {
		return nil, err
	}

	params.Set("category_group_code", req.CategoryGroupCode)
	params.Set("sort", sort)

	if err := nearParams(params, req.Near); err != nil {
		return nil, err
	}

	var res KeywordResult
	if err := c.get(ctx, categoryPath, params, &res); err != nil {
		return nil, fmt.Errorf("search category: %w", err)
	}

	return &res, nil
}

func (c *client) CoordToAddress(ctx context.Context, lat, lng float64) (*CoordToAddressResult, error) {
	params := url.Values{
		"x": {strconv.FormatFloat(lng, 'f', -1, 64)},
		"y": {strconv.FormatFloat(lat, 'f', -1, 64)},
	}

	var res CoordToAddressResult
	if err := c.get(ctx, coordPath, params, &res); err != nil {
		return nil, fmt.Errorf("coord to address: %w", err)
	}

	return &res, nil
}

func (c *client) get(ctx context.Context, path string, params url.Values, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.h.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newAPIError(res.StatusCode, data)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	return nil
}

func pageParams(page, size, maxSize int) (url.Values, error) {
	if page == 0 {
		page = DefaultPage
	}

	if size == 0 {
		size = DefaultSize
	}

	if page < 1 || page > maxPage {
		return nil, fmt.Errorf("%w: page must be between 1 and %d, got %d", ErrInvalidRequest, maxPage, page)
	}

	if size < 1 || size > maxSize {
		return nil, fmt.Errorf("%w: size must be between 1 and %d, got %d", ErrInvalidRequest, maxSize, size)
	}

	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}, nil
}

func sortParam(s Sort) (string, error) {
	switch s {
	case "":
		return string(SortAccuracy), nil
	case SortAccuracy, SortDistance:
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidRequest, s)
	}
}

func nearParams(params url.Values, n *Near) error {
	if n == nil {
		return nil
	}

	if n.Radius < 0 || n.Radius > maxRadius {
		return fmt.Errorf("%w: radius must be between 0 and %d, got %d", ErrInvalidRequest, maxRadius, n.Radius)
	}

	params.Set("x", strconv.FormatFloat(n.Longitude, 'f', -1, 64))
	params.Set("y", strconv.FormatFloat(n.Latitude, 'f', -1, 64))
	if n.Radius > 0 {
		params.Set("radius", strconv.Itoa(n.Radius))
	}

	return nil
}
