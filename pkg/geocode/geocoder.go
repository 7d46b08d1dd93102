package geocode

import (
	"fmt"

	"github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/manzanit0/studymap/pkg/kakao"
)

func NewOpenstreetmapClient() Client {
	return NewClient(openstreetmap.Geocoder())
}

// NewKakaoClient geocodes through the Kakao Local address search, which
// understands Korean lot-number and road addresses.
func NewKakaoClient(c kakao.Client) Client {
	return NewClient(kakao.NewGeocoder(c))
}

func NewClient(g geo.Geocoder) Client {
	return &gc{geocoder: g}
}

type gc struct {
	geocoder geo.Geocoder
}

var _ Client = (*gc)(nil)

func (c *gc) Geocode(query string) (*Location, error) {
	location, err := c.geocoder.Geocode(query)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}

	if location == nil {
		return nil, fmt.Errorf("geocode %q: %w", query, ErrNotFound)
	}

	loc := &Location{
		Latitude:  location.Lat,
		Longitude: location.Lng,
		Name:      query,
	}

	address, err := c.geocoder.ReverseGeocode(location.Lat, location.Lng)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	if address != nil {
		loc.Country = address.Country
		loc.CountryCode = address.CountryCode
	}

	return loc, nil
}

func (c *gc) ReverseGeocode(lat, lon float64) (*Location, error) {
	address, err := c.geocoder.ReverseGeocode(lat, lon)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	if address == nil {
		return nil, fmt.Errorf("reverse geocode %f,%f: %w", lat, lon, ErrNotFound)
	}

	name := address.FormattedAddress
	if name == "" {
		name = fmt.Sprintf("%s, %s", address.City, address.Country)
	}

	return &Location{
		Latitude:    lat,
		Longitude:   lon,
		Name:        name,
		Country:     address.Country,
		CountryCode: address.CountryCode,
	}, nil
}
