// Package geocode turns free-form addresses into coordinates and back.
package geocode

import "errors"

// ErrNotFound is returned when the provider has no match for the query.
var ErrNotFound = errors.New("no location found")

type Client interface {
	Geocode(query string) (*Location, error)
	ReverseGeocode(lat, long float64) (*Location, error)
}

type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
}
