package kakao

import (
	"context"
	"fmt"
	"time"

	"github.com/codingsince1985/geo-golang"
)

const geocoderTimeout = 10 * time.Second

// geocoder adapts the address search and coord2address endpoints to the
// geo-golang Geocoder interface. Like the other geo-golang providers it
// returns nil, nil when nothing matches.
type geocoder struct {
	c       Client
	timeout time.Duration
}

var _ geo.Geocoder = (*geocoder)(nil)

func NewGeocoder(c Client) geo.Geocoder {
	return &geocoder{c: c, timeout: geocoderTimeout}
}

func (g *geocoder) Geocode(address string) (*geo.Location, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	res, err := g.c.SearchByAddress(ctx, AddressRequest{Query: address, Size: 1})
	if err != nil {
		return nil, err
	}

	if len(res.Documents) == 0 {
		return nil, nil
	}

	lat, lng, err := res.Documents[0].LatLng()
	if err != nil {
		return nil, fmt.Errorf("parse coordinates: %w", err)
	}

	return &geo.Location{Lat: lat, Lng: lng}, nil
}

func (g *geocoder) ReverseGeocode(lat, lng float64) (*geo.Address, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	res, err := g.c.CoordToAddress(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	if len(res.Documents) == 0 {
		return nil, nil
	}

	doc := res.Documents[0]
	addr := &geo.Address{Country: "South Korea", CountryCode: "KR"}

	if doc.Address != nil {
		addr.FormattedAddress = doc.Address.AddressName
		addr.State = doc.Address.Region1DepthName
		addr.City = doc.Address.Region2DepthName
		addr.Suburb = doc.Address.Region3DepthName
		addr.Postcode = doc.Address.ZipCode
	}

	// The road address wins over the lot-number address when both exist.
	if doc.RoadAddress != nil {
		addr.FormattedAddress = doc.RoadAddress.AddressName
		addr.Street = doc.RoadAddress.RoadName
		addr.HouseNumber = doc.RoadAddress.MainBuildingNo
		if doc.RoadAddress.SubBuildingNo != "" {
			addr.HouseNumber += "-" + doc.RoadAddress.SubBuildingNo
		}

		if doc.RoadAddress.ZoneNo != "" {
			addr.Postcode = doc.RoadAddress.ZoneNo
		}
	}

	return addr, nil
}
