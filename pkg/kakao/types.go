package kakao

import (
	"fmt"
	"strconv"
)

type Sort string

const (
	SortAccuracy Sort = "accuracy"
	SortDistance Sort = "distance"
)

type AnalyzeType string

const (
	AnalyzeSimilar AnalyzeType = "similar"
	AnalyzeExact   AnalyzeType = "exact"
)

// Near restricts a search around a center point. Radius is in metres, 0 to
// 20000; zero means the API default.
type Near struct {
	Latitude  float64
	Longitude float64
	Radius    int
}

type KeywordRequest struct {
	Query string
	Page  int
	Size  int
	Sort  Sort

	// CategoryGroupCode optionally narrows the results, e.g. "CE7" for cafés.
	CategoryGroupCode string
	Near              *Near
}

type AddressRequest struct {
	Query       string
	Page        int
	Size        int
	AnalyzeType AnalyzeType
}

type CategoryRequest struct {
	CategoryGroupCode string
	Page              int
	Size              int
	Sort              Sort
	Near              *Near
}

type Meta struct {
	TotalCount    int       `json:"total_count"`
	PageableCount int       `json:"pageable_count"`
	IsEnd         bool      `json:"is_end"`
	SameName      *SameName `json:"same_name,omitempty"`
}

type SameName struct {
	Region         []string `json:"region"`
	Keyword        string   `json:"keyword"`
	SelectedRegion string   `json:"selected_region"`
}

type Place struct {
	ID                string `json:"id"`
	PlaceName         string `json:"place_name"`
	CategoryName      string `json:"category_name"`
	CategoryGroupCode string `json:"category_group_code"`
	CategoryGroupName string `json:"category_group_name"`
	Phone             string `json:"phone"`
	AddressName       string `json:"address_name"`
	RoadAddressName   string `json:"road_address_name"`
	X                 string `json:"x"`
	Y                 string `json:"y"`
	PlaceURL          string `json:"place_url"`
	Distance          string `json:"distance"`
}

func (p Place) LatLng() (float64, float64, error) {
	return parseXY(p.X, p.Y)
}

type KeywordResult struct {
	Meta      Meta    `json:"meta"`
	Documents []Place `json:"documents"`
}

type Address struct {
	AddressName       string `json:"address_name"`
	Region1DepthName  string `json:"region_1depth_name"`
	Region2DepthName  string `json:"region_2depth_name"`
	Region3DepthName  string `json:"region_3depth_name"`
	Region3DepthHName string `json:"region_3depth_h_name,omitempty"`
	HCode             string `json:"h_code,omitempty"`
	BCode             string `json:"b_code,omitempty"`
	MountainYN        string `json:"mountain_yn"`
	MainAddressNo     string `json:"main_address_no"`
	SubAddressNo      string `json:"sub_address_no"`
	ZipCode           string `json:"zip_code,omitempty"`
	X                 string `json:"x,omitempty"`
	Y                 string `json:"y,omitempty"`
}

type RoadAddress struct {
	AddressName      string `json:"address_name"`
	Region1DepthName string `json:"region_1depth_name"`
	Region2DepthName string `json:"region_2depth_name"`
	Region3DepthName string `json:"region_3depth_name"`
	RoadName         string `json:"road_name"`
	UndergroundYN    string `json:"underground_yn"`
	MainBuildingNo   string `json:"main_building_no"`
	SubBuildingNo    string `json:"sub_building_no"`
	BuildingName     string `json:"building_name"`
	ZoneNo           string `json:"zone_no"`
	X                string `json:"x,omitempty"`
	Y                string `json:"y,omitempty"`
}

type AddressDocument struct {
	AddressName string       `json:"address_name"`
	AddressType string       `json:"address_type"`
	X           string       `json:"x"`
	Y           string       `json:"y"`
	Address     *Address     `json:"address"`
	RoadAddress *RoadAddress `json:"road_address"`
}

func (d AddressDocument) LatLng() (float64, float64, error) {
	return parseXY(d.X, d.Y)
}

type AddressResult struct {
	Meta      Meta              `json:"meta"`
	Documents []AddressDocument `json:"documents"`
}

type CoordDocument struct {
	Address     *Address     `json:"address"`
	RoadAddress *RoadAddress `json:"road_address"`
}

type CoordToAddressResult struct {
	Meta      Meta            `json:"meta"`
	Documents []CoordDocument `json:"documents"`
}

// parseXY converts the API's string coordinates (x = longitude, y = latitude)
// into latitude and longitude.
func parseXY(x, y string) (float64, float64, error) {
	lng, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse x: %w", err)
	}

	lat, err := strconv.ParseFloat(y, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse y: %w", err)
	}

	return lat, lng, nil
}
