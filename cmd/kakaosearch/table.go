package main

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/manzanit0/studymap/pkg/kakao"
)

const msgNoResults = "검색 결과가 없어요"

type tableOptions struct {
	withCoordinates bool
}

type TableOption func(*tableOptions)

func WithCoordinates() TableOption {
	return func(config *tableOptions) {
		config.withCoordinates = true
	}
}

func NewPlacesTable(res *kakao.KeywordResult, opts ...TableOption) string {
	if res == nil || len(res.Documents) == 0 {
		return msgNoResults
	}

	options := tableOptions{}
	for _, f := range opts {
		f(&options)
	}

	b := bytes.NewBuffer([]byte{})
	table := tablewriter.NewWriter(b)

	header := []string{"Name", "Category", "Address", "Phone"}
	if options.withCoordinates {
		header = append(header, "Latitude", "Longitude")
	}
	table.SetHeader(header)

	for _, p := range res.Documents {
		address := p.RoadAddressName
		if address == "" {
			address = p.AddressName
		}

		row := []string{p.PlaceName, p.CategoryGroupName, address, p.Phone}
		if options.withCoordinates {
			row = append(row, p.Y, p.X)
		}

		table.Append(row)
	}

	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.Render()

	return b.String() + footer(res.Meta, len(res.Documents))
}

func NewAddressesTable(res *kakao.AddressResult, opts ...TableOption) string {
	if res == nil || len(res.Documents) == 0 {
		return msgNoResults
	}

	options := tableOptions{}
	for _, f := range opts {
		f(&options)
	}

	b := bytes.NewBuffer([]byte{})
	table := tablewriter.NewWriter(b)

	header := []string{"Address", "Road address", "Type", "Zone"}
	if options.withCoordinates {
		header = append(header, "Latitude", "Longitude")
	}
	table.SetHeader(header)

	for _, d := range res.Documents {
		var road, zone string
		if d.RoadAddress != nil {
			road = d.RoadAddress.AddressName
			zone = d.RoadAddress.ZoneNo
		}

		row := []string{d.AddressName, road, d.AddressType, zone}
		if options.withCoordinates {
			row = append(row, d.Y, d.X)
		}

		table.Append(row)
	}

	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.Render()

	return b.String() + footer(res.Meta, len(res.Documents))
}

func footer(m kakao.Meta, shown int) string {
	s := fmt.Sprintf("%d of %d results", shown, m.TotalCount)
	if !m.IsEnd {
		s += ", more pages available"
	}

	return s + "\n"
}
