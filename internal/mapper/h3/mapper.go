package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/mapper"
)

// Mapper covers areas with H3 cells. Pad is the number of neighbour rings
// added around every covering cell; 1 makes sure a point near a cell edge is
// still covered after rounding.
type Mapper struct {
	Pad int
}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{Pad: 1} }

func (m *Mapper) CellForPoint(p model.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %v: %w", p, err)
	}
	return c.String(), nil
}

// CellsForEnvelope returns every cell overlapping env, plus Pad rings,
// sorted and unique. Envelopes smaller than a cell still yield the cells of
// their corners and centre.
func (m *Mapper) CellsForEnvelope(env model.Envelope, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if !(env.XMax > env.XMin && env.YMax > env.YMin) {
		return nil, errors.New("envelope must satisfy xmax>xmin and ymax>ymin")
	}

	// GeoLoop is in degrees
	outer := h3.GeoLoop{
		{Lat: env.YMin, Lng: env.XMin},
		{Lat: env.YMin, Lng: env.XMax},
		{Lat: env.YMax, Lng: env.XMax},
		{Lat: env.YMax, Lng: env.XMin},
	}
	cover, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	seeds := append(outer, h3.LatLng{Lat: (env.YMin + env.YMax) / 2, Lng: (env.XMin + env.XMax) / 2})
	for _, ll := range seeds {
		c, err := h3.LatLngToCell(ll, res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for corner: %w", err)
		}
		cover = append(cover, c)
	}

	seen := make(map[h3.Cell]struct{}, len(cover))
	var out []string
	add := func(c h3.Cell) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c.String())
	}
	for _, c := range cover {
		if m.Pad <= 0 {
			add(c)
			continue
		}
		disk, err := h3.GridDisk(c, m.Pad)
		if err != nil {
			return nil, fmt.Errorf("h3 grid disk: %w", err)
		}
		for _, d := range disk {
			add(d)
		}
	}
	sort.Strings(out)
	return out, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
