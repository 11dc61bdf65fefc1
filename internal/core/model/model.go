// Package model defines core domain types shared across the service.
package model

import (
	"encoding/json"
	"fmt"
)

// Point is a WGS84 position in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// String representation matching the arcgis point geometry format (x,y)
func (p Point) String() string {
	return fmt.Sprintf("%.7f,%.7f", p.Lon, p.Lat)
}

type Envelope struct {
	XMin, YMin float64
	XMax, YMax float64
}

// String representation matching the arcgis envelope geometry format
func (e Envelope) String() string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", e.XMin, e.YMin, e.XMax, e.YMax)
}

// SpatialFilter is the geometry sent upstream with an intersects relation.
// Exactly one of Point or Envelope is set.
type SpatialFilter struct {
	Point    *Point
	Envelope *Envelope
}

type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type Feature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Geometry   *Geometry       `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type Method string

const (
	MethodPointIntersects  Method = "point_intersects"
	MethodEnvelopeFallback Method = "envelope_fallback"
	MethodNone             Method = "none"
)

type Meta struct {
	Method  Method  `json:"method"`
	RadiusM float64 `json:"radius_m,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Resolution is the outcome of one flood-zone lookup: at most one feature.
type Resolution struct {
	Feature *Feature `json:"feature,omitempty"`
	Meta    Meta     `json:"meta"`
}

// Resolved reports whether a feature was selected.
func (r Resolution) Resolved() bool { return r.Feature != nil }

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	Meta     *Meta     `json:"meta,omitempty"`
}

// FeatureCollection renders the resolution the way callers consume it.
func (r Resolution) FeatureCollection() FeatureCollection {
	features := []Feature{}
	if r.Feature != nil {
		features = append(features, *r.Feature)
	}
	meta := r.Meta
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Meta:     &meta,
	}
}
