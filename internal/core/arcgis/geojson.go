package arcgis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

// ServiceError is the error envelope ArcGIS returns with HTTP 200.
type ServiceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// DecodeFeatures parses a GeoJSON FeatureCollection body. An ArcGIS error
// envelope is returned as *ServiceError.
func DecodeFeatures(body []byte) ([]model.Feature, error) {
	var doc struct {
		Type     string          `json:"type"`
		Features []model.Feature `json:"features"`
		Error    *ServiceError   `json:"error"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if doc.Error != nil {
		return nil, doc.Error
	}
	if doc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected geojson type %q", doc.Type)
	}
	if doc.Features == nil {
		return []model.Feature{}, nil
	}
	return doc.Features, nil
}

// Rings flattens a Polygon or MultiPolygon geometry into its rings of
// [lon, lat, ...] positions.
func Rings(g *model.Geometry) ([][][]float64, error) {
	if g == nil || len(g.Coordinates) == 0 {
		return nil, errors.New("empty geometry")
	}
	switch strings.TrimSpace(g.Type) {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coords: %w", err)
		}
		return rings, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("parse multipolygon coords: %w", err)
		}
		var rings [][][]float64
		for _, p := range polys {
			rings = append(rings, p...)
		}
		return rings, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}
