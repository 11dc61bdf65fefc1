// Package arcgis builds requests for ArcGIS-style REST feature query endpoints.
package arcgis

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

const (
	GeometryPoint    = "esriGeometryPoint"
	GeometryEnvelope = "esriGeometryEnvelope"
	RelIntersects    = "esriSpatialRelIntersects"
	WGS84            = "4326"
)

// QueryEndpoint appends /query to a layer URL unless it is already there.
func QueryEndpoint(layerURL string) string {
	base := strings.TrimRight(strings.TrimSpace(layerURL), "/")
	if strings.HasSuffix(base, "/query") {
		return base
	}
	return base + "/query"
}

func BuildQueryParams(f model.SpatialFilter, outFields string, limit int) url.Values {
	params := url.Values{}
	params.Set("where", "1=1")
	if strings.TrimSpace(outFields) == "" {
		outFields = "*"
	}
	params.Set("outFields", outFields)
	params.Set("returnGeometry", "true")

	// envelope wins if both are set
	switch {
	case f.Envelope != nil:
		params.Set("geometry", f.Envelope.String())
		params.Set("geometryType", GeometryEnvelope)
	case f.Point != nil:
		params.Set("geometry", f.Point.String())
		params.Set("geometryType", GeometryPoint)
	}

	params.Set("inSR", WGS84)
	params.Set("outSR", WGS84)
	params.Set("spatialRel", RelIntersects)
	if limit > 0 {
		params.Set("resultRecordCount", strconv.Itoa(limit))
	}
	params.Set("f", "geojson")
	return params
}
