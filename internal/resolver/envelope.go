package resolver

import (
	"math"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

const metersPerDegreeLat = 111320.0

// DegreeOffsets converts a metric radius into latitude and longitude degrees
// at lat. The longitude scale never drops below floor, so offsets stay
// bounded near the poles.
func DegreeOffsets(lat, radiusM, floor float64) (dLat, dLon float64) {
	dLat = radiusM / metersPerDegreeLat
	scale := math.Cos(lat * math.Pi / 180)
	if scale < floor {
		scale = floor
	}
	return dLat, dLat / scale
}

// EnvelopeAround is the degree box of radiusM centered on p.
func EnvelopeAround(p model.Point, radiusM, floor float64) model.Envelope {
	dLat, dLon := DegreeOffsets(p.Lat, radiusM, floor)
	return model.Envelope{
		XMin: p.Lon - dLon,
		YMin: p.Lat - dLat,
		XMax: p.Lon + dLon,
		YMax: p.Lat + dLat,
	}
}
