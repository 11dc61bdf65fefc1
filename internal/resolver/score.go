package resolver

import (
	"math"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/arcgis"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

// NearestVertexDistance is the smallest squared planar distance, in degrees²,
// from p to any vertex of any ring of g. Geometries without usable vertices
// score +Inf.
func NearestVertexDistance(p model.Point, g *model.Geometry) float64 {
	rings, err := arcgis.Rings(g)
	if err != nil {
		return math.Inf(1)
	}
	best := math.Inf(1)
	for _, ring := range rings {
		for _, pos := range ring {
			if len(pos) < 2 {
				continue
			}
			dx := pos[0] - p.Lon
			dy := pos[1] - p.Lat
			if d := dx*dx + dy*dy; d < best {
				best = d
			}
		}
	}
	return best
}

// SelectBest returns the index of the candidate nearest to p and its distance.
// Ties keep the earlier candidate. It returns -1 for an empty slice.
func SelectBest(p model.Point, candidates []model.Feature) (int, float64) {
	idx, best := -1, math.Inf(1)
	for i := range candidates {
		d := NearestVertexDistance(p, candidates[i].Geometry)
		if idx < 0 || d < best {
			idx, best = i, d
		}
	}
	return idx, best
}
