// Package invalidation describes upstream change events and the area of the
// cache each one affects.
package invalidation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/arcgis"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

type Event struct {
	Version   int             `json:"version"`
	ID        string          `json:"id,omitempty"`
	Op        string          `json:"op"`
	Layer     string          `json:"layer"`
	TS        time.Time       `json:"ts"`
	FeatureID any             `json:"feature_id,omitempty"`
	Source    string          `json:"source,omitempty"`
	BBox      *BBox           `json:"bbox,omitempty"`
	Geometry  json.RawMessage `json:"geometry,omitempty"`
}

type BBox struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if strings.TrimSpace(e.Layer) == "" {
		return fmt.Errorf("layer is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	hasBBox := e.BBox != nil
	hasGeom := len(e.Geometry) > 0
	if hasBBox == hasGeom {
		return fmt.Errorf("exactly one of bbox or geometry is required")
	}
	if hasBBox {
		bb := *e.BBox
		if bb.SRID != "EPSG:4326" {
			return fmt.Errorf("bbox.srid must be EPSG:4326")
		}
		if !(bb.X1 >= -180 && bb.X1 <= 180 && bb.X2 >= -180 && bb.X2 <= 180) {
			return fmt.Errorf("bbox longitude out of range")
		}
		if !(bb.Y1 >= -90 && bb.Y1 <= 90 && bb.Y2 >= -90 && bb.Y2 <= 90) {
			return fmt.Errorf("bbox latitude out of range")
		}
		if !(bb.X2 > bb.X1 && bb.Y2 > bb.Y1) {
			return fmt.Errorf("bbox must satisfy x2>x1 and y2>y1")
		}
		return nil
	}
	if _, err := geometryEnvelope(e.Geometry); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	return nil
}

// Area is the envelope the changed feature occupies: the bbox, or the
// bounds of every vertex of the geometry.
func (e Event) Area() (model.Envelope, error) {
	if e.BBox != nil {
		return model.Envelope{XMin: e.BBox.X1, YMin: e.BBox.Y1, XMax: e.BBox.X2, YMax: e.BBox.Y2}, nil
	}
	return geometryEnvelope(e.Geometry)
}

// AffectedArea widens Area by radiusM on every side. A cached point farther
// than the largest fallback radius from a changed polygon can never have
// picked it, so nothing outside this box needs invalidating.
func (e Event) AffectedArea(radiusM, lonScaleFloor float64) (model.Envelope, error) {
	env, err := e.Area()
	if err != nil {
		return model.Envelope{}, err
	}
	if radiusM <= 0 {
		return env, nil
	}
	// widest longitude offset is at the edge nearest a pole
	worstLat := math.Max(math.Abs(env.YMin), math.Abs(env.YMax))
	dLat, dLon := resolver.DegreeOffsets(worstLat, radiusM, lonScaleFloor)
	return model.Envelope{
		XMin: math.Max(env.XMin-dLon, -180),
		YMin: math.Max(env.YMin-dLat, -90),
		XMax: math.Min(env.XMax+dLon, 180),
		YMax: math.Min(env.YMax+dLat, 90),
	}, nil
}

func geometryEnvelope(raw json.RawMessage) (model.Envelope, error) {
	var g model.Geometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return model.Envelope{}, fmt.Errorf("parse: %w", err)
	}
	rings, err := arcgis.Rings(&g)
	if err != nil {
		return model.Envelope{}, err
	}
	env := model.Envelope{XMin: math.Inf(1), YMin: math.Inf(1), XMax: math.Inf(-1), YMax: math.Inf(-1)}
	n := 0
	for _, ring := range rings {
		for _, pos := range ring {
			if len(pos) < 2 {
				continue
			}
			env.XMin = math.Min(env.XMin, pos[0])
			env.XMax = math.Max(env.XMax, pos[0])
			env.YMin = math.Min(env.YMin, pos[1])
			env.YMax = math.Max(env.YMax, pos[1])
			n++
		}
	}
	if n == 0 {
		return model.Envelope{}, fmt.Errorf("no vertices")
	}
	return env, nil
}
