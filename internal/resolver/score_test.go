package resolver

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

func TestNearestVertexDistance_MultiPolygonAndHoles(t *testing.T) {
	p := model.Point{Lat: 10, Lon: 20}
	g := &model.Geometry{
		Type: "MultiPolygon",
		Coordinates: json.RawMessage(`[
			[[[30,10],[31,10],[31,11],[30,10]]],
			[[[25,15],[26,15],[26,16],[25,15]],[[20,10.5],[20.5,10.5],[20.5,11],[20,10.5]]]
		]`),
	}
	if got := NearestVertexDistance(p, g); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("got %v want 0.25 (hole vertices count)", got)
	}
}

func TestNearestVertexDistance_UnusableGeometryIsInf(t *testing.T) {
	p := model.Point{Lat: 0, Lon: 0}
	for _, g := range []*model.Geometry{
		nil,
		{Type: "Point", Coordinates: json.RawMessage(`[0,0]`)},
		{Type: "Polygon", Coordinates: json.RawMessage(`"garbage"`)},
		{Type: "Polygon", Coordinates: json.RawMessage(`[]`)},
	} {
		if got := NearestVertexDistance(p, g); !math.IsInf(got, 1) {
			t.Fatalf("geometry %+v: got %v want +Inf", g, got)
		}
	}
}

func TestSelectBest(t *testing.T) {
	p := model.Point{Lat: 0, Lon: 0}
	if idx, _ := SelectBest(p, nil); idx != -1 {
		t.Fatalf("empty: idx=%d want -1", idx)
	}

	broken := model.Feature{Geometry: &model.Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[0,0],[1,1]]`)}}
	if idx, d := SelectBest(p, []model.Feature{broken}); idx != 0 || !math.IsInf(d, 1) {
		t.Fatalf("single unusable candidate: idx=%d d=%v", idx, d)
	}

	ok := model.Feature{Geometry: &model.Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[[3,4],[5,5],[3,5],[3,4]]]`)}}
	idx, d := SelectBest(p, []model.Feature{broken, ok})
	if idx != 1 || d != 25 {
		t.Fatalf("idx=%d d=%v want 1,25", idx, d)
	}
}

func TestEnvelopeAround(t *testing.T) {
	p := model.Point{Lat: 0, Lon: 10}
	env := EnvelopeAround(p, 111320, 0.2)
	if math.Abs(env.YMax-1) > 1e-12 || math.Abs(env.YMin+1) > 1e-12 {
		t.Fatalf("lat span %+v want ±1", env)
	}
	if math.Abs(env.XMax-11) > 1e-12 || math.Abs(env.XMin-9) > 1e-12 {
		t.Fatalf("lon span %+v want 9..11 at the equator", env)
	}

	polar := EnvelopeAround(model.Point{Lat: 89.9, Lon: 0}, 111320, 0.2)
	if math.Abs(polar.XMax-5) > 1e-9 {
		t.Fatalf("polar lon half width=%v want 5 (scale floored at 0.2)", polar.XMax)
	}

	mid := EnvelopeAround(model.Point{Lat: 60, Lon: 0}, 1000, 0.2)
	wantDLon := (1000 / metersPerDegreeLat) / math.Cos(60*math.Pi/180)
	if math.Abs(mid.XMax-wantDLon) > 1e-12 {
		t.Fatalf("lon half width=%v want %v", mid.XMax, wantDLon)
	}
}

func TestValidate(t *testing.T) {
	for _, p := range []model.Point{{Lat: 90, Lon: 180}, {Lat: -90, Lon: -180}, {Lat: 27.9506, Lon: -82.4572}} {
		if err := Validate(p); err != nil {
			t.Fatalf("%+v: unexpected error %v", p, err)
		}
	}
	if err := Validate(model.Point{Lat: math.NaN()}); err == nil {
		t.Fatal("NaN accepted")
	}
}
