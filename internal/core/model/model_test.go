package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFeatureCollection_Empty(t *testing.T) {
	res := Resolution{Meta: Meta{Method: MethodNone, Reason: "no candidates within 3000 m"}}
	b, err := json.Marshal(res.FeatureCollection())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	want := `{"type":"FeatureCollection","features":[],"meta":{"method":"none","reason":"no candidates within 3000 m"}}`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	if res.Resolved() {
		t.Fatalf("empty resolution reported as resolved")
	}
}

func TestFeatureCollection_SingleFeatureKeepsRawProperties(t *testing.T) {
	res := Resolution{
		Feature: &Feature{
			Type:       "Feature",
			ID:         json.RawMessage(`7`),
			Geometry:   &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0],[1,0],[0,1],[0,0]]]`)},
			Properties: json.RawMessage(`{"FLD_ZONE":"AE","STATIC_BFE":-9999}`),
		},
		Meta: Meta{Method: MethodEnvelopeFallback, RadiusM: 1000},
	}
	b, err := json.Marshal(res.FeatureCollection())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	for _, want := range []string{
		`"features":[{"type":"Feature","id":7,`,
		`"properties":{"FLD_ZONE":"AE","STATIC_BFE":-9999}`,
		`"meta":{"method":"envelope_fallback","radius_m":1000}`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}
}

func TestPointAndEnvelopeStrings(t *testing.T) {
	p := Point{Lat: 29.7604, Lon: -95.3698}
	if got := p.String(); got != "-95.3698000,29.7604000" {
		t.Fatalf("point=%q", got)
	}
	e := Envelope{XMin: -1, YMin: -2, XMax: 3, YMax: 4}
	if got := e.String(); got != "-1.0000000,-2.0000000,3.0000000,4.0000000" {
		t.Fatalf("envelope=%q", got)
	}
}
