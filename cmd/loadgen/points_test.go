package main

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func TestMakePoints_CountAndBounds(t *testing.T) {
	pts := makePoints(64, rand.New(rand.NewSource(1)))
	if len(pts) != 64 {
		t.Fatalf("len=%d want 64", len(pts))
	}
	for _, p := range pts {
		if p.Lat < 24 || p.Lat > 50 || p.Lon < -125 || p.Lon > -66 {
			t.Fatalf("point outside the contiguous US: %+v", p)
		}
	}
}

func TestLoadPointsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pts.csv")
	body := "id,lat,lon\na,29.76,-95.36\nb,,\nc,25.76,-80.19\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	pts, err := loadPointsCSV(path)
	if err != nil {
		t.Fatalf("loadPointsCSV: %v", err)
	}
	if len(pts) != 2 || pts[1] != (Point{Lat: 25.76, Lon: -80.19}) {
		t.Fatalf("got %+v", pts)
	}
}

func TestLoadPointsCSV_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pts.csv")
	if err := os.WriteFile(path, []byte("x,y\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadPointsCSV(path); err == nil {
		t.Fatalf("expected an error for a csv without lat/lon")
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	cases := map[float64]float64{0: 1, 50: 3, 100: 5, 25: 2}
	for p, want := range cases {
		if got := percentile(vals, p); got != want {
			t.Fatalf("p%v=%v want %v", p, got, want)
		}
	}
	if !math.IsNaN(percentile(nil, 50)) {
		t.Fatalf("empty input must be NaN")
	}
}
