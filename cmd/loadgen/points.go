package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Point struct{ Lat, Lon float64 }

// String returns "lat,lon" with 6 decimals, matching the cache key precision.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// builds a mix of "hot" points near flood-prone metros and "cold" points
// spread over the contiguous US
func makePoints(count int, r *rand.Rand) []Point {
	centers := []Point{
		{29.7604, -95.3698},  // Houston
		{29.9511, -90.0715},  // New Orleans
		{25.7617, -80.1918},  // Miami
		{27.9506, -82.4572},  // Tampa
		{40.7128, -74.0060},  // New York
		{38.5816, -121.4944}, // Sacramento
	}
	out := make([]Point, 0, count)

	hot := int(math.Max(8, float64(count/4)))
	for i := 0; i < hot && len(out) < count; i++ {
		c := centers[i%len(centers)]
		out = append(out, Point{
			Lat: c.Lat + (r.Float64()-0.5)*0.10,
			Lon: c.Lon + (r.Float64()-0.5)*0.10,
		})
	}
	for len(out) < count {
		out = append(out, Point{
			Lat: 25 + r.Float64()*(49-25),
			Lon: -124 + r.Float64()*(-67+124),
		})
	}
	return out
}

// loads "lat,lon" (header required, extra columns ignored)
func loadPointsCSV(path string) ([]Point, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open points: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	latIdx, okLat := col["lat"]
	lonIdx, okLon := col["lon"]
	if !okLat || !okLon {
		return nil, fmt.Errorf("points csv: expected columns lat,lon; got %v", header)
	}

	var out []Point
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if latIdx >= len(rec) || lonIdx >= len(rec) {
			continue
		}
		latStr, lonStr := strings.TrimSpace(rec[latIdx]), strings.TrimSpace(rec[lonIdx])
		if latStr == "" || lonStr == "" {
			continue
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lat %q: %w", latStr, err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse lon %q: %w", lonStr, err)
		}
		out = append(out, Point{Lat: lat, Lon: lon})
	}
	return out, nil
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
