package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestLookup_ReadsMethodAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") != "29.760400" || r.URL.Query().Get("lon") != "-95.369800" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[],"meta":{"method":"envelope_fallback","radius_m":1000}}`))
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL + "/floodzone")
	s := lookup(context.Background(), srv.Client(), base, Point{Lat: 29.7604, Lon: -95.3698})
	if s.ErrorMsg != "" || s.Status != http.StatusOK {
		t.Fatalf("sample=%+v", s)
	}
	if s.Method != "envelope_fallback" {
		t.Fatalf("method=%q want envelope_fallback", s.Method)
	}
}

func TestLookup_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	s := lookup(context.Background(), srv.Client(), base, Point{Lat: 1, Lon: 2})
	if s.Status != http.StatusBadGateway || s.ErrorMsg != "status=502" {
		t.Fatalf("sample=%+v", s)
	}
}
