package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	mylog "github.com/mohammed-shakir/floodzone-resolver/internal/logger"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

const RouteFloodZone = "/floodzone"

// HitRecorder is told about every successful resolution. It must not block.
type HitRecorder interface {
	Record(ctx context.Context, p model.Point, res model.Resolution)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HandleFloodZone parses lat/lon, resolves the point and writes a GeoJSON
// FeatureCollection with zero or one feature. hits may be nil.
func HandleFloodZone(logger *slog.Logger, cfg config.Config, h resolver.Interface, hits HitRecorder) http.HandlerFunc {
	cacheControl := PublicCacheControl(cfg.ResponseMaxAge, cfg.StaleWhileRevalidate)

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, RouteFloodZone, sw.code, time.Since(start).Seconds())
		}()

		p, err := ParsePoint(r)
		if err != nil {
			logger.DebugContext(r.Context(), "rejected flood zone request", "err", err)
			writeError(sw, http.StatusBadRequest, errorBody{Error: "Invalid lat/lon"})
			return
		}

		res, err := h.Resolve(r.Context(), p)
		switch {
		case errors.Is(err, resolver.ErrInvalidInput):
			logger.DebugContext(r.Context(), "rejected flood zone request", "err", err)
			writeError(sw, http.StatusBadRequest, errorBody{Error: "Invalid lat/lon"})
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "flood zone lookup failed", "lat", p.Lat, "lon", p.Lon, "err", err)
			writeError(sw, http.StatusBadGateway, errorBody{Error: "Flood zone lookup failed", Details: err.Error()})
			return
		}

		ctx := mylog.WithMethod(r.Context(), string(res.Meta.Method))
		logger.InfoContext(ctx, "flood zone resolved", "resolved", res.Resolved(), "radius_m", res.Meta.RadiusM)
		if hits != nil {
			hits.Record(ctx, p, res)
		}

		sw.Header().Set("Cache-Control", cacheControl)
		writeJSON(sw, http.StatusOK, res.FeatureCollection())
	}
}

// ParsePoint reads lat and lon from the query string. Range checks are left
// to the resolver; only presence and number syntax are checked here.
func ParsePoint(r *http.Request) (model.Point, error) {
	q := r.URL.Query()
	lat, err := parseFloat("lat", q.Get("lat"))
	if err != nil {
		return model.Point{}, err
	}
	lon, err := parseFloat("lon", q.Get("lon"))
	if err != nil {
		return model.Point{}, err
	}
	return model.Point{Lat: lat, Lon: lon}, nil
}

func parseFloat(name, v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse float: %w", name, err)
	}
	return f, nil
}

// PublicCacheControl renders the header sent with successful lookups.
func PublicCacheControl(maxAge, swr time.Duration) string {
	age := int64(maxAge / time.Second)
	cc := fmt.Sprintf("public, max-age=%d, s-maxage=%d", age, age)
	if swr > 0 {
		cc += fmt.Sprintf(", stale-while-revalidate=%d", int64(swr/time.Second))
	}
	return cc
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
