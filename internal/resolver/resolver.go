// Package resolver picks the single flood-zone polygon that best matches a point.
//
// The upstream is asked for polygons intersecting the exact point first. When
// none come back the search widens through a fixed ladder of envelopes and
// stops at the first radius that yields anything. Candidates are ranked by
// nearest-vertex distance; upstream ordering is only used to break ties.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
)

const (
	stepPoint    = "point"
	stepEnvelope = "envelope"
)

// CandidateSource runs one intersects query against the geometry service.
type CandidateSource interface {
	QueryFeatures(ctx context.Context, f model.SpatialFilter, limit int) ([]model.Feature, error)
}

type Interface interface {
	Resolve(ctx context.Context, p model.Point) (model.Resolution, error)
}

type Config struct {
	MaxCandidates int
	Radii         []float64 // meters, ascending
	LonScaleFloor float64
	QueryTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxCandidates: 25,
		Radii:         []float64{300, 1000, 3000},
		LonScaleFloor: 0.2,
		QueryTimeout:  8 * time.Second,
	}
}

type Resolver struct {
	src    CandidateSource
	cfg    Config
	logger *slog.Logger
}

var _ Interface = (*Resolver)(nil)

func New(src CandidateSource, cfg Config, logger *slog.Logger) (*Resolver, error) {
	if src == nil {
		return nil, errors.New("resolver: candidate source is required")
	}
	def := DefaultConfig()
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if len(cfg.Radii) == 0 {
		cfg.Radii = def.Radii
	}
	for i, r := range cfg.Radii {
		if r <= 0 || (i > 0 && r <= cfg.Radii[i-1]) {
			return nil, fmt.Errorf("resolver: radii must be positive and ascending, got %v", cfg.Radii)
		}
	}
	if cfg.LonScaleFloor <= 0 {
		cfg.LonScaleFloor = def.LonScaleFloor
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Radii = append([]float64(nil), cfg.Radii...)
	return &Resolver{src: src, cfg: cfg, logger: logger}, nil
}

// Resolve returns zero or one feature for p. An empty result with method
// "none" is a valid outcome; errors are either *InvalidInputError or
// *UpstreamError.
func (r *Resolver) Resolve(ctx context.Context, p model.Point) (model.Resolution, error) {
	if err := Validate(p); err != nil {
		return model.Resolution{}, err
	}

	cands, err := r.query(ctx, model.SpatialFilter{Point: &p}, stepPoint, 0)
	if err != nil {
		return model.Resolution{}, err
	}
	if len(cands) > 0 {
		return r.pick(ctx, p, cands, model.Meta{Method: model.MethodPointIntersects}), nil
	}

	for _, radius := range r.cfg.Radii {
		env := EnvelopeAround(p, radius, r.cfg.LonScaleFloor)
		cands, err = r.query(ctx, model.SpatialFilter{Envelope: &env}, stepEnvelope, radius)
		if err != nil {
			return model.Resolution{}, err
		}
		if len(cands) > 0 {
			return r.pick(ctx, p, cands, model.Meta{Method: model.MethodEnvelopeFallback, RadiusM: radius}), nil
		}
		r.logger.DebugContext(ctx, "no candidates at radius", "radius_m", radius)
	}

	maxR := r.cfg.Radii[len(r.cfg.Radii)-1]
	res := model.Resolution{Meta: model.Meta{
		Method: model.MethodNone,
		Reason: fmt.Sprintf("no flood zone polygon within %gm of the point", maxR),
	}}
	observability.ObserveResolution(string(model.MethodNone), 0, 0)
	r.logger.DebugContext(ctx, "flood zone not found", "lat", p.Lat, "lon", p.Lon, "max_radius_m", maxR)
	return res, nil
}

func (r *Resolver) query(ctx context.Context, f model.SpatialFilter, step string, radius float64) ([]model.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Step: step, RadiusM: radius, Err: err}
	}
	qctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	cands, err := r.src.QueryFeatures(qctx, f, r.cfg.MaxCandidates)
	if err != nil {
		r.logger.WarnContext(ctx, "upstream query failed", "step", step, "radius_m", radius, "err", err)
		return nil, &UpstreamError{Step: step, RadiusM: radius, Err: err}
	}
	if len(cands) > r.cfg.MaxCandidates {
		cands = cands[:r.cfg.MaxCandidates]
	}
	return cands, nil
}

func (r *Resolver) pick(ctx context.Context, p model.Point, cands []model.Feature, meta model.Meta) model.Resolution {
	idx, dist := SelectBest(p, cands)
	f := cands[idx]
	observability.ObserveResolution(string(meta.Method), meta.RadiusM, len(cands))
	r.logger.DebugContext(ctx, "flood zone resolved",
		"method", string(meta.Method),
		"radius_m", meta.RadiusM,
		"candidates", len(cands),
		"selected", idx,
		"distance_deg2", dist)
	return model.Resolution{Feature: &f, Meta: meta}
}
