package resolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

var (
	ErrInvalidInput = errors.New("invalid lat/lon")
	ErrUpstream     = errors.New("flood zone service unavailable")
)

// InvalidInputError is a malformed point. It is raised before any upstream query.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// UpstreamError aborts a resolution; it is never turned into an empty result.
type UpstreamError struct {
	Step    string  // "point" or "envelope"
	RadiusM float64 // set for envelope steps
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Step == stepEnvelope {
		return fmt.Sprintf("upstream %s query (radius %gm) failed: %v", e.Step, e.RadiusM, e.Err)
	}
	return fmt.Sprintf("upstream %s query failed: %v", e.Step, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Validate rejects non-finite or out of range WGS84 coordinates.
func Validate(p model.Point) error {
	switch {
	case math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0):
		return &InvalidInputError{Reason: "latitude is not a finite number"}
	case math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0):
		return &InvalidInputError{Reason: "longitude is not a finite number"}
	case p.Lat < -90 || p.Lat > 90:
		return &InvalidInputError{Reason: "latitude must be in [-90,90]"}
	case p.Lon < -180 || p.Lon > 180:
		return &InvalidInputError{Reason: "longitude must be in [-180,180]"}
	}
	return nil
}
