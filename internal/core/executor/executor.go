// Package executor issues spatial queries against the upstream hazard-zone service.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/arcgis"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
)

const upstreamName = "arcgis"

// max response body accepted from upstream
const maxBodyBytes = 32 << 20

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

type Executor struct {
	logger    *slog.Logger
	client    *http.Client
	queryURL  *url.URL
	outFields string
	startNow  func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, layerURL, outFields string) (*Executor, error) {
	u, err := url.Parse(arcgis.QueryEndpoint(layerURL))
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{
		logger:    logger,
		client:    client,
		queryURL:  u,
		outFields: outFields,
		startNow:  time.Now,
	}, nil
}

// Endpoint is the resolved query URL, without parameters.
func (e *Executor) Endpoint() string { return e.queryURL.String() }

// QueryFeatures returns the features intersecting f, at most limit of them
// when the upstream honours resultRecordCount.
func (e *Executor) QueryFeatures(ctx context.Context, f model.SpatialFilter, limit int) ([]model.Feature, error) {
	params := arcgis.BuildQueryParams(f, e.outFields, limit)

	u := *e.queryURL
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			observability.IncUpstreamError("timeout")
		} else {
			observability.IncUpstreamError("transport")
		}
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		observability.ObserveUpstreamLatency(upstreamName, time.Since(start).Seconds())
		observability.IncUpstreamError("status")
		return nil, &StatusError{Status: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstreamName, dur.Seconds())
	if err != nil {
		observability.IncUpstreamError("transport")
		return nil, fmt.Errorf("read body: %w", err)
	}

	features, err := arcgis.DecodeFeatures(b)
	if err != nil {
		var se *arcgis.ServiceError
		if errors.As(err, &se) {
			observability.IncUpstreamError("service")
		} else {
			observability.IncUpstreamError("decode")
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	e.logger.DebugContext(ctx, "upstream query done",
		"geometry", params.Get("geometry"),
		"geometry_type", params.Get("geometryType"),
		"features", len(features),
		"duration", dur.String())
	return features, nil
}
