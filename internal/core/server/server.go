package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/health"
	middleware "github.com/mohammed-shakir/floodzone-resolver/internal/core/middleware"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/router"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
)

// Deps are the collaborators the HTTP layer serves from.
type Deps struct {
	Resolver resolver.Interface
	Hits     router.HitRecorder      // optional
	Checks   map[string]health.Check // readiness checks, optional
	Metrics  http.Handler            // defaults to the default registry
}

// NewHandler builds the routing tree.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	fz := router.HandleFloodZone(logger, cfg, d.Resolver, d.Hits)
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Checks))
	r.Get("/metrics", d.Metrics.ServeHTTP)
	r.Get(router.RouteFloodZone, fz)
	r.Get("/api"+router.RouteFloodZone, fz)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
