package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/executor"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/health"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/httpclient"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/router"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/server"
	"github.com/mohammed-shakir/floodzone-resolver/internal/hitevents"
	"github.com/mohammed-shakir/floodzone-resolver/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/floodzone-resolver/internal/logger"
	h3mapper "github.com/mohammed-shakir/floodzone-resolver/internal/mapper/h3"
	"github.com/mohammed-shakir/floodzone-resolver/internal/metrics"
	"github.com/mohammed-shakir/floodzone-resolver/internal/resolver"
	"github.com/mohammed-shakir/floodzone-resolver/internal/scenarios"
	_ "github.com/mohammed-shakir/floodzone-resolver/internal/scenarios/cache"
	_ "github.com/mohammed-shakir/floodzone-resolver/internal/scenarios/direct"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	_ = godotenv.Load(".env")

	// overriding scenario via flag
	scenarioFlag := flag.String("scenario", "", "scenario name (direct|cache)")
	flag.Parse()

	cfg := config.FromEnv()
	if *scenarioFlag != "" {
		cfg.Scenario = strings.TrimSpace(*scenarioFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Scenario:  cfg.Scenario,
		Component: "floodzone",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsHandler http.Handler = promhttp.Handler()
	if os.Getenv("METRICS_ENABLED") == "true" {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    os.Getenv("METRICS_ADDR"),
			Path:    os.Getenv("METRICS_PATH"),
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(p.Registerer(), true)
		metricsHandler = p.Handler()
		go func() {
			if err := p.Serve(ctx, appLog); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	}
	observability.SetScenario(cfg.Scenario)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting flood zone resolver",
		"addr", cfg.Addr,
		"version", Version,
		"radii_m", cfg.FallbackRadii,
		"scenario", cfg.Scenario)

	// the resolver bounds each query; the client timeout only catches stuck bodies
	client := httpclient.NewOutbound(
		httpclient.WithTimeout(cfg.QueryTimeout+cfg.QueryTimeout/2),
		httpclient.WithUserAgent("floodzone-resolver/"+Version),
	)
	exec, err := executor.New(appLog, client, cfg.ServiceURL, cfg.OutFields)
	if err != nil {
		appLog.Error("failed to initialize executor", "err", err)
		return 1
	}
	appLog.Info("upstream query endpoint", "url", exec.Endpoint())

	res, err := resolver.New(exec, resolver.Config{
		MaxCandidates: cfg.MaxCandidates,
		Radii:         cfg.FallbackRadii,
		LonScaleFloor: cfg.LonScaleFloor,
		QueryTimeout:  cfg.QueryTimeout,
	}, appLog)
	if err != nil {
		appLog.Error("failed to initialize resolver", "err", err)
		return 1
	}

	// selected scenario
	handler, err := scenarios.New(cfg.Scenario, cfg, appLog, res)
	if err != nil {
		appLog.Error("scenario setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := handler.Close(); err != nil {
			appLog.Warn("scenario close failed", "err", err)
		}
	}()

	checks := map[string]health.Check{"scenario": handler.Ready}
	mapr := h3mapper.New()

	if cfg.Invalidation.Enabled {
		inv, ok := handler.(kafkaconsumer.Invalidator)
		if !ok {
			appLog.Warn("invalidation enabled but scenario has no cache; consumer not started", "scenario", cfg.Scenario)
		} else {
			cons := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg), appLog, &zl, inv, mapr)
			checks["kafka"] = cons.Ready
			go func() {
				if err := cons.Start(ctx); err != nil {
					appLog.Error("invalidation consumer stopped", "err", err)
				}
			}()
		}
	}

	var hits router.HitRecorder
	if cfg.HitEvents.Enabled {
		pub, err := hitevents.NewPublisher(config.SplitCSV(cfg.HitEvents.Brokers), hitevents.Options{
			Topic:     cfg.HitEvents.Topic,
			QueueSize: cfg.HitEvents.Queue,
			H3Res:     cfg.CacheH3Res,
			Scenario:  cfg.Scenario,
		}, mapr, appLog)
		if err != nil {
			appLog.Warn("hit events disabled", "err", err)
		} else {
			hits = pub
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("hit events close failed", "err", err)
				}
			}()
		}
	}

	err = server.Run(ctx, cfg, appLog, server.Deps{
		Resolver: handler,
		Hits:     hits,
		Checks:   checks,
		Metrics:  metricsHandler,
	})
	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
