// Package observability owns the Prometheus collectors used across the service.
package observability

import (
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var scenarioLabel atomic.Value

func init() {
	scenarioLabel.Store("direct")
	Init(prometheus.DefaultRegisterer, true)
}

func SetScenario(s string) {
	if s == "" {
		s = "direct"
	}
	scenarioLabel.Store(s)
}

func getScenario() string {
	if v := scenarioLabel.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "direct"
}

type collectors struct {
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	upstreamLatencySeconds     *prometheus.HistogramVec
	upstreamErrorsTotal        *prometheus.CounterVec
	resolutionsTotal           *prometheus.CounterVec
	fallbackRadiusMeters       *prometheus.HistogramVec
	candidates                 *prometheus.HistogramVec
	cacheResults               *prometheus.CounterVec
	cacheOpTotal               *prometheus.CounterVec
	redisOpDuration            *prometheus.HistogramVec
	cacheInvalidations         *prometheus.CounterVec
	kafkaConsumerErrors        *prometheus.CounterVec
	hitEventsDropped           *prometheus.CounterVec
	buildInfo                  *prometheus.GaugeVec
}

var (
	mu  sync.RWMutex
	cur *collectors
)

func newCollectors() *collectors {
	return &collectors{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status", "scenario"},
		),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
			},
			[]string{"method", "route", "status", "scenario"},
		),
		upstreamLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_latency_seconds",
				Help:    "Latency of upstream calls in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"upstream", "scenario"},
		),
		upstreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_errors_total",
				Help: "Failed upstream calls by kind.",
			},
			[]string{"kind", "scenario"},
		),
		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodzone_resolutions_total",
				Help: "Flood-zone resolutions by strategy that produced the result.",
			},
			[]string{"method", "scenario"},
		),
		fallbackRadiusMeters: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "floodzone_fallback_radius_meters",
				Help:    "Envelope radius that produced a fallback resolution.",
				Buckets: []float64{100, 300, 1000, 3000, 10000},
			},
			[]string{"scenario"},
		),
		candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "floodzone_candidates",
				Help:    "Size of the candidate set a resolution was selected from.",
				Buckets: []float64{1, 2, 3, 5, 10, 25},
			},
			[]string{"method", "scenario"},
		),
		cacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_results_total",
				Help: "Resolution cache results by tier and outcome.",
			},
			[]string{"tier", "outcome", "scenario"},
		),
		cacheOpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Redis operations by op and result.",
			},
			[]string{"op", "result"},
		),
		redisOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operation_duration_seconds",
				Help:    "Duration of redis operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op"},
		),
		cacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_invalidations_total",
				Help: "Cache keys removed by invalidation events.",
			},
			[]string{"op", "scenario"},
		),
		kafkaConsumerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_consumer_errors_total",
				Help: "Kafka consumer errors by kind.",
			},
			[]string{"kind", "scenario"},
		),
		hitEventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hit_events_dropped_total",
				Help: "Hit events dropped because the publish queue was full or the producer failed.",
			},
			[]string{"reason"},
		),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "floodzone_build_info",
				Help: "Build information for the binary.",
			},
			[]string{"version"},
		),
	}
}

// Init swaps in a fresh set of collectors, registered on reg when enabled.
func Init(reg prometheus.Registerer, enabled bool) {
	c := newCollectors()
	if enabled && reg != nil {
		c.httpRequestsTotal = register(reg, c.httpRequestsTotal)
		c.httpRequestDurationSeconds = register(reg, c.httpRequestDurationSeconds)
		c.upstreamLatencySeconds = register(reg, c.upstreamLatencySeconds)
		c.upstreamErrorsTotal = register(reg, c.upstreamErrorsTotal)
		c.resolutionsTotal = register(reg, c.resolutionsTotal)
		c.fallbackRadiusMeters = register(reg, c.fallbackRadiusMeters)
		c.candidates = register(reg, c.candidates)
		c.cacheResults = register(reg, c.cacheResults)
		c.cacheOpTotal = register(reg, c.cacheOpTotal)
		c.redisOpDuration = register(reg, c.redisOpDuration)
		c.cacheInvalidations = register(reg, c.cacheInvalidations)
		c.kafkaConsumerErrors = register(reg, c.kafkaConsumerErrors)
		c.hitEventsDropped = register(reg, c.hitEventsDropped)
		c.buildInfo = register(reg, c.buildInfo)
	}
	mu.Lock()
	cur = c
	mu.Unlock()
}

// reuse the already registered collector when Init runs twice on one registry
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func get() *collectors {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := get()
	s := getScenario()
	st := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, route, st, s).Inc()
	c.httpRequestDurationSeconds.WithLabelValues(method, route, st, s).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	get().upstreamLatencySeconds.WithLabelValues(upstream, getScenario()).Observe(durationSeconds)
}

// IncUpstreamError kinds: status, transport, decode, service, timeout.
func IncUpstreamError(kind string) {
	get().upstreamErrorsTotal.WithLabelValues(kind, getScenario()).Inc()
}

func ObserveResolution(method string, radiusM float64, candidates int) {
	c := get()
	s := getScenario()
	c.resolutionsTotal.WithLabelValues(method, s).Inc()
	if radiusM > 0 {
		c.fallbackRadiusMeters.WithLabelValues(s).Observe(radiusM)
	}
	if candidates > 0 {
		c.candidates.WithLabelValues(method, s).Observe(float64(candidates))
	}
}

// IncCacheResult tiers: lru, redis. Outcomes: hit, miss, error, bypass, stale.
func IncCacheResult(tier, outcome string) {
	get().cacheResults.WithLabelValues(tier, outcome, getScenario()).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	c := get()
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cacheOpTotal.WithLabelValues(op, result).Inc()
	c.redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheInvalidations(op string, keys int) {
	if keys <= 0 {
		return
	}
	get().cacheInvalidations.WithLabelValues(op, getScenario()).Add(float64(keys))
}

func IncKafkaConsumerError(kind string) {
	get().kafkaConsumerErrors.WithLabelValues(kind, getScenario()).Inc()
}

func IncHitEventDropped(reason string) {
	get().hitEventsDropped.WithLabelValues(reason).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	get().buildInfo.WithLabelValues(version).Set(1)
}
