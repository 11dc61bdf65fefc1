package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FEMA National Flood Hazard Layer, flood hazard zones
const defaultFloodServiceURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28"

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type HitEventsCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	Queue   int
}

type Config struct {
	Addr          string
	LogLevel      string
	Scenario      string
	ServiceURL    string
	OutFields     string
	MaxCandidates int
	FallbackRadii []float64
	LonScaleFloor float64
	QueryTimeout  time.Duration

	ResponseMaxAge       time.Duration
	StaleWhileRevalidate time.Duration

	RedisAddr           string
	RedisPoolSize       int
	CacheTTL            time.Duration
	CacheTTLEmpty       time.Duration
	CacheLRUSize        int
	CacheOpTimeout      time.Duration
	CacheH3Res          int
	CacheCoordPrecision int
	CacheHotThreshold   float64
	CacheHotHalfLife    time.Duration

	Invalidation InvalidationCfg
	HitEvents    HitEventsCfg
}

func FromEnv() Config {
	h3res := getint("CACHE_H3_RES", 7)
	if h3res < 0 {
		h3res = 0
	}
	if h3res > 15 {
		h3res = 15
	}
	precision := getint("CACHE_COORD_PRECISION", 6)
	if precision < 0 {
		precision = 0
	}
	if precision > 9 {
		precision = 9
	}

	brokers := getenv("KAFKA_BROKERS", "localhost:9092")

	return Config{
		Addr:          getenv("ADDR", ":8090"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Scenario:      getenv("SCENARIO", "direct"),
		ServiceURL:    getenv("FLOOD_SERVICE_URL", defaultFloodServiceURL),
		OutFields:     getenv("FLOOD_OUT_FIELDS", "*"),
		MaxCandidates: getint("FLOOD_MAX_CANDIDATES", 25),
		FallbackRadii: parseRadii(getenv("FLOOD_FALLBACK_RADII_M", "300,1000,3000")),
		LonScaleFloor: getfloat("FLOOD_LON_SCALE_FLOOR", 0.2),
		QueryTimeout:  getduration("QUERY_TIMEOUT", 8*time.Second),

		ResponseMaxAge:       getduration("RESPONSE_MAX_AGE", 24*time.Hour),
		StaleWhileRevalidate: getduration("RESPONSE_STALE_WHILE_REVALIDATE", 7*24*time.Hour),

		RedisAddr:           getenv("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize:       getint("REDIS_POOL_SIZE", 64),
		CacheTTL:            getduration("CACHE_TTL", 24*time.Hour),
		CacheTTLEmpty:       getduration("CACHE_TTL_EMPTY", time.Hour),
		CacheLRUSize:        getint("CACHE_LRU_SIZE", 4096),
		CacheOpTimeout:      getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheH3Res:          h3res,
		CacheCoordPrecision: precision,
		CacheHotThreshold:   getfloat("CACHE_HOT_THRESHOLD", 0),
		CacheHotHalfLife:    getduration("CACHE_HOT_HALF_LIFE", time.Minute),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "floodzone-invalidation"),
			Brokers: brokers,
			GroupID: instanceGroupID(getenv("KAFKA_GROUP_ID", "floodzone-cache-invalidator"), getenv("KAFKA_GROUP_INSTANCE", hostname())),
		},
		HitEvents: HitEventsCfg{
			Enabled: getbool("HIT_EVENTS_ENABLED", false),
			Topic:   getenv("HIT_EVENTS_TOPIC", "floodzone-hits"),
			Brokers: brokers,
			Queue:   getint("HIT_EVENTS_QUEUE", 1024),
		},
	}
}

// Validate checks the settings the resolver cannot run without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ServiceURL) == "" {
		errs = append(errs, errors.New("FLOOD_SERVICE_URL is required"))
	}
	if c.MaxCandidates <= 0 {
		errs = append(errs, fmt.Errorf("FLOOD_MAX_CANDIDATES must be > 0 (got %d)", c.MaxCandidates))
	}
	if len(c.FallbackRadii) == 0 {
		errs = append(errs, errors.New("FLOOD_FALLBACK_RADII_M must list at least one radius"))
	}
	for i, r := range c.FallbackRadii {
		if r <= 0 {
			errs = append(errs, fmt.Errorf("fallback radius %v must be > 0", r))
		}
		if i > 0 && r <= c.FallbackRadii[i-1] {
			errs = append(errs, fmt.Errorf("fallback radii must be strictly ascending (%v after %v)", r, c.FallbackRadii[i-1]))
		}
	}
	if c.LonScaleFloor <= 0 || c.LonScaleFloor > 1 {
		errs = append(errs, fmt.Errorf("FLOOD_LON_SCALE_FLOOR must be in (0,1] (got %v)", c.LonScaleFloor))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, errors.New("QUERY_TIMEOUT must be > 0"))
	}
	return errors.Join(errs...)
}

// MaxRadius is the outermost fallback radius in meters.
func (c Config) MaxRadius() float64 {
	if len(c.FallbackRadii) == 0 {
		return 0
	}
	return c.FallbackRadii[len(c.FallbackRadii)-1]
}

// Every replica holds its own LRU, so every replica must see every
// invalidation event: one consumer group per instance.
func instanceGroupID(base, instance string) string {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return base
	}
	return base + "-" + instance
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "300,1000,3000" into sorted radii, skipping junk
func parseRadii(s string) []float64 {
	var out []float64
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || f <= 0 {
			continue
		}
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}

// SplitCSV splits a comma separated list, dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
