package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	TargetURL       string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	PointCount      int
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
	PointsFile      string
	Seed            int64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8090/floodzone", "Resolver /floodzone URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PointCount, "points", 256, "Distinct points in pool")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/floodzone", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 30*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append UTC timestamp to output prefix")
	flag.StringVar(&cfg.PointsFile, "points-file", "", "Optional CSV file (lat,lon) to drive the point pool")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Random seed (0 = time based)")
	flag.Parse()
	return cfg
}

// one sample per request
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	Method    string
	ErrorMsg  string
	Point     Point
}

type summary struct {
	StartTime     time.Time        `json:"start"`
	EndTime       time.Time        `json:"end"`
	DurationSec   float64          `json:"duration_sec"`
	TotalRequests int64            `json:"total"`
	SuccessCount  int64            `json:"success"`
	ErrorCount    int64            `json:"errors"`
	ThroughputRPS float64          `json:"throughput_rps"`
	P50Ms         float64          `json:"p50_ms"`
	P95Ms         float64          `json:"p95_ms"`
	P99Ms         float64          `json:"p99_ms"`
	Methods       map[string]int64 `json:"methods"`
	Concurrency   int              `json:"concurrency"`
	ZipfS         float64          `json:"zipf_s"`
	ZipfV         float64          `json:"zipf_v"`
	Points        int              `json:"points"`
	TargetURL     string           `json:"target"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	methods map[string]int64
	latMs   []float64
}

// only the part of the response the summary needs
type responseMeta struct {
	Meta struct {
		Method string `json:"method"`
	} `json:"meta"`
}

func main() {
	cfg := loadConfig()
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := cfg.OutputPrefix
	if cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	var points []Point
	if strings.TrimSpace(cfg.PointsFile) != "" {
		pts, err := loadPointsCSV(cfg.PointsFile)
		if err != nil {
			log.Printf("WARN: failed to load points from %q: %v; falling back to synthetic points", cfg.PointsFile, err)
		} else {
			points = pts
			log.Printf("using %d points from %s", len(points), cfg.PointsFile)
		}
	}
	if len(points) == 0 {
		points = makePoints(cfg.PointCount, r)
		log.Printf("using %d synthetic points", len(points))
	}
	if len(points) == 0 {
		log.Fatalf("no points generated")
	}
	base, err := url.Parse(cfg.TargetURL)
	if err != nil {
		log.Fatalf("bad target url: %v", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "method", "error", "point"})
		agg := aggregatedResult{methods: map[string]int64{}, latMs: make([]float64, 0, 1<<16)}
		for s := range samplesChan {
			agg.total++
			ms := float64(s.Latency.Microseconds()) / 1000.0
			if s.ErrorMsg == "" && s.Status >= 200 && s.Status < 300 {
				agg.success++
				agg.methods[s.Method]++
				agg.latMs = append(agg.latMs, ms)
			} else {
				agg.errors++
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", ms),
				fmt.Sprintf("%d", s.Status),
				s.Method,
				s.ErrorMsg,
				s.Point.String(),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- agg
	}()

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) points=%d",
		cfg.TargetURL, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(points))

	imax := uint64(len(points)) - 1
	g, gctx := errgroup.WithContext(ctx)
	for workerID := range cfg.Concurrency {
		g.Go(func() error {
			rWorker := rand.New(rand.NewSource(seed + int64(workerID) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for {
				if gctx.Err() != nil {
					return nil
				}
				v := zipfDist.Uint64()
				if v > uint64(math.MaxInt) || int(v) >= len(points) {
					continue
				}
				s := lookup(gctx, httpClient, base, points[int(v)])
				if gctx.Err() != nil {
					// the run ended mid-request
					return nil
				}
				select {
				case samplesChan <- s:
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	go func() {
		_ = g.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Methods:       agg.methods,
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Points:        len(points),
		TargetURL:     cfg.TargetURL,
	}

	jsonFile, err := os.Create(filepath.Clean(jsonPath))
	if err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms methods=%v",
		agg.total, agg.success, agg.errors, runSummary.ThroughputRPS,
		runSummary.P50Ms, runSummary.P95Ms, runSummary.P99Ms, agg.methods)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func lookup(ctx context.Context, client *http.Client, base *url.URL, p Point) sample {
	u := *base
	q := u.Query()
	q.Set("lat", fmt.Sprintf("%.6f", p.Lat))
	q.Set("lon", fmt.Sprintf("%.6f", p.Lon))
	u.RawQuery = q.Encode()

	start := time.Now()
	s := sample{Timestamp: start, Point: p}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	resp, err := client.Do(req)
	s.Latency = time.Since(start)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	defer func() { _ = resp.Body.Close() }()

	s.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
		return s
	}
	var meta responseMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		s.ErrorMsg = "decode: " + err.Error()
		return s
	}
	s.Method = meta.Meta.Method
	return s
}
