package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_AppMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})
	observability.Init(p.Registerer(), true)
	observability.SetScenario("direct")

	start := time.Now()
	observability.ObserveHTTP("GET", "/floodzone", 200, time.Since(start).Seconds())
	observability.ObserveResolution("point_intersects", 0, 2)
	observability.ObserveResolution("envelope_fallback", 1000, 1)

	observability.IncCacheResult("redis", "hit")
	observability.IncCacheResult("redis", "miss")
	observability.ObserveCacheOp("get", nil, 0.002)

	observability.IncKafkaConsumerError("decode")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain := []string{
		`http_request_duration_seconds_bucket`,
		`redis_operation_duration_seconds_count`,
		`floodzone_fallback_radius_meters_bucket`,
		`kafka_consumer_errors_total{kind="decode",scenario="direct"} `,
	}
	for _, s := range mustContain {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "floodzone_resolutions_total",
		`method="point_intersects"`, `scenario="direct"`)
	assertHasMetricLine(t, body, "floodzone_resolutions_total",
		`method="envelope_fallback"`, `scenario="direct"`)
	assertHasMetricLine(t, body, "cache_results_total",
		`tier="redis"`, `outcome="hit"`)
	assertHasMetricLine(t, body, "app_build_info",
		`version="test"`)
}
