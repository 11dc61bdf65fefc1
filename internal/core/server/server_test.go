package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mohammed-shakir/floodzone-resolver/internal/core/config"
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

type stubResolver struct{ calls int }

func (s *stubResolver) Resolve(context.Context, model.Point) (model.Resolution, error) {
	s.calls++
	return model.Resolution{Meta: model.Meta{Method: model.MethodNone, Reason: "stub"}}, nil
}

func TestNewHandler_Routes(t *testing.T) {
	stub := &stubResolver{}
	cfg := config.Config{ResponseMaxAge: time.Hour}
	h := NewHandler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{Resolver: stub})

	cases := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/floodzone?lat=1&lon=2", http.StatusOK},
		{http.MethodGet, "/api/floodzone?lat=1&lon=2", http.StatusOK},
		{http.MethodOptions, "/floodzone", http.StatusNoContent},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.target, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s %s: status=%d want %d", tc.method, tc.target, rr.Code, tc.want)
		}
	}
	if stub.calls != 2 {
		t.Fatalf("resolver calls=%d want 2", stub.calls)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/floodzone?lat=1&lon=2", nil))
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header on lookup")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.Config{Addr: "127.0.0.1:0"}, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{Resolver: &stubResolver{}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
