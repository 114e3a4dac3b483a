package application

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/kegsizer/internal/config"
	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.Enclosures = []geometry.Enclosure{{Length: 4, Width: 3, Height: 2}, {Length: 1, Width: 1, Height: 1}}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	enclosures, err := app.storage.GetEnclosures()
	if err != nil {
		t.Fatalf("GetEnclosures returned error: %v", err)
	}
	if diff := cmp.Diff(cfg.Enclosures, enclosures); diff != "" {
		t.Fatalf("unexpected enclosures (-want +got):\n%s", diff)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.engine == nil || app.metrics == nil {
		t.Fatalf("expected server, router, handler, engine and metrics to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
	if app.Addr() != ":8085" {
		t.Fatalf("expected configured address before Start, got %s", app.Addr())
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidEnclosures(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Enclosures = nil

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for missing enclosures")
	}
}

func TestNewEngineRejectsInvalidModel(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Model.AspectRatio = 0

	if _, err := NewEngine(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for zero aspect ratio")
	}
}

func TestNewEngineOptimizesWithConfiguredMethod(t *testing.T) {
	engine, err := NewEngine(baseTestConfig(":0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	outcome := engine.Driver.RunOne(geometry.Enclosure{Length: 2, Width: 2, Height: 2})
	if outcome.Err != nil {
		t.Fatalf("RunOne returned error: %v", outcome.Err)
	}
	if outcome.Result.Method != optimizer.MethodScan {
		t.Fatalf("expected scan method, got %s", outcome.Result.Method)
	}
}

func TestBuildRootHandlerRoutes(t *testing.T) {
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	root := BuildRootHandler(apiHandler, metricsHandler)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/health", http.StatusAccepted},
		{http.MethodGet, "/metrics", http.StatusTeapot},
		{http.MethodGet, "/", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		root.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.status {
			t.Fatalf("%s %s: expected %d, got %d", tt.method, tt.path, tt.status, rec.Code)
		}
	}
}

func TestStartServesAPIAndMetrics(t *testing.T) {
	app, err := New(baseTestConfig("127.0.0.1:0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Server().Shutdown(ctx)
	})

	base := "http://" + app.Addr()
	client := &http.Client{Timeout: 10 * time.Second}

	payload, err := json.Marshal(geometry.Enclosure{Length: 3, Width: 3, Height: 3})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := client.Post(base+"/api/optimize", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /api/optimize: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from optimize, got %d", resp.StatusCode)
	}

	var body struct {
		Result optimizer.Result `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Result.ContainerCount < 1 {
		t.Fatalf("expected containers in a 3m cube, got %d", body.Result.ContainerCount)
	}

	metricsResp, err := client.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(raw), `kegsizer_optimizations_total{method="scan",outcome="ok"} 1`) {
		t.Fatalf("expected optimization counter in metrics output:\n%s", raw)
	}
}

func TestStartFailsWhenAddressInUse(t *testing.T) {
	first, err := New(baseTestConfig("127.0.0.1:0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := first.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = first.Server().Close() })

	second, err := New(baseTestConfig(first.Addr()), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := second.Start(); err == nil {
		_ = second.Server().Close()
		t.Fatalf("expected bind error for %s", first.Addr())
	}
}

func baseTestConfig(port string) config.Config {
	settings := optimizer.DefaultSettings()
	settings.Method = optimizer.MethodScan

	return config.Config{
		Port:                 port,
		LogLevel:             "debug",
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    time.Second,
		WriteTimeout:         5 * time.Second,
		IdleTimeout:          time.Second,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
		Enclosures:           []geometry.Enclosure{{Length: 5, Width: 5, Height: 5}},
		Model:                optimizer.DefaultParameters(),
		Solver:               settings,
	}
}
