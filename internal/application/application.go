package application

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/kegsizer/internal/api"
	"github.com/eugenenazirov/kegsizer/internal/config"
	"github.com/eugenenazirov/kegsizer/internal/driver"
	"github.com/eugenenazirov/kegsizer/internal/metrics"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
	"github.com/eugenenazirov/kegsizer/internal/storage"
)

// Engine bundles the optimizer with the driver that sweeps enclosures through it.
type Engine struct {
	Optimizer optimizer.Optimizer
	Driver    *driver.Driver
}

// NewEngine builds the optimizer from the configured keg model and solver settings.
// Extra driver options are applied after the logger and method label.
func NewEngine(cfg config.Config, logger *zap.Logger, opts ...driver.Option) (*Engine, error) {
	opt, err := optimizer.New(cfg.Model, cfg.Solver, optimizer.WithLogger(logger.Named("optimizer")))
	if err != nil {
		return nil, fmt.Errorf("failed to build optimizer: %w", err)
	}

	driverOpts := append([]driver.Option{
		driver.WithLogger(logger.Named("driver")),
		driver.WithMethod(cfg.Solver.Method),
	}, opts...)

	return &Engine{
		Optimizer: opt,
		Driver:    driver.New(opt, driverOpts...),
	}, nil
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	engine   *Engine
	metrics  *metrics.Metrics
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.SetEnclosures(cfg.Enclosures); err != nil {
		return nil, fmt.Errorf("failed to apply initial enclosures: %w", err)
	}

	m := metrics.New()
	engine, err := NewEngine(cfg, logger, driver.WithRecorder(m))
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(engine.Driver, store)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage: store,
		engine:  engine,
		metrics: m,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter, m.Handler())),
	}, nil
}

// BuildRootHandler routes API requests and exposes prometheus metrics next to them.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("GET /metrics", metricsHandler)
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the listening socket and serves in a goroutine. Bind errors are returned
// to the caller instead of surfacing later from the serving goroutine.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.listener = ln

	go func() {
		a.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr reports the bound address once Start has succeeded, or the configured one before.
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.server.Addr
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
