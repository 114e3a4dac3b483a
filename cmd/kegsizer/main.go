package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/kegsizer/internal/application"
	"github.com/eugenenazirov/kegsizer/internal/config"
	"github.com/eugenenazirov/kegsizer/internal/driver"
	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/logging"
	"github.com/eugenenazirov/kegsizer/internal/plot"
	"github.com/eugenenazirov/kegsizer/internal/report"
)

var (
	signalNotify = signal.Notify
	newLogger    = logging.New
)

type cli struct {
	app        *kingpin.Application
	configFile *string
	logLevel   *string
	spacing    *float64
	spacingSet bool
	method     *string

	sweep           *kingpin.CmdClause
	sweepEnclosures *string
	sweepFormat     *string
	sweepOutput     *string

	optimize          *kingpin.CmdClause
	optimizeEnclosure *string
	optimizeFormat    *string

	plot          *kingpin.CmdClause
	plotEnclosure *string
	plotOutput    *string
	plotSamples   *int

	serve          *kingpin.CmdClause
	port           *string
	rateLimitRPS   *float64
	rateLimitBurst *int
	rpsSet         bool
	burstSet       bool
}

func newCLI() *cli {
	app := kingpin.New("kegsizer", "Keg sizer - finds the keg diameter that maximises total cooling surface in a refrigerator")
	c := &cli{
		app:        app,
		configFile: app.Flag("config", "Path to YAML configuration file").String(),
		logLevel:   app.Flag("log-level", "Log level (debug, info, warn, error)").String(),
		method:     app.Flag("method", "Search method (solver, scan, hybrid)").String(),
	}
	c.spacing = app.Flag("spacing", "Gap between kegs and walls in meters").IsSetByUser(&c.spacingSet).Float64()

	c.sweep = app.Command("sweep", "Optimize every configured enclosure and print one record each").Default()
	c.sweepEnclosures = c.sweep.Flag("enclosures", "Comma-separated LxWxH enclosures in meters").String()
	c.sweepFormat = c.sweep.Flag("format", "Output format").Default(string(report.FormatTable)).Enum("table", "json", "csv")
	c.sweepOutput = c.sweep.Flag("output", "Write the report to this file instead of stdout").String()

	c.optimize = app.Command("optimize", "Optimize a single enclosure")
	c.optimizeEnclosure = c.optimize.Arg("enclosure", "Enclosure as LxWxH in meters").Required().String()
	c.optimizeFormat = c.optimize.Flag("format", "Output format").Default(string(report.FormatTable)).Enum("table", "json", "csv")

	c.plot = app.Command("plot", "Render the surface area landscape of an enclosure as HTML")
	c.plotEnclosure = c.plot.Arg("enclosure", "Enclosure as LxWxH in meters").Required().String()
	c.plotOutput = c.plot.Flag("output", "HTML file to write").Default("landscape.html").String()
	c.plotSamples = c.plot.Flag("samples", "Number of diameters to sample").Default("400").Int()

	c.serve = app.Command("serve", "Serve the optimizer over HTTP")
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").IsSetByUser(&c.rpsSet).Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter").IsSetByUser(&c.burstSet).Int()

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
	}

	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}

	if c.spacingSet {
		overrides.Spacing = c.spacing
	}

	if *c.method != "" {
		overrides.Method = c.method
	}

	if *c.sweepEnclosures != "" {
		overrides.EnclosuresStr = c.sweepEnclosures
	}

	if *c.port != "" {
		overrides.Port = c.port
	}

	if c.rpsSet {
		overrides.RateLimitRPS = c.rateLimitRPS
	}

	if c.burstSet {
		overrides.RateLimitBurst = c.rateLimitBurst
	}

	return overrides
}

func main() {
	kingpin.FatalIfError(run(os.Args[1:], os.Stdout), "kegsizer")
}

func run(args []string, stdout io.Writer) error {
	c := newCLI()
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.overrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.sweep.FullCommand():
		return runSweep(cfg, logger, report.Format(*c.sweepFormat), *c.sweepOutput, stdout)
	case c.optimize.FullCommand():
		return runOptimize(cfg, logger, *c.optimizeEnclosure, report.Format(*c.optimizeFormat), stdout)
	case c.plot.FullCommand():
		return runPlot(cfg, logger, *c.plotEnclosure, *c.plotOutput, *c.plotSamples)
	case c.serve.FullCommand():
		return runServe(cfg, logger)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runSweep(cfg config.Config, logger *zap.Logger, format report.Format, output string, stdout io.Writer) error {
	engine, err := application.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	outcomes := engine.Driver.Run(cfg.Enclosures)

	w, closeOutput, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	if err := report.Write(w, format, outcomes); err != nil {
		_ = closeOutput()
		return fmt.Errorf("write report: %w", err)
	}
	return closeOutput()
}

func runOptimize(cfg config.Config, logger *zap.Logger, raw string, format report.Format, stdout io.Writer) error {
	e, err := geometry.ParseEnclosure(raw)
	if err != nil {
		return err
	}

	engine, err := application.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	outcome := engine.Driver.RunOne(e)
	if err := report.Write(stdout, format, []driver.Outcome{outcome}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return outcome.Err
}

func runPlot(cfg config.Config, logger *zap.Logger, raw, output string, samples int) error {
	e, err := geometry.ParseEnclosure(raw)
	if err != nil {
		return err
	}

	engine, err := application.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	landscape, err := engine.Optimizer.Landscape(e, samples)
	if err != nil {
		return fmt.Errorf("sample landscape: %w", err)
	}

	// The chart is still useful without the optimum marker.
	outcome := engine.Driver.RunOne(e)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := plot.RenderLandscape(f, e, landscape, outcome.Result); err != nil {
		_ = f.Close()
		return fmt.Errorf("render landscape: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("landscape written", zap.String("path", output), zap.Int("samples", len(landscape)))
	return nil
}

func runServe(cfg config.Config, logger *zap.Logger) error {
	app, err := application.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
