// Package driver runs the optimizer over an ordered list of enclosures and collects one
// outcome per enclosure, so a failing enclosure never hides the results of the others.
package driver

import (
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
)

var defaultEnclosures = []geometry.Enclosure{
	{Length: 5, Width: 5, Height: 5},
	{Length: 10, Width: 10, Height: 10},
	{Length: 20, Width: 20, Height: 20},
	{Length: 30, Width: 30, Height: 30},
	{Length: 40, Width: 40, Height: 40},
}

// DefaultEnclosures returns a copy of the default refrigerator sizes.
func DefaultEnclosures() []geometry.Enclosure {
	out := make([]geometry.Enclosure, len(defaultEnclosures))
	copy(out, defaultEnclosures)
	return out
}

// Outcome holds either the result or the error for one enclosure.
type Outcome struct {
	Enclosure geometry.Enclosure `json:"enclosure"`
	Result    *optimizer.Result  `json:"result,omitempty"`
	Err       error              `json:"-"`
	Error     string             `json:"error,omitempty"`
}

// Recorder observes each optimization run.
type Recorder interface {
	ObserveRun(method string, err error, elapsed time.Duration)
}

// Driver sequentially optimizes enclosures.
type Driver struct {
	optimizer optimizer.Optimizer
	method    string
	logger    *zap.Logger
	recorder  Recorder
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger for per-enclosure outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder reports every run to r.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

// WithMethod labels recorded runs with the optimizer's search method.
func WithMethod(method optimizer.Method) Option {
	return func(d *Driver) {
		d.method = string(method)
	}
}

// New builds a Driver around opt.
func New(opt optimizer.Optimizer, opts ...Option) *Driver {
	d := &Driver{
		optimizer: opt,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run optimizes every enclosure in order. Outcomes are returned in input order.
func (d *Driver) Run(enclosures []geometry.Enclosure) []Outcome {
	outcomes := make([]Outcome, 0, len(enclosures))
	for _, e := range enclosures {
		outcomes = append(outcomes, d.RunOne(e))
	}
	return outcomes
}

// RunOne optimizes a single enclosure.
func (d *Driver) RunOne(e geometry.Enclosure) Outcome {
	start := time.Now()
	result, err := d.optimizer.Optimize(e)
	elapsed := time.Since(start)

	if d.recorder != nil {
		d.recorder.ObserveRun(d.method, err, elapsed)
	}

	if err != nil {
		d.logger.Warn("enclosure optimization failed",
			zap.Stringer("enclosure", e),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return Outcome{Enclosure: e, Err: err, Error: err.Error()}
	}

	d.logger.Info("enclosure optimized",
		zap.Stringer("enclosure", e),
		zap.Float64("diameter", result.OptimalDiameter),
		zap.Int("count", result.ContainerCount),
		zap.Float64("total_area", result.TotalSurfaceArea),
		zap.Duration("duration", elapsed),
	)
	return Outcome{Enclosure: e, Result: result}
}
