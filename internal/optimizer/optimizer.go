package optimizer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/mass"
	"github.com/eugenenazirov/kegsizer/internal/thermal"
)

type kegOptimizer struct {
	params   Parameters
	settings Settings
	thermal  thermal.Model
	logger   *zap.Logger
}

// Option configures the optimizer.
type Option func(*kegOptimizer)

// WithLogger sets the logger used for solver diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *kegOptimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New validates params and settings and returns an Optimizer.
func New(params Parameters, settings Settings, opts ...Option) (Optimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := &kegOptimizer{
		params:   params,
		settings: settings,
		thermal:  thermal.New(params.Thermal),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// candidate is a diameter along with the objective value and search effort behind it.
type candidate struct {
	diameter    float64
	area        float64
	iterations  int
	evaluations int
}

type bounds struct {
	lo, hi float64
}

func (b bounds) clamp(d float64) float64 {
	return math.Min(math.Max(d, b.lo), b.hi)
}

func (o *kegOptimizer) Optimize(e geometry.Enclosure) (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b := o.bounds(e)
	if err := o.checkCount(e, b); err != nil {
		return nil, err
	}

	var (
		best candidate
		err  error
	)
	switch o.settings.Method {
	case MethodScan:
		best = o.scan(e, b)
	case MethodSolver:
		best, err = o.solve(e, b, o.settings.InitialDiameter)
	case MethodHybrid:
		best = o.scan(e, b)
		polished, polishErr := o.solve(e, b, best.diameter)
		if polishErr != nil {
			o.logger.Debug("polish step failed, keeping breakpoint optimum",
				zap.Stringer("enclosure", e),
				zap.Error(polishErr),
			)
		} else if polished.area > best.area {
			polished.iterations += best.iterations
			polished.evaluations += best.evaluations
			best = polished
		} else {
			best.iterations += polished.iterations
			best.evaluations += polished.evaluations
		}
	default:
		return nil, fmt.Errorf("%q: %w", o.settings.Method, ErrUnknownMethod)
	}
	if err != nil {
		return nil, err
	}

	result, err := o.evaluate(e, best.diameter)
	if err != nil {
		return nil, err
	}
	result.Method = o.settings.Method
	result.Iterations = best.iterations
	result.Evaluations = best.evaluations

	o.logger.Debug("optimization finished",
		zap.Stringer("enclosure", e),
		zap.String("method", string(o.settings.Method)),
		zap.Float64("diameter", result.OptimalDiameter),
		zap.Int("count", result.ContainerCount),
		zap.Float64("total_area", result.TotalSurfaceArea),
	)
	return result, nil
}

func (o *kegOptimizer) Landscape(e geometry.Enclosure, samples int) ([]Sample, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if samples < 2 {
		return nil, fmt.Errorf("landscape needs at least 2 samples, got %d: %w", samples, ErrInvalidParameters)
	}

	b := o.bounds(e)
	if err := o.checkCount(e, b); err != nil {
		return nil, err
	}
	step := (b.hi - b.lo) / float64(samples-1)
	out := make([]Sample, 0, samples)
	for i := 0; i < samples; i++ {
		d := b.lo + float64(i)*step
		n, area, feasible := o.objective(e, d)
		out = append(out, Sample{Diameter: d, Count: n, TotalArea: area, Feasible: feasible})
	}
	return out, nil
}

// bounds returns [MinDiameter, L]. An enclosure shorter than MinDiameter collapses to a
// single point that packs nothing.
func (o *kegOptimizer) bounds(e geometry.Enclosure) bounds {
	lo := o.settings.MinDiameter
	return bounds{lo: lo, hi: math.Max(e.Length, lo)}
}

// checkCount rejects enclosures whose packed count overflows at the lower bound. The count
// only shrinks as d grows, so every other diameter in bounds is then representable too.
func (o *kegOptimizer) checkCount(e geometry.Enclosure, b bounds) error {
	_, err := geometry.PackedCount(e, b.lo, o.params.AspectRatio*b.lo, o.params.Spacing)
	return err
}

// objective returns the packed count and total effective area at d, and whether the
// volume constraint holds.
func (o *kegOptimizer) objective(e geometry.Enclosure, d float64) (int, float64, bool) {
	h := o.params.AspectRatio * d
	n, err := geometry.PackedCount(e, d, h, o.params.Spacing)
	if err != nil {
		return 0, 0, false
	}
	area, err := geometry.EffectiveArea(d, o.params.AspectRatio)
	if err != nil {
		return 0, 0, false
	}
	v, err := geometry.ContainerVolume(d, h)
	if err != nil {
		return 0, 0, false
	}
	return n, float64(n) * area, e.Volume()-float64(n)*v >= 0
}

// evaluate recomputes every reported quantity at diameter d.
func (o *kegOptimizer) evaluate(e geometry.Enclosure, d float64) (*Result, error) {
	p := o.params
	h := p.AspectRatio * d

	n, err := geometry.PackedCount(e, d, h, p.Spacing)
	if err != nil {
		return nil, err
	}
	v, err := geometry.ContainerVolume(d, h)
	if err != nil {
		return nil, err
	}
	area, err := geometry.EffectiveArea(d, p.AspectRatio)
	if err != nil {
		return nil, err
	}
	shell, err := mass.ContainerMass(p.Material, d, h)
	if err != nil {
		return nil, err
	}

	count := float64(n)
	liquidPer := v * (1 - p.MaterialFraction)
	r := &Result{
		Enclosure:          e,
		OptimalDiameter:    d,
		OptimalHeight:      h,
		ContainerCount:     n,
		TotalVolume:        count * v,
		LiquidVolume:       count * liquidPer,
		MaterialVolume:     count * v * p.MaterialFraction,
		TotalSurfaceArea:   count * area,
		LiquidPerContainer: liquidPer,
		TotalContainerMass: count * shell,
	}
	r.TotalLiquidMass = r.LiquidVolume * p.LiquidDensity
	r.TotalMass = r.TotalLiquidMass + r.TotalContainerMass

	r.CoolingEnergy, err = o.thermal.CoolingEnergy(r.TotalLiquidMass, r.TotalContainerMass)
	if err != nil {
		return nil, err
	}
	// Nothing to cool when no container fits.
	if n > 0 {
		r.CoolingTime, err = o.thermal.CoolingTime(r.TotalSurfaceArea, r.TotalLiquidMass, r.TotalContainerMass)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}
