package optimizer

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/optimize"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
)

const (
	// penalty is returned outside the feasible region; feasible objectives are <= 0.
	penalty = 1.0
	// convergenceWindow is how many iterations without improvement count as converged.
	convergenceWindow = 50
	simplexFraction   = 0.05
)

// solve runs the local solver from start, retrying from seeded random diameters when the
// solver reports failure.
func (o *kegOptimizer) solve(e geometry.Enclosure, b bounds, start float64) (candidate, error) {
	rng := rand.New(rand.NewSource(o.settings.Seed))
	x0 := b.clamp(start)

	var (
		iterations, evaluations int
		lastErr                 error
	)
	for attempt := 0; attempt <= o.settings.Restarts; attempt++ {
		if attempt > 0 {
			x0 = b.lo + rng.Float64()*(b.hi-b.lo)
		}

		c, err := o.minimize(e, b, x0)
		iterations += c.iterations
		evaluations += c.evaluations
		if err == nil {
			c.iterations = iterations
			c.evaluations = evaluations
			return c, nil
		}

		lastErr = err
		o.logger.Debug("solver attempt failed",
			zap.Stringer("enclosure", e),
			zap.Int("attempt", attempt),
			zap.Float64("initial_diameter", x0),
			zap.Error(err),
		)
	}
	return candidate{}, fmt.Errorf("enclosure %s after %d attempts: %w (last: %v)",
		e, o.settings.Restarts+1, ErrOptimizationDidNotConverge, lastErr)
}

// minimize runs one Nelder-Mead solve of the negated total area. Bounds and the volume
// constraint are enforced through an exterior penalty.
func (o *kegOptimizer) minimize(e geometry.Enclosure, b bounds, x0 float64) (candidate, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return o.penalized(e, b, x[0])
		},
	}
	settings := &optimize.Settings{
		MajorIterations: o.settings.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.settings.Tolerance,
			Relative:   o.settings.Tolerance,
			Iterations: convergenceWindow,
		},
	}
	method := &optimize.NelderMead{SimplexSize: simplexFraction * math.Max(b.hi-b.lo, b.lo)}

	res, err := optimize.Minimize(problem, []float64{x0}, settings, method)
	if res == nil {
		return candidate{}, fmt.Errorf("solver returned no result: %v", err)
	}
	c := candidate{
		iterations:  res.Stats.MajorIterations,
		evaluations: res.Stats.FuncEvaluations,
	}
	if err != nil {
		return c, err
	}
	if !converged(res.Status) {
		return c, fmt.Errorf("solver stopped with status %s", res.Status)
	}

	d := b.clamp(res.X[0])
	_, area, feasible := o.objective(e, d)
	if !feasible {
		return c, fmt.Errorf("solver returned infeasible diameter %g", d)
	}
	c.diameter = d
	c.area = area
	return c, nil
}

func (o *kegOptimizer) penalized(e geometry.Enclosure, b bounds, d float64) float64 {
	if math.IsNaN(d) {
		return math.MaxFloat64
	}
	if d < b.lo {
		return penalty * (1 + b.lo - d)
	}
	if d > b.hi {
		return penalty * (1 + d - b.hi)
	}
	_, area, feasible := o.objective(e, d)
	if !feasible {
		return penalty
	}
	return -area
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.FunctionConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return true
	default:
		return false
	}
}
