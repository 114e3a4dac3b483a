package optimizer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
)

const (
	// breakpointNudge moves a candidate just left of its breakpoint so rounding in
	// L/(d+s) cannot drop it into the next, lower-count piece.
	breakpointNudge = 1e-9
	maxBreakpoints  = 1_000_000
)

// scan maximises the objective over the breakpoints of the packed count. Between two
// breakpoints the count is constant and the effective area grows with d, so every piece
// peaks at its right end and the best breakpoint is the global optimum. When an axis has
// more than maxBreakpoints pieces in bounds, the smallest diameters on it are not visited
// and the result is only the best of the visited pieces.
func (o *kegOptimizer) scan(e geometry.Enclosure, b bounds) candidate {
	points, truncated := breakpoints(e, b, o.params.Spacing, o.params.AspectRatio)
	if truncated {
		o.logger.Debug("breakpoint limit reached, smallest diameters not scanned",
			zap.Stringer("enclosure", e),
			zap.Int("limit", maxBreakpoints),
			zap.Float64("min_diameter", b.lo),
		)
	}

	best := candidate{diameter: b.lo, area: -1, iterations: len(points)}
	for _, d := range points {
		for _, x := range []float64{d * (1 - breakpointNudge), d} {
			if x < b.lo || x > b.hi {
				continue
			}
			_, area, feasible := o.objective(e, x)
			best.evaluations++
			if feasible && area > best.area {
				best.diameter = x
				best.area = area
			}
		}
	}
	if best.area < 0 {
		best.area = 0
	}
	return best
}

// breakpoints lists, in ascending order, the bounds plus every diameter in them where
// floor(L/(d+s)), floor(W/(d+s)) or floor(H/(k*d+s)) reaches a new integer. It reports
// truncated when an axis stopped at maxBreakpoints before reaching the lower bound.
func breakpoints(e geometry.Enclosure, b bounds, spacing, ratio float64) ([]float64, bool) {
	points := []float64{b.lo, b.hi}
	truncated := false

	collect := func(at func(n float64) float64) {
		for n := 1; n <= maxBreakpoints; n++ {
			d := at(float64(n))
			if d < b.lo {
				return
			}
			if d <= b.hi {
				points = append(points, d)
			}
		}
		if at(float64(maxBreakpoints+1)) >= b.lo {
			truncated = true
		}
	}
	collect(func(n float64) float64 { return e.Length/n - spacing })
	collect(func(n float64) float64 { return e.Width/n - spacing })
	collect(func(n float64) float64 { return (e.Height/n - spacing) / ratio })

	sort.Float64s(points)
	return points, truncated
}
