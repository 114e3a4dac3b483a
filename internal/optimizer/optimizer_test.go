package optimizer

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/mass"
)

var allMethods = []Method{MethodSolver, MethodScan, MethodHybrid}

func newTestOptimizer(t *testing.T, method Method) Optimizer {
	t.Helper()

	settings := DefaultSettings()
	settings.Method = method
	opt, err := New(DefaultParameters(), settings, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return opt
}

func TestOptimizeReferenceEnclosure(t *testing.T) {
	t.Parallel()

	e := geometry.Enclosure{Length: 5, Width: 5, Height: 5}
	for _, method := range allMethods {
		method := method
		t.Run(string(method), func(t *testing.T) {
			t.Parallel()

			got, err := newTestOptimizer(t, method).Optimize(e)
			if err != nil {
				t.Fatalf("Optimize returned error: %v", err)
			}
			if got.ContainerCount < 1 {
				t.Fatalf("expected at least one container, got %d", got.ContainerCount)
			}
			if got.OptimalDiameter < 0.1 || got.OptimalDiameter > 5 {
				t.Fatalf("diameter %g outside [0.1, 5]", got.OptimalDiameter)
			}
			if math.Abs(got.OptimalHeight-2*got.OptimalDiameter) > 1e-12 {
				t.Fatalf("height %g is not twice diameter %g", got.OptimalHeight, got.OptimalDiameter)
			}
			if got.Method != method {
				t.Fatalf("expected method %s, got %s", method, got.Method)
			}
			if got.CoolingTime <= 0 || got.CoolingEnergy <= 0 {
				t.Fatalf("expected positive thermal metrics, got energy %g time %g", got.CoolingEnergy, got.CoolingTime)
			}
		})
	}
}

func TestOptimizeRespectsVolumeConstraint(t *testing.T) {
	t.Parallel()

	opt := newTestOptimizer(t, MethodHybrid)
	for _, side := range []float64{5, 10, 20, 30, 40} {
		e := geometry.Enclosure{Length: side, Width: side, Height: side}
		got, err := opt.Optimize(e)
		if err != nil {
			t.Fatalf("Optimize(%s) returned error: %v", e, err)
		}
		if got.TotalVolume > e.Volume()*(1+1e-9) {
			t.Fatalf("total volume %g exceeds enclosure volume %g", got.TotalVolume, e.Volume())
		}
	}
}

func TestOptimizeRoundTrip(t *testing.T) {
	t.Parallel()

	params := DefaultParameters()
	e := geometry.Enclosure{Length: 10, Width: 7.5, Height: 3}

	for _, method := range allMethods {
		got, err := newTestOptimizer(t, method).Optimize(e)
		if err != nil {
			t.Fatalf("%s: Optimize returned error: %v", method, err)
		}
		d, h := got.OptimalDiameter, got.OptimalHeight

		area, err := geometry.TotalSurfaceArea(e, d, params.AspectRatio, params.Spacing)
		if err != nil {
			t.Fatalf("TotalSurfaceArea: %v", err)
		}
		n, _ := geometry.PackedCount(e, d, h, params.Spacing)
		v, _ := geometry.ContainerVolume(d, h)
		shell, err := mass.ContainerMass(params.Material, d, h)
		if err != nil {
			t.Fatalf("ContainerMass: %v", err)
		}
		totalMass := float64(n)*shell + float64(n)*v*(1-params.MaterialFraction)*params.LiquidDensity

		assertRelative(t, "total surface area", got.TotalSurfaceArea, area)
		assertRelative(t, "total volume", got.TotalVolume, float64(n)*v)
		assertRelative(t, "total mass", got.TotalMass, totalMass)
		if got.ContainerCount != n {
			t.Fatalf("%s: count %d, recomputed %d", method, got.ContainerCount, n)
		}
	}
}

func TestScanFindsGlobalOptimum(t *testing.T) {
	t.Parallel()

	params := DefaultParameters()
	opt := newTestOptimizer(t, MethodScan)

	for _, e := range []geometry.Enclosure{
		{Length: 1.3, Width: 0.9, Height: 1.1},
		{Length: 5, Width: 5, Height: 5},
		{Length: 2.2, Width: 6.1, Height: 0.8},
	} {
		got, err := opt.Optimize(e)
		if err != nil {
			t.Fatalf("Optimize(%s) returned error: %v", e, err)
		}

		bruteForce := 0.0
		for d := 0.1; d <= e.Length; d += 1e-4 {
			area, err := geometry.TotalSurfaceArea(e, d, params.AspectRatio, params.Spacing)
			if err != nil {
				t.Fatalf("TotalSurfaceArea: %v", err)
			}
			bruteForce = math.Max(bruteForce, area)
		}
		if got.TotalSurfaceArea < bruteForce*(1-1e-6) {
			t.Fatalf("%s: scan area %g below grid maximum %g", e, got.TotalSurfaceArea, bruteForce)
		}
	}
}

func TestHybridNotWorseThanSolver(t *testing.T) {
	t.Parallel()

	e := geometry.Enclosure{Length: 5, Width: 5, Height: 5}
	solver, err := newTestOptimizer(t, MethodSolver).Optimize(e)
	if err != nil {
		t.Fatalf("solver: %v", err)
	}
	hybrid, err := newTestOptimizer(t, MethodHybrid).Optimize(e)
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	if hybrid.TotalSurfaceArea < solver.TotalSurfaceArea*(1-1e-6) {
		t.Fatalf("hybrid area %g below solver area %g", hybrid.TotalSurfaceArea, solver.TotalSurfaceArea)
	}
}

func TestOptimizeEnclosureTooSmall(t *testing.T) {
	t.Parallel()

	e := geometry.Enclosure{Length: 0.12, Width: 0.12, Height: 0.12}
	for _, method := range allMethods {
		got, err := newTestOptimizer(t, method).Optimize(e)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if got.ContainerCount != 0 {
			t.Fatalf("%s: expected no containers, got %d", method, got.ContainerCount)
		}
		for name, v := range map[string]float64{
			"total mass":     got.TotalMass,
			"cooling energy": got.CoolingEnergy,
			"cooling time":   got.CoolingTime,
			"surface area":   got.TotalSurfaceArea,
		} {
			if v != 0 {
				t.Fatalf("%s: expected zero %s, got %g", method, name, v)
			}
		}
	}
}

func TestOptimizeInvalidEnclosure(t *testing.T) {
	t.Parallel()

	opt := newTestOptimizer(t, MethodHybrid)
	if _, err := opt.Optimize(geometry.Enclosure{Length: -1, Width: 1, Height: 1}); !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestOptimizeDidNotConverge(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.Method = MethodSolver
	settings.MaxIterations = 1
	settings.Restarts = 2

	opt, err := New(DefaultParameters(), settings, WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := opt.Optimize(geometry.Enclosure{Length: 5, Width: 5, Height: 5}); !errors.Is(err, ErrOptimizationDidNotConverge) {
		t.Fatalf("expected ErrOptimizationDidNotConverge, got %v", err)
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   func(*Parameters)
		settings func(*Settings)
		wantErr  error
	}{
		{name: "NegativeSpacing", params: func(p *Parameters) { p.Spacing = -0.1 }, wantErr: ErrInvalidParameters},
		{name: "ZeroRatio", params: func(p *Parameters) { p.AspectRatio = 0 }, wantErr: ErrInvalidParameters},
		{name: "AllMaterial", params: func(p *Parameters) { p.MaterialFraction = 1 }, wantErr: ErrInvalidParameters},
		{name: "BadMaterial", params: func(p *Parameters) { p.Material.Density = 0 }, wantErr: mass.ErrInvalidProperties},
		{name: "BadTemperatures", params: func(p *Parameters) { p.Thermal.TargetTemp = 30 }, wantErr: ErrInvalidParameters},
		{name: "UnknownMethod", settings: func(s *Settings) { s.Method = "annealing" }, wantErr: ErrUnknownMethod},
		{name: "ZeroIterations", settings: func(s *Settings) { s.MaxIterations = 0 }, wantErr: ErrInvalidParameters},
		{name: "ZeroMinDiameter", settings: func(s *Settings) { s.MinDiameter = 0 }, wantErr: ErrInvalidParameters},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			params := DefaultParameters()
			settings := DefaultSettings()
			if tc.params != nil {
				tc.params(&params)
			}
			if tc.settings != nil {
				tc.settings(&settings)
			}
			if _, err := New(params, settings); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLandscape(t *testing.T) {
	t.Parallel()

	opt := newTestOptimizer(t, MethodScan)
	samples, err := opt.Landscape(geometry.Enclosure{Length: 5, Width: 5, Height: 5}, 50)
	if err != nil {
		t.Fatalf("Landscape returned error: %v", err)
	}
	if len(samples) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(samples))
	}
	if samples[0].Diameter != 0.1 || math.Abs(samples[49].Diameter-5) > 1e-12 {
		t.Fatalf("unexpected sample range [%g, %g]", samples[0].Diameter, samples[49].Diameter)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Count > samples[i-1].Count {
			t.Fatalf("count increased at sample %d", i)
		}
	}

	if _, err := opt.Landscape(geometry.Enclosure{Length: 5, Width: 5, Height: 5}, 1); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for a single sample, got %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Method{"scan": MethodScan, " Solver ": MethodSolver, "HYBRID": MethodHybrid} {
		got, err := ParseMethod(raw)
		if err != nil || got != want {
			t.Fatalf("ParseMethod(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseMethod("slsqp"); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestBreakpointsSortedWithinBounds(t *testing.T) {
	t.Parallel()

	b := bounds{lo: 0.1, hi: 3}
	points, truncated := breakpoints(geometry.Enclosure{Length: 3, Width: 2, Height: 2.5}, b, 0.05, 2)
	if truncated {
		t.Fatalf("small enclosure should not hit the breakpoint limit")
	}
	if points[0] != b.lo || points[len(points)-1] != b.hi {
		t.Fatalf("expected bounds at both ends, got %g..%g", points[0], points[len(points)-1])
	}
	for i := 1; i < len(points); i++ {
		if points[i] < points[i-1] {
			t.Fatalf("points not sorted at %d", i)
		}
	}
}

func TestBreakpointsReportTruncation(t *testing.T) {
	t.Parallel()

	// 2e5 m / 0.15 m per piece exceeds maxBreakpoints on the length and width axes.
	e := geometry.Enclosure{Length: 2e5, Width: 2e5, Height: 1}
	b := bounds{lo: 0.1, hi: e.Length}
	points, truncated := breakpoints(e, b, 0.05, 2)
	if !truncated {
		t.Fatalf("expected truncation for %s", e)
	}
	if points[0] != b.lo {
		t.Fatalf("lower bound must still be a candidate, got %g", points[0])
	}

	// Exactly at the limit nothing is left out.
	exact := geometry.Enclosure{Length: 0.15 * maxBreakpoints * (1 - 1e-12), Width: 1, Height: 1}
	if _, truncated := breakpoints(exact, bounds{lo: 0.1, hi: exact.Length}, 0.05, 2); truncated {
		t.Fatalf("expected no truncation when every piece fits under the limit")
	}
}

func TestOptimizeRejectsOverflowingCount(t *testing.T) {
	t.Parallel()

	e := geometry.Enclosure{Length: 1e6, Width: 1e6, Height: 1e6}
	for _, method := range allMethods {
		opt := newTestOptimizer(t, method)
		if _, err := opt.Optimize(e); !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Fatalf("%s: expected ErrInvalidGeometry for %s, got %v", method, e, err)
		}
		if _, err := opt.Landscape(e, 10); !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Fatalf("%s: expected ErrInvalidGeometry from Landscape, got %v", method, err)
		}
	}
}

func assertRelative(t *testing.T, name string, got, want float64) {
	t.Helper()

	if want == 0 {
		if got != 0 {
			t.Fatalf("%s: expected 0, got %g", name, got)
		}
		return
	}
	if math.Abs(got-want)/math.Abs(want) > 1e-6 {
		t.Fatalf("%s: got %g, want %g", name, got, want)
	}
}
