package optimizer

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/mass"
	"github.com/eugenenazirov/kegsizer/internal/thermal"
)

// Optimizer describes the behaviour required from a keg size optimizer.
type Optimizer interface {
	// Optimize returns the diameter maximising total effective surface area in e together
	// with every derived quantity at that diameter.
	Optimize(e geometry.Enclosure) (*Result, error)
	// Landscape samples the objective uniformly across the diameter bounds for e.
	Landscape(e geometry.Enclosure, samples int) ([]Sample, error)
}

// Method selects the search strategy.
type Method string

const (
	// MethodSolver runs a local Nelder-Mead solve from the configured initial diameter.
	MethodSolver Method = "solver"
	// MethodScan evaluates every diameter at which the packed count changes.
	MethodScan Method = "scan"
	// MethodHybrid scans, then polishes the best breakpoint with the solver.
	MethodHybrid Method = "hybrid"
)

// ParseMethod converts a method name to a Method.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case MethodSolver, MethodScan, MethodHybrid:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownMethod)
	}
}

// Parameters is the immutable physical model shared by every optimization run.
type Parameters struct {
	Spacing          float64            `json:"spacing" yaml:"spacing"`
	AspectRatio      float64            `json:"aspectRatio" yaml:"aspect_ratio"`
	MaterialFraction float64            `json:"materialFraction" yaml:"material_fraction"`
	LiquidDensity    float64            `json:"liquidDensity" yaml:"liquid_density"`
	Material         mass.Properties    `json:"material" yaml:"material"`
	Thermal          thermal.Properties `json:"thermal" yaml:"thermal"`
}

// DefaultParameters returns beer kegs of height twice the diameter, 5cm apart, 10% steel by volume.
func DefaultParameters() Parameters {
	return Parameters{
		Spacing:          0.05,
		AspectRatio:      2.0,
		MaterialFraction: 0.1,
		LiquidDensity:    1000,
		Material:         mass.DefaultProperties(),
		Thermal:          thermal.DefaultProperties(),
	}
}

// Validate checks the physical model.
func (p Parameters) Validate() error {
	if p.Spacing < 0 {
		return fmt.Errorf("spacing must be >= 0: %w", ErrInvalidParameters)
	}
	if p.AspectRatio <= 0 {
		return fmt.Errorf("aspect ratio must be positive: %w", ErrInvalidParameters)
	}
	if p.MaterialFraction < 0 || p.MaterialFraction >= 1 {
		return fmt.Errorf("material fraction must be in [0, 1): %w", ErrInvalidParameters)
	}
	if p.LiquidDensity <= 0 {
		return fmt.Errorf("liquid density must be positive: %w", ErrInvalidParameters)
	}
	if err := p.Material.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	if err := p.Thermal.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	return nil
}

// Settings configures the search.
type Settings struct {
	Method          Method  `json:"method" yaml:"method"`
	InitialDiameter float64 `json:"initialDiameter" yaml:"initial_diameter"`
	MinDiameter     float64 `json:"minDiameter" yaml:"min_diameter"`
	MaxIterations   int     `json:"maxIterations" yaml:"max_iterations"`
	Restarts        int     `json:"restarts" yaml:"restarts"`
	Seed            uint64  `json:"seed" yaml:"seed"`
	Tolerance       float64 `json:"tolerance" yaml:"tolerance"`
}

// DefaultSettings starts from a 0.3m diameter with a 0.1m lower bound.
func DefaultSettings() Settings {
	return Settings{
		Method:          MethodHybrid,
		InitialDiameter: 0.3,
		MinDiameter:     0.1,
		MaxIterations:   1000,
		Restarts:        3,
		Seed:            1,
		Tolerance:       1e-9,
	}
}

// Validate checks the solver settings.
func (s Settings) Validate() error {
	if _, err := ParseMethod(string(s.Method)); err != nil {
		return err
	}
	if s.InitialDiameter <= 0 || s.MinDiameter <= 0 {
		return fmt.Errorf("diameters must be positive: %w", ErrInvalidParameters)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive: %w", ErrInvalidParameters)
	}
	if s.Restarts < 0 {
		return fmt.Errorf("restarts must be >= 0: %w", ErrInvalidParameters)
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive: %w", ErrInvalidParameters)
	}
	return nil
}

// Result is the optimal configuration for one enclosure. Volumes are m^3, areas m^2,
// masses kg, energy kJ.
type Result struct {
	Enclosure          geometry.Enclosure `json:"enclosure"`
	OptimalDiameter    float64            `json:"optimalDiameter"`
	OptimalHeight      float64            `json:"optimalHeight"`
	ContainerCount     int                `json:"containerCount"`
	TotalVolume        float64            `json:"totalVolume"`
	LiquidVolume       float64            `json:"liquidVolume"`
	MaterialVolume     float64            `json:"materialVolume"`
	TotalSurfaceArea   float64            `json:"totalSurfaceArea"`
	LiquidPerContainer float64            `json:"liquidPerContainer"`
	TotalLiquidMass    float64            `json:"totalLiquidMass"`
	TotalContainerMass float64            `json:"totalContainerMass"`
	TotalMass          float64            `json:"totalMass"`
	CoolingEnergy      float64            `json:"coolingEnergy"`
	CoolingTime        float64            `json:"coolingTime"`

	Method      Method `json:"method"`
	Iterations  int    `json:"iterations"`
	Evaluations int    `json:"evaluations"`
}

// Sample is one point of the objective landscape.
type Sample struct {
	Diameter  float64 `json:"diameter"`
	Count     int     `json:"count"`
	TotalArea float64 `json:"totalArea"`
	Feasible  bool    `json:"feasible"`
}
