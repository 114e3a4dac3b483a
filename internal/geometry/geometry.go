package geometry

import (
	"fmt"
	"math"
)

// ShellAreas is the itemised shell area of one container, used for mass calculation.
type ShellAreas struct {
	Body float64 `json:"body"`
	Top  float64 `json:"top"`
	Neck float64 `json:"neck"`
}

// ShellSurfaceAreas returns the wall, chime and neck areas of a container with diameter d and height h.
func ShellSurfaceAreas(d, h float64) (ShellAreas, error) {
	if err := validateContainer(d, h); err != nil {
		return ShellAreas{}, err
	}
	r := d / 2
	return ShellAreas{
		Body: 2 * math.Pi * r * h,
		Top:  2 * math.Pi * r * r,
		Neck: math.Pi * r * r,
	}, nil
}

// ContainerVolume returns the gross volume of a single container.
func ContainerVolume(d, h float64) (float64, error) {
	if err := validateContainer(d, h); err != nil {
		return 0, err
	}
	return math.Pi * d * d * h / 4, nil
}

// EffectiveArea is the analytic area approximation (pi*d^2/2)*(1+2k) for a container
// whose height is k times its diameter. The optimizer uses it both as objective and for
// reported totals.
func EffectiveArea(d, ratio float64) (float64, error) {
	if !positive(d) || !positive(ratio) {
		return 0, fmt.Errorf("diameter %g, ratio %g: %w", d, ratio, ErrInvalidGeometry)
	}
	return math.Pi * d * d / 2 * (1 + 2*ratio), nil
}

// PackedCount returns how many containers fit in the enclosure on a square grid. Each
// container takes a (d+spacing) square footprint and h+spacing of vertical extent.
func PackedCount(e Enclosure, d, h, spacing float64) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if err := validateContainer(d, h); err != nil {
		return 0, err
	}
	if spacing < 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return 0, fmt.Errorf("spacing %g: %w", spacing, ErrInvalidGeometry)
	}

	footprint := d + spacing
	rows := math.Floor(e.Length / footprint)
	cols := math.Floor(e.Width / footprint)
	layers := math.Floor(e.Height / (h + spacing))
	count := rows * cols * layers
	if count >= float64(math.MaxInt) {
		return 0, fmt.Errorf("enclosure %s packs %g containers of diameter %g: count overflows: %w", e, count, d, ErrInvalidGeometry)
	}
	return int(count), nil
}

// TotalSurfaceArea is PackedCount times EffectiveArea for height ratio*d.
func TotalSurfaceArea(e Enclosure, d, ratio, spacing float64) (float64, error) {
	area, err := EffectiveArea(d, ratio)
	if err != nil {
		return 0, err
	}
	n, err := PackedCount(e, d, ratio*d, spacing)
	if err != nil {
		return 0, err
	}
	return float64(n) * area, nil
}

func validateContainer(d, h float64) error {
	if !positive(d) || !positive(h) {
		return fmt.Errorf("diameter %g, height %g: %w", d, h, ErrInvalidGeometry)
	}
	return nil
}
