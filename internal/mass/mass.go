// Package mass computes the steel shell mass of a container from its itemised areas.
package mass

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
)

// ErrInvalidProperties is returned when material thicknesses or density are not positive.
var ErrInvalidProperties = errors.New("material thicknesses and density must be positive")

// Properties describes the shell material. Thicknesses are meters, density kg/m^3.
type Properties struct {
	BodyThickness float64 `json:"bodyThickness" yaml:"body_thickness"`
	TopThickness  float64 `json:"topThickness" yaml:"top_thickness"`
	NeckThickness float64 `json:"neckThickness" yaml:"neck_thickness"`
	Density       float64 `json:"density" yaml:"density"`
}

// DefaultProperties returns stainless steel keg properties.
func DefaultProperties() Properties {
	return Properties{
		BodyThickness: 2.0e-3,
		TopThickness:  2.5e-3,
		NeckThickness: 2.0e-3,
		Density:       7850,
	}
}

// Validate checks every property is positive.
func (p Properties) Validate() error {
	if p.BodyThickness <= 0 || p.TopThickness <= 0 || p.NeckThickness <= 0 || p.Density <= 0 {
		return ErrInvalidProperties
	}
	return nil
}

// ContainerMass returns the shell mass in kg of a container with diameter d and height h.
func ContainerMass(p Properties, d, h float64) (float64, error) {
	areas, err := geometry.ShellSurfaceAreas(d, h)
	if err != nil {
		return 0, fmt.Errorf("container mass: %w", err)
	}
	return areas.Body*p.BodyThickness*p.Density +
		areas.Top*p.TopThickness*p.Density +
		areas.Neck*p.NeckThickness*p.Density, nil
}
