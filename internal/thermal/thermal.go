// Package thermal estimates the energy and time needed to cool packed containers using a
// lumped-capacitance (Newton's law of cooling) model.
package thermal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThermalInput is returned for non-physical temperatures, masses or areas.
var ErrInvalidThermalInput = errors.New("invalid thermal input")

// Properties are process-wide thermal constants. Specific heats are kJ/(kg*C), the heat
// transfer coefficient is W/(m^2*C), temperatures are C.
type Properties struct {
	SpecificHeatLiquid      float64 `json:"specificHeatLiquid" yaml:"specific_heat_liquid"`
	SpecificHeatSteel       float64 `json:"specificHeatSteel" yaml:"specific_heat_steel"`
	HeatTransferCoefficient float64 `json:"heatTransferCoefficient" yaml:"heat_transfer_coefficient"`
	InitialTemp             float64 `json:"initialTemp" yaml:"initial_temp"`
	TargetTemp              float64 `json:"targetTemp" yaml:"target_temp"`
	AmbientTemp             float64 `json:"ambientTemp" yaml:"ambient_temp"`
}

// DefaultProperties cools beer in steel kegs from 24C to 13C in a 4C refrigerator.
func DefaultProperties() Properties {
	return Properties{
		SpecificHeatLiquid:      4.18,
		SpecificHeatSteel:       0.502,
		HeatTransferCoefficient: 20,
		InitialTemp:             24,
		TargetTemp:              13,
		AmbientTemp:             4,
	}
}

// Validate requires positive specific heats and coefficient and AmbientTemp < TargetTemp < InitialTemp.
func (p Properties) Validate() error {
	for _, v := range []float64{p.InitialTemp, p.TargetTemp, p.AmbientTemp} {
		if !finite(v) {
			return fmt.Errorf("temperature %g: %w", v, ErrInvalidThermalInput)
		}
	}
	if !(p.SpecificHeatLiquid > 0) || !(p.SpecificHeatSteel > 0) || !(p.HeatTransferCoefficient > 0) {
		return fmt.Errorf("specific heats and heat transfer coefficient must be positive: %w", ErrInvalidThermalInput)
	}
	if !(p.AmbientTemp < p.TargetTemp && p.TargetTemp < p.InitialTemp) {
		return fmt.Errorf("need ambient %g < target %g < initial %g: %w",
			p.AmbientTemp, p.TargetTemp, p.InitialTemp, ErrInvalidThermalInput)
	}
	return nil
}

// Model evaluates cooling formulas for a fixed set of Properties.
type Model struct {
	props Properties
}

// New returns a Model for props.
func New(props Properties) Model {
	return Model{props: props}
}

// CoolingEnergy returns the sensible heat in kJ removed when the liquid and container masses
// are cooled from the initial to the target temperature.
func (m Model) CoolingEnergy(massLiquid, massContainer float64) (float64, error) {
	p := m.props
	if !finite(p.InitialTemp) || !finite(p.TargetTemp) {
		return 0, fmt.Errorf("cooling energy: %w", ErrInvalidThermalInput)
	}
	if massLiquid < 0 || massContainer < 0 || !finite(massLiquid) || !finite(massContainer) {
		return 0, fmt.Errorf("cooling energy: masses %g, %g: %w", massLiquid, massContainer, ErrInvalidThermalInput)
	}
	delta := p.InitialTemp - p.TargetTemp
	return massLiquid*p.SpecificHeatLiquid*delta + massContainer*p.SpecificHeatSteel*delta, nil
}

// CoolingTime returns the time for the lumped mass to reach the target temperature. The
// effective specific heat is the mass-weighted mean of liquid and steel.
func (m Model) CoolingTime(surfaceArea, massLiquid, massContainer float64) (float64, error) {
	p := m.props
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("cooling time: %w", err)
	}
	if !(surfaceArea > 0) || massLiquid < 0 || massContainer < 0 || !finite(surfaceArea) {
		return 0, fmt.Errorf("cooling time: area %g: %w", surfaceArea, ErrInvalidThermalInput)
	}
	totalMass := massLiquid + massContainer
	if !(totalMass > 0) || !finite(totalMass) {
		return 0, fmt.Errorf("cooling time: total mass %g: %w", totalMass, ErrInvalidThermalInput)
	}

	specificHeat := (massLiquid*p.SpecificHeatLiquid + massContainer*p.SpecificHeatSteel) / totalMass
	decay := p.HeatTransferCoefficient * surfaceArea / (totalMass * specificHeat)
	ratio := (p.TargetTemp - p.AmbientTemp) / (p.InitialTemp - p.AmbientTemp)
	return -math.Log(ratio) / decay, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
