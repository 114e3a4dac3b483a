package mass

import (
	"errors"
	"math"
	"testing"

	"github.com/eugenenazirov/kegsizer/internal/geometry"
)

func TestContainerMass(t *testing.T) {
	t.Parallel()

	p := DefaultProperties()
	got, err := ContainerMass(p, 0.4, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := 0.2
	want := 2*math.Pi*r*0.8*2.0e-3*7850 +
		2*math.Pi*r*r*2.5e-3*7850 +
		math.Pi*r*r*2.0e-3*7850
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %g kg, got %g kg", want, got)
	}
}

func TestContainerMassScalesWithDensity(t *testing.T) {
	t.Parallel()

	p := DefaultProperties()
	base, _ := ContainerMass(p, 0.3, 0.6)
	p.Density *= 2
	doubled, _ := ContainerMass(p, 0.3, 0.6)
	if math.Abs(doubled/base-2) > 1e-12 {
		t.Fatalf("expected mass to double with density, ratio %g", doubled/base)
	}
}

func TestContainerMassInvalidGeometry(t *testing.T) {
	t.Parallel()

	for _, dims := range [][2]float64{{0, 1}, {1, 0}, {-1, 2}} {
		if _, err := ContainerMass(DefaultProperties(), dims[0], dims[1]); !errors.Is(err, geometry.ErrInvalidGeometry) {
			t.Fatalf("expected ErrInvalidGeometry for %v, got %v", dims, err)
		}
	}
}

func TestPropertiesValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultProperties().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	p := DefaultProperties()
	p.TopThickness = 0
	if err := p.Validate(); !errors.Is(err, ErrInvalidProperties) {
		t.Fatalf("expected ErrInvalidProperties, got %v", err)
	}
}
