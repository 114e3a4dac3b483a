package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Enclosure is the rectangular space containers are packed into. Units are meters.
type Enclosure struct {
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Validate reports ErrInvalidGeometry when any dimension is non-positive or not finite.
func (e Enclosure) Validate() error {
	for _, v := range []float64{e.Length, e.Width, e.Height} {
		if !positive(v) {
			return fmt.Errorf("enclosure %s: %w", e, ErrInvalidGeometry)
		}
	}
	return nil
}

// Volume returns L*W*H.
func (e Enclosure) Volume() float64 {
	return e.Length * e.Width * e.Height
}

func (e Enclosure) String() string {
	return fmt.Sprintf("%gx%gx%g", e.Length, e.Width, e.Height)
}

// ParseEnclosure parses the "LxWxH" notation used on the command line and in env vars.
func ParseEnclosure(raw string) (Enclosure, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "x")
	if len(parts) != 3 {
		return Enclosure{}, fmt.Errorf("enclosure %q: expected LxWxH", raw)
	}

	dims := make([]float64, 3)
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Enclosure{}, fmt.Errorf("enclosure %q: invalid number %q", raw, part)
		}
		dims[i] = value
	}

	e := Enclosure{Length: dims[0], Width: dims[1], Height: dims[2]}
	if err := e.Validate(); err != nil {
		return Enclosure{}, err
	}
	return e, nil
}

// ParseEnclosures parses a comma-separated list of LxWxH triples, keeping input order.
func ParseEnclosures(raw string) ([]Enclosure, error) {
	parts := strings.Split(raw, ",")
	out := make([]Enclosure, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		e, err := ParseEnclosure(part)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no enclosures provided")
	}
	return out, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
