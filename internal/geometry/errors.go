package geometry

import "errors"

// ErrInvalidGeometry is returned when a diameter, height, spacing or enclosure dimension is not usable.
var ErrInvalidGeometry = errors.New("invalid geometry: dimensions must be positive and finite")
