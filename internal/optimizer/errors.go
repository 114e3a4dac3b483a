package optimizer

import "errors"

var (
	// ErrOptimizationDidNotConverge is returned when the solver reports failure on every attempt.
	ErrOptimizationDidNotConverge = errors.New("optimization did not converge")
	// ErrInvalidParameters is returned when model parameters or solver settings are unusable.
	ErrInvalidParameters = errors.New("invalid optimizer parameters")
	// ErrUnknownMethod is returned when a search method name is not recognised.
	ErrUnknownMethod = errors.New("unknown optimization method")
)
