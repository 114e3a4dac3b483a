package storage

import (
	"errors"
	"sync"

	"github.com/eugenenazirov/kegsizer/internal/driver"
	"github.com/eugenenazirov/kegsizer/internal/geometry"
)

const maxEnclosures = 32

var (
	// ErrInvalidEnclosures indicates the provided enclosures violate validation rules.
	ErrInvalidEnclosures = errors.New("enclosures must contain between 1 and 32 entries with positive dimensions")
)

// Storage provides access to the enclosure list swept by the driver.
type Storage interface {
	GetEnclosures() ([]geometry.Enclosure, error)
	SetEnclosures(enclosures []geometry.Enclosure) error
}

// MemoryStorage keeps enclosures in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu         sync.RWMutex
	enclosures []geometry.Enclosure
}

// NewMemoryStorage initialises storage with the default refrigerator sizes.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		enclosures: driver.DefaultEnclosures(),
	}
}

// GetEnclosures returns a copy of the configured enclosures in their original order.
func (s *MemoryStorage) GetEnclosures() ([]geometry.Enclosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.enclosures), nil
}

// SetEnclosures validates and stores the provided enclosures.
func (s *MemoryStorage) SetEnclosures(enclosures []geometry.Enclosure) error {
	if err := validate(enclosures); err != nil {
		return err
	}

	s.mu.Lock()
	s.enclosures = clone(enclosures)
	s.mu.Unlock()

	return nil
}

func clone(src []geometry.Enclosure) []geometry.Enclosure {
	out := make([]geometry.Enclosure, len(src))
	copy(out, src)
	return out
}

func validate(enclosures []geometry.Enclosure) error {
	if len(enclosures) == 0 || len(enclosures) > maxEnclosures {
		return ErrInvalidEnclosures
	}
	for _, e := range enclosures {
		if err := e.Validate(); err != nil {
			return errors.Join(ErrInvalidEnclosures, err)
		}
	}
	return nil
}
