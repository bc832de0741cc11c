package modal

import (
	"math"

	"github.com/cwbudde/algo-modal/vec"
)

// String is an ideal string of length L fixed at both ends.
//
// Mode i has shape sin((i+1)πx/L) and eigenvalue square root (i+1)π/L.
type String[T vec.Float] struct {
	modes  int
	length T
	// k[i] = (i+1)π/L
	k []T
}

// NewString creates a string with the given number of modes.
func NewString[T vec.Float](modes int, length T) (*String[T], error) {
	if modes < 1 {
		return nil, &ConfigError{Field: "modes", Value: modes, Err: ErrModeCount}
	}
	s := &String[T]{modes: modes, k: make([]T, modes)}
	if err := s.SetLength(length); err != nil {
		return nil, err
	}
	return s, nil
}

// Dim is always 1.
func (s *String[T]) Dim() int { return 1 }

func (s *String[T]) Modes() int { return s.modes }

// Length returns the string length.
func (s *String[T]) Length() T { return s.length }

// SetLength changes the length and with it every eigenvalue. Listeners
// built on s must call Retune afterwards.
func (s *String[T]) SetLength(length T) error {
	if !(length > 0) || math.IsInf(float64(length), 0) {
		return &ConfigError{Field: "length", Value: length, Err: ErrLength}
	}
	s.length = length
	for i := range s.k {
		s.k[i] = T(float64(i+1) * math.Pi / float64(length))
	}
	return nil
}

func (s *String[T]) EigenFunction(i int, x vec.Vector[T]) T {
	return T(math.Sin(float64(s.k[i]) * float64(x.Get(0))))
}

func (s *String[T]) EigenvalueSqrt(i int) T { return s.k[i] }
