package modal

import (
	"math"

	"github.com/cwbudde/algo-modal/special"
	"github.com/cwbudde/algo-modal/vec"
)

// Sphere vibrates in spherical harmonics. Positions are (r, θ, φ) with θ
// the polar angle and φ the azimuth.
//
// Mode i has degree l = floor(sqrt(i)) and order m = i-(l²+l), so the
// modes of one degree run from m=-l to m=l. The eigenvalue square root is
// l(l+1). Mode 0 is a constant offset that never oscillates.
type Sphere[T vec.Float] struct {
	modes int
	l, m  []int
	norm  []float64
	eig   []T
}

// NewSphere creates a sphere with the given number of modes.
func NewSphere[T vec.Float](modes int) (*Sphere[T], error) {
	if modes < 1 {
		return nil, &ConfigError{Field: "modes", Value: modes, Err: ErrModeCount}
	}
	s := &Sphere[T]{
		modes: modes,
		l:     make([]int, modes),
		m:     make([]int, modes),
		norm:  make([]float64, modes),
		eig:   make([]T, modes),
	}
	for i := range modes {
		l, m := SphereQuantumNumbers(i)
		s.l[i], s.m[i] = l, m
		s.norm[i] = math.Sqrt(float64(2*l+1) / 2 * special.Factorial(l-m) / special.Factorial(l+m))
		s.eig[i] = T(l * (l + 1))
	}
	return s, nil
}

// SphereQuantumNumbers returns the degree and order of mode i.
func SphereQuantumNumbers(i int) (l, m int) {
	l = int(math.Sqrt(float64(i)))
	// guard against rounding at perfect squares
	for l*l > i {
		l--
	}
	for (l+1)*(l+1) <= i {
		l++
	}
	return l, i - (l*l + l)
}

// SphericalToCartesian maps angles on the unit sphere to (x, y, z).
func SphericalToCartesian[T vec.Float](theta, phi T) vec.Vector[T] {
	st, ct := math.Sincos(float64(theta))
	sp, cp := math.Sincos(float64(phi))
	return vec.New(T(st*cp), T(st*sp), T(ct))
}

func (s *Sphere[T]) Dim() int   { return 3 }
func (s *Sphere[T]) Modes() int { return s.modes }

// QuantumNumbers returns the degree and order of mode i.
func (s *Sphere[T]) QuantumNumbers(i int) (l, m int) { return s.l[i], s.m[i] }

func (s *Sphere[T]) EigenFunction(i int, x vec.Vector[T]) T {
	l, m := s.l[i], s.m[i]
	r := float64(x.Get(0))
	theta := float64(x.Get(1))
	phi := float64(x.Get(2))

	radial := 1.0
	if l > 0 {
		radial = math.Pow(r, float64(l))
	}
	p := float64(special.AssocLegendre(l, m, T(math.Cos(theta))))
	return T(radial / math.Sqrt(2*math.Pi) * s.norm[i] * p * math.Cos(float64(m)*phi))
}

func (s *Sphere[T]) EigenvalueSqrt(i int) T { return s.eig[i] }
