package special

import "math"

// DefaultTableSize is the number of cosine entries per period.
const DefaultTableSize = 2000

// TrigTable is a precomputed cosine table covering one period. It is built
// once by NewTrigTable and is read-only afterwards, so a single table can be
// shared by any number of engines on the audio thread.
type TrigTable struct {
	cos   []float64
	size  int
	scale float64
}

// NewTrigTable builds a table with size entries per period. Sizes below 16
// fall back to DefaultTableSize.
func NewTrigTable(size int) *TrigTable {
	if size < 16 {
		size = DefaultTableSize
	}
	t := &TrigTable{
		cos:   make([]float64, size+1),
		size:  size,
		scale: float64(size) / (2 * math.Pi),
	}
	for i := 0; i <= size; i++ {
		t.cos[i] = math.Cos(float64(i) * 2 * math.Pi / float64(size))
	}
	return t
}

// Size returns the number of entries per period.
func (t *TrigTable) Size() int { return t.size }

// CosNearest truncates x to the table grid without interpolation. This is
// the cheapest lookup; its error is bounded by one grid step.
func (t *TrigTable) CosNearest(x float64) float64 {
	i := int(x*t.scale) % t.size
	if i < 0 {
		i = -i
	}
	return t.cos[i]
}

// SinNearest is CosNearest shifted by a quarter period.
func (t *TrigTable) SinNearest(x float64) float64 {
	return t.CosNearest(x - math.Pi/2)
}

// Cos returns cos(x) by linear interpolation between table entries.
func (t *TrigTable) Cos(x float64) float64 {
	x = math.Mod(math.Abs(x), 2*math.Pi)
	u := x * t.scale
	i := int(u)
	frac := u - float64(i)
	if i >= t.size {
		i = t.size - 1
		frac = 1
	}
	return t.cos[i]*(1-frac) + t.cos[i+1]*frac
}

// Sin returns sin(x) by linear interpolation.
func (t *TrigTable) Sin(x float64) float64 {
	return t.Cos(x - math.Pi/2)
}

// SinCos returns sin(x) and cos(x).
func (t *TrigTable) SinCos(x float64) (sin, cos float64) {
	return t.Sin(x), t.Cos(x)
}

// CosApprox is a smooth parabolic approximation of cos(x) valid for any x.
// Its absolute error stays below about 1e-3.
func CosApprox[T Float](x T) T {
	const rTwoPi = 1.0 / (2.0 * math.Pi)
	x *= rTwoPi
	x -= T(0.25) + T(math.Floor(float64(x+T(0.25))))
	x *= 16 * (abs(x) - T(0.5))
	x += T(0.225) * x * (abs(x) - 1)
	return x
}

// TaylorSin evaluates the Taylor series of sin through x^9. Accurate for
// |x| <= pi/2.
func TaylorSin[T Float](x T) T {
	z := x * x
	return x * (1 - z*(T(1.0/6)-z*(T(1.0/120)-z*(T(1.0/5040)-z*T(1.0/362880)))))
}

// TaylorCos evaluates the Taylor series of cos through x^16, folding
// x in (pi, 2pi] back by pi. Accurate for x in [0, 2pi].
func TaylorCos[T Float](x T) T {
	sign := T(1)
	if x > math.Pi {
		sign = -1
		x -= math.Pi
	}
	z := x * x
	return sign * (1 - z*(T(1.0/2)-z*(T(1.0/24)-z*(T(1.0/720)-z*(T(1.0/40320)-z*(T(1.0/3628800)-z*(T(1.0/479001600)-z*T(1.0/(13*14*479001600.0)))))))))
}

func abs[T Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
