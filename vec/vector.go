// Package vec provides a small fixed-capacity numeric vector used for
// spatial coordinates. Vectors are plain values backed by an array, so
// copying and arithmetic never touch the heap.
package vec

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDim is the largest dimension a Vector can hold.
const MaxDim = 8

var (
	ErrIndexOutOfRange = errors.New("vec: index out of range")
	ErrDimension       = errors.New("vec: invalid dimension")
)

// Float is the set of scalar types a Vector can hold.
type Float interface {
	~float32 | ~float64
}

// Number is the set of types FromSlice converts from.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Vector is a d-dimensional tuple. Components beyond Dim are always zero,
// which keeps == and Equal consistent.
type Vector[T Float] struct {
	v [MaxDim]T
	n int
}

// New builds a vector from literal components. It panics when more than
// MaxDim values are given.
func New[T Float](vals ...T) Vector[T] {
	if len(vals) > MaxDim {
		panic(fmt.Sprintf("vec: %d components exceed MaxDim=%d", len(vals), MaxDim))
	}
	var out Vector[T]
	copy(out.v[:], vals)
	out.n = len(vals)
	return out
}

// Fill returns a d-dimensional vector with every component set to c.
func Fill[T Float](d int, c T) Vector[T] {
	if d < 0 || d > MaxDim {
		panic(fmt.Sprintf("vec: dimension %d outside [0,%d]", d, MaxDim))
	}
	var out Vector[T]
	for i := 0; i < d; i++ {
		out.v[i] = c
	}
	out.n = d
	return out
}

// FromSlice converts s component-wise into a vector of dimension len(s).
func FromSlice[T Float, S Number](s []S) (Vector[T], error) {
	var out Vector[T]
	if len(s) > MaxDim {
		return out, fmt.Errorf("%w: %d > %d", ErrDimension, len(s), MaxDim)
	}
	for i, x := range s {
		out.v[i] = T(x)
	}
	out.n = len(s)
	return out, nil
}

// Dim returns the number of components.
func (a Vector[T]) Dim() int { return a.n }

// Get returns component i without checking it against Dim.
func (a Vector[T]) Get(i int) T { return a.v[i] }

// At returns component i, or ErrIndexOutOfRange if i is not below Dim.
func (a Vector[T]) At(i int) (T, error) {
	if i < 0 || i >= a.n {
		return 0, fmt.Errorf("%w: %d (dim %d)", ErrIndexOutOfRange, i, a.n)
	}
	return a.v[i], nil
}

// Set returns a copy of a with component i replaced. An i outside
// [0, Dim) leaves the copy unchanged.
func (a Vector[T]) Set(i int, x T) Vector[T] {
	if i < 0 || i >= a.n {
		return a
	}
	a.v[i] = x
	return a
}

// Slice copies the components into a new slice.
func (a Vector[T]) Slice() []T {
	out := make([]T, a.n)
	copy(out, a.v[:a.n])
	return out
}

func (a Vector[T]) AddScalar(c T) Vector[T] {
	for i := 0; i < a.n; i++ {
		a.v[i] += c
	}
	return a
}

func (a Vector[T]) SubScalar(c T) Vector[T] {
	for i := 0; i < a.n; i++ {
		a.v[i] -= c
	}
	return a
}

func (a Vector[T]) MulScalar(c T) Vector[T] {
	for i := 0; i < a.n; i++ {
		a.v[i] *= c
	}
	return a
}

func (a Vector[T]) DivScalar(c T) Vector[T] {
	for i := 0; i < a.n; i++ {
		a.v[i] /= c
	}
	return a
}

// Add returns a+b. Both vectors must have the same dimension.
func (a Vector[T]) Add(b Vector[T]) Vector[T] {
	mustMatch(a, b)
	for i := 0; i < a.n; i++ {
		a.v[i] += b.v[i]
	}
	return a
}

// Sub returns a-b. Both vectors must have the same dimension.
func (a Vector[T]) Sub(b Vector[T]) Vector[T] {
	mustMatch(a, b)
	for i := 0; i < a.n; i++ {
		a.v[i] -= b.v[i]
	}
	return a
}

// Dot returns the inner product of a and b.
func (a Vector[T]) Dot(b Vector[T]) T {
	mustMatch(a, b)
	var sum T
	for i := 0; i < a.n; i++ {
		sum += a.v[i] * b.v[i]
	}
	return sum
}

// Equal reports exact component-wise equality.
func (a Vector[T]) Equal(b Vector[T]) bool {
	return a == b
}

func (a Vector[T]) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < a.n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%g", a.v[i])
	}
	sb.WriteByte(')')
	return sb.String()
}

func mustMatch[T Float](a, b Vector[T]) {
	if a.n != b.n {
		panic(fmt.Sprintf("vec: dimension mismatch %d != %d", a.n, b.n))
	}
}
