package modal

import "github.com/cwbudde/algo-modal/vec"

// Amplitudes stores one complex amplitude per mode as split real and
// imaginary arrays. All entries start at zero.
type Amplitudes[T vec.Float] struct {
	re []T
	im []T
}

func newAmplitudes[T vec.Float](n int) Amplitudes[T] {
	return Amplitudes[T]{
		re: make([]T, n),
		im: make([]T, n),
	}
}

// Len returns the number of modes.
func (a *Amplitudes[T]) Len() int { return len(a.re) }

// At returns the real and imaginary part of mode i.
func (a *Amplitudes[T]) At(i int) (re, im T) {
	return a.re[i], a.im[i]
}

// Set overwrites mode i.
func (a *Amplitudes[T]) Set(i int, re, im T) {
	a.re[i] = re
	a.im[i] = im
}

// Complex returns mode i as a complex128.
func (a *Amplitudes[T]) Complex(i int) complex128 {
	return complex(float64(a.re[i]), float64(a.im[i]))
}

// Zero clears every amplitude.
func (a *Amplitudes[T]) Zero() {
	clear(a.re)
	clear(a.im)
}
