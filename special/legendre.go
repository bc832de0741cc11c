// Package special holds the special functions used by the modal geometries:
// Legendre and associated Legendre polynomials, and cheap cosine
// approximations for code that evaluates trigonometry at audio rate.
package special

import "math"

// Float is the set of floating point types the special functions accept.
type Float interface {
	~float32 | ~float64
}

// Legendre evaluates the Legendre polynomial P_n(x). Negative degrees use
// P_{-n-1} = P_n.
func Legendre[T Float](n int, x T) T {
	if n < 0 {
		n = -n - 1
	}
	switch n {
	case 0:
		return 1
	case 1:
		return x
	case 2:
		return (3*x*x - 1) / 2
	}

	pnm1 := (3*x*x - 1) / 2
	pnm2 := x
	var pn T
	for k := 3; k <= n; k++ {
		pn = (T(2*k-1)*x*pnm1 - T(k-1)*pnm2) / T(k)
		pnm2 = pnm1
		pnm1 = pn
	}
	return pn
}

// AssocLegendre evaluates the associated Legendre polynomial P_l^m(x)
// without the Condon-Shortley phase (-1)^m.
//
// Out of range orders are not errors: |m| > l yields 0, l < 0 is reflected
// to -l-1 and negative m uses
//
//	P_l^{-m} = (-1)^m (l-m)!/(l+m)! P_l^m.
//
// The recurrence runs in T so float32 callers stay in float32.
func AssocLegendre[T Float](l, m int, x T) T {
	if l < 0 {
		l = -l - 1
	}
	am := m
	if am < 0 {
		am = -am
	}
	if am > l {
		return 0
	}

	w := float64(1 - x*x)
	if w < 0 {
		w = 0
	}
	sinPow := T(math.Pow(w, float64(am)/2))

	if m < 0 {
		ratio := Factorial(l-am) / Factorial(l+am)
		if am&1 != 0 {
			ratio = -ratio
		}
		return T(ratio) * assocLegendre(l, am, x, sinPow)
	}
	return assocLegendre(l, m, x, sinPow)
}

// assocLegendre assumes 0 <= m <= l. sinPow is (1-x^2)^(m/2).
func assocLegendre[T Float](l, m int, x T, sinPow T) T {
	if m == 0 {
		return Legendre(l, x)
	}

	p0 := T(DoubleFactorial(2*m-1)) * sinPow
	if m == l {
		return p0
	}
	p1 := x * T(2*m+1) * p0
	for n := m + 1; n < l; n++ {
		p0, p1 = p1, (T(2*n+1)*x*p1-T(n+m)*p0)/T(n+1-m)
	}
	return p1
}

// DoubleFactorial returns n!!, the product of all integers in [1,n] with the
// parity of n. Values n <= 1 return 1.
func DoubleFactorial(n int) float64 {
	r := 1.0
	for ; n > 1; n -= 2 {
		r *= float64(n)
	}
	return r
}

// Factorial returns n! as a float64. Values n <= 1 return 1.
func Factorial(n int) float64 {
	r := 1.0
	for ; n > 1; n-- {
		r *= float64(n)
	}
	return r
}
