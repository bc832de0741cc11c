package modal

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-modal/special"
	"github.com/cwbudde/algo-modal/vec"
)

// maxCubeCandidates bounds the lattice enumeration of CubeModes.
const maxCubeCandidates = 1 << 22

// CubeMode is one standing wave of the unit hypercube.
type CubeMode struct {
	// K holds the positive wave numbers, one per axis.
	K []int
	// EigenvalueSqrt is |K|.
	EigenvalueSqrt float64
}

// CubeModes enumerates the n lowest modes of the d-dimensional unit cube
// with Dirichlet walls. Modes are ordered by eigenvalue; equal eigenvalues
// keep lattice enumeration order (first axis fastest).
func CubeModes(n, d int) ([]CubeMode, error) {
	if n < 1 {
		return nil, &ConfigError{Field: "modes", Value: n, Err: ErrModeCount}
	}
	if d < 1 || d > vec.MaxDim {
		return nil, &ConfigError{Field: "dimension", Value: d, Err: ErrDimension}
	}

	side := cubeCutoff(n, d) + 1
	total := 1
	for range d {
		if total > maxCubeCandidates/side {
			return nil, &ConfigError{Field: "modes", Value: n, Err: ErrModeCount}
		}
		total *= side
	}
	if total < n {
		return nil, &ConfigError{Field: "modes", Value: n, Err: ErrModeCount}
	}

	type candidate struct {
		idx int
		eig float64
	}
	cands := make([]candidate, total)
	for idx := range cands {
		sum := 0
		rest := idx
		for range d {
			k := rest%side + 1
			rest /= side
			sum += k * k
		}
		cands[idx] = candidate{idx: idx, eig: math.Sqrt(float64(sum))}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].eig < cands[b].eig })

	out := make([]CubeMode, n)
	for i := range out {
		k := make([]int, d)
		rest := cands[i].idx
		for j := range k {
			k[j] = rest%side + 1
			rest /= side
		}
		out[i] = CubeMode{K: k, EigenvalueSqrt: cands[i].eig}
	}
	return out, nil
}

// cubeCutoff estimates the lattice radius that encloses n points in the
// positive orthant of a d-ball.
func cubeCutoff(n, d int) int {
	var r float64
	if d%2 == 0 {
		h := d / 2
		r = 2 * math.Pow(float64(n)/math.Pow(math.Pi, float64(h))*special.Factorial(h), 1/float64(d))
	} else {
		h := (d - 1) / 2
		r = 2 * math.Pow(float64(n)/math.Pow(4*math.Pi, float64(h))*special.Factorial(d)/special.Factorial(h)/2, 1/float64(d))
	}
	return max(int(math.Ceil(r)), 1)
}

type cubeTable[T vec.Float] struct {
	dim int
	// k[i*dim+j] = K_j of mode i, premultiplied by π
	k   []T
	eig []T
	src []CubeMode
}

// Cube is the unit hypercube [0,1]^d with fixed walls. The dimension can
// change at run time up to the maximum given at construction.
//
// Mode i has shape Π_j sin(K_ij π x_j) and eigenvalue square root |K_i|.
type Cube[T vec.Float] struct {
	modes  int
	maxDim int
	table  *cubeTable[T]
}

// NewCube creates a cube of dimension dim with the given number of modes.
func NewCube[T vec.Float](modes, maxDim, dim int) (*Cube[T], error) {
	if maxDim < 1 || maxDim > vec.MaxDim {
		return nil, &ConfigError{Field: "maxDim", Value: maxDim, Err: ErrDimension}
	}
	c := &Cube[T]{modes: modes, maxDim: maxDim}
	if err := c.SetDimension(dim); err != nil {
		return nil, err
	}
	return c, nil
}

// SetDimension rebuilds the mode table for dimension d. On error the
// previous table is kept. Listeners built on c must call Invalidate
// afterwards.
func (c *Cube[T]) SetDimension(d int) error {
	if d < 1 || d > c.maxDim {
		return &ConfigError{Field: "dimension", Value: d, Err: ErrDimension}
	}
	src, err := CubeModes(c.modes, d)
	if err != nil {
		return err
	}
	t := &cubeTable[T]{
		dim: d,
		k:   make([]T, c.modes*d),
		eig: make([]T, c.modes),
		src: src,
	}
	for i, m := range src {
		for j, k := range m.K {
			t.k[i*d+j] = T(float64(k) * math.Pi)
		}
		t.eig[i] = T(m.EigenvalueSqrt)
	}
	c.table = t
	return nil
}

func (c *Cube[T]) Dim() int    { return c.table.dim }
func (c *Cube[T]) MaxDim() int { return c.maxDim }
func (c *Cube[T]) Modes() int  { return c.modes }

// Mode returns the wave numbers and eigenvalue of mode i.
func (c *Cube[T]) Mode(i int) CubeMode { return c.table.src[i] }

func (c *Cube[T]) EigenFunction(i int, x vec.Vector[T]) T {
	t := c.table
	k := t.k[i*t.dim : (i+1)*t.dim]
	prod := 1.0
	for j, kj := range k {
		prod *= math.Sin(float64(kj) * float64(x.Get(j)))
	}
	return T(prod)
}

func (c *Cube[T]) EigenvalueSqrt(i int) T { return c.table.eig[i] }
