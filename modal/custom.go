package modal

import "github.com/cwbudde/algo-modal/vec"

// Custom is a geometry assembled from caller supplied eigenfunctions and
// eigenvalue square roots.
type Custom[T vec.Float] struct {
	dim   int
	funcs []func(x vec.Vector[T]) T
	eig   []T
}

// NewCustom creates a geometry of dimension dim. funcs and eigenvalueSqrt
// must have the same non-zero length; both slices are copied.
func NewCustom[T vec.Float](dim int, funcs []func(x vec.Vector[T]) T, eigenvalueSqrt []T) (*Custom[T], error) {
	if dim < 1 || dim > vec.MaxDim {
		return nil, &ConfigError{Field: "dim", Value: dim, Err: ErrDimension}
	}
	if len(funcs) == 0 || len(funcs) != len(eigenvalueSqrt) {
		return nil, &ConfigError{Field: "modes", Value: len(funcs), Err: ErrModeCount}
	}
	for i, f := range funcs {
		if f == nil {
			return nil, &ConfigError{Field: "funcs", Value: i, Err: ErrModeCount}
		}
	}
	return &Custom[T]{
		dim:   dim,
		funcs: append([]func(vec.Vector[T]) T(nil), funcs...),
		eig:   append([]T(nil), eigenvalueSqrt...),
	}, nil
}

func (c *Custom[T]) Dim() int                               { return c.dim }
func (c *Custom[T]) Modes() int                             { return len(c.funcs) }
func (c *Custom[T]) EigenFunction(i int, x vec.Vector[T]) T { return c.funcs[i](x) }
func (c *Custom[T]) EigenvalueSqrt(i int) T                 { return c.eig[i] }
