// Package modal simulates idealized vibrating bodies by modal synthesis.
//
// A body's wave equation is decomposed into a fixed number of orthogonal
// modes. Each mode has a spatial shape (its eigenfunction), a natural
// frequency proxy (the square root of its eigenvalue) and a complex
// amplitude. Free evolution rotates and damps every amplitude once per
// sample; the output at a listening point is the real part of the
// amplitude-weighted sum of eigenfunctions.
//
// The package is split into:
//
//   - [Geometry]: the capability a body supplies (eigenfunctions and
//     eigenvalues). [String], [Sphere], [Cube] and [Custom] implement it.
//   - [Engine]: time stepping, excitation and evaluation over any Geometry.
//   - [Listener]: an Engine with cached eigenfunction values at fixed
//     listening and striking positions, for the real-time hot path.
//
// # Real-time use
//
// Engines are not safe for concurrent use. All calls must come from the
// thread that processes audio. Position changes, sample rate changes and
// Cube.SetDimension are control events: they may allocate or cost
// O(N log N) and belong at block boundaries, never inside the sample loop.
// Evolve, Evaluate, Listener.NextFrame and Listener.NextFirstChannel do not
// allocate.
package modal

import "github.com/cwbudde/algo-modal/vec"

// Geometry supplies the modes of a vibrating body.
//
// EigenFunction must be a pure function of (i, x). EigenvalueSqrt returns
// the square root of the i-th eigenvalue; it is multiplied by the engine's
// velocity term to form the mode's angular frequency.
type Geometry[T vec.Float] interface {
	Dim() int
	Modes() int
	EigenFunction(i int, x vec.Vector[T]) T
	EigenvalueSqrt(i int) T
}

// LowestEigenvalueSqrt returns the smallest strictly positive eigenvalue
// square root of g, or 0 if every mode is static.
func LowestEigenvalueSqrt[T vec.Float](g Geometry[T]) T {
	var lowest T
	for i := 0; i < g.Modes(); i++ {
		ev := g.EigenvalueSqrt(i)
		if ev > 0 && (lowest == 0 || ev < lowest) {
			lowest = ev
		}
	}
	return lowest
}
