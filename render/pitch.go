package render

import (
	"errors"
	"math"

	approx "github.com/cwbudde/algo-approx"

	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/vec"
)

// ErrNoPitchedMode is returned when a geometry has no mode with a positive
// eigenvalue, so no velocity can produce a pitch.
var ErrNoPitchedMode = errors.New("render: geometry has no pitched mode")

// NoteToHz converts a MIDI note number to its equal-tempered frequency.
func NoteToHz(note int) float64 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * float64(pow2Approx(exponent))
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// VelocityForPitch returns the velocity coupling that makes the lowest
// pitched mode of g oscillate at hz and lose 60 dB in decaySeconds.
// decaySeconds <= 0 or +Inf yields an undamped body.
func VelocityForPitch[T vec.Float](g modal.Geometry[T], hz, decaySeconds float64) (complex128, error) {
	lambda := float64(modal.LowestEigenvalueSqrt(g))
	if lambda <= 0 {
		return 0, ErrNoPitchedMode
	}
	re := 2 * math.Pi * hz / lambda
	var im float64
	if decaySeconds > 0 && !math.IsInf(decaySeconds, 1) {
		im = math.Log(1000) / (decaySeconds * lambda)
	}
	return complex(re, im), nil
}
