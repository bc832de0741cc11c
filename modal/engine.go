package modal

import (
	"math"
	"math/cmplx"

	approx "github.com/cwbudde/algo-approx"
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-modal/special"
	"github.com/cwbudde/algo-modal/vec"
)

// Config holds the engine parameters shared by every geometry.
type Config struct {
	// SampleRate in Hz. The default time step is 1/SampleRate.
	SampleRate float64
	// VelocitySquared couples eigenvalues to angular frequency. Mode i
	// advances by exp(j*VelocitySquared*λ_i*Δt) per step, so the real part
	// sets the oscillation rate and a positive imaginary part damps.
	VelocitySquared complex128
	// Channels is the number of listening positions of a Listener.
	Channels int
	// FastRotation computes rotation factors from a lookup table and a
	// fast exponential instead of the math package.
	FastRotation bool
	// Trig is the table used when FastRotation is set. Nil selects a
	// shared default table.
	Trig *special.TrigTable
}

// DefaultConfig returns a mono 48 kHz configuration with unit velocity.
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		VelocitySquared: 1,
		Channels:        1,
	}
}

// Validate checks the fields used by the engine.
func (c Config) Validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return &ConfigError{Field: "SampleRate", Value: c.SampleRate, Err: ErrSampleRate}
	}
	if c.Channels < 0 {
		return &ConfigError{Field: "Channels", Value: c.Channels, Err: ErrChannels}
	}
	return nil
}

var defaultTrig = special.NewTrigTable(special.DefaultTableSize)

// fastExpFloor is where the fast exponential stops being meaningful in
// float32; anything below is treated as full decay.
const fastExpFloor = -80

// Engine evolves and evaluates the modal amplitudes of one geometry.
type Engine[T vec.Float] struct {
	geom Geometry[T]
	amps Amplitudes[T]

	time            T
	deltaT          T
	velocitySquared complex128

	// per-mode rotation factor for deltaT
	rotRe []T
	rotIm []T

	fast bool
	trig *special.TrigTable
}

// NewEngine creates an engine with all amplitudes at zero.
func NewEngine[T vec.Float](g Geometry[T], cfg Config) (*Engine[T], error) {
	if g == nil {
		return nil, ErrGeometry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := g.Modes()
	if n < 1 {
		return nil, &ConfigError{Field: "Modes", Value: n, Err: ErrModeCount}
	}

	e := &Engine[T]{
		geom:            g,
		amps:            newAmplitudes[T](n),
		deltaT:          T(1 / cfg.SampleRate),
		velocitySquared: cfg.VelocitySquared,
		rotRe:           make([]T, n),
		rotIm:           make([]T, n),
		fast:            cfg.FastRotation,
		trig:            cfg.Trig,
	}
	if e.trig == nil {
		e.trig = defaultTrig
	}
	e.RefreshModes()
	return e, nil
}

// Geometry returns the body the engine simulates.
func (e *Engine[T]) Geometry() Geometry[T] { return e.geom }

// Modes returns the number of simulated modes.
func (e *Engine[T]) Modes() int { return e.amps.Len() }

// Amplitudes exposes the modal state.
func (e *Engine[T]) Amplitudes() *Amplitudes[T] { return &e.amps }

// Amplitude returns the complex amplitude of mode i.
func (e *Engine[T]) Amplitude(i int) complex128 { return e.amps.Complex(i) }

// Time returns the accumulated simulation time in seconds.
func (e *Engine[T]) Time() T { return e.time }

// DeltaT returns the configured time step.
func (e *Engine[T]) DeltaT() T { return e.deltaT }

// VelocitySquared returns the current velocity coupling.
func (e *Engine[T]) VelocitySquared() complex128 { return e.velocitySquared }

// SetTimeInterval sets the default step used by Next and friends.
func (e *Engine[T]) SetTimeInterval(dt T) {
	e.deltaT = dt
	e.RefreshModes()
}

// SetSampleRate sets the default step to 1/rate.
func (e *Engine[T]) SetSampleRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return &ConfigError{Field: "SampleRate", Value: rate, Err: ErrSampleRate}
	}
	e.SetTimeInterval(T(1 / rate))
	return nil
}

// SetVelocitySquared changes the velocity coupling. Amplitudes are kept.
func (e *Engine[T]) SetVelocitySquared(v complex128) {
	e.velocitySquared = v
	e.RefreshModes()
}

// RefreshModes recomputes the cached rotation factors. Geometries call
// this through their owner after their eigenvalues change.
func (e *Engine[T]) RefreshModes() {
	for i := range e.rotRe {
		e.rotRe[i], e.rotIm[i] = e.rotation(e.geom.EigenvalueSqrt(i), e.deltaT)
	}
}

func (e *Engine[T]) rotation(lambda, dt T) (re, im T) {
	w := 1i * e.velocitySquared * complex(float64(lambda)*float64(dt), 0)
	if !e.fast {
		z := cmplx.Exp(w)
		return T(real(z)), T(imag(z))
	}

	// Interpolated table values lie on a chord of the unit circle, so the
	// direction is renormalised; only fastMagnitude may shrink the factor.
	s, c := e.trig.SinCos(imag(w))
	scale := fastMagnitude(real(w)) / math.Hypot(s, c)
	return T(scale * c), T(scale * s)
}

// fastMagnitude approximates exp(x). A zero exponent is exactly 1 and a
// negative one never exceeds 1.
func fastMagnitude(x float64) float64 {
	switch {
	case x == 0:
		return 1
	case x < fastExpFloor:
		return 0
	case x < 0:
		return min(float64(approx.FastExp(float32(x))), 1)
	default:
		return float64(approx.FastExp(float32(x)))
	}
}

// Evolve advances every mode by dt. The cached factors are used when dt
// equals the configured step; any other dt computes factors on the fly.
func (e *Engine[T]) Evolve(dt T) {
	e.time += dt
	re, im := e.amps.re, e.amps.im
	if dt == e.deltaT {
		for i := range re {
			re[i], im[i] = rotate(re[i], im[i], e.rotRe[i], e.rotIm[i])
		}
		return
	}
	for i := range re {
		fr, fi := e.rotation(e.geom.EigenvalueSqrt(i), dt)
		re[i], im[i] = rotate(re[i], im[i], fr, fi)
	}
}

func rotate[T vec.Float](re, im, fr, fi T) (T, T) {
	nr := re*fr - im*fi
	ni := re*fi + im*fr
	return T(dspcore.FlushDenormals(float64(nr))), T(dspcore.FlushDenormals(float64(ni)))
}

// Evaluate returns the displacement at x: Re(Σ a_i φ_i(x)).
func (e *Engine[T]) Evaluate(x vec.Vector[T]) T {
	var sum T
	for i, re := range e.amps.re {
		if re == 0 {
			continue
		}
		sum += re * e.geom.EigenFunction(i, x)
	}
	return sum
}

// PinchDelta adds an impulse of the given amount at x to every mode.
func (e *Engine[T]) PinchDelta(x vec.Vector[T], amount T) {
	for i := range e.amps.re {
		e.amps.re[i] += e.geom.EigenFunction(i, x) * amount
	}
}

// Pinch adds values[i] to mode i.
func (e *Engine[T]) Pinch(values []complex128) error {
	if len(values) != e.amps.Len() {
		return &ConfigError{Field: "values", Value: len(values), Err: ErrPinchSize}
	}
	for i, v := range values {
		e.amps.re[i] += T(real(v))
		e.amps.im[i] += T(imag(v))
	}
	return nil
}

// Silence zeroes every amplitude. Time is kept.
func (e *Engine[T]) Silence() { e.amps.Zero() }

// ResetTime sets the simulation time back to zero.
func (e *Engine[T]) ResetTime() { e.time = 0 }

// Reset silences the engine and resets its time.
func (e *Engine[T]) Reset() {
	e.Silence()
	e.ResetTime()
}

// Next advances by the configured step and evaluates at xOut.
func (e *Engine[T]) Next(xOut vec.Vector[T]) T {
	e.Evolve(e.deltaT)
	return e.Evaluate(xOut)
}

// NextWithInput injects amount at xIn, then behaves like Next.
func (e *Engine[T]) NextWithInput(xOut, xIn vec.Vector[T], amount T) T {
	e.PinchDelta(xIn, amount)
	return e.Next(xOut)
}

// NextMulti advances once and writes one value per position into dst.
// dst must hold at least len(xOuts) values.
func (e *Engine[T]) NextMulti(dst []T, xOuts []vec.Vector[T]) {
	dst = dst[:len(xOuts)]
	e.Evolve(e.deltaT)
	for c, x := range xOuts {
		dst[c] = e.Evaluate(x)
	}
}

// NextMultiWithInput injects amount at xIn, then behaves like NextMulti.
func (e *Engine[T]) NextMultiWithInput(dst []T, xOuts []vec.Vector[T], xIn vec.Vector[T], amount T) {
	e.PinchDelta(xIn, amount)
	e.NextMulti(dst, xOuts)
}

// Energy returns Σ|a_i|², a convenience for decay monitoring.
func (e *Engine[T]) Energy() float64 {
	var sum float64
	for i, re := range e.amps.re {
		im := e.amps.im[i]
		sum += float64(re)*float64(re) + float64(im)*float64(im)
	}
	return sum
}
