// Package analysis measures rendered notes: spectra, pitch, decay and a
// distance between a candidate and a reference recording.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/mjibson/go-dsp/window"
)

// ErrTooShort is returned when a signal is shorter than the smallest
// analysis frame.
var ErrTooShort = errors.New("analysis: signal too short")

const (
	minFFTSize = 64
	maxFFTSize = 1 << 16
)

// Spectrum is the single-sided magnitude spectrum of a Hann windowed frame.
type Spectrum struct {
	BinHz      float64
	Magnitudes []float64
}

// ComputeSpectrum analyses the first power-of-two sized frame of x, at
// most 65536 samples long.
func ComputeSpectrum(x []float64, sampleRate int) (*Spectrum, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate must be > 0, got %d", sampleRate)
	}
	if len(x) < minFFTSize {
		return nil, ErrTooShort
	}
	n := minFFTSize
	for n*2 <= len(x) && n*2 <= maxFFTSize {
		n *= 2
	}
	mags, err := magnitudeSpectrum(x[:n])
	if err != nil {
		return nil, err
	}
	return &Spectrum{
		BinHz:      float64(sampleRate) / float64(n),
		Magnitudes: mags,
	}, nil
}

func magnitudeSpectrum(x []float64) ([]float64, error) {
	n := len(x)
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("analysis: fft plan: %w", err)
	}
	buf := append([]float64(nil), x...)
	window.Apply(buf, window.Hann)

	in := make([]complex128, n)
	for i, v := range buf {
		in[i] = complex(v, 0)
	}
	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("analysis: fft: %w", err)
	}
	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = cmplx.Abs(out[k])
	}
	return mags, nil
}

// Peak returns the frequency of the strongest bin above DC, refined by
// parabolic interpolation on the dB magnitudes.
func (s *Spectrum) Peak() float64 {
	m := s.Magnitudes
	if len(m) < 3 {
		return 0
	}
	k := 1
	for i := 2; i < len(m)-1; i++ {
		if m[i] > m[k] {
			k = i
		}
	}
	if k+1 >= len(m) {
		return float64(k) * s.BinHz
	}
	a, b, c := linToDB(m[k-1]), linToDB(m[k]), linToDB(m[k+1])
	delta := 0.0
	if den := a - 2*b + c; den != 0 {
		delta = 0.5 * (a - c) / den
	}
	return (float64(k) + delta) * s.BinHz
}

// PeakFrequency estimates the dominant frequency of x in Hz.
func PeakFrequency(x []float64, sampleRate int) (float64, error) {
	s, err := ComputeSpectrum(x, sampleRate)
	if err != nil {
		return 0, err
	}
	return s.Peak(), nil
}

// Report summarises a single note.
type Report struct {
	SampleRate  int     `json:"sample_rate"`
	Frames      int     `json:"frames"`
	PeakHz      float64 `json:"peak_hz"`
	PeakDBFS    float64 `json:"peak_dbfs"`
	DecayDBPerS float64 `json:"decay_db_per_s"`
	// T60 is derived from the decay slope; NaN when no decay was found.
	T60 float64 `json:"t60"`
}

// Analyze measures pitch, level and decay of x.
func Analyze(x []float64, sampleRate int) (Report, error) {
	r := Report{SampleRate: sampleRate, Frames: len(x)}
	hz, err := PeakFrequency(x, sampleRate)
	if err != nil {
		return r, err
	}
	r.PeakHz = hz

	var peak float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	r.PeakDBFS = linToDB(peak)

	env := RMSEnvelope(x, envelopeFrame, envelopeHop)
	r.DecayDBPerS = DecaySlopeDBPerS(env, float64(envelopeHop)/float64(sampleRate))
	r.T60 = math.NaN()
	if isFinite(r.DecayDBPerS) && r.DecayDBPerS < 0 {
		r.T60 = -60 / r.DecayDBPerS
	}
	return r, nil
}
