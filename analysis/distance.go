package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	envelopeFrame = 256
	envelopeHop   = 128
	// longest aligned span that is compared, in seconds
	maxCompareSeconds = 12

	onsetThreshold = 1e-6
	targetRMS      = 0.1
	minAligned     = 256
)

// Sub-distances saturate at these values before they are weighted.
const (
	timeScale        = 0.25
	envelopeScaleDB  = 30.0
	spectrumScaleDB  = 30.0
	decayScaleDBPerS = 40.0
)

// Metrics contains distance and similarity measurements between a rendered
// note and a reference recording.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE        float64 `json:"time_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Weights sets how much each sub-distance contributes to Metrics.Score.
type Weights struct {
	Time     float64
	Envelope float64
	Spectrum float64
	Decay    float64
}

// DefaultWeights favours waveform and spectrum over envelope and decay.
func DefaultWeights() Weights {
	return Weights{Time: 0.30, Envelope: 0.25, Spectrum: 0.30, Decay: 0.15}
}

// score combines the normalised sub-distances into [0,1].
func (w Weights) score(m *Metrics) float64 {
	total := w.Time + w.Envelope + w.Spectrum + w.Decay
	if total <= 0 {
		return 1
	}
	s := w.Time*clamp01(m.TimeRMSE/timeScale) +
		w.Envelope*clamp01(m.EnvelopeRMSEDB/envelopeScaleDB) +
		w.Spectrum*clamp01(m.SpectralRMSEDB/spectrumScaleDB) +
		w.Decay*clamp01(m.DecayDiffDBPerS/decayScaleDBPerS)
	return clamp01(s / total)
}

// Compare scores candidate against reference with DefaultWeights.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	return CompareWeighted(reference, candidate, sampleRate, DefaultWeights())
}

// CompareWeighted aligns both signals on their onsets and levels, then
// measures waveform, envelope, spectral and decay distance. Score is 0 for
// identical signals and 1 for unusable input.
func CompareWeighted(reference []float64, candidate []float64, sampleRate int, w Weights) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}
	ref := normalizeRMS(trimLeadingSilence(reference, onsetThreshold), targetRMS)
	cand := normalizeRMS(trimLeadingSilence(candidate, onsetThreshold), targetRMS)
	if len(ref) == 0 || len(cand) == 0 {
		return m
	}

	maxLag := max(1, min(sampleRate/2, len(ref)-1, len(cand)-1))
	m.LagSamples = estimateLag(ref, cand, maxLag)
	ref, cand = alignByLag(ref, cand, m.LagSamples)
	n := min(len(ref), len(cand), sampleRate*maxCompareSeconds)
	if n < minAligned {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(ref, cand)
	refEnv := RMSEnvelope(ref, envelopeFrame, envelopeHop)
	candEnv := RMSEnvelope(cand, envelopeFrame, envelopeHop)
	m.EnvelopeRMSEDB = envelopeRMSEDB(refEnv, candEnv)
	m.SpectralRMSEDB = spectralRMSEDB(ref, cand)

	hopSec := float64(envelopeHop) / float64(sampleRate)
	m.RefDecayDBPerS = DecaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = DecaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	m.Score = w.score(&m)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

// normalizeRMS returns a scaled copy of x with the given RMS. Silent input
// is copied unchanged.
func normalizeRMS(x []float64, target float64) []float64 {
	out := append([]float64(nil), x...)
	r := rms(x)
	if r <= 1e-12 {
		return out
	}
	g := target / r
	for i := range out {
		out[i] *= g
	}
	return out
}

// estimateLag finds the shift within ±maxLag that maximises
// Σ ref[i+lag]·cand[i], via one FFT convolution of ref with cand reversed.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	a := make([]float32, len(ref))
	for i, v := range ref {
		a[i] = float32(v)
	}
	b := make([]float32, len(cand))
	for i, v := range cand {
		b[len(cand)-1-i] = float32(v)
	}
	corr := make([]float32, len(a)+len(b)-1)
	if err := algofft.ConvolveReal(corr, a, b); err != nil {
		return 0
	}

	// corr[k] holds the sum for lag k-(len(cand)-1).
	offset := len(cand) - 1
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		k := lag + offset
		if k < 0 || k >= len(corr) {
			continue
		}
		if v := float64(corr[k]); v > best {
			best = v
			bestLag = lag
		}
	}
	return bestLag
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	switch {
	case lag >= len(ref) || -lag >= len(cand):
		return nil, nil
	case lag >= 0:
		return ref[lag:], cand
	default:
		return ref, cand[-lag:]
	}
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RMSEnvelope returns the RMS of successive frames of x.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		out[i] = rms(x[i*hop : i*hop+frame])
	}
	return out
}

func envelopeRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		d := linToDB(a[i]) - linToDB(b[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// spectralRMSEDB compares the magnitude spectra of the first frame of both
// signals bin by bin.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 512 {
		return 0
	}
	size := 512
	for size*2 <= n && size < 4096 {
		size *= 2
	}
	ma, err := magnitudeSpectrum(a[:size])
	if err != nil {
		return 0
	}
	mb, err := magnitudeSpectrum(b[:size])
	if err != nil {
		return 0
	}
	return envelopeRMSEDB(ma[1:size/2], mb[1:size/2])
}

func linToDB(x float64) float64 {
	return 20.0 * math.Log10(math.Max(x, 1e-12))
}

// DecaySlopeDBPerS fits a line to the envelope in dB from its peak down to
// 60 dB below it. It returns NaN when the envelope is too short.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	db := make([]float64, len(env))
	peakIdx := 0
	for i, v := range env {
		db[i] = linToDB(v)
		if db[i] > db[peakIdx] {
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(db)-4 {
		return math.NaN()
	}
	end := len(db)
	for i := start; i < len(db); i++ {
		if db[i] < db[peakIdx]-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}
	return slope(db[start:end], hopSec)
}

// slope is the least squares gradient of y sampled every dx.
func slope(y []float64, dx float64) float64 {
	var sx, sy, sxx, sxy float64
	n := float64(len(y))
	for i, v := range y {
		x := float64(i) * dx
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
