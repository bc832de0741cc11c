package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.Similarity < 0.85 {
		t.Fatalf("expected high similarity for identical signals, got %f", m.Similarity)
	}
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different signals, got %f", m.Score)
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestCompareDetectsDecayDifference(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 220.0, 2.0, 0.2)
	b := makeDecaySine(sr, 220.0, 2.0, 0.8)
	m := Compare(a, b, sr)
	if !isFinite(m.RefDecayDBPerS) || !isFinite(m.CandDecayDBPerS) {
		t.Fatalf("decay slopes not measured: %+v", m)
	}
	if m.DecayDiffDBPerS < 10 {
		t.Fatalf("expected clear decay difference, got %f dB/s", m.DecayDiffDBPerS)
	}
}

func TestCompareEmptyInput(t *testing.T) {
	m := Compare(nil, []float64{1, 2, 3}, 48000)
	if m.Score != 1 || m.Similarity != 0 {
		t.Fatalf("empty reference must score worst, got %+v", m)
	}
}

func TestDecaySlopeDBPerS(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 2.0, 0.5)
	env := RMSEnvelope(x, envelopeFrame, envelopeHop)
	got := DecaySlopeDBPerS(env, float64(envelopeHop)/float64(sr))
	want := -20 / (0.5 * math.Ln10)
	if math.Abs(got-want) > 1 {
		t.Fatalf("DecaySlopeDBPerS = %f, want %f", got, want)
	}
	if !math.IsNaN(DecaySlopeDBPerS(env[:4], 0.01)) {
		t.Fatalf("short envelope must yield NaN")
	}
}

func TestRMSEnvelope(t *testing.T) {
	x := make([]float64, 1024)
	for i := range x {
		x[i] = 0.5
	}
	env := RMSEnvelope(x, 256, 128)
	if len(env) != 7 {
		t.Fatalf("len(env) = %d, want 7", len(env))
	}
	for i, v := range env {
		if math.Abs(v-0.5) > 1e-12 {
			t.Fatalf("env[%d] = %v", i, v)
		}
	}
	if RMSEnvelope(x[:100], 256, 128) != nil {
		t.Fatalf("signal shorter than a frame must yield nil")
	}
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		env := math.Exp(-t / decaySec)
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestCompareWeighted(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 220.0, 1.0, 0.3)
	b := makeDecaySine(sr, 220.0, 1.0, 0.9)

	decayOnly := CompareWeighted(a, b, sr, Weights{Decay: 1})
	want := clamp01(decayOnly.DecayDiffDBPerS / decayScaleDBPerS)
	if math.Abs(decayOnly.Score-want) > 1e-12 {
		t.Fatalf("decay-only score = %f, want %f", decayOnly.Score, want)
	}
	if m := CompareWeighted(a, b, sr, Weights{}); m.Score != 1 {
		t.Fatalf("zero weights must score worst, got %f", m.Score)
	}

	// Doubling every weight leaves the score unchanged.
	w := DefaultWeights()
	scaled := Weights{Time: 2 * w.Time, Envelope: 2 * w.Envelope, Spectrum: 2 * w.Spectrum, Decay: 2 * w.Decay}
	if d := math.Abs(CompareWeighted(a, b, sr, scaled).Score - Compare(a, b, sr).Score); d > 1e-12 {
		t.Fatalf("score depends on weight scale: diff=%g", d)
	}
}

func TestEstimateLagIdentity(t *testing.T) {
	x := randomSignal(4096, 5)
	if got := estimateLag(x, x, 300); got != 0 {
		t.Fatalf("estimateLag(x, x) = %d, want 0", got)
	}
}
