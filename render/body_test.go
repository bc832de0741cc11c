package render

import (
	"math"
	"testing"
)

func directConvolve(x []float32, h []float32) []float32 {
	out := make([]float32, len(x)+len(h)-1)
	for i, xv := range x {
		for j, hv := range h {
			out[i+j] += xv * hv
		}
	}
	return out
}

func maxAbsDiff(a []float32, b []float32) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(float64(a[i]-b[i])))
	}
	return d
}

func TestBodyMatchesDirectConvolution(t *testing.T) {
	ir := []float32{1.0, 0.3, -0.2, 0.1, 0.05}
	b, err := NewBody(ir, 1)
	if err != nil {
		t.Fatalf("NewBody: %v", err)
	}

	// 300 frames is not a multiple of the partition size.
	left := make([]float32, 300)
	right := make([]float32, 300)
	stereo := make([]float32, 600)
	for i := range left {
		left[i] = float32(math.Sin(float64(i)*0.07)) * 0.8
		right[i] = float32(math.Cos(float64(i)*0.11)) * 0.5
		stereo[2*i] = left[i]
		stereo[2*i+1] = right[i]
	}
	if err := b.Process(stereo, 2); err != nil {
		t.Fatalf("Process: %v", err)
	}

	outL := make([]float32, len(left))
	outR := make([]float32, len(right))
	for i := range outL {
		outL[i] = stereo[2*i]
		outR[i] = stereo[2*i+1]
	}
	if d := maxAbsDiff(outL, directConvolve(left, ir)[:len(left)]); d > 1e-4 {
		t.Fatalf("left channel mismatch: max diff=%g", d)
	}
	if d := maxAbsDiff(outR, directConvolve(right, ir)[:len(right)]); d > 1e-4 {
		t.Fatalf("right channel mismatch: max diff=%g", d)
	}
}

func TestBodyProcessStartsSilent(t *testing.T) {
	b, err := NewBody([]float32{1, 0.5, 0.25}, 1)
	if err != nil {
		t.Fatal(err)
	}
	first := make([]float32, 128)
	first[127] = 1
	if err := b.Process(first, 1); err != nil {
		t.Fatal(err)
	}
	second := make([]float32, 128)
	if err := b.Process(second, 1); err != nil {
		t.Fatal(err)
	}
	for i, v := range second {
		if math.Abs(float64(v)) > 1e-7 {
			t.Fatalf("tail leaked into next buffer at %d: %g", i, v)
		}
	}
}

func TestBodyMix(t *testing.T) {
	b, err := NewBody([]float32{0, 1}, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	x := []float32{1, 0, 0, 0}
	if err := b.Process(x, 1); err != nil {
		t.Fatal(err)
	}
	want := []float32{0.75, 0.25, 0, 0}
	if d := maxAbsDiff(x, want); d > 1e-5 {
		t.Fatalf("mixed output = %v, want %v", x, want)
	}
}

func TestNewBodyErrors(t *testing.T) {
	if _, err := NewBody(nil, 1); err == nil {
		t.Fatalf("expected error for empty response")
	}
	if _, err := NewBody([]float32{1}, 1.5); err == nil {
		t.Fatalf("expected error for mix > 1")
	}
	b, _ := NewBody([]float32{1}, 1)
	if err := b.Process(make([]float32, 3), 2); err == nil {
		t.Fatalf("expected error for ragged buffer")
	}
}

func TestRenderWithBody(t *testing.T) {
	set := DefaultSettings()
	set.Duration = 0.05

	dry, err := Render(newStringListener(t, 4), set)
	if err != nil {
		t.Fatal(err)
	}
	// A pure delay of three samples.
	b, err := NewBody([]float32{0, 0, 0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	wet, err := RenderWithBody(newStringListener(t, 4), set, b)
	if err != nil {
		t.Fatal(err)
	}
	if wet.Frames != dry.Frames {
		t.Fatalf("frames = %d, want %d", wet.Frames, dry.Frames)
	}
	for i := 3; i < dry.Frames; i++ {
		if math.Abs(float64(wet.Samples[i]-dry.Samples[i-3])) > 1e-5 {
			t.Fatalf("sample %d = %v, want %v", i, wet.Samples[i], dry.Samples[i-3])
		}
	}
}
