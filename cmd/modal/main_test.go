package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-modal/preset"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("modal %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

const singleModePreset = `
geometry: string
modes: 1
strike: [0.5]
listeners: [[0.5]]
decay_seconds: 2
`

func TestRenderThenAnalyze(t *testing.T) {
	presetPath := writePreset(t, singleModePreset)
	wavPath := filepath.Join(t.TempDir(), "out", "note.wav")
	runCmd(t, "render", "--preset", presetPath, "--hz", "440", "--duration", "0.2", "--output", wavPath)

	got := runCmd(t, "analyze", wavPath, "--json")
	var rep struct {
		SampleRate int     `json:"sample_rate"`
		Frames     int     `json:"frames"`
		PeakHz     float64 `json:"peak_hz"`
	}
	if err := json.Unmarshal([]byte(got), &rep); err != nil {
		t.Fatalf("decode analyze output: %v\n%s", err, got)
	}
	if rep.SampleRate != 48000 || rep.Frames != 9600 {
		t.Fatalf("unexpected file: %+v", rep)
	}
	if math.Abs(rep.PeakHz-440) > 3 {
		t.Fatalf("PeakHz = %v, want ~440", rep.PeakHz)
	}
}

func TestRenderOutputRate(t *testing.T) {
	presetPath := writePreset(t, singleModePreset)
	wavPath := filepath.Join(t.TempDir(), "note.wav")
	runCmd(t, "render", "--preset", presetPath, "--duration", "0.1", "--output-rate", "24000", "--output", wavPath)

	got := runCmd(t, "analyze", wavPath)
	if !strings.Contains(got, "Sample rate: 24000 Hz") {
		t.Fatalf("expected resampled output, got:\n%s", got)
	}
}

func TestModesCommandListsString(t *testing.T) {
	got := runCmd(t, "modes", "--count", "3", "--hz", "100")
	for _, want := range []string{"n=1", "n=3", "100.000", "300.000"} {
		if !strings.Contains(got, want) {
			t.Fatalf("modes output missing %q:\n%s", want, got)
		}
	}
}

func TestModeTableSphere(t *testing.T) {
	s := preset.NewDefaultSettings()
	s.Geometry = preset.GeometrySphere
	s.Modes = 9
	s.Strike = []float64{1, 0.1, 0}
	s.Listeners = [][]float64{{1, 0.2, 0.3}}
	s.Render.Hz = 200
	rows, err := modeTable(s, 0)
	if err != nil {
		t.Fatalf("modeTable: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0].Hz != 0 || rows[0].Label != "l=0 m=0" {
		t.Fatalf("mode 0 = %+v", rows[0])
	}
	// l=1 has the lowest positive eigenvalue and carries the pitch.
	if math.Abs(rows[1].Hz-200) > 1e-3 || math.Abs(rows[3].Hz-200) > 1e-3 {
		t.Fatalf("l=1 modes = %+v %+v", rows[1], rows[3])
	}
	if want := 200.0 * 6 / 2; math.Abs(rows[4].Hz-want) > 1e-2 {
		t.Fatalf("l=2 mode Hz = %v, want %v", rows[4].Hz, want)
	}
}

func TestPlotCommand(t *testing.T) {
	presetPath := writePreset(t, singleModePreset)
	got := runCmd(t, "plot", "--preset", presetPath, "--duration", "0.5", "--width", "40")
	if !strings.Contains(got, "RMS level") {
		t.Fatalf("plot output missing caption:\n%s", got)
	}
}

func TestFromNormalizedClampsAndScales(t *testing.T) {
	defs := []knobDef{
		{Name: "a", Min: 10, Max: 20},
		{Name: "b", Min: -1, Max: 1},
		{Name: "c", Min: 0, Max: 10, IsInt: true},
	}
	c := fromNormalized([]float64{0.5, 2, 0.26}, defs)
	want := []float64{15, 1, 3}
	for i := range want {
		if c.Vals[i] != want[i] {
			t.Fatalf("Vals[%d] = %v, want %v", i, c.Vals[i], want[i])
		}
	}
	short := fromNormalized(nil, defs)
	if short.Vals[0] != 10 || short.Vals[1] != -1 {
		t.Fatalf("missing positions should map to Min: %v", short.Vals)
	}
}

func TestFitKnobNames(t *testing.T) {
	s := preset.NewDefaultSettings()
	names := func(defs []knobDef) string {
		parts := make([]string, len(defs))
		for i, d := range defs {
			parts[i] = d.Name
		}
		return strings.Join(parts, ",")
	}
	if got := names(fitKnobs(s)); got != "hz,decay_seconds,strike_0,listener_0" {
		t.Fatalf("string knobs = %s", got)
	}
	s.Geometry = preset.GeometrySphere
	if got := names(fitKnobs(s)); got != "hz,decay_seconds,strike_polar,strike_azimuth,listener_polar,listener_azimuth" {
		t.Fatalf("sphere knobs = %s", got)
	}
}

func TestApplyCandidateRoundTrip(t *testing.T) {
	s := preset.NewDefaultSettings()
	s.PerNote = map[int]*preset.NoteParams{60: {DecaySeconds: 1.5, Strike: []float64{0.3}}}
	defs := fitKnobs(s)
	first := initialCandidate(s, defs)
	if first.Vals[1] != 1.5 || first.Vals[2] != 0.3 || first.Vals[3] != 0.73 {
		t.Fatalf("initial candidate = %v", first.Vals)
	}

	c := candidate{Vals: append([]float64(nil), first.Vals...)}
	c.Vals[0] = 250
	c.Vals[2] = 0.4
	c.Vals[3] = 0.6
	got := applyCandidate(s, defs, c)
	r := got.RenderSettings()
	if r.Frequency() != 250 || r.DecaySeconds != 1.5 {
		t.Fatalf("render settings = %+v", r)
	}
	if got.Strike[0] != 0.4 || got.Listeners[0][0] != 0.6 {
		t.Fatalf("positions = %v %v", got.Strike, got.Listeners)
	}
	if s.Strike[0] != 0.13 || s.Listeners[0][0] != 0.73 {
		t.Fatalf("base settings modified: %v %v", s.Strike, s.Listeners)
	}
}

func TestRunFitImproves(t *testing.T) {
	target := preset.NewDefaultSettings()
	target.Modes = 8
	target.Render.Hz = 330
	target.Render.Duration = 0.25
	res, err := renderPreset(target)
	if err != nil {
		t.Fatalf("render target: %v", err)
	}

	base := target.Clone()
	base.Render.Hz = 318
	base.Render.DecaySeconds = 0.6
	cfg := &fitConfig{
		base:        base,
		reference:   res.Channel(0),
		defs:        fitKnobs(base),
		seed:        3,
		maxEvals:    40,
		timeBudget:  60,
		reportEvery: 0,
		variant:     "ma",
		pop:         4,
		roundEvals:  40,
	}
	start, _, err := evaluateCandidate(cfg, initialCandidate(base, cfg.defs))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	fit, err := runFit(cfg, io.Discard)
	if err != nil {
		t.Fatalf("runFit: %v", err)
	}
	if fit.evals > cfg.maxEvals {
		t.Fatalf("evals = %d, want <= %d", fit.evals, cfg.maxEvals)
	}
	if fit.bestMetrics.Score > start.Score {
		t.Fatalf("best score %v worse than start %v", fit.bestMetrics.Score, start.Score)
	}
	if fit.bestPreset == nil || fit.bestPreset.Render.Hz < 318/semitone || fit.bestPreset.Render.Hz > 318*semitone {
		t.Fatalf("fitted preset out of knob range: %+v", fit.bestPreset)
	}
}

func TestNewMayflyConfigRejectsUnknownVariant(t *testing.T) {
	if _, err := newMayflyConfig("bogus", 4, 2, 1); err == nil {
		t.Fatalf("expected error")
	}
	cfg, err := newMayflyConfig("desma", 10, 3, 5)
	if err != nil {
		t.Fatalf("newMayflyConfig: %v", err)
	}
	if cfg.ProblemSize != 3 || cfg.NC != 20 || cfg.NM != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
