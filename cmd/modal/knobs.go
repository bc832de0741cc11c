package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-modal/preset"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

// fitKnobs returns the searchable parameters for s: the fundamental within
// a semitone, the decay time, the strike position and the first listener.
func fitKnobs(s *preset.Settings) []knobDef {
	r := s.RenderSettings()
	hz := r.Frequency()
	decay := r.DecaySeconds
	if decay <= 0 {
		decay = 1
	}
	defs := []knobDef{
		{Name: "hz", Min: hz / semitone, Max: hz * semitone},
		{Name: "decay_seconds", Min: math.Max(0.05, decay/4), Max: decay * 4},
	}
	defs = append(defs, positionKnobs("strike", s)...)
	defs = append(defs, positionKnobs("listener", s)...)
	return defs
}

var semitone = math.Pow(2, 1.0/12.0)

func positionKnobs(prefix string, s *preset.Settings) []knobDef {
	if s.Geometry == preset.GeometrySphere {
		// Radius stays fixed; angles are in turns.
		return []knobDef{
			{Name: prefix + "_polar", Min: 0.01, Max: 0.49},
			{Name: prefix + "_azimuth", Min: 0, Max: 1},
		}
	}
	d := s.Dim()
	defs := make([]knobDef, d)
	for i := range defs {
		defs[i] = knobDef{Name: fmt.Sprintf("%s_%d", prefix, i), Min: 0.02, Max: 0.98}
	}
	return defs
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

// initialCandidate reads the current knob values out of s.
func initialCandidate(s *preset.Settings, defs []knobDef) candidate {
	r := s.RenderSettings()
	vals := make([]float64, len(defs))
	strike := s.Strike
	if np := s.PerNote[r.Note]; np != nil && np.Strike != nil && s.Render.Hz == 0 {
		strike = np.Strike
	}
	for i, d := range defs {
		var v float64
		switch d.Name {
		case "hz":
			v = r.Frequency()
		case "decay_seconds":
			v = r.DecaySeconds
		default:
			v = positionValue(d.Name, s, strike)
		}
		vals[i] = clamp(v, d.Min, d.Max)
	}
	return candidate{Vals: vals}
}

// positionSlot resolves a position knob name to the coordinate slice and
// index it controls.
func positionSlot(name string, strike []float64, listener []float64) ([]float64, int) {
	p := strike
	rest, ok := strings.CutPrefix(name, "listener_")
	if ok {
		p = listener
	} else {
		rest = strings.TrimPrefix(name, "strike_")
	}
	switch rest {
	case "polar":
		return p, 1
	case "azimuth":
		return p, 2
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 || i >= len(p) {
		return nil, -1
	}
	return p, i
}

func positionValue(name string, s *preset.Settings, strike []float64) float64 {
	p, i := positionSlot(name, strike, s.Listeners[0])
	if i < 0 {
		return 0
	}
	return p[i]
}

// applyCandidate returns a copy of base with the candidate's values set. The
// fitted pitch and decay are written as explicit global values so that no
// per-note override shadows them.
func applyCandidate(base *preset.Settings, defs []knobDef, c candidate) *preset.Settings {
	s := base.Clone()
	r := base.RenderSettings()
	s.Render.Hz = r.Frequency()
	s.Render.DecaySeconds = r.DecaySeconds
	s.Render.Gain = r.Gain
	if np := base.PerNote[base.Render.Note]; np != nil && np.Strike != nil && base.Render.Hz == 0 {
		s.Strike = append([]float64(nil), np.Strike...)
	}
	for i, d := range defs {
		v := c.Vals[i]
		switch d.Name {
		case "hz":
			s.Render.Hz = v
		case "decay_seconds":
			s.Render.DecaySeconds = v
		default:
			setPosition(d.Name, s, v)
		}
	}
	return s
}

func setPosition(name string, s *preset.Settings, v float64) {
	if p, i := positionSlot(name, s.Strike, s.Listeners[0]); i >= 0 {
		p[i] = v
	}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	m := make(map[string]float64, len(defs))
	for i, d := range defs {
		m[d.Name] = c.Vals[i]
	}
	return m
}
