// Package preset describes a modal instrument and a note to play on it,
// loaded from JSON or YAML files.
package preset

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-modal/internal/audiofile"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/render"
	"github.com/cwbudde/algo-modal/vec"
)

// Geometry names accepted in preset files.
const (
	GeometryString = "string"
	GeometrySphere = "sphere"
	GeometryCube   = "cube"
)

// Settings is a fully resolved preset.
//
// Sphere positions are (radius, polar turns, azimuth turns); the angles are
// fractions of a full turn and are scaled by 2π when the listener is built.
type Settings struct {
	Geometry     string
	Modes        int
	Length       float64
	Dimension    int
	MaxDimension int
	SampleRate   int
	FastRotation bool

	Strike    []float64
	Listeners [][]float64

	Render render.Settings
	// PerNote holds overrides keyed by MIDI note.
	PerNote map[int]*NoteParams

	ReferenceWAV string
	// BodyIR is an optional impulse response WAV the output is convolved
	// with; BodyMix blends it with the dry signal.
	BodyIR  string
	BodyMix float64
}

// NoteParams overrides the sound of one note.
type NoteParams struct {
	Hz           float64
	DecaySeconds float64
	Gain         float64
	Strike       []float64
}

// NewDefaultSettings returns a 64 mode string struck near one end.
func NewDefaultSettings() *Settings {
	r := render.DefaultSettings()
	r.Note = 60
	return &Settings{
		Geometry:     GeometryString,
		Modes:        64,
		Length:       1,
		Dimension:    3,
		MaxDimension: 3,
		SampleRate:   48000,
		Strike:       []float64{0.13},
		Listeners:    [][]float64{{0.73}},
		Render:       r,
		BodyMix:      1,
	}
}

// Dim returns the position dimension of the configured geometry.
func (s *Settings) Dim() int {
	switch s.Geometry {
	case GeometrySphere:
		return 3
	case GeometryCube:
		return s.Dimension
	default:
		return 1
	}
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	switch s.Geometry {
	case GeometryString, GeometrySphere, GeometryCube:
	default:
		return fmt.Errorf("geometry must be one of string, sphere, cube, got %q", s.Geometry)
	}
	if s.Modes < 1 {
		return fmt.Errorf("modes must be >= 1")
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be > 0")
	}
	if s.Geometry == GeometryString && !(s.Length > 0) {
		return fmt.Errorf("length must be > 0")
	}
	if s.Geometry == GeometryCube {
		if s.MaxDimension < 1 || s.MaxDimension > vec.MaxDim {
			return fmt.Errorf("max_dimension must be in [1,%d]", vec.MaxDim)
		}
		if s.Dimension < 1 || s.Dimension > s.MaxDimension {
			return fmt.Errorf("dimension must be in [1,%d]", s.MaxDimension)
		}
	}
	if len(s.Listeners) == 0 {
		return fmt.Errorf("listeners must not be empty")
	}
	d := s.Dim()
	if len(s.Strike) != d {
		return fmt.Errorf("strike must have %d coordinates, got %d", d, len(s.Strike))
	}
	for i, p := range s.Listeners {
		if len(p) != d {
			return fmt.Errorf("listeners[%d] must have %d coordinates, got %d", i, d, len(p))
		}
	}
	if s.BodyMix < 0 || s.BodyMix > 1 {
		return fmt.Errorf("body_mix must be in [0,1]")
	}
	for note, np := range s.PerNote {
		if np != nil && np.Strike != nil && len(np.Strike) != d {
			return fmt.Errorf("per_note[%d].strike must have %d coordinates", note, d)
		}
	}
	return s.Render.Validate()
}

// NewGeometry builds the configured body.
func (s *Settings) NewGeometry() (modal.Geometry[float32], error) {
	switch s.Geometry {
	case GeometrySphere:
		return modal.NewSphere[float32](s.Modes)
	case GeometryCube:
		return modal.NewCube[float32](s.Modes, s.MaxDimension, s.Dimension)
	default:
		return modal.NewString[float32](s.Modes, float32(s.Length))
	}
}

// Position converts preset coordinates into a geometry position.
func (s *Settings) Position(p []float64) (vec.Vector[float32], error) {
	q := append([]float64(nil), p...)
	if s.Geometry == GeometrySphere && len(q) == 3 {
		q[1] *= 2 * math.Pi
		q[2] *= 2 * math.Pi
	}
	return vec.FromSlice[float32](q)
}

// NewListener builds the geometry and a listener with the preset's
// positions.
func (s *Settings) NewListener() (*modal.Listener[float32], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	g, err := s.NewGeometry()
	if err != nil {
		return nil, err
	}
	cfg := modal.DefaultConfig()
	cfg.SampleRate = float64(s.SampleRate)
	cfg.Channels = len(s.Listeners)
	cfg.FastRotation = s.FastRotation
	l, err := modal.NewListener(g, cfg)
	if err != nil {
		return nil, err
	}

	positions := make([]vec.Vector[float32], len(s.Listeners))
	for i, p := range s.Listeners {
		if positions[i], err = s.Position(p); err != nil {
			return nil, fmt.Errorf("listeners[%d]: %w", i, err)
		}
	}
	if err := l.SetListeningPositions(positions); err != nil {
		return nil, err
	}
	strike := s.Strike
	if np := s.PerNote[s.Render.Note]; np != nil && np.Strike != nil && s.Render.Hz == 0 {
		strike = np.Strike
	}
	pos, err := s.Position(strike)
	if err != nil {
		return nil, fmt.Errorf("strike: %w", err)
	}
	if err := l.SetStrikingPosition(pos); err != nil {
		return nil, err
	}
	return l, nil
}

// NewBody loads the body impulse response at the preset sample rate. It
// returns nil when no response is configured.
func (s *Settings) NewBody() (*render.Body, error) {
	if s.BodyIR == "" {
		return nil, nil
	}
	ir, rate, err := audiofile.ReadMono(s.BodyIR)
	if err != nil {
		return nil, fmt.Errorf("body_ir: %w", err)
	}
	x, err := audiofile.Float32(ir, rate, s.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("body_ir: %w", err)
	}
	return render.NewBody(x, s.BodyMix)
}

// RenderNote builds the listener and body and renders the configured note.
func (s *Settings) RenderNote() (*render.Result, error) {
	l, err := s.NewListener()
	if err != nil {
		return nil, err
	}
	body, err := s.NewBody()
	if err != nil {
		return nil, err
	}
	return render.RenderWithBody(l, s.RenderSettings(), body)
}

// RenderSettings returns the note settings with per-note overrides applied.
func (s *Settings) RenderSettings() render.Settings {
	r := s.Render
	if r.Hz > 0 {
		return r
	}
	if np := s.PerNote[r.Note]; np != nil {
		if np.Hz > 0 {
			r.Hz = np.Hz
		}
		if np.DecaySeconds > 0 {
			r.DecaySeconds = np.DecaySeconds
		}
		if np.Gain > 0 {
			r.Gain = np.Gain
		}
	}
	return r
}

func normalizeGeometry(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Clone returns a deep copy of s.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Strike = append([]float64(nil), s.Strike...)
	c.Listeners = make([][]float64, len(s.Listeners))
	for i, p := range s.Listeners {
		c.Listeners[i] = append([]float64(nil), p...)
	}
	if s.PerNote != nil {
		c.PerNote = make(map[int]*NoteParams, len(s.PerNote))
		for note, np := range s.PerNote {
			if np == nil {
				continue
			}
			cp := *np
			cp.Strike = append([]float64(nil), np.Strike...)
			if np.Strike == nil {
				cp.Strike = nil
			}
			c.PerNote[note] = &cp
		}
	}
	return &c
}
