package preset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk schema shared by JSON and YAML presets. Absent keys
// keep their defaults.
type File struct {
	Geometry     *string  `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Modes        *int     `json:"modes,omitempty" yaml:"modes,omitempty"`
	Length       *float64 `json:"length,omitempty" yaml:"length,omitempty"`
	Dimension    *int     `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	MaxDimension *int     `json:"max_dimension,omitempty" yaml:"max_dimension,omitempty"`
	SampleRate   *int     `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	FastRotation *bool    `json:"fast_rotation,omitempty" yaml:"fast_rotation,omitempty"`

	Strike    []float64   `json:"strike,omitempty" yaml:"strike,omitempty"`
	Listeners [][]float64 `json:"listeners,omitempty" yaml:"listeners,omitempty"`

	Note         *int     `json:"note,omitempty" yaml:"note,omitempty"`
	Hz           *float64 `json:"hz,omitempty" yaml:"hz,omitempty"`
	Velocity     *int     `json:"velocity,omitempty" yaml:"velocity,omitempty"`
	VelToLevel   *float64 `json:"vel_to_level,omitempty" yaml:"vel_to_level,omitempty"`
	DecaySeconds *float64 `json:"decay_seconds,omitempty" yaml:"decay_seconds,omitempty"`
	Gain         *float64 `json:"gain,omitempty" yaml:"gain,omitempty"`
	Duration     *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	ReleaseAfter *float64 `json:"release_after,omitempty" yaml:"release_after,omitempty"`
	// DecayDBFS enables auto-stop; absent means a fixed duration.
	DecayDBFS *float64 `json:"decay_dbfs,omitempty" yaml:"decay_dbfs,omitempty"`

	PerNote map[string]NoteSetting `json:"per_note,omitempty" yaml:"per_note,omitempty"`

	ReferenceWAV string   `json:"reference_wav,omitempty" yaml:"reference_wav,omitempty"`
	BodyIR       string   `json:"body_ir,omitempty" yaml:"body_ir,omitempty"`
	BodyMix      *float64 `json:"body_mix,omitempty" yaml:"body_mix,omitempty"`
}

// NoteSetting is a partial note override entry in a preset file.
type NoteSetting struct {
	Hz           *float64  `json:"hz,omitempty" yaml:"hz,omitempty"`
	DecaySeconds *float64  `json:"decay_seconds,omitempty" yaml:"decay_seconds,omitempty"`
	Gain         *float64  `json:"gain,omitempty" yaml:"gain,omitempty"`
	Strike       []float64 `json:"strike,omitempty" yaml:"strike,omitempty"`
}

// Load reads a preset, choosing YAML for .yaml and .yml files and JSON
// otherwise.
func Load(path string) (*Settings, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadJSON(path)
	}
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return fromFile(path, &f)
}

// LoadYAML loads a preset YAML file and applies it on top of the defaults.
func LoadYAML(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return fromFile(path, &f)
}

func fromFile(path string, f *File) (*Settings, error) {
	s := NewDefaultSettings()
	if err := ApplyFile(s, f); err != nil {
		return nil, err
	}
	s.ReferenceWAV = resolvePath(path, s.ReferenceWAV)
	s.BodyIR = resolvePath(path, s.BodyIR)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// resolvePath makes p relative to the directory of the preset file.
func resolvePath(presetPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(filepath.Dir(presetPath), p))
}

// Save writes s as YAML for .yaml and .yml paths and as indented JSON
// otherwise.
func Save(path string, s *Settings) error {
	f := s.File()
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(f)
	default:
		b, err = json.MarshalIndent(f, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ApplyFile applies a parsed preset file onto existing settings.
func ApplyFile(dst *Settings, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination settings")
	}
	if f == nil {
		return nil
	}

	if f.Geometry != nil {
		dst.Geometry = normalizeGeometry(*f.Geometry)
	}
	if f.Modes != nil {
		if *f.Modes < 1 {
			return fmt.Errorf("modes must be >= 1")
		}
		dst.Modes = *f.Modes
	}
	if f.Length != nil {
		if *f.Length <= 0 {
			return fmt.Errorf("length must be > 0")
		}
		dst.Length = *f.Length
	}
	if f.Dimension != nil {
		dst.Dimension = *f.Dimension
	}
	if f.MaxDimension != nil {
		dst.MaxDimension = *f.MaxDimension
	} else if f.Dimension != nil && dst.MaxDimension < dst.Dimension {
		dst.MaxDimension = dst.Dimension
	}
	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.FastRotation != nil {
		dst.FastRotation = *f.FastRotation
	}
	if f.Strike != nil {
		dst.Strike = append([]float64(nil), f.Strike...)
	}
	if f.Listeners != nil {
		dst.Listeners = make([][]float64, len(f.Listeners))
		for i, p := range f.Listeners {
			dst.Listeners[i] = append([]float64(nil), p...)
		}
	}

	r := &dst.Render
	if f.Note != nil {
		r.Note = *f.Note
	}
	if f.Hz != nil {
		if *f.Hz < 0 {
			return fmt.Errorf("hz must be >= 0")
		}
		r.Hz = *f.Hz
	}
	if f.Velocity != nil {
		r.Velocity = *f.Velocity
	}
	if f.VelToLevel != nil {
		r.VelToLevel = *f.VelToLevel
	}
	if f.DecaySeconds != nil {
		if *f.DecaySeconds < 0 {
			return fmt.Errorf("decay_seconds must be >= 0")
		}
		r.DecaySeconds = *f.DecaySeconds
	}
	if f.Gain != nil {
		if *f.Gain <= 0 {
			return fmt.Errorf("gain must be > 0")
		}
		r.Gain = *f.Gain
	}
	if f.Duration != nil {
		r.Duration = *f.Duration
	}
	if f.ReleaseAfter != nil {
		r.ReleaseAfter = *f.ReleaseAfter
	}
	if f.DecayDBFS != nil {
		if *f.DecayDBFS >= 0 {
			return fmt.Errorf("decay_dbfs must be < 0")
		}
		r.DecayDBFS = *f.DecayDBFS
	}
	if f.ReferenceWAV != "" {
		dst.ReferenceWAV = strings.TrimSpace(f.ReferenceWAV)
	}
	if f.BodyIR != "" {
		dst.BodyIR = strings.TrimSpace(f.BodyIR)
	}
	if f.BodyMix != nil {
		if *f.BodyMix < 0 || *f.BodyMix > 1 {
			return fmt.Errorf("body_mix must be in [0,1]")
		}
		dst.BodyMix = *f.BodyMix
	}

	if len(f.PerNote) == 0 {
		return nil
	}
	if dst.PerNote == nil {
		dst.PerNote = make(map[int]*NoteParams)
	}

	keys := make([]string, 0, len(f.PerNote))
	for k := range f.PerNote {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		note, err := strconv.Atoi(k)
		if err != nil || note < 0 || note > 127 {
			return fmt.Errorf("invalid per_note key %q (expected 0..127)", k)
		}
		override := f.PerNote[k]
		np, ok := dst.PerNote[note]
		if !ok || np == nil {
			np = &NoteParams{}
			dst.PerNote[note] = np
		}
		if override.Hz != nil {
			if *override.Hz <= 0 {
				return fmt.Errorf("per_note[%d].hz must be > 0", note)
			}
			np.Hz = *override.Hz
		}
		if override.DecaySeconds != nil {
			if *override.DecaySeconds <= 0 {
				return fmt.Errorf("per_note[%d].decay_seconds must be > 0", note)
			}
			np.DecaySeconds = *override.DecaySeconds
		}
		if override.Gain != nil {
			if *override.Gain <= 0 {
				return fmt.Errorf("per_note[%d].gain must be > 0", note)
			}
			np.Gain = *override.Gain
		}
		if override.Strike != nil {
			np.Strike = append([]float64(nil), override.Strike...)
		}
	}
	return nil
}

// File converts s back into its on-disk form.
func (s *Settings) File() *File {
	r := s.Render
	f := &File{
		Geometry:     &s.Geometry,
		Modes:        &s.Modes,
		SampleRate:   &s.SampleRate,
		FastRotation: &s.FastRotation,
		Strike:       s.Strike,
		Listeners:    s.Listeners,
		Note:         &r.Note,
		Velocity:     &r.Velocity,
		VelToLevel:   &r.VelToLevel,
		DecaySeconds: &r.DecaySeconds,
		Gain:         &r.Gain,
		Duration:     &r.Duration,
		ReleaseAfter: &r.ReleaseAfter,
		ReferenceWAV: s.ReferenceWAV,
		BodyIR:       s.BodyIR,
	}
	if s.BodyIR != "" {
		f.BodyMix = &s.BodyMix
	}
	switch s.Geometry {
	case GeometryString:
		f.Length = &s.Length
	case GeometryCube:
		f.Dimension = &s.Dimension
		f.MaxDimension = &s.MaxDimension
	}
	if r.Hz > 0 {
		f.Hz = &r.Hz
	}
	if !math.IsInf(r.DecayDBFS, 1) {
		f.DecayDBFS = &r.DecayDBFS
	}
	if len(s.PerNote) > 0 {
		f.PerNote = make(map[string]NoteSetting, len(s.PerNote))
		for note, np := range s.PerNote {
			if np == nil {
				continue
			}
			ns := NoteSetting{Strike: np.Strike}
			if np.Hz > 0 {
				ns.Hz = &np.Hz
			}
			if np.DecaySeconds > 0 {
				ns.DecaySeconds = &np.DecaySeconds
			}
			if np.Gain > 0 {
				ns.Gain = &np.Gain
			}
			f.PerNote[strconv.Itoa(note)] = ns
		}
	}
	return f
}
