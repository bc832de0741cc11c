// Package render plays a single strike on a modal listener, the way a
// synthesizer voice would: note-on, an optional release, and a stop once
// the sound has decayed.
package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-modal/modal"
)

// ReleaseSilenceThreshold is the output level below which a released
// note is cut. Cutting near a zero crossing avoids a click.
const ReleaseSilenceThreshold = 1e-4

// Settings describe one rendered note.
type Settings struct {
	// Note is a MIDI note number, used when Hz is zero.
	Note int
	// Hz overrides Note when positive.
	Hz float64
	// Velocity is a MIDI velocity in [0,127] scaled into the strike amount.
	Velocity int
	// VelToLevel blends between a fixed strike (0) and a velocity
	// proportional strike (1).
	VelToLevel float64
	// DecaySeconds is the 60 dB decay time of the lowest mode.
	DecaySeconds float64
	// Gain multiplies every output sample.
	Gain float64

	// Duration is the fixed render length when auto-stop is disabled.
	Duration float64
	// ReleaseAfter sends note-off after this many seconds. Negative
	// values never release.
	ReleaseAfter float64
	// BlockSize is the number of frames between stop checks.
	BlockSize int

	// DecayDBFS enables auto-stop when the block RMS stays below this
	// level. +Inf disables it.
	DecayDBFS       float64
	DecayHoldBlocks int
	MinDuration     float64
	MaxDuration     float64
}

// DefaultSettings returns an A4 strike rendered for two seconds.
func DefaultSettings() Settings {
	return Settings{
		Note:            69,
		Velocity:        100,
		VelToLevel:      1,
		DecaySeconds:    2,
		Gain:            1,
		Duration:        2,
		ReleaseAfter:    -1,
		BlockSize:       128,
		DecayDBFS:       math.Inf(1),
		DecayHoldBlocks: 6,
		MinDuration:     0.5,
		MaxDuration:     20,
	}
}

// Validate reports the first unusable field.
func (s Settings) Validate() error {
	if s.Hz < 0 || math.IsNaN(s.Hz) {
		return fmt.Errorf("render: hz must be >= 0, got %g", s.Hz)
	}
	if s.Hz == 0 && (s.Note < 0 || s.Note > 127) {
		return fmt.Errorf("render: note must be in [0,127], got %d", s.Note)
	}
	if s.Velocity < 0 || s.Velocity > 127 {
		return fmt.Errorf("render: velocity must be in [0,127], got %d", s.Velocity)
	}
	if s.VelToLevel < 0 || s.VelToLevel > 1 {
		return fmt.Errorf("render: vel_to_level must be in [0,1], got %g", s.VelToLevel)
	}
	if s.BlockSize < 1 {
		return fmt.Errorf("render: block size must be >= 1, got %d", s.BlockSize)
	}
	if math.IsInf(s.DecayDBFS, 1) && !(s.Duration > 0) {
		return fmt.Errorf("render: duration must be > 0, got %g", s.Duration)
	}
	return nil
}

// Frequency returns the note frequency in Hz.
func (s Settings) Frequency() float64 {
	if s.Hz > 0 {
		return s.Hz
	}
	return NoteToHz(s.Note)
}

// StrikeAmount returns the impulse strength for the configured velocity.
func (s Settings) StrikeAmount() float64 {
	vel := float64(s.Velocity) / 127
	return 1 + s.VelToLevel*(vel-1)
}

// Result is a rendered note.
type Result struct {
	SampleRate int
	Channels   int
	Frames     int
	// Samples are interleaved by channel.
	Samples []float32

	// ReleasedAt and SilencedAt are frame indices, or -1.
	ReleasedAt  int
	SilencedAt  int
	AutoStopped bool
}

// Channel returns one channel as float64 samples.
func (r *Result) Channel(c int) []float64 {
	out := make([]float64, r.Frames)
	for i := range out {
		out[i] = float64(r.Samples[i*r.Channels+c])
	}
	return out
}

// Render strikes l once and records every channel. The listener must have
// its striking and listening positions set; its velocity coupling is
// replaced by the one derived from s.
func Render(l *modal.Listener[float32], s Settings) (*Result, error) {
	return RenderWithBody(l, s, nil)
}

// RenderWithBody renders like Render and then passes the result through
// body. Release silencing and auto-stop look at the dry signal. A nil body
// leaves the output dry.
func RenderWithBody(l *modal.Listener[float32], s Settings, body *Body) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	eng := l.Engine()
	v, err := VelocityForPitch(eng.Geometry(), s.Frequency(), s.DecaySeconds)
	if err != nil {
		return nil, err
	}
	sampleRate := int(math.Round(1 / float64(eng.DeltaT())))
	channels := l.Channels()
	blockSize := s.BlockSize
	autoStop := !math.IsInf(s.DecayDBFS, 1)

	l.Reset()
	eng.SetVelocitySquared(v)
	l.PinchStrike(float32(s.StrikeAmount()))

	var totalFrames int
	var minFrames int
	if autoStop {
		minFrames = int(float64(sampleRate) * s.MinDuration)
		totalFrames = int(float64(sampleRate) * s.MaxDuration)
		if totalFrames < minFrames {
			totalFrames = minFrames
		}
		if totalFrames < 1 {
			totalFrames = blockSize
		}
	} else {
		totalFrames = max(int(float64(sampleRate)*s.Duration), 1)
	}
	releaseAtFrame := -1
	if s.ReleaseAfter >= 0 {
		releaseAtFrame = int(float64(sampleRate) * s.ReleaseAfter)
	}

	initialFrames := totalFrames
	if autoStop {
		initialFrames = max(minFrames, blockSize)
	}
	res := &Result{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    make([]float32, 0, initialFrames*channels),
		ReleasedAt: -1,
		SilencedAt: -1,
	}

	gain := float32(s.Gain)
	thresholdLin := math.Pow(10.0, s.DecayDBFS/20.0)
	holdBlocks := max(s.DecayHoldBlocks, 1)
	belowCount := 0
	frame := make([]float32, channels)

	for res.Frames < totalFrames {
		n := min(blockSize, totalFrames-res.Frames)
		start := len(res.Samples)
		for range n {
			if res.Frames == releaseAtFrame {
				res.ReleasedAt = res.Frames
			}
			l.NextFrame(frame)
			for c := range frame {
				frame[c] *= gain
			}
			if res.ReleasedAt >= 0 && res.SilencedAt < 0 && math.Abs(float64(frame[0])) < ReleaseSilenceThreshold {
				l.Silence()
				res.SilencedAt = res.Frames
			}
			res.Samples = append(res.Samples, frame...)
			res.Frames++
		}

		if autoStop && res.Frames >= minFrames {
			if blockRMS(res.Samples[start:]) < thresholdLin {
				belowCount++
				if belowCount >= holdBlocks {
					res.AutoStopped = true
					break
				}
			} else {
				belowCount = 0
			}
		}
	}
	if body != nil {
		if err := body.Process(res.Samples, channels); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func blockRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}
	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(interleaved)))
}
