package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-modal/internal/audiofile"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/render"
)

type noteFlags struct {
	presetPath   string
	note         int
	hz           float64
	velocity     int
	duration     float64
	decayDBFS    float64
	releaseAfter float64
}

func (f *noteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.presetPath, "preset", "", "preset file (JSON or YAML); built-in string preset when empty")
	cmd.Flags().IntVar(&f.note, "note", 60, "MIDI note number")
	cmd.Flags().Float64Var(&f.hz, "hz", 0, "fundamental in Hz, overrides --note")
	cmd.Flags().IntVar(&f.velocity, "velocity", 100, "MIDI velocity (0-127)")
	cmd.Flags().Float64Var(&f.duration, "duration", 2.0, "duration in seconds")
	cmd.Flags().Float64Var(&f.decayDBFS, "decay-dbfs", math.Inf(1), "auto-stop when block RMS falls below this dBFS (e.g. -90)")
	cmd.Flags().Float64Var(&f.releaseAfter, "release-after", -1, "release the note after this many seconds")
}

// load reads the preset and applies the flags the user set explicitly.
func (f *noteFlags) load(cmd *cobra.Command) (*preset.Settings, error) {
	s := preset.NewDefaultSettings()
	if f.presetPath != "" {
		var err error
		if s, err = preset.Load(f.presetPath); err != nil {
			return nil, fmt.Errorf("loading preset %q: %w", f.presetPath, err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("note") {
		s.Render.Note = f.note
		s.Render.Hz = 0
	}
	if flags.Changed("hz") {
		s.Render.Hz = f.hz
	}
	if flags.Changed("velocity") {
		s.Render.Velocity = f.velocity
	}
	if flags.Changed("duration") {
		s.Render.Duration = f.duration
	}
	if flags.Changed("decay-dbfs") {
		s.Render.DecayDBFS = f.decayDBFS
	}
	if flags.Changed("release-after") {
		s.Render.ReleaseAfter = f.releaseAfter
	}
	return s, s.Validate()
}

func renderPreset(s *preset.Settings) (*render.Result, error) {
	return s.RenderNote()
}

func newRenderCmd() *cobra.Command {
	var (
		nf         noteFlags
		output     string
		outputRate int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render one strike to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nf.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rs := s.RenderSettings()
			fmt.Fprintf(out, "Rendering %s (%d modes) at %.2f Hz, velocity %d, %d Hz...\n",
				s.Geometry, s.Modes, rs.Frequency(), rs.Velocity, s.SampleRate)

			res, err := renderPreset(s)
			if err != nil {
				return err
			}
			if res.AutoStopped {
				fmt.Fprintf(out, "Auto-stop at %d frames (%.3fs), threshold %.1f dBFS\n",
					res.Frames, float64(res.Frames)/float64(res.SampleRate), rs.DecayDBFS)
			}
			if res.SilencedAt >= 0 {
				fmt.Fprintf(out, "Released at frame %d, silenced at frame %d\n", res.ReleasedAt, res.SilencedAt)
			}

			rate := res.SampleRate
			samples := res.Samples
			if outputRate > 0 && outputRate != rate {
				if samples, err = resampleInterleaved(res, outputRate); err != nil {
					return fmt.Errorf("resampling to %d Hz: %w", outputRate, err)
				}
				rate = outputRate
			}
			if err := audiofile.WriteInterleaved(output, samples, res.Channels, rate); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(out, "Successfully wrote %s (%d frames, %d channels)\n", output, len(samples)/res.Channels, res.Channels)
			return nil
		},
	}
	nf.register(cmd)
	cmd.Flags().StringVar(&output, "output", "output.wav", "output WAV file path")
	cmd.Flags().IntVar(&outputRate, "output-rate", 0, "resample the output to this rate (0 keeps the render rate)")
	return cmd
}

func resampleInterleaved(res *render.Result, toRate int) ([]float32, error) {
	var out []float32
	for c := 0; c < res.Channels; c++ {
		ch, err := audiofile.Float32(res.Channel(c), res.SampleRate, toRate)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]float32, len(ch)*res.Channels)
		}
		for i, v := range ch {
			if i*res.Channels+c < len(out) {
				out[i*res.Channels+c] = v
			}
		}
	}
	return out, nil
}
