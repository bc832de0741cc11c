package main

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/internal/audiofile"
)

// envelopeDB returns the RMS envelope of x in dB, floored at floorDB and
// reduced to at most width points.
func envelopeDB(x []float64, frame, hop, width int, floorDB float64) []float64 {
	env := analysis.RMSEnvelope(x, frame, hop)
	if len(env) == 0 {
		return nil
	}
	step := 1
	if width > 0 && len(env) > width {
		step = (len(env) + width - 1) / width
	}
	out := make([]float64, 0, len(env)/step+1)
	for i := 0; i < len(env); i += step {
		peak := 0.0
		for j := i; j < i+step && j < len(env); j++ {
			peak = math.Max(peak, env[j])
		}
		db := floorDB
		if peak > 0 {
			db = math.Max(floorDB, 20*math.Log10(peak))
		}
		out = append(out, db)
	}
	return out
}

func newPlotCmd() *cobra.Command {
	var (
		nf      noteFlags
		wavPath string
		floorDB float64
		height  int
		width   int
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "render a note and plot its level over time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				x  []float64
				sr int
			)
			if wavPath != "" {
				var err error
				if x, sr, err = audiofile.ReadMono(wavPath); err != nil {
					return err
				}
			} else {
				s, err := nf.load(cmd)
				if err != nil {
					return err
				}
				res, err := renderPreset(s)
				if err != nil {
					return err
				}
				x, sr = res.Channel(0), res.SampleRate
			}
			const frame, hop = 1024, 512
			data := envelopeDB(x, frame, hop, width, floorDB)
			if len(data) < 2 {
				return fmt.Errorf("signal too short to plot")
			}
			caption := fmt.Sprintf("RMS level (dBFS), %.2fs total, %.1f ms per point",
				float64(len(x))/float64(sr), 1000*float64(len(x))/float64(sr)/float64(len(data)))
			fmt.Fprintln(cmd.OutOrStdout(), asciigraph.Plot(data,
				asciigraph.Height(height),
				asciigraph.Width(width),
				asciigraph.Caption(caption)))
			return nil
		},
	}
	nf.register(cmd)
	cmd.Flags().StringVar(&wavPath, "wav", "", "plot this WAV file instead of rendering")
	cmd.Flags().Float64Var(&floorDB, "floor-db", -90, "lowest level shown")
	cmd.Flags().IntVar(&height, "height", 12, "graph height in rows")
	cmd.Flags().IntVar(&width, "width", 80, "graph width in columns")
	return cmd
}
