package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/internal/audiofile"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		asJSON    bool
		reference string
	)
	cmd := &cobra.Command{
		Use:   "analyze <wav>",
		Short: "measure pitch, level and decay of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			x, sr, err := audiofile.ReadMono(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			rep, err := analysis.Analyze(x, sr)
			if err != nil {
				return err
			}

			var metrics *analysis.Metrics
			if reference != "" {
				ref, err := loadReference(reference, sr, 0)
				if err != nil {
					return err
				}
				m := finiteMetrics(analysis.Compare(ref, x, sr))
				metrics = &m
			}

			if asJSON {
				if math.IsNaN(rep.T60) {
					rep.T60 = 0
				}
				if math.IsNaN(rep.DecayDBPerS) {
					rep.DecayDBPerS = 0
				}
				b, err := json.MarshalIndent(struct {
					analysis.Report
					Compare *analysis.Metrics `json:"compare,omitempty"`
				}{rep, metrics}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				return nil
			}

			fmt.Fprintf(out, "File:        %s\n", args[0])
			fmt.Fprintf(out, "Sample rate: %d Hz\n", rep.SampleRate)
			fmt.Fprintf(out, "Duration:    %.3f s\n", float64(rep.Frames)/float64(rep.SampleRate))
			fmt.Fprintf(out, "Peak:        %.2f Hz\n", rep.PeakHz)
			fmt.Fprintf(out, "Level:       %.2f dBFS\n", rep.PeakDBFS)
			if math.IsNaN(rep.T60) {
				fmt.Fprintf(out, "Decay:       not measurable\n")
			} else {
				fmt.Fprintf(out, "Decay:       %.2f dB/s (T60 %.3f s)\n", rep.DecayDBPerS, rep.T60)
			}
			if metrics != nil {
				fmt.Fprintf(out, "Score:       %.4f (similarity %.2f%%)\n", metrics.Score, metrics.Similarity*100.0)
				fmt.Fprintf(out, "  time_rmse=%.4f env_rmse_db=%.2f spec_rmse_db=%.2f decay_diff=%.2f lag=%d\n",
					metrics.TimeRMSE, metrics.EnvelopeRMSEDB, metrics.SpectralRMSEDB, metrics.DecayDiffDBPerS, metrics.LagSamples)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&reference, "reference", "", "also compare against this reference WAV")
	return cmd
}
