package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/render"
)

type modeRow struct {
	Index          int
	EigenvalueSqrt float64
	Hz             float64
	T60            float64
	Label          string
}

// modeTable lists the first count modes of the preset's body together with
// the frequency and decay time each has for the preset's note.
func modeTable(s *preset.Settings, count int) ([]modeRow, error) {
	g, err := s.NewGeometry()
	if err != nil {
		return nil, err
	}
	r := s.RenderSettings()
	v, err := render.VelocityForPitch(g, r.Frequency(), r.DecaySeconds)
	if err != nil {
		return nil, err
	}
	if count <= 0 || count > g.Modes() {
		count = g.Modes()
	}
	rows := make([]modeRow, count)
	for i := range rows {
		lambda := float64(g.EigenvalueSqrt(i))
		row := modeRow{
			Index:          i,
			EigenvalueSqrt: lambda,
			Hz:             real(v) * lambda / (2 * math.Pi),
			T60:            math.Inf(1),
			Label:          modeLabel(g, i),
		}
		if d := imag(v) * lambda; d > 0 {
			row.T60 = math.Log(1000) / d
		}
		rows[i] = row
	}
	return rows, nil
}

func modeLabel(g modal.Geometry[float32], i int) string {
	switch b := g.(type) {
	case *modal.Sphere[float32]:
		l, m := b.QuantumNumbers(i)
		return fmt.Sprintf("l=%d m=%d", l, m)
	case *modal.Cube[float32]:
		k := b.Mode(i).K
		parts := make([]string, len(k))
		for j, v := range k {
			parts[j] = fmt.Sprint(v)
		}
		return "k=(" + strings.Join(parts, ",") + ")"
	case *modal.String[float32]:
		return fmt.Sprintf("n=%d", i+1)
	}
	return ""
}

func printModeTable(out io.Writer, rows []modeRow) {
	fmt.Fprintf(out, "%5s  %12s  %12s  %9s  %s\n", "mode", "sqrt(eig)", "Hz", "T60 (s)", "shape")
	for _, r := range rows {
		t60 := "inf"
		if !math.IsInf(r.T60, 1) {
			t60 = fmt.Sprintf("%.3f", r.T60)
		}
		fmt.Fprintf(out, "%5d  %12.5f  %12.3f  %9s  %s\n", r.Index, r.EigenvalueSqrt, r.Hz, t60, r.Label)
	}
}

func newModesCmd() *cobra.Command {
	var (
		nf    noteFlags
		count int
		graph bool
	)
	cmd := &cobra.Command{
		Use:   "modes",
		Short: "list the modes of a preset's body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nf.load(cmd)
			if err != nil {
				return err
			}
			rows, err := modeTable(s, count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printModeTable(out, rows)
			if graph && len(rows) > 1 {
				hz := make([]float64, len(rows))
				for i, r := range rows {
					hz[i] = r.Hz
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, asciigraph.Plot(hz,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption("mode frequency (Hz) by index")))
			}
			return nil
		},
	}
	nf.register(cmd)
	cmd.Flags().IntVar(&count, "count", 16, "number of modes to list (0 lists all)")
	cmd.Flags().BoolVar(&graph, "graph", false, "plot mode frequencies")
	return cmd
}
