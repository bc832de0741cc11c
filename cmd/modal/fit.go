package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-modal/analysis"
	"github.com/cwbudde/algo-modal/internal/audiofile"
	"github.com/cwbudde/algo-modal/preset"
	"github.com/cwbudde/algo-modal/render"
)

type fitConfig struct {
	base        *preset.Settings
	body        *render.Body
	reference   []float64
	defs        []knobDef
	seed        int64
	maxEvals    int
	timeBudget  float64
	reportEvery int
	variant     string
	pop         int
	roundEvals  int
}

type fitResult struct {
	best        candidate
	bestMetrics analysis.Metrics
	bestPreset  *preset.Settings
	evals       int
	elapsed     float64
}

type fitReport struct {
	Reference  string             `json:"reference"`
	Evals      int                `json:"evals"`
	Elapsed    float64            `json:"elapsed_s"`
	Variant    string             `json:"variant"`
	Knobs      map[string]float64 `json:"knobs"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Metrics    analysis.Metrics   `json:"metrics"`
}

func newFitCmd() *cobra.Command {
	var (
		presetPath   string
		reference    string
		outputPreset string
		outputWAV    string
		reportPath   string
		note         int
		maxSeconds   float64
		cfg          fitConfig
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "fit pitch, decay and positions of a preset to a reference recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			base := preset.NewDefaultSettings()
			if presetPath != "" {
				var err error
				if base, err = preset.Load(presetPath); err != nil {
					return fmt.Errorf("loading preset %q: %w", presetPath, err)
				}
			}
			if cmd.Flags().Changed("note") {
				base.Render.Note = note
				base.Render.Hz = 0
			}
			if reference == "" {
				reference = base.ReferenceWAV
			}
			if reference == "" {
				return fmt.Errorf("--reference is required when the preset has no reference_wav")
			}
			ref, err := loadReference(reference, base.SampleRate, maxSeconds)
			if err != nil {
				return err
			}
			base.Render.Duration = float64(len(ref)) / float64(base.SampleRate)
			base.Render.ReleaseAfter = -1
			if err := base.Validate(); err != nil {
				return err
			}

			cfg.base = base
			if cfg.body, err = base.NewBody(); err != nil {
				return err
			}
			cfg.reference = ref
			cfg.defs = fitKnobs(base)
			cfg.variant = strings.ToLower(cfg.variant)
			fmt.Fprintf(out, "Fitting %s note %d to %s (%d frames, %d knobs, variant %s)\n",
				base.Geometry, base.Render.Note, reference, len(ref), len(cfg.defs), cfg.variant)

			res, err := runFit(&cfg, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Done evals=%d elapsed=%.1fs score=%.4f sim=%.2f%%\n",
				res.evals, res.elapsed, res.bestMetrics.Score, res.bestMetrics.Similarity*100.0)
			for i, d := range cfg.defs {
				fmt.Fprintf(out, "  %-16s %.5f\n", d.Name, res.best.Vals[i])
			}

			res.bestPreset.ReferenceWAV = reference
			if err := preset.Save(outputPreset, res.bestPreset); err != nil {
				return fmt.Errorf("writing preset: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s\n", outputPreset)
			if outputWAV != "" {
				r, err := renderPreset(res.bestPreset)
				if err != nil {
					return err
				}
				if err := audiofile.WriteInterleaved(outputWAV, r.Samples, r.Channels, r.SampleRate); err != nil {
					return fmt.Errorf("writing %s: %w", outputWAV, err)
				}
				fmt.Fprintf(out, "Wrote %s\n", outputWAV)
			}
			if reportPath != "" {
				rep := fitReport{
					Reference:  reference,
					Evals:      res.evals,
					Elapsed:    res.elapsed,
					Variant:    cfg.variant,
					Knobs:      knobMap(cfg.defs, res.best),
					Score:      res.bestMetrics.Score,
					Similarity: res.bestMetrics.Similarity,
					Metrics:    finiteMetrics(res.bestMetrics),
				}
				b, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(reportPath, append(b, '\n'), 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&presetPath, "preset", "", "starting preset (JSON or YAML)")
	cmd.Flags().StringVar(&reference, "reference", "", "reference WAV (defaults to the preset's reference_wav)")
	cmd.Flags().StringVar(&outputPreset, "output-preset", "fitted.yaml", "where to write the fitted preset")
	cmd.Flags().StringVar(&outputWAV, "output-wav", "", "optionally render the fitted preset to this WAV")
	cmd.Flags().StringVar(&reportPath, "report", "", "optional JSON report path")
	cmd.Flags().IntVar(&note, "note", 60, "MIDI note to fit")
	cmd.Flags().Float64Var(&maxSeconds, "max-seconds", 3.0, "compare at most this many seconds of the reference")
	cmd.Flags().Int64Var(&cfg.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&cfg.maxEvals, "max-evals", 400, "maximum number of renders")
	cmd.Flags().Float64Var(&cfg.timeBudget, "time-budget", 120, "time budget in seconds")
	cmd.Flags().IntVar(&cfg.reportEvery, "report-every", 25, "print progress every N evals (0 disables)")
	cmd.Flags().StringVar(&cfg.variant, "variant", "ma", "mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	cmd.Flags().IntVar(&cfg.pop, "pop", 10, "mayfly population size")
	cmd.Flags().IntVar(&cfg.roundEvals, "round-evals", 120, "evals per mayfly round")
	return cmd
}

func loadReference(path string, sampleRate int, maxSeconds float64) ([]float64, error) {
	ref, rate, err := audiofile.ReadMono(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference %q: %w", path, err)
	}
	if rate != sampleRate {
		if ref, err = audiofile.Resample(ref, rate, sampleRate); err != nil {
			return nil, fmt.Errorf("resampling reference: %w", err)
		}
	}
	if maxSeconds > 0 {
		if n := int(maxSeconds * float64(sampleRate)); n < len(ref) {
			ref = ref[:n]
		}
	}
	if len(ref) == 0 {
		return nil, fmt.Errorf("reference %q is empty", path)
	}
	return ref, nil
}

// evaluateCandidate renders the candidate and scores its first channel
// against the reference.
func evaluateCandidate(cfg *fitConfig, c candidate) (analysis.Metrics, *preset.Settings, error) {
	s := applyCandidate(cfg.base, cfg.defs, c)
	l, err := s.NewListener()
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	res, err := render.RenderWithBody(l, s.RenderSettings(), cfg.body)
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	return analysis.Compare(cfg.reference, res.Channel(0), res.SampleRate), s, nil
}

func runFit(cfg *fitConfig, out io.Writer) (*fitResult, error) {
	if len(cfg.defs) == 0 {
		return nil, fmt.Errorf("no knobs to fit")
	}
	if cfg.maxEvals < 1 {
		return nil, fmt.Errorf("max-evals must be >= 1")
	}
	if cfg.pop < 2 {
		return nil, fmt.Errorf("pop must be >= 2")
	}
	start := time.Now()
	deadline := start.Add(time.Duration(cfg.timeBudget * float64(time.Second)))

	best := initialCandidate(cfg.base, cfg.defs)
	bestMetrics, bestPreset, err := evaluateCandidate(cfg, best)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Fprintf(out, "Start score=%.4f similarity=%.2f%%\n", bestMetrics.Score, bestMetrics.Similarity*100.0)

	evals := 1
	improves := 0
	for round := 1; evals < cfg.maxEvals && time.Now().Before(deadline); round++ {
		budget := min(cfg.roundEvals, cfg.maxEvals-evals)
		iters := max(1, budget/(2*cfg.pop))
		mcfg, err := newMayflyConfig(cfg.variant, cfg.pop, len(cfg.defs), iters)
		if err != nil {
			return nil, err
		}
		mcfg.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
		mcfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= cfg.maxEvals || time.Now().After(deadline) {
				return bestMetrics.Score + 1.0
			}
			evals++
			cand := fromNormalized(pos, cfg.defs)
			m, s, err := evaluateCandidate(cfg, cand)
			if err != nil {
				return bestMetrics.Score + 0.8
			}
			if m.Score < bestMetrics.Score {
				improves++
				best, bestMetrics, bestPreset = cand, m, s
				fmt.Fprintf(out, "Improved #%d eval=%d score=%.4f sim=%.2f%%\n", improves, evals, m.Score, m.Similarity*100.0)
			}
			if cfg.reportEvery > 0 && evals%cfg.reportEvery == 0 {
				fmt.Fprintf(out, "Progress eval=%d/%d elapsed=%.1fs best=%.4f\n", evals, cfg.maxEvals, time.Since(start).Seconds(), bestMetrics.Score)
			}
			return m.Score
		}
		if _, err := runMayfly(mcfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
			break
		}
	}
	return &fitResult{
		best:        best,
		bestMetrics: bestMetrics,
		bestPreset:  bestPreset,
		evals:       evals,
		elapsed:     time.Since(start).Seconds(),
	}, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

// finiteMetrics zeroes decay slopes that could not be measured so the
// metrics survive JSON encoding.
func finiteMetrics(m analysis.Metrics) analysis.Metrics {
	if math.IsNaN(m.RefDecayDBPerS) {
		m.RefDecayDBPerS = 0
	}
	if math.IsNaN(m.CandDecayDBPerS) {
		m.CandDecayDBPerS = 0
	}
	return m
}
