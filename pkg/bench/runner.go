package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
	"github.com/gilchrisn/maxcut-annealing/pkg/maxcut"
)

// Case is one benchmark dataset. Spec is anything graph.Load accepts.
type Case struct {
	Name string
	Spec string
}

type Record struct {
	Case  string
	Nodes int
	Edges int
	Runs  int

	InitialTemperature float64
	NumSteps           int
	Incremental        bool

	InitScore  float64
	ScoreBest  float64
	ScoreMean  float64
	ScoreStd   float64
	UpperBound float64

	AcceptMean float64

	TimeBestMs float64
	TimeMeanMs float64
	TimeStdMs  float64
}

// Runner repeats an annealing run over a range of seeds for every case
type Runner struct {
	Runs               int
	BaseSeed           int64
	InitialTemperature float64
	NumSteps           int
	Incremental        bool
	Workers            int           // <= 0 = one per run
	PerRunTimeout      time.Duration // 0 = no timeout

	Logger zerolog.Logger
}

type runOutcome struct {
	score      float64
	acceptRate float64
	timeMs     float64
}

// ParseCases accepts "name=spec" or bare "spec" entries separated by commas
func ParseCases(s string) []Case {
	var cases []Case
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, spec, found := strings.Cut(part, "=")
		if !found {
			spec = part
			name = part
		}
		cases = append(cases, Case{Name: name, Spec: spec})
	}
	return cases
}

func (r Runner) Run(ctx context.Context, cases []Case) ([]Record, error) {
	records := make([]Record, 0, len(cases))
	for _, c := range cases {
		rec, err := r.RunCase(ctx, c)
		if err != nil {
			return records, fmt.Errorf("case %s: %w", c.Name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r Runner) RunCase(ctx context.Context, c Case) (Record, error) {
	if r.Runs <= 0 {
		return Record{}, fmt.Errorf("%w: runs must be > 0 (got %d)", maxcut.ErrInvalidParameter, r.Runs)
	}

	g, err := graph.Load(c.Spec)
	if err != nil {
		return Record{}, err
	}
	summary, err := graph.Summarize(g)
	if err != nil {
		return Record{}, err
	}

	// Validate once so every run fails the same way
	params := r.params(0)
	probe, err := anneal.NewEngine(g, params)
	if err != nil {
		return Record{}, err
	}

	outcomes := make([]runOutcome, r.Runs)

	grp, gctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers <= 0 {
		workers = r.Runs
	}
	grp.SetLimit(workers)

	for i := 0; i < r.Runs; i++ {
		i := i
		grp.Go(func() error {
			runCtx := gctx
			cancel := func() {}
			if r.PerRunTimeout > 0 {
				runCtx, cancel = context.WithTimeout(gctx, r.PerRunTimeout)
			}
			defer cancel()

			engine, err := anneal.NewEngine(g, r.params(i))
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			res, err := engine.Run(runCtx)
			if err != nil {
				return fmt.Errorf("run %d: cancelled/timeout: %w", i, err)
			}
			if len(res.Solution) != g.NumNodes {
				return fmt.Errorf("run %d: invalid solution length %d (want %d)", i, len(res.Solution), g.NumNodes)
			}

			outcomes[i] = runOutcome{
				score:      res.FinalScore,
				acceptRate: res.Statistics.AcceptanceRate(),
				timeMs:     float64(res.Statistics.Elapsed.Microseconds()) / 1000.0,
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return Record{}, err
	}

	scores := make([]float64, r.Runs)
	times := make([]float64, r.Runs)
	accepts := make([]float64, r.Runs)
	for i, o := range outcomes {
		scores[i] = o.score
		times[i] = o.timeMs
		accepts[i] = o.acceptRate
	}

	sStats := CalcStats(scores, true)
	tStats := CalcStats(times, false)
	aStats := CalcStats(accepts, true)

	rec := Record{
		Case:  c.Name,
		Nodes: summary.NumNodes,
		Edges: summary.NumEdges,
		Runs:  r.Runs,

		InitialTemperature: r.InitialTemperature,
		NumSteps:           r.NumSteps,
		Incremental:        r.Incremental,

		InitScore:  probe.InitScore(),
		ScoreBest:  sStats.Best,
		ScoreMean:  sStats.Mean,
		ScoreStd:   sStats.Std,
		UpperBound: summary.CutUpperBound,

		AcceptMean: aStats.Mean,

		TimeBestMs: tStats.Best,
		TimeMeanMs: tStats.Mean,
		TimeStdMs:  tStats.Std,
	}

	r.Logger.Info().
		Str("case", c.Name).
		Int("runs", r.Runs).
		Float64("best", rec.ScoreBest).
		Float64("mean", rec.ScoreMean).
		Float64("std", rec.ScoreStd).
		Float64("time_mean_ms", rec.TimeMeanMs).
		Msg("Benchmark case completed")

	return rec, nil
}

func (r Runner) params(run int) anneal.Params {
	return anneal.Params{
		InitTemperature: r.InitialTemperature,
		NumSteps:        r.NumSteps,
		Seed:            r.BaseSeed + int64(run),
		Incremental:     r.Incremental,
	}
}

func WriteCSV(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"case", "nodes", "edges", "runs",
		"t0", "steps", "incremental",
		"init_score", "score_best", "score_mean", "score_std", "upper_bound",
		"accept_mean",
		"time_best_ms", "time_mean_ms", "time_std_ms",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Case,
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Edges),
			strconv.Itoa(r.Runs),

			ftoa(r.InitialTemperature),
			strconv.Itoa(r.NumSteps),
			strconv.FormatBool(r.Incremental),

			ftoa(r.InitScore),
			ftoa(r.ScoreBest),
			ftoa(r.ScoreMean),
			ftoa(r.ScoreStd),
			ftoa(r.UpperBound),

			ftoa(r.AcceptMean),

			ftoa(r.TimeBestMs),
			ftoa(r.TimeMeanMs),
			ftoa(r.TimeStdMs),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
