package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
	"github.com/gilchrisn/maxcut-annealing/pkg/output"
)

// Solutions up to this size are printed in full
const printSolutionLimit = 64

type runOptions struct {
	graph        string
	temperature  float64
	steps        int
	seed         int64
	initStrategy string
	incremental  bool
	initSolution string
	outputDir    string
	prefix       string
	trackFile    string
	jsonOutput   bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [graph]",
		Short: "Run simulated annealing on one graph",
		Long: `Run simulated annealing on one graph and report the initial score, the
final score, the elapsed time and the final partition.

Examples:
  maxcut run cycle:4 --temperature 4 --steps 500 --seed 1
  maxcut run graph.txt --steps 100000 --incremental --output-dir out
  maxcut run graph.txt --init-solution out/graph.solution --steps 50000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.graph = args[0]
			}
			return runAnneal(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.graph, "graph", "g", "", "Edge-list file or generator spec")
	flags.Float64VarP(&opts.temperature, "temperature", "t", 4.0, "Initial temperature")
	flags.IntVarP(&opts.steps, "steps", "n", 1000, "Number of annealing steps")
	flags.Int64VarP(&opts.seed, "seed", "s", 0, "Random seed (default: time based)")
	flags.StringVar(&opts.initStrategy, "init", anneal.InitBipartition, "Initial partition: bipartition or random")
	flags.BoolVar(&opts.incremental, "incremental", false, "Score moves incrementally in O(degree)")
	flags.StringVar(&opts.initSolution, "init-solution", "", "Start from a solution file written by a previous run")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Write solution, trace and summary files to this directory")
	flags.StringVar(&opts.prefix, "prefix", "maxcut", "File name prefix for --output-dir")
	flags.StringVar(&opts.trackFile, "track", "", "Write one JSON line per step to this file")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the summary as JSON")

	return cmd
}

func runAnneal(cmd *cobra.Command, opts *runOptions) error {
	if opts.graph == "" {
		return fmt.Errorf("a graph is required (argument or --graph)")
	}

	config, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRunFlags(cmd, config, opts)

	g, err := graph.Load(opts.graph)
	if err != nil {
		return err
	}

	params := anneal.ParamsFromConfig(config)
	if opts.initSolution != "" {
		params.InitialSolution, err = output.ReadSolution(opts.initSolution, g.NumNodes)
		if err != nil {
			return fmt.Errorf("failed to read initial solution: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := anneal.RunWithParams(g, config, params, ctx)
	if result == nil {
		return runErr
	}

	if err := printResult(cmd.OutOrStdout(), result, config, opts.jsonOutput); err != nil {
		return err
	}

	if opts.outputDir != "" {
		if err := output.NewFileWriter().WriteAll(result, g, opts.outputDir, opts.prefix); err != nil {
			return err
		}
		log.Info().Str("dir", opts.outputDir).Str("prefix", opts.prefix).Msg("Output files written")
	}

	return runErr
}

// applyRunFlags copies explicitly set flags over the file configuration
func applyRunFlags(cmd *cobra.Command, config *anneal.Config, opts *runOptions) {
	flags := cmd.Flags()
	if flags.Changed("temperature") {
		config.Set("algorithm.initial_temperature", opts.temperature)
	}
	if flags.Changed("steps") {
		config.Set("algorithm.num_steps", opts.steps)
	}
	if flags.Changed("seed") {
		config.Set("algorithm.random_seed", opts.seed)
	}
	if flags.Changed("init") {
		config.Set("algorithm.init_strategy", opts.initStrategy)
	}
	if flags.Changed("incremental") {
		config.Set("algorithm.incremental", opts.incremental)
	}
	if opts.trackFile != "" {
		config.Set("analysis.track_steps", true)
		config.Set("analysis.output_file", opts.trackFile)
	}
}

type runReport struct {
	output.RunSummary
	ElapsedMS int64                  `json:"elapsed_ms"`
	Solution  []int                  `json:"solution"`
	Config    map[string]interface{} `json:"config"`
}

func printResult(w io.Writer, result *anneal.Result, config *anneal.Config, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runReport{
			RunSummary: output.NewRunSummary(result),
			ElapsedMS:  result.Statistics.RuntimeMS,
			Solution:   result.Solution,
			Config:     config.AllSettings(),
		})
	}

	fmt.Fprintf(w, "Initial score: %g\n", result.InitScore)
	fmt.Fprintf(w, "Final score:   %g\n", result.FinalScore)
	fmt.Fprintf(w, "Best score:    %g\n", result.BestScore)
	fmt.Fprintf(w, "Elapsed:       %s\n", result.Statistics.Elapsed)
	fmt.Fprintf(w, "Steps:         %d/%d (acceptance %.1f%%)\n",
		result.StepsCompleted, result.NumSteps, 100*result.Statistics.AcceptanceRate())
	fmt.Fprintf(w, "Seed:          %d\n", result.Seed)

	if len(result.Solution) <= printSolutionLimit {
		fmt.Fprintf(w, "Solution:      %v\n", result.Solution)
	} else {
		summary := output.NewRunSummary(result)
		fmt.Fprintf(w, "Solution:      %d nodes on side 0, %d on side 1\n", summary.SideSizes[0], summary.SideSizes[1])
	}
	return nil
}
