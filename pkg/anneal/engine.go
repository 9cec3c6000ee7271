package anneal

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
	"github.com/gilchrisn/maxcut-annealing/pkg/maxcut"
	"github.com/gilchrisn/maxcut-annealing/pkg/utils"
)

// DefaultEpsilon is added to the temperature in the acceptance exponent
const DefaultEpsilon = 1e-6

// ctx is polled every ctxCheckInterval steps
const ctxCheckInterval = 1024

// maxTracePrealloc caps the trace capacity reserved up front
const maxTracePrealloc = 1 << 20

// State of an Engine
type State int

const (
	StateInit State = iota
	StateIterating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params are the inputs of a single annealing run
type Params struct {
	InitTemperature float64
	NumSteps        int
	Seed            int64

	// Epsilon defaults to DefaultEpsilon when zero.
	Epsilon float64
	// InitStrategy is InitBipartition (default) or InitRandom.
	InitStrategy string
	// InitialSolution, when set, replaces InitStrategy. Used to resume a run.
	InitialSolution []int
	// Incremental scores moves with maxcut.FlipGain instead of a full
	// re-evaluation. It only takes effect on graphs whose weights make every
	// partial sum exact (see graph.ExactWeights); otherwise moves are fully
	// re-evaluated so the trace stays identical to the full mode.
	Incremental bool
}

// ParamsFromConfig extracts run parameters from a Config
func ParamsFromConfig(c *Config) Params {
	return Params{
		InitTemperature: c.InitialTemperature(),
		NumSteps:        c.NumSteps(),
		Seed:            c.RandomSeed(),
		Epsilon:         c.Epsilon(),
		InitStrategy:    c.InitStrategy(),
		Incremental:     c.Incremental(),
	}
}

// StepInfo describes one completed step
type StepInfo struct {
	Step           int
	Node           int
	Temperature    float64
	CandidateScore float64
	CurrentScore   float64
	Accepted       bool
}

// StepHook is invoked after every step with the step outcome
type StepHook func(StepInfo)

// Engine runs simulated annealing for Max-Cut on one graph. It owns its
// solution buffers and random stream; independent engines may share a graph.
type Engine struct {
	graph           *graph.Graph
	initTemperature float64
	numSteps        int
	epsilon         float64
	incremental     bool
	fallback        bool
	seed            int64
	rng             *rand.Rand

	logger           zerolog.Logger
	progressEnabled  bool
	progressInterval int
	tracker          *utils.StepTracker
	hook             StepHook

	state        State
	current      []int
	candidate    []int
	currScore    float64
	initScore    float64
	best         []int
	bestScore    float64
	trace        []float64
	stats        Statistics
	stepsCovered int
}

// NewEngine validates params and prepares the initial solution
func NewEngine(g *graph.Graph, params Params) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: graph is nil", maxcut.ErrInvalidParameter)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", maxcut.ErrInvalidParameter, err)
	}
	if params.NumSteps <= 0 {
		return nil, fmt.Errorf("%w: num_steps must be > 0 (got %d)", maxcut.ErrInvalidParameter, params.NumSteps)
	}
	if !(params.InitTemperature > 0) || math.IsInf(params.InitTemperature, 0) {
		return nil, fmt.Errorf("%w: initial temperature must be a positive number (got %f)", maxcut.ErrInvalidParameter, params.InitTemperature)
	}

	epsilon := params.Epsilon
	if epsilon == 0 {
		epsilon = DefaultEpsilon
	}
	if !(epsilon > 0) {
		return nil, fmt.Errorf("%w: epsilon must be > 0 (got %f)", maxcut.ErrInvalidParameter, epsilon)
	}

	e := &Engine{
		graph:            g,
		initTemperature:  params.InitTemperature,
		numSteps:         params.NumSteps,
		epsilon:          epsilon,
		incremental:      params.Incremental && g.ExactWeights(),
		fallback:         params.Incremental && !g.ExactWeights(),
		seed:             params.Seed,
		rng:              rand.New(rand.NewSource(params.Seed)),
		logger:           zerolog.Nop(),
		progressInterval: 1000,
		state:            StateInit,
	}

	switch {
	case params.InitialSolution != nil:
		if err := maxcut.Validate(params.InitialSolution, g); err != nil {
			return nil, err
		}
		e.current = append([]int(nil), params.InitialSolution...)
	case params.InitStrategy == "" || params.InitStrategy == InitBipartition:
		e.current = maxcut.Bipartition(g.NumNodes)
	case params.InitStrategy == InitRandom:
		e.current = make([]int, g.NumNodes)
		for i := range e.current {
			e.current[i] = e.rng.Intn(2)
		}
	default:
		return nil, fmt.Errorf("%w: unknown init strategy %q", maxcut.ErrInvalidParameter, params.InitStrategy)
	}

	e.candidate = make([]int, g.NumNodes)
	e.currScore = maxcut.MustEvaluate(e.current, g)
	e.initScore = e.currScore
	e.best = append([]int(nil), e.current...)
	e.bestScore = e.currScore
	e.trace = make([]float64, 0, min(params.NumSteps, maxTracePrealloc))
	e.stats.Evaluations = 1

	return e, nil
}

// WithLogger sets the logger used for progress output
func (e *Engine) WithLogger(logger zerolog.Logger) *Engine {
	e.logger = logger
	return e
}

// WithProgress enables a progress log line every interval steps
func (e *Engine) WithProgress(enabled bool, interval int) *Engine {
	e.progressEnabled = enabled
	if interval > 0 {
		e.progressInterval = interval
	}
	return e
}

// WithTracker records every step to tracker
func (e *Engine) WithTracker(tracker *utils.StepTracker) *Engine {
	e.tracker = tracker
	return e
}

// WithHook registers a callback invoked after every step
func (e *Engine) WithHook(hook StepHook) *Engine {
	e.hook = hook
	return e
}

// State returns the engine lifecycle state
func (e *Engine) State() State { return e.state }

// InitScore returns the cut value of the starting solution
func (e *Engine) InitScore() float64 { return e.initScore }

// Current returns a copy of the current solution
func (e *Engine) Current() []int { return append([]int(nil), e.current...) }

// Incremental reports whether moves are scored with maxcut.FlipGain
func (e *Engine) Incremental() bool { return e.incremental }

// Temperature returns the schedule temperature at step k
func (e *Engine) Temperature(k int) float64 {
	return Temperature(e.initTemperature, k, e.numSteps)
}

// Run executes all steps. If ctx is cancelled the steps completed so far are
// returned together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.state != StateInit {
		return nil, fmt.Errorf("engine already %s", e.state)
	}
	e.state = StateIterating
	startTime := time.Now()

	e.logger.Info().
		Int("nodes", e.graph.NumNodes).
		Int("edges", e.graph.NumEdges()).
		Float64("initial_temperature", e.initTemperature).
		Int("num_steps", e.numSteps).
		Int64("seed", e.seed).
		Bool("incremental", e.incremental).
		Float64("init_score", e.initScore).
		Msg("Starting simulated annealing")
	if e.fallback {
		e.logger.Warn().Msg("Graph has non-integer weights, incremental scoring disabled")
	}

	n := e.graph.NumNodes
	for k := 0; k < e.numSteps; k++ {
		if k%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				e.logger.Warn().Int("step", k).Err(err).Msg("Annealing interrupted")
				return e.finish(startTime), err
			}
		}

		temperature := e.Temperature(k)
		node := e.rng.Intn(n)

		var candScore float64
		if e.incremental {
			candScore = e.currScore + maxcut.FlipGain(e.current, e.graph, node)
		} else {
			copy(e.candidate, e.current)
			e.candidate[node] ^= 1
			candScore = maxcut.MustEvaluate(e.candidate, e.graph)
		}
		e.stats.Evaluations++
		e.trace = append(e.trace, candScore)

		accepted := e.accept(candScore, temperature)
		if accepted {
			if e.incremental {
				e.current[node] ^= 1
			} else {
				e.current, e.candidate = e.candidate, e.current
			}
			e.currScore = candScore

			if e.currScore > e.bestScore {
				e.bestScore = e.currScore
				copy(e.best, e.current)
			}
		}
		e.stepsCovered = k + 1

		if e.hook != nil || e.tracker != nil {
			info := StepInfo{
				Step:           k,
				Node:           node,
				Temperature:    temperature,
				CandidateScore: candScore,
				CurrentScore:   e.currScore,
				Accepted:       accepted,
			}
			if e.hook != nil {
				e.hook(info)
			}
			e.tracker.LogStep(utils.StepEvent{
				Step:           info.Step,
				Node:           info.Node,
				Temperature:    info.Temperature,
				CandidateScore: info.CandidateScore,
				CurrentScore:   info.CurrentScore,
				Accepted:       info.Accepted,
			})
		}

		if e.progressEnabled && (k+1)%e.progressInterval == 0 {
			e.logger.Info().
				Int("step", k+1).
				Float64("temperature", temperature).
				Float64("current_score", e.currScore).
				Float64("best_score", e.bestScore).
				Float64("acceptance_rate", e.stats.AcceptanceRate()).
				Msg("Annealing progress")
		}
	}

	result := e.finish(startTime)

	e.logger.Info().
		Float64("init_score", result.InitScore).
		Float64("final_score", result.FinalScore).
		Float64("best_score", result.BestScore).
		Int("accepted", result.Statistics.Accepted).
		Int("rejected", result.Statistics.Rejected).
		Int64("runtime_ms", result.Statistics.RuntimeMS).
		Msg("Simulated annealing completed")

	return result, nil
}

// accept applies the Metropolis rule for maximization. Strict improvements
// are taken without consuming a random draw; ties have probability 1.
func (e *Engine) accept(candScore, temperature float64) bool {
	delta := e.currScore - candScore
	if delta < 0 {
		e.stats.Improving++
		e.stats.Accepted++
		return true
	}

	prob := math.Exp(-delta / (temperature + e.epsilon))
	if prob > e.rng.Float64() {
		e.stats.Accepted++
		if delta == 0 {
			e.stats.Sideways++
		} else {
			e.stats.WorseningAccepted++
		}
		return true
	}

	e.stats.Rejected++
	return false
}

func (e *Engine) finish(startTime time.Time) *Result {
	e.state = StateDone
	e.stats.Elapsed = time.Since(startTime)
	e.stats.RuntimeMS = e.stats.Elapsed.Milliseconds()

	return &Result{
		InitScore:          e.initScore,
		FinalScore:         e.currScore,
		Solution:           append([]int(nil), e.current...),
		Trace:              e.trace,
		BestScore:          e.bestScore,
		BestSolution:       append([]int(nil), e.best...),
		Seed:               e.seed,
		InitialTemperature: e.initTemperature,
		NumSteps:           e.numSteps,
		StepsCompleted:     e.stepsCovered,
		Statistics:         e.stats,
	}
}

// Run executes simulated annealing on graph with the given configuration
func Run(g *graph.Graph, config *Config, ctx context.Context) (*Result, error) {
	return RunWithParams(g, config, ParamsFromConfig(config), ctx)
}

// RunWithParams is Run with explicit run parameters. config still supplies
// logging and step tracking settings.
func RunWithParams(g *graph.Graph, config *Config, params Params, ctx context.Context) (*Result, error) {
	logger := config.CreateLogger()

	engine, err := NewEngine(g, params)
	if err != nil {
		return nil, err
	}
	engine.WithLogger(logger).WithProgress(config.EnableProgress(), config.ProgressInterval())

	if config.EnableStepTracking() {
		tracker, err := utils.NewStepTracker(config.TrackingOutputFile(), "anneal")
		if err != nil {
			return nil, fmt.Errorf("failed to create step tracker: %w", err)
		}
		engine.WithTracker(tracker)

		result, runErr := engine.Run(ctx)
		if closeErr := tracker.Close(); closeErr != nil && runErr == nil {
			logger.Error().Err(closeErr).Msg("Failed to write step tracking output")
		}
		return result, runErr
	}

	return engine.Run(ctx)
}
