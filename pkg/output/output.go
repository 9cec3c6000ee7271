package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
)

// OutputWriter interface for flexible output generation
type OutputWriter interface {
	WriteSolution(result *anneal.Result, path string) error
	WriteTrace(result *anneal.Result, path string) error
	WriteSummary(result *anneal.Result, g *graph.Graph, path string) error
	WriteAll(result *anneal.Result, g *graph.Graph, outputDir string, prefix string) error
}

// FileWriter implements OutputWriter for file-based output
type FileWriter struct{}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() OutputWriter {
	return &FileWriter{}
}

// RunSummary is the content of the .summary.json file
type RunSummary struct {
	InitScore          float64           `json:"init_score"`
	FinalScore         float64           `json:"final_score"`
	BestScore          float64           `json:"best_score"`
	Improvement        float64           `json:"improvement"`
	Seed               int64             `json:"seed"`
	InitialTemperature float64           `json:"initial_temperature"`
	NumSteps           int               `json:"num_steps"`
	StepsCompleted     int               `json:"steps_completed"`
	AcceptanceRate     float64           `json:"acceptance_rate"`
	SideSizes          [2]int            `json:"side_sizes"`
	Statistics         anneal.Statistics `json:"statistics"`
	Graph              *graph.Summary    `json:"graph,omitempty"`
}

// Paths of the files written by WriteAll
func SolutionPath(outputDir, prefix string) string {
	return filepath.Join(outputDir, prefix+".solution")
}

func TracePath(outputDir, prefix string) string {
	return filepath.Join(outputDir, prefix+".trace")
}

func SummaryPath(outputDir, prefix string) string {
	return filepath.Join(outputDir, prefix+".summary.json")
}

// WriteAll writes all output files
func (fw *FileWriter) WriteAll(result *anneal.Result, g *graph.Graph, outputDir string, prefix string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := fw.WriteSolution(result, SolutionPath(outputDir, prefix)); err != nil {
		return fmt.Errorf("failed to write solution: %w", err)
	}
	if err := fw.WriteTrace(result, TracePath(outputDir, prefix)); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if err := fw.WriteSummary(result, g, SummaryPath(outputDir, prefix)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// WriteSolution writes one "node side" line per node
func (fw *FileWriter) WriteSolution(result *anneal.Result, path string) error {
	return writeFile(path, func(w *bufio.Writer) error {
		for node, side := range result.Solution {
			if _, err := fmt.Fprintf(w, "%d %d\n", node, side); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTrace writes one candidate score per line, in step order
func (fw *FileWriter) WriteTrace(result *anneal.Result, path string) error {
	return writeFile(path, func(w *bufio.Writer) error {
		for _, score := range result.Trace {
			if _, err := w.WriteString(strconv.FormatFloat(score, 'g', -1, 64) + "\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSummary writes the run summary as indented JSON
func (fw *FileWriter) WriteSummary(result *anneal.Result, g *graph.Graph, path string) error {
	summary := NewRunSummary(result)
	if g != nil {
		gs, err := graph.Summarize(g)
		if err != nil {
			return err
		}
		summary.Graph = &gs
	}

	return writeFile(path, func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	})
}

// NewRunSummary condenses a result without its per-step data
func NewRunSummary(result *anneal.Result) RunSummary {
	summary := RunSummary{
		InitScore:          result.InitScore,
		FinalScore:         result.FinalScore,
		BestScore:          result.BestScore,
		Improvement:        result.Improvement(),
		Seed:               result.Seed,
		InitialTemperature: result.InitialTemperature,
		NumSteps:           result.NumSteps,
		StepsCompleted:     result.StepsCompleted,
		AcceptanceRate:     result.Statistics.AcceptanceRate(),
		Statistics:         result.Statistics,
	}
	for _, side := range result.Solution {
		if side == 0 || side == 1 {
			summary.SideSizes[side]++
		}
	}
	return summary
}

// ReadSolution parses a file produced by WriteSolution. numNodes bounds the
// node ids; every node must appear exactly once.
func ReadSolution(path string, numNodes int) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseSolution(file, numNodes)
}

func ParseSolution(r io.Reader, numNodes int) ([]int, error) {
	solution := make([]int, numNodes)
	seen := make([]bool, numNodes)
	count := 0

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 'node side', got %q", lineNum, line)
		}
		node, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid node %q", lineNum, fields[0])
		}
		side, err := strconv.Atoi(fields[1])
		if err != nil || (side != 0 && side != 1) {
			return nil, fmt.Errorf("line %d: invalid side %q", lineNum, fields[1])
		}
		if node < 0 || node >= numNodes {
			return nil, fmt.Errorf("line %d: node %d out of range [0,%d)", lineNum, node, numNodes)
		}
		if seen[node] {
			return nil, fmt.Errorf("line %d: node %d listed twice", lineNum, node)
		}

		seen[node] = true
		solution[node] = side
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if count != numNodes {
		return nil, fmt.Errorf("solution covers %d of %d nodes", count, numNodes)
	}
	return solution, nil
}

func writeFile(path string, body func(w *bufio.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := body(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}
