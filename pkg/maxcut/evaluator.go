package maxcut

import (
	"fmt"

	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
)

// Validate checks that solution assigns a {0,1} label to every node of g
func Validate(solution []int, g *graph.Graph) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", ErrInvalidParameter)
	}
	if len(solution) != g.NumNodes {
		return fmt.Errorf("%w: solution length %d, graph has %d nodes", ErrDimensionMismatch, len(solution), g.NumNodes)
	}
	for i, label := range solution {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: label %d at node %d is not 0 or 1", ErrDimensionMismatch, label, i)
		}
	}
	return nil
}

// Evaluate computes the cut value: the summed weight of edges whose
// endpoints carry different labels.
func Evaluate(solution []int, g *graph.Graph) (float64, error) {
	if err := Validate(solution, g); err != nil {
		return 0, err
	}
	return cutValue(solution, g), nil
}

// MustEvaluate is Evaluate for callers that have already validated their
// inputs. It panics on a malformed solution.
func MustEvaluate(solution []int, g *graph.Graph) float64 {
	score, err := Evaluate(solution, g)
	if err != nil {
		panic(err)
	}
	return score
}

func cutValue(solution []int, g *graph.Graph) float64 {
	score := 0.0
	for _, e := range g.Edges() {
		if solution[e.U] != solution[e.V] {
			score += e.Weight
		}
	}
	return score
}

// FlipGain returns the change in cut value if node switched sides.
// Edges to same-side neighbours become cut (+w), cut edges become uncut (-w).
func FlipGain(solution []int, g *graph.Graph, node int) float64 {
	neighbors, weights := g.GetNeighbors(node)
	gain := 0.0
	label := solution[node]
	for i, neighbor := range neighbors {
		if solution[neighbor] == label {
			gain += weights[i]
		} else {
			gain -= weights[i]
		}
	}
	return gain
}

// Bipartition returns the deterministic starting partition: the first
// floor(n/2) nodes on side 0 and the rest on side 1.
func Bipartition(n int) []int {
	solution := make([]int, n)
	for i := n / 2; i < n; i++ {
		solution[i] = 1
	}
	return solution
}

// Sides splits a solution into the node ids on each side
func Sides(solution []int) (zero, one []int) {
	for i, label := range solution {
		if label == 0 {
			zero = append(zero, i)
		} else {
			one = append(one, i)
		}
	}
	return zero, one
}
