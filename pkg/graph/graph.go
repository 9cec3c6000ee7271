package graph

import (
	"fmt"
	"math"
)

// Edge is an undirected weighted edge between two distinct nodes
type Edge struct {
	U      int     `json:"u"`
	V      int     `json:"v"`
	Weight float64 `json:"weight"`
}

// Graph represents a weighted undirected graph using simple arrays.
// Once built it is treated as immutable and may be shared across goroutines.
type Graph struct {
	NumNodes    int         `json:"num_nodes"`
	EdgeList    []Edge      `json:"-"`            // edges in insertion order
	Adjacency   [][]int     `json:"-"`            // adjacency[i] = list of neighbors of node i
	Weights     [][]float64 `json:"-"`            // weights[i][j] = weight of edge from node i to neighbor adjacency[i][j]
	Degrees     []float64   `json:"degrees"`      // degrees[i] = weighted degree of node i
	TotalWeight float64     `json:"total_weight"` // sum of all edge weights
}

// NewGraph creates a new graph with n nodes
func NewGraph(numNodes int) *Graph {
	if numNodes < 0 {
		numNodes = 0
	}
	return &Graph{
		NumNodes:    numNodes,
		EdgeList:    make([]Edge, 0),
		Adjacency:   make([][]int, numNodes),
		Weights:     make([][]float64, numNodes),
		Degrees:     make([]float64, numNodes),
		TotalWeight: 0.0,
	}
}

// AddEdge adds a weighted edge between two nodes
func (g *Graph) AddEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if u == v {
		return fmt.Errorf("self-loop on node %d is not allowed", u)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("edge weight must be finite: %f", weight)
	}

	g.EdgeList = append(g.EdgeList, Edge{U: u, V: v, Weight: weight})

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], weight)
	g.Degrees[u] += weight

	g.Adjacency[v] = append(g.Adjacency[v], u)
	g.Weights[v] = append(g.Weights[v], weight)
	g.Degrees[v] += weight

	g.TotalWeight += weight
	return nil
}

// Edges returns the edge list. Callers must not modify it.
func (g *Graph) Edges() []Edge {
	return g.EdgeList
}

// NumEdges returns the number of edges
func (g *Graph) NumEdges() int {
	return len(g.EdgeList)
}

// GetNeighbors returns neighbors and their edge weights for a node
func (g *Graph) GetNeighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}
	return g.Adjacency[node], g.Weights[node]
}

// HasNegativeWeights reports whether any edge carries a negative weight
func (g *Graph) HasNegativeWeights() bool {
	for _, e := range g.EdgeList {
		if e.Weight < 0 {
			return true
		}
	}
	return false
}

// maxExactSum is the largest magnitude below which every integer is a float64
const maxExactSum = 1 << 53

// ExactWeights reports whether every edge weight is an integer and the sum of
// their magnitudes stays below 2^53. Any partial cut sum is then exact, so the
// order in which weights are added does not change the result.
func (g *Graph) ExactWeights() bool {
	total := 0.0
	for _, e := range g.EdgeList {
		if e.Weight != math.Trunc(e.Weight) {
			return false
		}
		total += math.Abs(e.Weight)
		if total >= maxExactSum {
			return false
		}
	}
	return true
}

// Validate checks graph consistency
func (g *Graph) Validate() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if g.NumNodes <= 0 {
		return fmt.Errorf("graph must have positive number of nodes")
	}
	if len(g.Adjacency) != g.NumNodes || len(g.Weights) != g.NumNodes || len(g.Degrees) != g.NumNodes {
		return fmt.Errorf("adjacency arrays sized for %d nodes, graph has %d", len(g.Adjacency), g.NumNodes)
	}

	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) != len(g.Weights[i]) {
			return fmt.Errorf("adjacency and weights arrays inconsistent for node %d", i)
		}

		for _, neighbor := range g.Adjacency[i] {
			if neighbor < 0 || neighbor >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", neighbor, i)
			}
			if neighbor == i {
				return fmt.Errorf("self-loop on node %d", i)
			}
		}
	}

	for idx, e := range g.EdgeList {
		if e.U < 0 || e.U >= g.NumNodes || e.V < 0 || e.V >= g.NumNodes {
			return fmt.Errorf("edge %d references node outside [0,%d): %d-%d", idx, g.NumNodes, e.U, e.V)
		}
	}

	return nil
}
