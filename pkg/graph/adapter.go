package graph

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the structure of a graph
type Summary struct {
	NumNodes        int     `json:"num_nodes"`
	NumEdges        int     `json:"num_edges"`
	TotalWeight     float64 `json:"total_weight"`
	MinDegree       float64 `json:"min_degree"`
	MaxDegree       float64 `json:"max_degree"`
	MeanDegree      float64 `json:"mean_degree"`
	Components      int     `json:"components"`
	LargestComp     int     `json:"largest_component"`
	NegativeWeights bool    `json:"negative_weights"`
	// CutUpperBound is the sum of positive edge weights; no cut can exceed it.
	CutUpperBound float64 `json:"cut_upper_bound"`
}

// ToGonum converts the graph to a gonum weighted undirected graph.
// Parallel edges are merged by summing their weights.
func ToGonum(g *Graph) (*simple.WeightedUndirectedGraph, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}

	ug := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < g.NumNodes; i++ {
		ug.AddNode(simple.Node(int64(i)))
	}

	for _, e := range g.Edges() {
		w := e.Weight
		if existing := ug.WeightedEdge(int64(e.U), int64(e.V)); existing != nil {
			w += existing.Weight()
		}
		ug.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(int64(e.U)),
			T: simple.Node(int64(e.V)),
			W: w,
		})
	}

	return ug, nil
}

// Summarize computes structural statistics for g
func Summarize(g *Graph) (Summary, error) {
	if err := g.Validate(); err != nil {
		return Summary{}, err
	}

	s := Summary{
		NumNodes:        g.NumNodes,
		NumEdges:        g.NumEdges(),
		TotalWeight:     g.TotalWeight,
		MinDegree:       floats.Min(g.Degrees),
		MaxDegree:       floats.Max(g.Degrees),
		MeanDegree:      stat.Mean(g.Degrees, nil),
		NegativeWeights: g.HasNegativeWeights(),
	}
	for _, e := range g.Edges() {
		if e.Weight > 0 {
			s.CutUpperBound += e.Weight
		}
	}

	ug, err := ToGonum(g)
	if err != nil {
		return Summary{}, err
	}
	comps := topo.ConnectedComponents(ug)
	sizes := make([]int, len(comps))
	for i, c := range comps {
		sizes[i] = len(c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	s.Components = len(comps)
	if len(sizes) > 0 {
		s.LargestComp = sizes[0]
	}

	return s, nil
}
