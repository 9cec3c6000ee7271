package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddEdge(t *testing.T) {
	g := NewGraph(3)

	if err := g.AddEdge(0, 1, 2.5); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	if err := g.AddEdge(1, 2, 1.0); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	if g.NumEdges() != 2 {
		t.Errorf("Expected 2 edges, got %d", g.NumEdges())
	}
	if g.TotalWeight != 3.5 {
		t.Errorf("Expected total weight 3.5, got %f", g.TotalWeight)
	}
	if g.Degrees[1] != 3.5 {
		t.Errorf("Expected degree 3.5 for node 1, got %f", g.Degrees[1])
	}
	if neighbors, weights := g.GetNeighbors(1); len(neighbors) != 2 || weights[0] != 2.5 {
		t.Errorf("Expected node 1 to see weight 2.5 to node 0, got %v %v", neighbors, weights)
	}

	t.Run("RejectsSelfLoop", func(t *testing.T) {
		if err := g.AddEdge(1, 1, 1.0); err == nil {
			t.Error("Expected error for self-loop")
		}
	})

	t.Run("RejectsOutOfRange", func(t *testing.T) {
		if err := g.AddEdge(0, 3, 1.0); err == nil {
			t.Error("Expected error for out-of-range node")
		}
		if err := g.AddEdge(-1, 0, 1.0); err == nil {
			t.Error("Expected error for negative node")
		}
	})

	if g.NumEdges() != 2 {
		t.Errorf("Rejected edges must not be stored, got %d edges", g.NumEdges())
	}
}

func TestGraphValidation(t *testing.T) {
	if err := NewGraph(0).Validate(); err == nil {
		t.Error("Expected empty graph to fail validation")
	}

	var nilGraph *Graph
	if err := nilGraph.Validate(); err == nil {
		t.Error("Expected nil graph to fail validation")
	}

	if err := Cycle(5).Validate(); err != nil {
		t.Errorf("Cycle should validate: %v", err)
	}
}

func TestExactWeights(t *testing.T) {
	if !Grid(3, 3).ExactWeights() {
		t.Error("Unit weights should be exact")
	}
	if !Random(30, 0.3, 9, 4).ExactWeights() {
		t.Error("Integer weights should be exact")
	}

	g := NewGraph(3)
	g.AddEdge(0, 1, 2)
	g.AddEdge(1, 2, 0.1)
	if g.ExactWeights() {
		t.Error("Fractional weight should not be exact")
	}

	big := NewGraph(3)
	big.AddEdge(0, 1, 1<<52)
	big.AddEdge(1, 2, 1<<52)
	if big.ExactWeights() {
		t.Error("Weights summing to 2^53 should not be exact")
	}
}

func TestParseEdgeList(t *testing.T) {
	input := `# a 4-cycle
4 4
0 1
1 2 2.5

2 3 1
3 0
`
	g, err := ParseEdgeList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEdgeList failed: %v", err)
	}

	if g.NumNodes != 4 {
		t.Errorf("Expected 4 nodes, got %d", g.NumNodes)
	}
	if g.NumEdges() != 4 {
		t.Errorf("Expected 4 edges, got %d", g.NumEdges())
	}
	if g.TotalWeight != 5.5 {
		t.Errorf("Expected total weight 5.5, got %f", g.TotalWeight)
	}

	errorCases := map[string]string{
		"empty":          "",
		"bad header":     "4\n0 1\n",
		"bad node":       "2 1\nx 1\n",
		"bad weight":     "2 1\n0 1 abc\n",
		"out of range":   "2 1\n0 2\n",
		"self loop":      "2 1\n1 1\n",
		"too many cols":  "2 1\n0 1 1 1\n",
		"negative nodes": "-1 0\n",
	}
	for name, in := range errorCases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEdgeList(strings.NewReader(in)); err == nil {
				t.Errorf("Expected error for %q", in)
			}
		})
	}
}

func TestEdgeListRoundTripFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.txt")

	original := Random(20, 0.3, 5, 11)
	if err := WriteEdgeListFile(path, original); err != nil {
		t.Fatalf("WriteEdgeListFile failed: %v", err)
	}

	loaded, err := ReadEdgeListFile(path)
	if err != nil {
		t.Fatalf("ReadEdgeListFile failed: %v", err)
	}
	if loaded.NumNodes != original.NumNodes || loaded.NumEdges() != original.NumEdges() {
		t.Fatalf("Loaded %d nodes/%d edges, want %d/%d",
			loaded.NumNodes, loaded.NumEdges(), original.NumNodes, original.NumEdges())
	}
	if loaded.TotalWeight != original.TotalWeight {
		t.Errorf("Total weight changed: %f vs %f", loaded.TotalWeight, original.TotalWeight)
	}

	if _, err := ReadEdgeListFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name  string
		graph *Graph
		nodes int
		edges int
	}{
		{"cycle", Cycle(6), 6, 6},
		{"cycle of two", Cycle(2), 2, 1},
		{"complete", Complete(5), 5, 10},
		{"grid", Grid(3, 4), 12, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.graph.NumNodes != tt.nodes {
				t.Errorf("Expected %d nodes, got %d", tt.nodes, tt.graph.NumNodes)
			}
			if tt.graph.NumEdges() != tt.edges {
				t.Errorf("Expected %d edges, got %d", tt.edges, tt.graph.NumEdges())
			}
		})
	}

	t.Run("random is seeded", func(t *testing.T) {
		a := Random(30, 0.2, 9, 3)
		b := Random(30, 0.2, 9, 3)
		if a.NumEdges() != b.NumEdges() || a.TotalWeight != b.TotalWeight {
			t.Error("Random graphs with the same seed differ")
		}
		for _, e := range a.Edges() {
			if e.Weight < 1 || e.Weight > 9 {
				t.Fatalf("Weight %f outside [1,9]", e.Weight)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	specs := map[string]int{
		"cycle:4":           4,
		"complete:3":        3,
		"grid:2x3":          6,
		"random:10:0.5":     10,
		"random:10:0.5:3:9": 10,
	}
	for spec, nodes := range specs {
		g, err := Load(spec)
		if err != nil {
			t.Errorf("Load(%q) failed: %v", spec, err)
			continue
		}
		if g.NumNodes != nodes {
			t.Errorf("Load(%q): expected %d nodes, got %d", spec, nodes, g.NumNodes)
		}
	}

	for _, bad := range []string{"cycle:x", "grid:3", "random:5", "random:5:2", "bogus:1"} {
		if _, err := Load(bad); err == nil {
			t.Errorf("Load(%q) should fail", bad)
		}
	}

	path := filepath.Join(t.TempDir(), "g.edgelist")
	if err := os.WriteFile(path, []byte("3 2\n0 1\n1 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load(file) failed: %v", err)
	}
	if g.NumEdges() != 2 {
		t.Errorf("Expected 2 edges from file, got %d", g.NumEdges())
	}
}

func TestSummarize(t *testing.T) {
	g := NewGraph(6)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 2)
	g.AddEdge(0, 1, 3) // parallel edge
	g.AddEdge(3, 4, -1)

	s, err := Summarize(g)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.Components != 3 {
		t.Errorf("Expected 3 components (012, 34, 5), got %d", s.Components)
	}
	if s.LargestComp != 3 {
		t.Errorf("Expected largest component of 3, got %d", s.LargestComp)
	}
	if s.MaxDegree != 6 {
		t.Errorf("Expected max degree 6, got %f", s.MaxDegree)
	}
	if s.MinDegree != -1 {
		t.Errorf("Expected min degree -1, got %f", s.MinDegree)
	}
	if s.CutUpperBound != 6 {
		t.Errorf("Expected cut upper bound 6, got %f", s.CutUpperBound)
	}
	if !s.NegativeWeights {
		t.Error("Expected negative weights to be reported")
	}

	ug, err := ToGonum(g)
	if err != nil {
		t.Fatalf("ToGonum failed: %v", err)
	}
	if ug.Nodes().Len() != 6 {
		t.Errorf("Expected 6 gonum nodes, got %d", ug.Nodes().Len())
	}
	if w, ok := ug.Weight(0, 1); !ok || w != 4 {
		t.Errorf("Expected merged parallel weight 4, got %f (ok=%v)", w, ok)
	}
}
