package graph

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Cycle builds the n-node ring 0-1-...-(n-1)-0 with unit weights
func Cycle(n int) *Graph {
	g := NewGraph(n)
	if n < 3 {
		for i := 0; i+1 < n; i++ {
			g.AddEdge(i, i+1, 1.0)
		}
		return g
	}
	for i := 0; i < n; i++ {
		g.AddEdge(i, (i+1)%n, 1.0)
	}
	return g
}

// Complete builds K_n with unit weights
func Complete(n int) *Graph {
	g := NewGraph(n)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			g.AddEdge(u, v, 1.0)
		}
	}
	return g
}

// Grid builds a rows x cols lattice with unit weights. Node (r, c) has id r*cols+c.
func Grid(rows, cols int) *Graph {
	if rows <= 0 || cols <= 0 {
		return NewGraph(0)
	}
	g := NewGraph(rows * cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := r*cols + c
			if c+1 < cols {
				g.AddEdge(id, id+1, 1.0)
			}
			if r+1 < rows {
				g.AddEdge(id, id+cols, 1.0)
			}
		}
	}
	return g
}

// Random builds an Erdős–Rényi G(n, p) graph. Weights are integers drawn
// uniformly from [1, maxWeight]; maxWeight <= 1 gives unit weights.
func Random(n int, p float64, maxWeight int, seed int64) *Graph {
	rng := rand.New(rand.NewSource(seed))
	g := NewGraph(n)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			if rng.Float64() >= p {
				continue
			}
			w := 1.0
			if maxWeight > 1 {
				w = float64(1 + rng.Intn(maxWeight))
			}
			g.AddEdge(u, v, w)
		}
	}
	return g
}

// Load resolves a dataset spec to a graph. Recognised forms:
//
//	cycle:<n>
//	complete:<n>
//	grid:<rows>x<cols>
//	random:<n>:<p>[:<maxWeight>[:<seed>]]
//
// Anything else is treated as a path to an edge list file.
func Load(spec string) (*Graph, error) {
	kind, args, found := strings.Cut(spec, ":")
	if !found {
		return ReadEdgeListFile(spec)
	}

	switch kind {
	case "cycle", "complete":
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("dataset %q: expected positive node count", spec)
		}
		if kind == "cycle" {
			return Cycle(n), nil
		}
		return Complete(n), nil

	case "grid":
		rs, cs, ok := strings.Cut(args, "x")
		if !ok {
			return nil, fmt.Errorf("dataset %q: expected grid:<rows>x<cols>", spec)
		}
		rows, err1 := strconv.Atoi(rs)
		cols, err2 := strconv.Atoi(cs)
		if err1 != nil || err2 != nil || rows <= 0 || cols <= 0 {
			return nil, fmt.Errorf("dataset %q: invalid grid dimensions", spec)
		}
		return Grid(rows, cols), nil

	case "random":
		parts := strings.Split(args, ":")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("dataset %q: expected random:<n>:<p>[:<maxWeight>[:<seed>]]", spec)
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("dataset %q: invalid node count", spec)
		}
		p, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || p < 0 || p > 1 {
			return nil, fmt.Errorf("dataset %q: edge probability must be in [0,1]", spec)
		}
		maxWeight := 1
		if len(parts) >= 3 {
			if maxWeight, err = strconv.Atoi(parts[2]); err != nil {
				return nil, fmt.Errorf("dataset %q: invalid max weight: %w", spec, err)
			}
		}
		seed := int64(1)
		if len(parts) == 4 {
			if seed, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
				return nil, fmt.Errorf("dataset %q: invalid seed: %w", spec, err)
			}
		}
		return Random(n, p, maxWeight, seed), nil
	}

	// Windows drive letters and other paths containing ':'
	if _, err := os.Stat(spec); err == nil {
		return ReadEdgeListFile(spec)
	}
	return nil, fmt.Errorf("unknown dataset kind %q in %q", kind, spec)
}
