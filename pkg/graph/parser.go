package graph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// ReadEdgeListFile reads a graph from an edge list file
func ReadEdgeListFile(filename string) (*Graph, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	g, err := ParseEdgeList(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return g, nil
}

// ParseEdgeList reads the whitespace-delimited edge list format.
//
// The first non-comment line is the header "num_nodes num_edges". Every
// following line is "u v [weight]" with 0-indexed node ids; weight defaults
// to 1. Blank lines and lines starting with '#' are skipped.
func ParseEdgeList(r io.Reader) (*Graph, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var g *Graph
	expectedEdges := 0
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)

		if g == nil {
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid header format on line %d: expected 'num_nodes num_edges'", lineNum)
			}

			numNodes, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("invalid number of nodes on line %d: %w", lineNum, err)
			}
			if numNodes < 0 {
				return nil, fmt.Errorf("negative number of nodes on line %d: %d", lineNum, numNodes)
			}

			expectedEdges, err = strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("invalid number of edges on line %d: %w", lineNum, err)
			}

			g = NewGraph(numNodes)
			continue
		}

		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid edge format on line %d: expected 'from to [weight]'", lineNum)
		}

		u, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid source node on line %d: %w", lineNum, err)
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid target node on line %d: %w", lineNum, err)
		}

		// Default weight is 1.0
		weight := 1.0
		if len(parts) == 3 {
			weight, err = strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid weight on line %d: %w", lineNum, err)
			}
		}

		if err := g.AddEdge(u, v, weight); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading edge list: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("edge list is empty: missing 'num_nodes num_edges' header")
	}

	if g.NumEdges() != expectedEdges {
		log.Warn().
			Int("expected_edges", expectedEdges).
			Int("parsed_edges", g.NumEdges()).
			Msg("Edge count does not match header")
	}

	return g, nil
}

// WriteEdgeList writes g in the format accepted by ParseEdgeList
func WriteEdgeList(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", g.NumNodes, g.NumEdges()); err != nil {
		return err
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%d %d %s\n", e.U, e.V, strconv.FormatFloat(e.Weight, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteEdgeListFile writes g to the named file
func WriteEdgeListFile(filename string, g *Graph) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteEdgeList(file, g); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
