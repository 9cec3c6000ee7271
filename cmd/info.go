package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
)

func newInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <graph>",
		Short: "Show graph statistics",
		Long:  `Show node and edge counts, degree statistics, connected components and the trivial upper bound on the cut.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return err
			}
			summary, err := graph.Summarize(g)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Fprintf(w, "Nodes:            %d\n", summary.NumNodes)
			fmt.Fprintf(w, "Edges:            %d\n", summary.NumEdges)
			fmt.Fprintf(w, "Total weight:     %g\n", summary.TotalWeight)
			fmt.Fprintf(w, "Degree min/mean/max: %g / %.3f / %g\n", summary.MinDegree, summary.MeanDegree, summary.MaxDegree)
			fmt.Fprintf(w, "Components:       %d (largest %d)\n", summary.Components, summary.LargestComp)
			fmt.Fprintf(w, "Cut upper bound:  %g\n", summary.CutUpperBound)
			if summary.NegativeWeights {
				fmt.Fprintln(w, "Warning: graph has negative edge weights")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <spec> <file>",
		Short: "Write a generated graph as an edge list",
		Long: `Write a generated graph to an edge-list file that run, info and the HTTP
service can read back.

Examples:
  maxcut generate grid:10x10 grid.txt
  maxcut generate random:1000:0.01:9:42 random.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.Load(args[0])
			if err != nil {
				return err
			}
			path := filepath.Clean(args[1])
			if err := graph.WriteEdgeListFile(path, g); err != nil {
				return err
			}
			log.Info().
				Str("spec", args[0]).
				Str("path", path).
				Int("nodes", g.NumNodes).
				Int("edges", g.NumEdges()).
				Msg("Graph written")
			return nil
		},
	}
	return cmd
}
