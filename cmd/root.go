// Package cmd provides the maxcut command line interface.
package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
)

var (
	configFile string
	logLevel   string
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "maxcut",
		Short: "Max-Cut by simulated annealing",
		Long: `maxcut partitions the nodes of a weighted undirected graph into two sides
so that the total weight of edges crossing the partition is as large as
possible, using simulated annealing with single-node flips.

Graphs are edge-list files ("num_nodes num_edges" header, then "u v [w]"
lines) or generator specs: cycle:N, complete:N, grid:RxC, random:N:P[:W[:SEED]].`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(logLevel)
		},
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error, disabled")

	root.AddCommand(newRunCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newGenerateCmd())
	root.AddCommand(newServeCmd())

	return root
}

func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).Level(lvl)
}

// loadConfig returns the annealing configuration from --config, if any.
// An explicit --log-level wins over the file.
func loadConfig(cmd *cobra.Command) (*anneal.Config, error) {
	config := anneal.NewConfig()
	config.Set("logging.output", "stderr")
	if configFile != "" {
		if err := config.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("log-level") {
		config.Set("logging.level", logLevel)
	}
	return config, nil
}
