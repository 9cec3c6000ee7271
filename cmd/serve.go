package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/maxcut-annealing/backend/api"
	"github.com/gilchrisn/maxcut-annealing/backend/config"
	"github.com/gilchrisn/maxcut-annealing/backend/metrics"
	"github.com/gilchrisn/maxcut-annealing/backend/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job service",
		Long: `Serve the REST API for uploading graphs and running annealing jobs in the
background. Settings come from the environment (SERVER_ADDRESS,
JOB_MAX_WORKERS, JOB_TIMEOUT, JOB_RESULT_TTL, JOB_CLEANUP_INTERVAL,
MAX_UPLOAD_SIZE, CORS_ALLOWED_ORIGINS). Prometheus metrics are exposed at
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("address") {
				cfg.Server.Address = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", ":8080", "Listen address (overrides SERVER_ADDRESS)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("address", cfg.Server.Address).
		Int("max_workers", cfg.Jobs.MaxWorkers).
		Dur("job_timeout", cfg.Jobs.JobTimeout).
		Msg("Configuration loaded")

	collector := metrics.NewCollector("maxcut")
	datasetService := service.NewDatasetService(collector)
	jobService := service.NewJobService(datasetService, cfg.Jobs, collector)
	defer jobService.Close()

	handlers := api.NewHandlers(datasetService, jobService, cfg.Storage.MaxUploadSize)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handlers, collector, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
