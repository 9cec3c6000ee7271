package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/maxcut-annealing/backend/config"
	"github.com/gilchrisn/maxcut-annealing/backend/metrics"
	"github.com/gilchrisn/maxcut-annealing/backend/models"
	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/maxcut"
)

type jobEntry struct {
	job    *models.Job
	cancel context.CancelFunc
	result *anneal.Result
	done   chan struct{}
}

// JobService handles background annealing jobs
type JobService struct {
	jobs     map[string]*jobEntry
	workers  chan struct{}
	datasets *DatasetService
	metrics  *metrics.Collector
	cfg      config.JobConfig
	mutex    sync.RWMutex

	ctx      context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	closed   sync.Once
	shutdown bool
}

// NewJobService creates a new job service and starts its cleanup loop
func NewJobService(datasets *DatasetService, cfg config.JobConfig, collector *metrics.Collector) *JobService {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &JobService{
		jobs:     make(map[string]*jobEntry),
		workers:  make(chan struct{}, cfg.MaxWorkers),
		datasets: datasets,
		metrics:  collector,
		cfg:      cfg,
		ctx:      ctx,
		stop:     stop,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Submit validates params against the dataset and queues a new job
func (s *JobService) Submit(datasetID string, params models.JobParameters) (*models.Job, error) {
	g, err := s.datasets.Graph(datasetID)
	if err != nil {
		return nil, err
	}

	resolved, runParams := s.resolveParameters(params)
	if s.cfg.MaxSteps > 0 && runParams.NumSteps > s.cfg.MaxSteps {
		return nil, fmt.Errorf("%w: numSteps %d exceeds the limit of %d", maxcut.ErrInvalidParameter, runParams.NumSteps, s.cfg.MaxSteps)
	}

	engine, err := anneal.NewEngine(g, runParams)
	if err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now()
	job := &models.Job{
		ID:         jobID,
		DatasetID:  datasetID,
		Parameters: resolved,
		Status:     models.JobStatusQueued,
		Progress: models.JobProgress{
			Percentage: 0,
			Message:    "Queued",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithCancel(s.ctx)
	entry := &jobEntry{job: job, cancel: cancel, done: make(chan struct{})}

	s.mutex.Lock()
	if s.shutdown {
		s.mutex.Unlock()
		cancel()
		return nil, ErrServiceClosed
	}
	s.jobs[jobID] = entry
	s.wg.Add(1)
	s.mutex.Unlock()

	if s.metrics != nil {
		s.metrics.JobsSubmitted.Inc()
	}

	log.Info().
		Str("job_id", jobID).
		Str("dataset_id", datasetID).
		Int("num_steps", runParams.NumSteps).
		Float64("initial_temperature", runParams.InitTemperature).
		Int64("seed", runParams.Seed).
		Msg("Job submitted")

	snapshot := *job
	go s.processJob(ctx, entry, engine, runParams.NumSteps)

	return &snapshot, nil
}

// resolveParameters fills unset parameters with the annealing defaults and
// pins the seed so the job can be reproduced.
func (s *JobService) resolveParameters(params models.JobParameters) (models.JobParameters, anneal.Params) {
	defaults := anneal.NewConfig()
	defaults.Set("algorithm.random_seed", time.Now().UnixNano())

	if params.InitialTemperature != nil {
		defaults.Set("algorithm.initial_temperature", *params.InitialTemperature)
	}
	if params.NumSteps != nil {
		defaults.Set("algorithm.num_steps", *params.NumSteps)
	}
	if params.Seed != nil {
		defaults.Set("algorithm.random_seed", *params.Seed)
	}
	if params.InitStrategy != nil {
		defaults.Set("algorithm.init_strategy", *params.InitStrategy)
	}
	if params.Incremental != nil {
		defaults.Set("algorithm.incremental", *params.Incremental)
	}

	run := anneal.ParamsFromConfig(defaults)
	resolved := models.JobParameters{
		InitialTemperature: &run.InitTemperature,
		NumSteps:           &run.NumSteps,
		Seed:               &run.Seed,
		InitStrategy:       &run.InitStrategy,
		Incremental:        &run.Incremental,
	}
	return resolved, run
}

// Get returns a snapshot of a job
func (s *JobService) Get(jobID string) (*models.Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	snapshot := *entry.job
	return &snapshot, nil
}

// GetResult returns the solution and trace of a finished job. Cancelled
// and timed-out jobs expose the partial run.
func (s *JobService) GetResult(jobID string) (*models.JobResultDetail, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if entry.result == nil || entry.job.Result == nil {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, entry.job.Status, ErrJobNotFinished)
	}

	return &models.JobResultDetail{
		JobID:     jobID,
		Solution:  entry.result.Solution,
		Trace:     entry.result.Trace,
		JobResult: *entry.job.Result,
	}, nil
}

// List returns job snapshots, oldest first. An empty datasetID lists all jobs.
func (s *JobService) List(datasetID string) []models.Job {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	jobs := make([]models.Job, 0, len(s.jobs))
	for _, entry := range s.jobs {
		if datasetID == "" || entry.job.DatasetID == datasetID {
			jobs = append(jobs, *entry.job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// ActiveCount returns the number of queued or running jobs
func (s *JobService) ActiveCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	active := 0
	for _, entry := range s.jobs {
		if !entry.job.Status.Finished() {
			active++
		}
	}
	return active
}

// Cancel stops a queued or running job. Cancelling a finished job is a no-op.
func (s *JobService) Cancel(jobID string) (*models.Job, error) {
	s.mutex.Lock()
	entry, exists := s.jobs[jobID]
	if !exists {
		s.mutex.Unlock()
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}

	if !entry.job.Status.Finished() {
		entry.job.Status = models.JobStatusCancelled
		entry.job.Progress.Message = "Cancelled"
		now := time.Now()
		entry.job.CompletedAt = &now
		entry.job.UpdatedAt = now

		log.Info().
			Str("job_id", jobID).
			Msg("Job cancelled")
	}
	snapshot := *entry.job
	s.mutex.Unlock()

	entry.cancel()
	return &snapshot, nil
}

// CancelForDataset cancels every active job of a dataset
func (s *JobService) CancelForDataset(datasetID string) int {
	s.mutex.RLock()
	var ids []string
	for id, entry := range s.jobs {
		if entry.job.DatasetID == datasetID && !entry.job.Status.Finished() {
			ids = append(ids, id)
		}
	}
	s.mutex.RUnlock()

	for _, id := range ids {
		s.Cancel(id)
	}
	return len(ids)
}

// Wait blocks until the job finishes or ctx is done
func (s *JobService) Wait(ctx context.Context, jobID string) (*models.Job, error) {
	s.mutex.RLock()
	entry, exists := s.jobs[jobID]
	s.mutex.RUnlock()
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}

	select {
	case <-entry.done:
		return s.Get(jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels all jobs, stops the cleanup loop and waits for workers
func (s *JobService) Close() {
	s.closed.Do(func() {
		s.mutex.Lock()
		s.shutdown = true
		s.mutex.Unlock()
		s.stop()
		s.wg.Wait()
	})
}

// processJob runs one job in the background
func (s *JobService) processJob(ctx context.Context, entry *jobEntry, engine *anneal.Engine, numSteps int) {
	defer s.wg.Done()
	defer close(entry.done)
	defer entry.cancel()

	jobID := entry.job.ID

	// Acquire worker slot
	select {
	case s.workers <- struct{}{}:
	case <-ctx.Done():
		s.finishJob(entry, nil, ctx.Err())
		return
	}
	defer func() { <-s.workers }()

	if !s.markRunning(entry) {
		s.finishJob(entry, nil, context.Canceled)
		return
	}

	if s.metrics != nil {
		s.metrics.JobsRunning.Inc()
		defer s.metrics.JobsRunning.Dec()
	}

	runCtx := ctx
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	interval := numSteps / 100
	if interval < 1 {
		interval = 1
	}
	engine.
		WithLogger(log.With().Str("job_id", jobID).Logger()).
		WithHook(func(info anneal.StepInfo) {
			if (info.Step+1)%interval == 0 {
				s.updateProgress(entry, (info.Step+1)*100/numSteps, info.CurrentScore)
			}
		})

	result, err := engine.Run(runCtx)
	s.finishJob(entry, result, err)
}

func (s *JobService) markRunning(entry *jobEntry) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry.job.Status != models.JobStatusQueued {
		return false
	}
	now := time.Now()
	entry.job.Status = models.JobStatusRunning
	entry.job.Progress.Message = "Starting..."
	entry.job.StartedAt = &now
	entry.job.UpdatedAt = now

	log.Info().
		Str("job_id", entry.job.ID).
		Str("dataset_id", entry.job.DatasetID).
		Msg("Job processing started")
	return true
}

func (s *JobService) updateProgress(entry *jobEntry, percentage int, score float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry.job.Status != models.JobStatusRunning {
		return
	}
	entry.job.Progress.Percentage = percentage
	entry.job.Progress.Message = fmt.Sprintf("Current cut %g", score)
	entry.job.UpdatedAt = time.Now()
}

// finishJob records the terminal state of a job. A job already marked
// cancelled stays cancelled even if its run completed.
func (s *JobService) finishJob(entry *jobEntry, result *anneal.Result, runErr error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job := entry.job
	now := time.Now()
	job.UpdatedAt = now
	if job.CompletedAt == nil {
		job.CompletedAt = &now
	}

	if result != nil {
		entry.result = result
		job.Result = &models.JobResult{
			InitScore:        result.InitScore,
			FinalScore:       result.FinalScore,
			BestScore:        result.BestScore,
			StepsCompleted:   result.StepsCompleted,
			ProcessingTimeMS: result.Statistics.RuntimeMS,
			Statistics:       result.Statistics,
		}
	}

	switch {
	case job.Status == models.JobStatusCancelled || errors.Is(runErr, context.Canceled):
		job.Status = models.JobStatusCancelled
		job.Progress.Message = "Cancelled"
	case errors.Is(runErr, context.DeadlineExceeded):
		job.Status = models.JobStatusFailed
		job.Error = fmt.Sprintf("timed out after %s", s.cfg.JobTimeout)
		job.Progress.Message = "Failed"
	case runErr != nil:
		job.Status = models.JobStatusFailed
		job.Error = runErr.Error()
		job.Progress.Message = "Failed"
	default:
		job.Status = models.JobStatusCompleted
		job.Progress.Percentage = 100
		job.Progress.Message = "Complete"
	}

	var steps int
	var elapsed time.Duration
	if result != nil {
		steps = result.StepsCompleted
		elapsed = result.Statistics.Elapsed
	}
	if s.metrics != nil {
		s.metrics.ObserveJob(string(job.Status), steps, elapsed)
	}

	event := log.Info()
	if job.Status == models.JobStatusFailed {
		event = log.Error().Str("error", job.Error)
	}
	event.
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Int("steps", steps).
		Dur("elapsed", elapsed).
		Msg("Job finished")
}

// cleanupLoop periodically removes expired jobs
func (s *JobService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanup removes finished jobs last updated before now - ResultTTL
func (s *JobService) cleanup(now time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.cfg.ResultTTL)
	cleaned := 0

	for jobID, entry := range s.jobs {
		if entry.job.Status.Finished() && entry.job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		log.Info().
			Int("cleaned_jobs", cleaned).
			Msg("Job cleanup completed")
	}
	return cleaned
}
