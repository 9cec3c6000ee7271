package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/maxcut-annealing/backend/config"
	"github.com/gilchrisn/maxcut-annealing/backend/metrics"
	"github.com/gilchrisn/maxcut-annealing/backend/models"
	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/maxcut"
)

const fourCycle = `# unit 4-cycle
4 4
0 1
1 2
2 3
3 0
`

func newServices(t *testing.T, cfg config.JobConfig) (*DatasetService, *JobService, *metrics.Collector) {
	t.Helper()
	collector := metrics.NewCollector("test")
	datasets := NewDatasetService(collector)
	jobs := NewJobService(datasets, cfg, collector)
	t.Cleanup(jobs.Close)
	return datasets, jobs, collector
}

func waitJob(t *testing.T, jobs *JobService, id string) *models.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	job, err := jobs.Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func TestDatasetService(t *testing.T) {
	datasets, _, collector := newServices(t, config.JobConfig{})

	t.Run("upload", func(t *testing.T) {
		ds, err := datasets.Upload("c4", strings.NewReader(fourCycle))
		require.NoError(t, err)

		assert.Equal(t, "c4", ds.Name)
		assert.Equal(t, "upload", ds.Source)
		assert.Equal(t, 4, ds.Metadata.Graph.NumNodes)
		assert.Equal(t, 4, ds.Metadata.Graph.NumEdges)
		assert.Equal(t, int64(len(fourCycle)), ds.Metadata.SizeBytes)

		got, err := datasets.Get(ds.ID)
		require.NoError(t, err)
		assert.Equal(t, ds.ID, got.ID)
	})

	t.Run("upload rejects malformed edge list", func(t *testing.T) {
		_, err := datasets.Upload("bad", strings.NewReader("3 1\n0 7\n"))
		assert.True(t, errors.Is(err, maxcut.ErrInvalidParameter), "got %v", err)
	})

	t.Run("generate", func(t *testing.T) {
		ds, err := datasets.Generate("", "grid:3x4")
		require.NoError(t, err)
		assert.Equal(t, "Unnamed Dataset", ds.Name)
		assert.Equal(t, 12, ds.Metadata.Graph.NumNodes)
		assert.Equal(t, 17, ds.Metadata.Graph.NumEdges)
	})

	t.Run("generate rejects file paths", func(t *testing.T) {
		_, err := datasets.Generate("x", "/etc/passwd")
		assert.True(t, errors.Is(err, maxcut.ErrInvalidParameter))

		_, err = datasets.Generate("x", "hexagon:3")
		assert.True(t, errors.Is(err, maxcut.ErrInvalidParameter))
	})

	t.Run("list and delete", func(t *testing.T) {
		before := len(datasets.List())
		ds, err := datasets.Generate("k5", "complete:5")
		require.NoError(t, err)
		assert.Len(t, datasets.List(), before+1)
		assert.Equal(t, float64(before+1), testutil.ToFloat64(collector.Datasets))

		require.NoError(t, datasets.Delete(ds.ID))
		assert.Len(t, datasets.List(), before)

		_, err = datasets.Get(ds.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, errors.Is(datasets.Delete(ds.ID), ErrNotFound))
	})
}

func TestJobLifecycle(t *testing.T) {
	datasets, jobs, collector := newServices(t, config.JobConfig{MaxWorkers: 2})

	ds, err := datasets.Upload("c4", strings.NewReader(fourCycle))
	require.NoError(t, err)

	job, err := jobs.Submit(ds.ID, models.JobParameters{
		InitialTemperature: floatPtr(4),
		NumSteps:           intPtr(500),
		Seed:               int64Ptr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, "bipartition", *job.Parameters.InitStrategy)

	finished := waitJob(t, jobs, job.ID)
	assert.Equal(t, models.JobStatusCompleted, finished.Status)
	assert.Equal(t, 100, finished.Progress.Percentage)
	require.NotNil(t, finished.Result)
	assert.Equal(t, 2.0, finished.Result.InitScore)
	assert.Equal(t, 500, finished.Result.StepsCompleted)
	assert.NotNil(t, finished.StartedAt)
	assert.NotNil(t, finished.CompletedAt)

	detail, err := jobs.GetResult(job.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Trace, 500)
	assert.Len(t, detail.Solution, 4)
	assert.Equal(t, finished.Result.FinalScore, detail.FinalScore)

	g, err := datasets.Graph(ds.ID)
	require.NoError(t, err)
	score, err := maxcut.Evaluate(detail.Solution, g)
	require.NoError(t, err)
	assert.Equal(t, detail.FinalScore, score)

	// Same seed reproduces the run
	again, err := jobs.Submit(ds.ID, models.JobParameters{
		InitialTemperature: floatPtr(4),
		NumSteps:           intPtr(500),
		Seed:               int64Ptr(3),
	})
	require.NoError(t, err)
	waitJob(t, jobs, again.ID)
	againDetail, err := jobs.GetResult(again.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.Trace, againDetail.Trace)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.JobsSubmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.JobsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(collector.AnnealSteps))
	assert.Len(t, jobs.List(ds.ID), 2)
	assert.Len(t, jobs.List("other"), 0)
}

func TestJobSubmitValidation(t *testing.T) {
	datasets, jobs, _ := newServices(t, config.JobConfig{MaxSteps: 1000})

	ds, err := datasets.Upload("c4", strings.NewReader(fourCycle))
	require.NoError(t, err)

	cases := []struct {
		name   string
		params models.JobParameters
	}{
		{"zero steps", models.JobParameters{NumSteps: intPtr(0)}},
		{"negative temperature", models.JobParameters{InitialTemperature: floatPtr(-2)}},
		{"unknown init", models.JobParameters{InitStrategy: stringPtr("spectral")}},
		{"too many steps", models.JobParameters{NumSteps: intPtr(1001)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jobs.Submit(ds.ID, tc.params)
			assert.True(t, errors.Is(err, maxcut.ErrInvalidParameter), "got %v", err)
		})
	}

	_, err = jobs.Submit("missing", models.JobParameters{})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, jobs.List(""))
}

func TestJobCancel(t *testing.T) {
	datasets, jobs, collector := newServices(t, config.JobConfig{MaxWorkers: 1})

	ds, err := datasets.Generate("big", "random:300:0.05:3:1")
	require.NoError(t, err)

	long, err := jobs.Submit(ds.ID, models.JobParameters{NumSteps: intPtr(5_000_000), Seed: int64Ptr(1)})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		job, err := jobs.Get(long.ID)
		return err == nil && job.Status == models.JobStatusRunning
	}, 5*time.Second, 5*time.Millisecond)

	// The second job waits for the only worker
	queued, err := jobs.Submit(ds.ID, models.JobParameters{NumSteps: intPtr(10), Seed: int64Ptr(2)})
	require.NoError(t, err)
	cancelled, err := jobs.Cancel(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.JobsRunning) == 1
	}, 5*time.Second, 5*time.Millisecond)

	_, err = jobs.Cancel(long.ID)
	require.NoError(t, err)

	finished := waitJob(t, jobs, long.ID)
	assert.Equal(t, models.JobStatusCancelled, finished.Status)
	if finished.Result != nil {
		assert.Less(t, finished.Result.StepsCompleted, 5_000_000)
	}

	finishedQueued := waitJob(t, jobs, queued.ID)
	assert.Equal(t, models.JobStatusCancelled, finishedQueued.Status)
	assert.Nil(t, finishedQueued.StartedAt)

	_, err = jobs.GetResult(queued.ID)
	assert.True(t, errors.Is(err, ErrJobNotFinished))

	_, err = jobs.Cancel("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, jobs.ActiveCount())
}

func TestCancelledJobSkipsWorker(t *testing.T) {
	datasets, jobs, collector := newServices(t, config.JobConfig{MaxWorkers: 1})

	ds, err := datasets.Upload("cycle", strings.NewReader(fourCycle))
	require.NoError(t, err)
	g, err := datasets.Graph(ds.ID)
	require.NoError(t, err)
	engine, err := anneal.NewEngine(g, anneal.Params{InitTemperature: 1, NumSteps: 10})
	require.NoError(t, err)

	// Cancelled after queueing but before a worker picked it up
	ctx, cancel := context.WithCancel(context.Background())
	entry := &jobEntry{
		job:    &models.Job{ID: "queued", DatasetID: ds.ID, Status: models.JobStatusCancelled},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	jobs.wg.Add(1)
	jobs.processJob(ctx, entry, engine, 10)

	assert.Equal(t, models.JobStatusCancelled, entry.job.Status)
	assert.Nil(t, entry.job.StartedAt)
	assert.Nil(t, entry.result)
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.JobsRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.JobsFinished.WithLabelValues(string(models.JobStatusCancelled))))
	assert.Equal(t, anneal.StateInit, engine.State())
}

func TestSubmitAfterClose(t *testing.T) {
	datasets, jobs, _ := newServices(t, config.JobConfig{MaxWorkers: 1})

	ds, err := datasets.Upload("cycle", strings.NewReader(fourCycle))
	require.NoError(t, err)

	jobs.Close()
	jobs.Close()

	_, err = jobs.Submit(ds.ID, models.JobParameters{NumSteps: intPtr(10)})
	assert.ErrorIs(t, err, ErrServiceClosed)
	assert.Empty(t, jobs.List(""))
}

func TestJobTimeout(t *testing.T) {
	datasets, jobs, _ := newServices(t, config.JobConfig{MaxWorkers: 1, JobTimeout: 20 * time.Millisecond})

	ds, err := datasets.Generate("big", "random:300:0.05:3:1")
	require.NoError(t, err)

	job, err := jobs.Submit(ds.ID, models.JobParameters{NumSteps: intPtr(5_000_000)})
	require.NoError(t, err)

	finished := waitJob(t, jobs, job.ID)
	assert.Equal(t, models.JobStatusFailed, finished.Status)
	assert.Contains(t, finished.Error, "timed out")

	// The partial run is still available
	detail, err := jobs.GetResult(job.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.StepsCompleted, len(detail.Trace))
}

func TestCancelForDatasetAndCleanup(t *testing.T) {
	datasets, jobs, _ := newServices(t, config.JobConfig{MaxWorkers: 1, ResultTTL: time.Minute})

	ds, err := datasets.Generate("big", "random:300:0.05:3:1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := jobs.Submit(ds.ID, models.JobParameters{NumSteps: intPtr(5_000_000)})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, jobs.CancelForDataset(ds.ID))

	for _, job := range jobs.List(ds.ID) {
		waitJob(t, jobs, job.ID)
	}
	assert.Equal(t, 0, jobs.ActiveCount())

	assert.Equal(t, 0, jobs.cleanup(time.Now()))
	assert.Equal(t, 3, jobs.cleanup(time.Now().Add(2*time.Minute)))
	assert.Empty(t, jobs.List(""))
}
