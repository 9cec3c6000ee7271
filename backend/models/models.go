package models

import (
	"time"

	"github.com/gilchrisn/maxcut-annealing/pkg/anneal"
	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
)

// Dataset represents an uploaded or generated graph
type Dataset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Source    string          `json:"source"` // "upload" or a generator spec
	Status    DatasetStatus   `json:"status"`
	Metadata  DatasetMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type DatasetStatus string

const (
	DatasetStatusReady DatasetStatus = "ready"
)

type DatasetMetadata struct {
	Graph     graph.Summary `json:"graph"`
	SizeBytes int64         `json:"sizeBytes"`
}

// CreateDatasetRequest creates a dataset from a generator spec such as
// "grid:4x5" or "random:100:0.1:5:7".
type CreateDatasetRequest struct {
	Name string `json:"name"`
	Spec string `json:"spec"`
}

// Job represents an annealing job
type Job struct {
	ID          string        `json:"id"`
	DatasetID   string        `json:"datasetId"`
	Parameters  JobParameters `json:"parameters"`
	Status      JobStatus     `json:"status"`
	Progress    JobProgress   `json:"progress"`
	Result      *JobResult    `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// JobParameters are optional overrides of the annealing defaults
type JobParameters struct {
	InitialTemperature *float64 `json:"initialTemperature,omitempty"`
	NumSteps           *int     `json:"numSteps,omitempty"`
	Seed               *int64   `json:"seed,omitempty"`
	InitStrategy       *string  `json:"initStrategy,omitempty"`
	Incremental        *bool    `json:"incremental,omitempty"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether the job reached a terminal status
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobProgress struct {
	Percentage int    `json:"percentage"`
	Message    string `json:"message"`
}

// JobResult is the summary attached to a completed job
type JobResult struct {
	InitScore        float64           `json:"initScore"`
	FinalScore       float64           `json:"finalScore"`
	BestScore        float64           `json:"bestScore"`
	StepsCompleted   int               `json:"stepsCompleted"`
	ProcessingTimeMS int64             `json:"processingTimeMS"`
	Statistics       anneal.Statistics `json:"statistics"`
}

// JobResultDetail carries the full solution and trace of a job
type JobResultDetail struct {
	JobID    string    `json:"jobId"`
	Solution []int     `json:"solution"`
	Trace    []float64 `json:"trace"`
	JobResult
}

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type JobResponse struct {
	JobID string `json:"jobId"`
	Job   Job    `json:"job"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Datasets   int    `json:"datasets"`
	ActiveJobs int    `json:"activeJobs"`
	Uptime     string `json:"uptime"`
}
