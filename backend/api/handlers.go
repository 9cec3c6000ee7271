package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/maxcut-annealing/backend/models"
	"github.com/gilchrisn/maxcut-annealing/backend/service"
	"github.com/gilchrisn/maxcut-annealing/backend/utils"
)

// Handlers contains HTTP request handlers
type Handlers struct {
	datasetService *service.DatasetService
	jobService     *service.JobService
	maxUploadSize  int64
	startTime      time.Time
}

// NewHandlers creates new API handlers
func NewHandlers(datasetService *service.DatasetService, jobService *service.JobService, maxUploadSize int64) *Handlers {
	return &Handlers{
		datasetService: datasetService,
		jobService:     jobService,
		maxUploadSize:  maxUploadSize,
		startTime:      time.Now(),
	}
}

// UploadDataset creates a dataset. A JSON body {"name", "spec"} runs a
// generator; a multipart form with a graphFile field or a raw body is parsed
// as an edge list.
func (h *Handlers) UploadDataset(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		if r.ContentLength > h.maxUploadSize {
			utils.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Dataset exceeds upload limit", nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	var (
		dataset *models.Dataset
		err     error
	)

	switch {
	case utils.ValidateContentType(r, "application/json"):
		var req models.CreateDatasetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if exceedsLimit(err) {
				utils.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Dataset exceeds upload limit", err)
				return
			}
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid JSON body", err)
			return
		}
		if req.Spec == "" {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing generator spec", nil)
			return
		}
		dataset, err = h.datasetService.Generate(req.Name, req.Spec)

	case utils.ValidateContentType(r, "multipart/form-data"):
		file, header, ferr := r.FormFile("graphFile")
		if ferr != nil {
			if exceedsLimit(ferr) {
				utils.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Dataset exceeds upload limit", ferr)
				return
			}
			log.Error().Err(ferr).Msg("Missing graph file")
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Missing required file: graphFile", ferr)
			return
		}
		defer file.Close()

		name := r.FormValue("name")
		if name == "" {
			name = header.Filename
		}
		dataset, err = h.datasetService.Upload(name, file)

	default:
		dataset, err = h.datasetService.Upload(r.URL.Query().Get("name"), r.Body)
	}

	if err != nil {
		if exceedsLimit(err) {
			utils.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "Dataset exceeds upload limit", err)
			return
		}
		log.Error().Err(err).Msg("Dataset creation failed")
		utils.WriteServiceError(w, "Dataset creation failed", err)
		return
	}

	utils.WriteSuccessResponseWithStatus(w, http.StatusCreated, "Dataset created", dataset)
}

func exceedsLimit(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// ListDatasets returns a page of datasets
func (h *Handlers) ListDatasets(w http.ResponseWriter, r *http.Request) {
	page, limit := utils.ExtractPaginationParams(r)
	datasets := h.datasetService.List()

	utils.WriteSuccessResponse(w, "Datasets retrieved", map[string]interface{}{
		"datasets": utils.Paginate(datasets, page, limit),
		"total":    len(datasets),
		"page":     page,
		"limit":    limit,
	})
}

// GetDataset returns one dataset
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	dataset, err := h.datasetService.Get(datasetID)
	if err != nil {
		utils.WriteServiceError(w, "Dataset not found", err)
		return
	}
	utils.WriteSuccessResponse(w, "Dataset retrieved", dataset)
}

// DeleteDataset cancels the dataset's active jobs and removes it
func (h *Handlers) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	if _, err := h.datasetService.Get(datasetID); err != nil {
		utils.WriteServiceError(w, "Dataset not found", err)
		return
	}

	cancelled := h.jobService.CancelForDataset(datasetID)
	if err := h.datasetService.Delete(datasetID); err != nil {
		utils.WriteServiceError(w, "Dataset deletion failed", err)
		return
	}

	utils.WriteSuccessResponse(w, "Dataset deleted", map[string]interface{}{
		"datasetId":     datasetID,
		"cancelledJobs": cancelled,
	})
}

// SubmitJob starts an annealing job on a dataset
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	var params models.JobParameters
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid job parameters", err)
			return
		}
	}

	job, err := h.jobService.Submit(datasetID, params)
	if err != nil {
		log.Warn().Err(err).Str("dataset_id", datasetID).Msg("Job submission rejected")
		utils.WriteServiceError(w, "Job submission failed", err)
		return
	}

	utils.WriteSuccessResponseWithStatus(w, http.StatusAccepted, "Job submitted", models.JobResponse{
		JobID: job.ID,
		Job:   *job,
	})
}

// ListJobs lists jobs, optionally restricted to one dataset
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]
	if datasetID != "" {
		if _, err := h.datasetService.Get(datasetID); err != nil {
			utils.WriteServiceError(w, "Dataset not found", err)
			return
		}
	}

	page, limit := utils.ExtractPaginationParams(r)
	jobs := h.jobService.List(datasetID)
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if strings.EqualFold(string(job.Status), status) {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}

	utils.WriteSuccessResponse(w, "Jobs retrieved", map[string]interface{}{
		"jobs":  utils.Paginate(jobs, page, limit),
		"total": len(jobs),
		"page":  page,
		"limit": limit,
	})
}

// GetJob returns the current state of a job
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		utils.WriteServiceError(w, "Job not found", err)
		return
	}
	utils.WriteSuccessResponse(w, "Job retrieved", job)
}

// GetJobResult returns the solution and, unless trace=false, the trace
func (h *Handlers) GetJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	detail, err := h.jobService.GetResult(jobID)
	if err != nil {
		utils.WriteServiceError(w, "Result not available", err)
		return
	}
	if r.URL.Query().Get("trace") == "false" {
		detail.Trace = nil
	}
	utils.WriteSuccessResponse(w, "Result retrieved", detail)
}

// CancelJob cancels a queued or running job
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Cancel(jobID)
	if err != nil {
		utils.WriteServiceError(w, "Job not found", err)
		return
	}
	utils.WriteSuccessResponse(w, "Job cancelled", job)
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Service is healthy", models.HealthResponse{
		Status:     "ok",
		Datasets:   h.datasetService.Count(),
		ActiveJobs: h.jobService.ActiveCount(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	})
}
