package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/maxcut-annealing/backend/config"
	"github.com/gilchrisn/maxcut-annealing/backend/metrics"
	"github.com/gilchrisn/maxcut-annealing/backend/models"
	"github.com/gilchrisn/maxcut-annealing/backend/service"
)

type testServer struct {
	handler http.Handler
	jobs    *service.JobService
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	collector := metrics.NewCollector("maxcut_test")
	datasets := service.NewDatasetService(collector)
	jobs := service.NewJobService(datasets, config.JobConfig{MaxWorkers: 2}, collector)
	t.Cleanup(jobs.Close)

	handlers := NewHandlers(datasets, jobs, maxUpload)
	return &testServer{
		handler: NewRouter(handlers, collector, []string{"http://localhost:3000"}),
		jobs:    jobs,
	}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp models.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// decode re-marshals the generic Data field into out
func decode(t *testing.T, data interface{}, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (s *testServer) createDataset(t *testing.T, spec string) models.Dataset {
	t.Helper()
	rec, resp := s.do(t, "POST", "/api/v1/datasets", "application/json",
		strings.NewReader(`{"name":"test","spec":"`+spec+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ds models.Dataset
	decode(t, resp.Data, &ds)
	return ds
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec, resp := s.do(t, "GET", "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	var health models.HealthResponse
	decode(t, resp.Data, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Datasets)
}

func TestDatasetEndpoints(t *testing.T) {
	s := newTestServer(t, 1<<20)

	t.Run("raw edge list", func(t *testing.T) {
		rec, resp := s.do(t, "POST", "/api/v1/datasets?name=c4", "text/plain",
			strings.NewReader("4 4\n0 1\n1 2\n2 3\n3 0\n"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ds models.Dataset
		decode(t, resp.Data, &ds)
		assert.Equal(t, "c4", ds.Name)
		assert.Equal(t, 4, ds.Metadata.Graph.NumEdges)
	})

	t.Run("multipart upload", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("graphFile", "triangle.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte("3 3\n0 1 2\n1 2 2\n2 0 2\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		rec, resp := s.do(t, "POST", "/api/v1/datasets", mw.FormDataContentType(), &body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ds models.Dataset
		decode(t, resp.Data, &ds)
		assert.Equal(t, "triangle.txt", ds.Name)
		assert.Equal(t, 6.0, ds.Metadata.Graph.TotalWeight)
	})

	t.Run("malformed edge list", func(t *testing.T) {
		rec, resp := s.do(t, "POST", "/api/v1/datasets", "text/plain", strings.NewReader("2 1\n0 0\n"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("missing spec", func(t *testing.T) {
		rec, _ := s.do(t, "POST", "/api/v1/datasets", "application/json", strings.NewReader(`{"name":"x"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get list delete", func(t *testing.T) {
		ds := s.createDataset(t, "grid:2x2")

		rec, _ := s.do(t, "GET", "/api/v1/datasets/"+ds.ID, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, resp := s.do(t, "GET", "/api/v1/datasets?limit=1&page=1", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		var page struct {
			Datasets []models.Dataset `json:"datasets"`
			Total    int              `json:"total"`
		}
		decode(t, resp.Data, &page)
		assert.Len(t, page.Datasets, 1)
		assert.Equal(t, 3, page.Total)

		rec, _ = s.do(t, "DELETE", "/api/v1/datasets/"+ds.ID, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec, _ = s.do(t, "GET", "/api/v1/datasets/"+ds.ID, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec, _ = s.do(t, "DELETE", "/api/v1/datasets/"+ds.ID, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUploadLimit(t *testing.T) {
	s := newTestServer(t, 16)
	edgeList := "4 4\n0 1\n1 2\n2 3\n3 0\n"
	generate := `{"name":"` + strings.Repeat("x", 32) + `","spec":"cycle:4"}`

	t.Run("raw body", func(t *testing.T) {
		rec, _ := s.do(t, "POST", "/api/v1/datasets", "text/plain", strings.NewReader(edgeList))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("json body", func(t *testing.T) {
		rec, _ := s.do(t, "POST", "/api/v1/datasets", "application/json", strings.NewReader(generate))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("json body without length", func(t *testing.T) {
		// MultiReader hides the size, so the limit is hit while decoding
		rec, _ := s.do(t, "POST", "/api/v1/datasets", "application/json",
			io.MultiReader(strings.NewReader(generate)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("multipart body", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("graphFile", "cycle.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte(edgeList))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		rec, _ := s.do(t, "POST", "/api/v1/datasets", mw.FormDataContentType(), &body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("small json body", func(t *testing.T) {
		small := newTestServer(t, 64)
		rec, _ := small.do(t, "POST", "/api/v1/datasets", "application/json",
			strings.NewReader(`{"spec":"cycle:4"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestJobEndpoints(t *testing.T) {
	s := newTestServer(t, 1<<20)
	ds := s.createDataset(t, "cycle:4")

	rec, resp := s.do(t, "POST", "/api/v1/datasets/"+ds.ID+"/jobs", "application/json",
		strings.NewReader(`{"initialTemperature":4,"numSteps":500,"seed":9}`))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted models.JobResponse
	decode(t, resp.Data, &submitted)
	require.NotEmpty(t, submitted.JobID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.jobs.Wait(ctx, submitted.JobID)
	require.NoError(t, err)

	rec, resp = s.do(t, "GET", "/api/v1/jobs/"+submitted.JobID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job models.Job
	decode(t, resp.Data, &job)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, int64(9), *job.Parameters.Seed)

	rec, resp = s.do(t, "GET", "/api/v1/jobs/"+submitted.JobID+"/result", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.JobResultDetail
	decode(t, resp.Data, &detail)
	assert.Len(t, detail.Trace, 500)
	assert.Len(t, detail.Solution, 4)
	assert.Equal(t, 2.0, detail.InitScore)

	rec, resp = s.do(t, "GET", "/api/v1/jobs/"+submitted.JobID+"/result?trace=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slim models.JobResultDetail
	decode(t, resp.Data, &slim)
	assert.Empty(t, slim.Trace)

	rec, _ = s.do(t, "POST", "/api/v1/jobs/"+submitted.JobID+"/cancel", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = s.do(t, "GET", "/api/v1/datasets/"+ds.ID+"/jobs?status=completed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Jobs  []models.Job `json:"jobs"`
		Total int          `json:"total"`
	}
	decode(t, resp.Data, &listing)
	assert.Equal(t, 1, listing.Total)
}

func TestJobErrors(t *testing.T) {
	s := newTestServer(t, 1<<20)
	ds := s.createDataset(t, "cycle:4")

	rec, _ := s.do(t, "POST", "/api/v1/datasets/"+ds.ID+"/jobs", "application/json",
		strings.NewReader(`{"numSteps":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, "POST", "/api/v1/datasets/"+ds.ID+"/jobs", "application/json",
		strings.NewReader(`{"initialTemperature":"hot"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, "POST", "/api/v1/datasets/missing/jobs", "application/json", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, "GET", "/api/v1/jobs/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, "GET", "/api/v1/jobs/missing/result", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Empty body falls back to defaults
	rec, _ = s.do(t, "POST", "/api/v1/datasets/"+ds.ID+"/jobs", "", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMetricsAndCORS(t *testing.T) {
	s := newTestServer(t, 1<<20)
	s.do(t, "GET", "/api/v1/health", "", nil)

	rec, _ := s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maxcut_test_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/health"`)

	req := httptest.NewRequest("OPTIONS", "/api/v1/datasets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	preflight := httptest.NewRecorder()
	s.handler.ServeHTTP(preflight, req)
	assert.Equal(t, "http://localhost:3000", preflight.Header().Get("Access-Control-Allow-Origin"))
}
