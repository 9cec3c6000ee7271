package service

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/maxcut-annealing/backend/metrics"
	"github.com/gilchrisn/maxcut-annealing/backend/models"
	"github.com/gilchrisn/maxcut-annealing/pkg/graph"
	"github.com/gilchrisn/maxcut-annealing/pkg/maxcut"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrJobNotFinished = errors.New("job not finished")
	ErrServiceClosed  = errors.New("job service closed")
)

type storedDataset struct {
	dataset *models.Dataset
	graph   *graph.Graph
}

// DatasetService keeps parsed graphs in memory
type DatasetService struct {
	datasets map[string]*storedDataset
	metrics  *metrics.Collector
	mutex    sync.RWMutex
}

// NewDatasetService creates a new dataset service
func NewDatasetService(collector *metrics.Collector) *DatasetService {
	return &DatasetService{
		datasets: make(map[string]*storedDataset),
		metrics:  collector,
	}
}

// Upload parses an edge list and stores it as a new dataset
func (s *DatasetService) Upload(name string, r io.Reader) (*models.Dataset, error) {
	counter := &countingReader{r: r}
	g, err := graph.ParseEdgeList(counter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", maxcut.ErrInvalidParameter, err)
	}
	return s.store(name, "upload", g, counter.n)
}

// Generate builds a dataset from a generator spec. File paths are not
// accepted here.
func (s *DatasetService) Generate(name, spec string) (*models.Dataset, error) {
	kind, _, found := strings.Cut(spec, ":")
	if !found {
		return nil, fmt.Errorf("%w: generator spec must look like kind:args (got %q)", maxcut.ErrInvalidParameter, spec)
	}
	switch kind {
	case "cycle", "complete", "grid", "random":
	default:
		return nil, fmt.Errorf("%w: unknown generator %q", maxcut.ErrInvalidParameter, kind)
	}

	g, err := graph.Load(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", maxcut.ErrInvalidParameter, err)
	}
	return s.store(name, spec, g, 0)
}

func (s *DatasetService) store(name, source string, g *graph.Graph, size int64) (*models.Dataset, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", maxcut.ErrInvalidParameter, err)
	}
	summary, err := graph.Summarize(g)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = "Unnamed Dataset"
	}
	now := time.Now()
	dataset := &models.Dataset{
		ID:     uuid.New().String(),
		Name:   name,
		Source: source,
		Status: models.DatasetStatusReady,
		Metadata: models.DatasetMetadata{
			Graph:     summary,
			SizeBytes: size,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mutex.Lock()
	s.datasets[dataset.ID] = &storedDataset{dataset: dataset, graph: g}
	count := len(s.datasets)
	s.mutex.Unlock()

	if s.metrics != nil {
		s.metrics.Datasets.Set(float64(count))
	}

	log.Info().
		Str("dataset_id", dataset.ID).
		Str("name", name).
		Str("source", source).
		Int("nodes", summary.NumNodes).
		Int("edges", summary.NumEdges).
		Msg("Dataset stored")

	return dataset, nil
}

// Get retrieves a dataset by ID
func (s *DatasetService) Get(datasetID string) (*models.Dataset, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored, exists := s.datasets[datasetID]
	if !exists {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound)
	}
	return stored.dataset, nil
}

// Graph returns the parsed graph of a dataset. Graphs are read-only once
// stored, so concurrent jobs may share one.
func (s *DatasetService) Graph(datasetID string) (*graph.Graph, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored, exists := s.datasets[datasetID]
	if !exists {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound)
	}
	return stored.graph, nil
}

// List returns all datasets, oldest first
func (s *DatasetService) List() []*models.Dataset {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	datasets := make([]*models.Dataset, 0, len(s.datasets))
	for _, stored := range s.datasets {
		datasets = append(datasets, stored.dataset)
	}
	sort.Slice(datasets, func(i, j int) bool {
		if datasets[i].CreatedAt.Equal(datasets[j].CreatedAt) {
			return datasets[i].ID < datasets[j].ID
		}
		return datasets[i].CreatedAt.Before(datasets[j].CreatedAt)
	})
	return datasets
}

// Count returns the number of stored datasets
func (s *DatasetService) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.datasets)
}

// Delete removes a dataset
func (s *DatasetService) Delete(datasetID string) error {
	s.mutex.Lock()
	_, exists := s.datasets[datasetID]
	if !exists {
		s.mutex.Unlock()
		return fmt.Errorf("dataset %s: %w", datasetID, ErrNotFound)
	}
	delete(s.datasets, datasetID)
	count := len(s.datasets)
	s.mutex.Unlock()

	if s.metrics != nil {
		s.metrics.Datasets.Set(float64(count))
	}

	log.Info().Str("dataset_id", datasetID).Msg("Dataset deleted")
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
