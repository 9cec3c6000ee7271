package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type StepEvent struct {
	Step           int     `json:"step"`
	Algorithm      string  `json:"algorithm"`
	Node           int     `json:"node"`
	Temperature    float64 `json:"temperature"`
	CandidateScore float64 `json:"candidate_score"`
	CurrentScore   float64 `json:"current_score"`
	Accepted       bool    `json:"accepted"`
}

// StepTracker appends one JSON object per annealing step to a file.
// A nil *StepTracker is valid and records nothing.
type StepTracker struct {
	file      *os.File
	buf       *bufio.Writer
	encoder   *json.Encoder
	algorithm string
	err       error
}

func NewStepTracker(filename, algorithm string) (*StepTracker, error) {
	if filename == "" {
		return nil, fmt.Errorf("step tracker needs an output file")
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(file)
	return &StepTracker{
		file:      file,
		buf:       buf,
		encoder:   json.NewEncoder(buf),
		algorithm: algorithm,
	}, nil
}

func (st *StepTracker) LogStep(event StepEvent) {
	if st == nil || st.err != nil {
		return
	}
	event.Algorithm = st.algorithm
	st.err = st.encoder.Encode(event)
}

// Close flushes buffered events and reports the first write error, if any
func (st *StepTracker) Close() error {
	if st == nil || st.file == nil {
		return nil
	}
	if err := st.buf.Flush(); err != nil && st.err == nil {
		st.err = err
	}
	if err := st.file.Close(); err != nil && st.err == nil {
		st.err = err
	}
	st.file = nil
	return st.err
}
