package anneal

import "time"

// Result represents the algorithm output
type Result struct {
	InitScore    float64   `json:"init_score"`
	FinalScore   float64   `json:"final_score"`
	Solution     []int     `json:"solution"`
	Trace        []float64 `json:"trace"`
	BestScore    float64   `json:"best_score"`
	BestSolution []int     `json:"best_solution"`

	Seed               int64   `json:"seed"`
	InitialTemperature float64 `json:"initial_temperature"`
	NumSteps           int     `json:"num_steps"`
	StepsCompleted     int     `json:"steps_completed"`

	Statistics Statistics `json:"statistics"`
}

// Statistics contains algorithm performance metrics
type Statistics struct {
	Evaluations       int           `json:"evaluations"`
	Accepted          int           `json:"accepted"`
	Rejected          int           `json:"rejected"`
	Improving         int           `json:"improving"`
	Sideways          int           `json:"sideways"`
	WorseningAccepted int           `json:"worsening_accepted"`
	RuntimeMS         int64         `json:"runtime_ms"`
	Elapsed           time.Duration `json:"-"`
}

// AcceptanceRate is the share of proposed moves that were accepted
func (s Statistics) AcceptanceRate() float64 {
	total := s.Accepted + s.Rejected
	if total == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(total)
}

// Improvement is the gain of the final score over the initial one
func (r *Result) Improvement() float64 {
	return r.FinalScore - r.InitScore
}
