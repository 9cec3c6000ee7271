package bench

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Stats struct {
	N    int
	Best float64
	Mean float64
	Std  float64
}

// CalcStats summarizes xs. Best is the maximum when maximize is set and the
// minimum otherwise. Std is the sample standard deviation, 0 for fewer than
// two values.
func CalcStats(xs []float64, maximize bool) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}

	best := floats.Min(xs)
	if maximize {
		best = floats.Max(xs)
	}

	mean, std := stat.MeanStdDev(xs, nil)
	if n < 2 {
		std = 0
	}

	return Stats{N: n, Best: best, Mean: mean, Std: std}
}
