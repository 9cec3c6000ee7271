package anneal

import "math"

// Temperature returns the linearly decaying temperature for step k of a
// numSteps run: t0 * (1 - (k+1)/numSteps). It is just below t0 at k = 0 and
// exactly 0 at k = numSteps-1.
func Temperature(t0 float64, k, numSteps int) float64 {
	return t0 * (1 - float64(k+1)/float64(numSteps))
}

// AcceptProbability is the Metropolis probability of moving from a solution
// scoring curr to one scoring cand when maximizing. epsilon keeps the
// exponent finite when the temperature reaches zero.
func AcceptProbability(curr, cand, temperature, epsilon float64) float64 {
	delta := curr - cand
	if delta < 0 {
		return 1
	}
	return math.Exp(-delta / (temperature + epsilon))
}
