package types

import (
	"math"
	"sort"
)

// At returns the cumulative probability at x, interpolating linearly between
// the two points that bracket it. Below the first value it is 0, at or above
// the last value it is 1.
func (e *ECDF) At(x float64) float64 {
	n := len(e.Values)
	if n == 0 {
		return math.NaN()
	}

	i := sort.SearchFloat64s(e.Values, x)
	if i == n {
		return 1
	}

	if e.Values[i] == x {
		// last of a run of ties carries the full mass of the value
		for i+1 < n && e.Values[i+1] == x {
			i++
		}
		return e.Probabilities[i]
	}

	if i == 0 {
		return 0
	}

	lo, hi := e.Values[i-1], e.Values[i]
	rel := (x - lo) / (hi - lo)
	return e.Probabilities[i-1] + rel*(e.Probabilities[i]-e.Probabilities[i-1])
}

// FractionWithin returns the probability mass in (-bound, bound]
func (e *ECDF) FractionWithin(bound float64) float64 {
	bound = math.Abs(bound)
	return e.At(bound) - e.At(-bound)
}

// Quantile returns the smallest value whose cumulative probability reaches q
func (e *ECDF) Quantile(q float64) float64 {
	n := len(e.Values)
	if n == 0 {
		return math.NaN()
	}

	i := sort.Search(n, func(i int) bool {
		return e.Probabilities[i] >= q
	})
	if i == n {
		i = n - 1
	}
	return e.Values[i]
}

// Masses returns the probability mass of each point
func (e *ECDF) Masses() []float64 {
	masses := make([]float64, len(e.Probabilities))
	prev := 0.0
	for i, p := range e.Probabilities {
		masses[i] = p - prev
		prev = p
	}
	return masses
}
