package analysis

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// Summary condenses an error distribution into a handful of numbers
type Summary struct {
	N             int
	TotalDuration float64
	Mean          float64
	StdDev        float64
	Min           float64
	Max           float64
	P5            float64
	Median        float64
	P95           float64
}

// Summarize computes summary statistics of an ECDF. Every point is weighted
// by its probability mass, so weighted distributions summarize over time and
// unweighted ones over samples.
func Summarize(ecdf *types.ECDF) Summary {
	if ecdf == nil || ecdf.Len() == 0 {
		return Summary{}
	}

	masses := ecdf.Masses()
	sample := stats.Sample{Xs: ecdf.Values, Weights: masses, Sorted: true}

	mean := sample.Mean()
	deviations := make([]float64, len(ecdf.Values))
	for i, v := range ecdf.Values {
		deviations[i] = (v - mean) * (v - mean)
	}
	variance := stats.Sample{Xs: deviations, Weights: masses}.Mean()

	lo, hi := sample.Bounds()

	return Summary{
		N:             ecdf.Len(),
		TotalDuration: ecdf.TotalDuration,
		Mean:          mean,
		StdDev:        math.Sqrt(variance),
		Min:           lo,
		Max:           hi,
		P5:            ecdf.Quantile(0.05),
		Median:        ecdf.Quantile(0.5),
		P95:           ecdf.Quantile(0.95),
	}
}

// SamplesPerRTT counts the samples strictly inside window and divides by the
// window length expressed in RTTs (rtt in seconds).
func SamplesPerRTT(series types.Series, window types.Window, rtt float64) (float64, error) {
	if rtt <= 0 {
		return 0, fmt.Errorf("%w: rtt must be positive, got %g", ErrInvalidInput, rtt)
	}
	if window.Duration() <= 0 {
		return 0, fmt.Errorf("%w: window [%g, %g) is empty", ErrInvalidInput, window.Start, window.End)
	}

	count := 0
	for _, s := range series.Samples {
		if s.Time > window.Start && s.Time < window.End {
			count++
		}
	}

	return float64(count) / (window.Duration() / rtt), nil
}
