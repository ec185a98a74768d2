package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// Interpolate resamples reference onto the target times.
//
// The targets are copied and sorted ascending before use, and the returned
// slice holds one value per sorted target. Targets at or before the first
// reference sample take the first value, targets past the last sample take the
// last value, and everything in between is interpolated linearly between the
// two bracketing samples.
func Interpolate(targets []float64, reference types.Series) ([]float64, error) {
	if reference.Len() == 0 {
		return nil, fmt.Errorf("%w: reference series %q is empty", ErrInvalidInput, reference.Name)
	}
	if err := reference.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sorted := make([]float64, len(targets))
	copy(sorted, targets)
	for i, t := range sorted {
		if math.IsNaN(t) {
			return nil, fmt.Errorf("%w: target time %d is undefined", ErrInvalidInput, i)
		}
	}
	sort.Float64s(sorted)

	samples := reference.Samples
	last := len(samples) - 1
	result := make([]float64, len(sorted))

	cursor := 0
	for i, t := range sorted {
		if t <= samples[0].Time {
			result[i] = samples[0].Value
			continue
		}

		for cursor < last && samples[cursor+1].Time < t {
			cursor++
		}

		if cursor == last {
			result[i] = samples[last].Value
			continue
		}

		// samples[cursor].Time < t <= next.Time, so the time delta is never zero
		next := samples[cursor+1]
		if t == next.Time {
			result[i] = next.Value
			continue
		}

		cur := samples[cursor]
		slope := (next.Value - cur.Value) / (next.Time - cur.Time)
		result[i] = cur.Value + (t-cur.Time)*slope
	}

	return result, nil
}
