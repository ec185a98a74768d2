package analysis

import "github.com/vjranagit/spinrtt/pkg/types"

// MovingMinimum smooths an RTT series with a moving-minimum filter whose
// window is one RTT wide, using the previous output as the RTT. The first
// output equals the first input. secondsPerUnit converts values into the
// unit of the sample times (0.001 for millisecond RTTs on a seconds axis).
func MovingMinimum(series types.Series, name string, secondsPerUnit float64) types.Series {
	smooth := types.Series{Name: name}
	n := series.Len()
	if n == 0 {
		return smooth
	}

	samples := series.Samples
	smooth.Samples = make([]types.Sample, n)
	smooth.Samples[0] = samples[0]

	lo := 0
	for cursor := 1; cursor < n; cursor++ {
		now := samples[cursor].Time
		windowStart := now - smooth.Samples[cursor-1].Value*secondsPerUnit

		// the window only ever shrinks from the front
		for lo < cursor && samples[lo].Time < windowStart {
			lo++
		}

		estimate := samples[lo].Value
		for _, s := range samples[lo+1 : cursor+1] {
			if s.Value < estimate {
				estimate = s.Value
			}
		}

		smooth.Samples[cursor] = types.Sample{Time: now, Value: estimate}
	}

	return smooth
}
