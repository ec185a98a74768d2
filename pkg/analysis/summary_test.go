package analysis

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/vjranagit/spinrtt/pkg/types"
)

func TestSummarize_Unweighted(t *testing.T) {
	ecdf := NewECDF([]types.ErrorSample{
		{Error: -2, Duration: 1},
		{Error: 0, Duration: 1},
		{Error: 2, Duration: 1},
		{Error: 4, Duration: 1},
	}, false)

	s := Summarize(ecdf)

	assert.Equal(t, s.N, 4)
	assertClose(t, s.Mean, 1)
	assertClose(t, s.StdDev, math.Sqrt(5))
	assert.Equal(t, s.Min, -2.0)
	assert.Equal(t, s.Max, 4.0)
	assert.Equal(t, s.Median, 0.0)
	assert.Equal(t, s.P5, -2.0)
	assert.Equal(t, s.P95, 4.0)
	assert.Equal(t, s.TotalDuration, 4.0)
}

func TestSummarize_WeightedFollowsTime(t *testing.T) {
	ecdf := NewECDF([]types.ErrorSample{
		{Error: 10, Duration: 9},
		{Error: -30, Duration: 1},
	}, true)

	s := Summarize(ecdf)

	assert.Equal(t, s.N, 2)
	assertClose(t, s.Mean, 6)
	assertClose(t, s.StdDev, 12)
	assert.Equal(t, s.Median, 10.0)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summarize(nil), Summary{})
	assert.Equal(t, Summarize(&types.ECDF{}), Summary{})
}

func TestSamplesPerRTT(t *testing.T) {
	s := series("basic", 89, 1, 90, 1, 100, 1, 120, 1, 149.9, 1, 150, 1)

	rate, err := SamplesPerRTT(s, types.Window{Start: 90, End: 150}, 0.04)

	assert.NilError(t, err)
	// three samples strictly inside a 60 s window of 1500 RTTs
	assertClose(t, rate, 3.0/1500)
}

func TestSamplesPerRTT_InvalidInput(t *testing.T) {
	_, err := SamplesPerRTT(types.Series{}, types.Window{Start: 0, End: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = SamplesPerRTT(types.Series{}, types.Window{}, 0.04)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
