package analysis

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/vjranagit/spinrtt/pkg/types"
)

func series(name string, points ...float64) types.Series {
	s := types.Series{Name: name}
	for i := 0; i+1 < len(points); i += 2 {
		s.Samples = append(s.Samples, types.Sample{Time: points[i], Value: points[i+1]})
	}
	return s
}

func TestInterpolate_Linear(t *testing.T) {
	ref := series("client", 0, 0, 10, 10)

	values, err := Interpolate([]float64{5, 2.5}, ref)

	assert.NilError(t, err)
	// targets come back sorted
	assert.DeepEqual(t, values, []float64{2.5, 5.0})
}

func TestInterpolate_EdgeClamp(t *testing.T) {
	ref := series("client", 1, 40, 2, 50, 3, 45)

	values, err := Interpolate([]float64{-3, 0, 1, 3, 3.5, 100}, ref)

	assert.NilError(t, err)
	assert.DeepEqual(t, values, []float64{40, 40, 40, 45, 45, 45})
}

func TestInterpolate_ExactAtKnots(t *testing.T) {
	ref := series("client", 0.1, 41.3, 0.7, 44.9, 1.3, 39.1, 2.9, 47.7)

	values, err := Interpolate(ref.Times(), ref)

	assert.NilError(t, err)
	assert.DeepEqual(t, values, ref.Values())
}

func TestInterpolate_BetweenKnots(t *testing.T) {
	ref := series("client", 0, 40, 1, 50, 3, 30)

	values, err := Interpolate([]float64{0.5, 1.5, 2.0, 2.5}, ref)

	assert.NilError(t, err)
	assert.DeepEqual(t, values, []float64{45, 45, 40, 35})
}

func TestInterpolate_SingleSample(t *testing.T) {
	ref := series("ping", 4, 42)

	values, err := Interpolate([]float64{0, 4, 9}, ref)

	assert.NilError(t, err)
	assert.DeepEqual(t, values, []float64{42, 42, 42})
}

func TestInterpolate_DoesNotTouchTargets(t *testing.T) {
	ref := series("client", 0, 0, 10, 10)
	targets := []float64{7, 1, 3}

	_, err := Interpolate(targets, ref)

	assert.NilError(t, err)
	assert.DeepEqual(t, targets, []float64{7, 1, 3})
}

func TestInterpolate_EmptyTargets(t *testing.T) {
	values, err := Interpolate(nil, series("client", 0, 1))

	assert.NilError(t, err)
	assert.Equal(t, len(values), 0)
}

func TestInterpolate_InvalidInput(t *testing.T) {
	testCases := []struct {
		name    string
		targets []float64
		ref     types.Series
	}{
		{"empty reference", []float64{1}, types.Series{Name: "client"}},
		{"undefined target", []float64{1, math.NaN()}, series("client", 0, 1)},
		{"reference goes back in time", []float64{1}, series("client", 2, 1, 1, 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Interpolate(tc.targets, tc.ref)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func BenchmarkInterpolate(b *testing.B) {
	ref := types.Series{Name: "client"}
	for i := 0; i < 10000; i++ {
		ref.Samples = append(ref.Samples, types.Sample{Time: float64(i) * 0.04, Value: 40 + math.Sin(float64(i))})
	}
	targets := make([]float64, 50000)
	for i := range targets {
		targets[i] = float64(i) * 0.008
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Interpolate(targets, ref)
	}
}
