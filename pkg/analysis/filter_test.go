package analysis

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/vjranagit/spinrtt/pkg/types"
)

func TestMovingMinimum(t *testing.T) {
	// RTTs in milliseconds on a seconds axis, so the window is ~40 ms wide
	raw := series("basic",
		0.000, 40,
		0.010, 55,
		0.020, 38,
		0.030, 60,
		0.100, 70,
		0.105, 65,
	)

	smooth := MovingMinimum(raw, "basic_smooth", 0.001)

	assert.Equal(t, smooth.Name, "basic_smooth")
	assert.DeepEqual(t, smooth.Times(), raw.Times())
	assert.DeepEqual(t, smooth.Values(), []float64{40, 40, 38, 38, 70, 65})
}

func TestMovingMinimum_Empty(t *testing.T) {
	smooth := MovingMinimum(types.Series{}, "x", 1)

	assert.Equal(t, smooth.Len(), 0)
}
