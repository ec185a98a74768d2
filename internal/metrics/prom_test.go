package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func TestWriteTextfile(t *testing.T) {
	reg := NewRegistry()
	Evaluations.WithLabelValues(OutcomeOK).Inc()
	RunsIngested.Inc()

	path := filepath.Join(t.TempDir(), "spinrtt.prom")
	assert.NilError(t, WriteTextfile(reg, path))

	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(data), `spinrtt_evaluations_total{outcome="ok"}`))
	assert.Assert(t, strings.Contains(string(data), "spinrtt_runs_ingested_total"))
}

func TestWriteTextfileDisabled(t *testing.T) {
	assert.NilError(t, WriteTextfile(NewRegistry(), ""))
}
