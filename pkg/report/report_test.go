package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/pipeline"
	"github.com/vjranagit/spinrtt/pkg/storage"
	"github.com/vjranagit/spinrtt/pkg/types"
)

func testECDF() *types.ECDF {
	return &types.ECDF{
		Values:        []float64{-2, 1, 3},
		Probabilities: []float64{0.25, 0.5, 1},
		TotalDuration: 2,
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(NewPrinter(&buf), "vec", testECDF())

	out := buf.String()
	assert.Check(t, is.Contains(out, "vec-min: -2.000 ms\n"))
	assert.Check(t, is.Contains(out, "vec-max: 3.000 ms\n"))
	assert.Check(t, is.Contains(out, "vec-median: 1.000 ms\n"))
	assert.Check(t, is.Contains(out, "vec-n: 3\n"))
}

func TestPrintFractionsRelative(t *testing.T) {
	ecdf := testECDF()
	ecdf.Relative = true

	var buf bytes.Buffer
	PrintFractions(NewPrinter(&buf), "vec", ecdf, []float64{5})

	assert.Equal(t, buf.String(), "vec-within-5%: 1.000\n")
}

func TestPrintSamplesPerRTT(t *testing.T) {
	var buf bytes.Buffer
	PrintSamplesPerRTT(NewPrinter(&buf), "vec", 0.25)
	assert.Equal(t, buf.String(), "vec-samples-per-rtt: 0.250\n")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, WriteTable(&buf, testECDF()))
	assert.Equal(t, buf.String(), "error\tprobability\n-2\t0.25\n1\t0.5\n3\t1\n")
}

func TestWriteComparison(t *testing.T) {
	ecdf := testECDF()
	outcomes := []pipeline.Outcome{
		{Request: pipeline.Request{RunID: "r1", A: "a", B: "b"}, ECDF: ecdf, Summary: analysis.Summarize(ecdf)},
		{Request: pipeline.Request{RunID: "r2", A: "a", B: "b"}, NoData: true},
		{Request: pipeline.Request{RunID: "r3", A: "a", Reference: "ping"}, Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	assert.NilError(t, WriteComparison(&buf, outcomes, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 4)
	assert.Check(t, is.Contains(lines[1], "r1"))
	assert.Check(t, is.Contains(lines[2], "no data"))
	assert.Check(t, is.Contains(lines[3], "a~ping"))
	assert.Check(t, is.Contains(lines[3], "error: boom"))
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRuns(&buf, []storage.RunInfo{{ID: "quic-1", Records: 10, Analyzers: []string{"vec"}}})
	assert.NilError(t, err)
	assert.Check(t, is.Contains(buf.String(), "quic-1"))
}
