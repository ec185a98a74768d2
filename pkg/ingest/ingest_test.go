package ingest

import (
	"math"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/vjranagit/spinrtt/pkg/types"
)

const observerCSV = `time, pn, host, basic_data, basic_new, status_data, status_new
100.0, 1, client, 0, 0, 0, 0
100.5, 2, client, 0, 0, 0, 0
101.0, 3, client, 0.020, 1, 0, 0
101.5, 4, server, 0.020, 0, 0.030, 1
102.0, 5, client, 0.025, 1, 0.030, 0
`

func assertClose(t *testing.T, got, want float64) {
	t.Helper()
	assert.Assert(t, math.Abs(got-want) < 1e-6, "got %v, want %v", got, want)
}

func TestReadObserverCSV(t *testing.T) {
	opts := DefaultObserverOptions()
	opts.Analyzers = QUICAnalyzers("basic", "status")

	records, err := ReadObserverCSV(strings.NewReader(observerCSV), opts)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(records, 3))

	// time is relative to the first row, including the skipped ones
	assertClose(t, records[0].Time, 1.0)
	assertClose(t, records[2].Time, 2.0)

	assert.Equal(t, records[0].Reading("basic"), types.Reading{Value: 20, Present: true, Fresh: true})
	assert.Equal(t, records[0].Reading("status"), types.Reading{})

	assert.Equal(t, records[1].Reading("basic"), types.Reading{Value: 20, Present: true})
	assert.Equal(t, records[1].Reading("status"), types.Reading{Value: 30, Present: true, Fresh: true})

	assert.Equal(t, records[2].Reading("basic"), types.Reading{Value: 25, Present: true, Fresh: true})
	assert.Equal(t, records[2].Reading("status"), types.Reading{Value: 30, Present: true})
}

func TestReadObserverCSVTCPColumns(t *testing.T) {
	input := `time,status_data,status_new,single_ts_rtt,single_ts_rtt_new,all_ts_rtt,all_ts_rtt_new
0,0.01,1,0.011,1,0.012,1
`
	records, err := ReadObserverCSV(strings.NewReader(input), ObserverOptions{
		Analyzers:  TCPAnalyzers(),
		ValueScale: 1000,
	})
	assert.NilError(t, err)
	assert.Assert(t, is.Len(records, 1))
	assertClose(t, records[0].Reading("vec").Value, 10)
	assertClose(t, records[0].Reading("single_ts").Value, 11)
	assertClose(t, records[0].Reading("all_ts").Value, 12)
}

func TestReadObserverCSVMalformed(t *testing.T) {
	opts := ObserverOptions{Analyzers: QUICAnalyzers("basic")}

	_, err := ReadObserverCSV(strings.NewReader("time,basic_data\n0,1\n"), opts)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ReadObserverCSV(strings.NewReader("time,basic_data,basic_new\n0,abc,1\n"), opts)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Assert(t, is.Contains(err.Error(), "line 2"))

	_, err = ReadObserverCSV(strings.NewReader("time,basic_data,basic_new\nx,1,1\n"), opts)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadObserverCSVEmpty(t *testing.T) {
	records, err := ReadObserverCSV(strings.NewReader(""), DefaultObserverOptions())
	assert.NilError(t, err)
	assert.Assert(t, is.Len(records, 0))
}

func TestReadEndpointLog(t *testing.T) {
	log := `INFO connection established
DEBUG 1539175412.500 conn=1 state=3 RTT: 21.5
DEBUG 1539175412.700 conn=1 state=3 RTT_TCP: 19.0
DEBUG 1539175413.000 conn=1 state=3 RTT: 22.25
`
	series, err := ReadEndpointLog(strings.NewReader(log), "client", MarkerRTT, 1539175412)
	assert.NilError(t, err)
	assert.Equal(t, series.Name, "client")
	assert.Assert(t, is.Len(series.Samples, 2))
	assertClose(t, series.Samples[0].Time, 0.5)
	assert.Equal(t, series.Samples[0].Value, 21.5)
	assertClose(t, series.Samples[1].Time, 1.0)

	tcp, err := ReadEndpointLog(strings.NewReader(log), "client_tcp", MarkerRTTTCP, 1539175412)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(tcp.Samples, 1))
	assert.Equal(t, tcp.Samples[0].Value, 19.0)
}

func TestReadEndpointLogMalformed(t *testing.T) {
	_, err := ReadEndpointLog(strings.NewReader("a b c d RTT: fast\n"), "client", MarkerRTT, 0)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ReadEndpointLog(strings.NewReader("RTT: 1\n"), "client", MarkerRTT, 0)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadPingLog(t *testing.T) {
	log := `PING 10.0.0.2 (10.0.0.2) 56(84) bytes of data.
[1539175412.250000] 64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=20.3 ms
[1539175413.250000] From 10.0.0.1 icmp_seq=2 Destination Host Unreachable
[1539175414.250000] 64 bytes from 10.0.0.2: icmp_seq=3 ttl=64 time=21.7 ms

--- 10.0.0.2 ping statistics ---
`
	series, err := ReadPingLog(strings.NewReader(log), 1539175412)
	assert.NilError(t, err)
	assert.Equal(t, series.Name, "ping")
	assert.Assert(t, is.Len(series.Samples, 2))
	assertClose(t, series.Samples[0].Time, 0.25)
	assertClose(t, series.Samples[0].Value, 20.3)
	assertClose(t, series.Samples[1].Time, 2.25)
}

func TestReadPingLogMalformed(t *testing.T) {
	_, err := ReadPingLog(strings.NewReader("[nope] 64 bytes time=1.0 ms\n"), 0)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadObserverCSVOrigin(t *testing.T) {
	opts := DefaultObserverOptions()
	opts.Analyzers = QUICAnalyzers("basic", "status")
	opts.Origin = 99.5

	records, err := ReadObserverCSV(strings.NewReader(observerCSV), opts)
	assert.NilError(t, err)
	assertClose(t, records[0].Time, 1.5)
}
