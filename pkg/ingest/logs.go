package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// Markers of the endpoint log lines carrying RTT estimates
const (
	MarkerRTT    = "RTT:"
	MarkerRTTTCP = "RTT_TCP:"
)

// ReadEndpointLog extracts the RTT estimates an endpoint logged on lines
// containing marker. The RTT is the last field and the epoch timestamp the
// fifth field from the end. Times are relative to zeroEpoch.
func ReadEndpointLog(r io.Reader, name, marker string, zeroEpoch float64) (types.Series, error) {
	series := types.Series{Name: name}

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Text()
		if !strings.Contains(raw, marker) {
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 5 {
			return series, fmt.Errorf("line %d: %w: expected at least 5 fields, got %d", line, ErrMalformed, len(parts))
		}

		rtt, err := cast.ToFloat64E(parts[len(parts)-1])
		if err != nil {
			return series, fmt.Errorf("line %d: %w: rtt: %v", line, ErrMalformed, err)
		}
		epoch, err := cast.ToFloat64E(parts[len(parts)-5])
		if err != nil {
			return series, fmt.Errorf("line %d: %w: epoch: %v", line, ErrMalformed, err)
		}

		series.Samples = append(series.Samples, types.Sample{Time: epoch - zeroEpoch, Value: rtt})
	}
	if err := scanner.Err(); err != nil {
		return series, fmt.Errorf("failed to read log: %w", err)
	}

	return series, nil
}

// ReadPingLog extracts RTTs from `ping -D` output:
//
//	[1539175412.345678] 64 bytes from 10.0.0.2: icmp_seq=1 ttl=64 time=20.3 ms
//
// Lines without a bracketed timestamp or not ending in "ms" are ignored.
func ReadPingLog(r io.Reader, zeroEpoch float64) (types.Series, error) {
	series := types.Series{Name: "ping"}

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		raw := scanner.Text()
		if !strings.HasPrefix(raw, "[") {
			continue
		}

		parts := strings.Fields(raw)
		if len(parts) < 3 || parts[len(parts)-1] != "ms" {
			continue
		}

		timeField := parts[len(parts)-2]
		if !strings.HasPrefix(timeField, "time=") {
			return series, fmt.Errorf("line %d: %w: unexpected field %q", line, ErrMalformed, timeField)
		}
		rtt, err := cast.ToFloat64E(strings.TrimPrefix(timeField, "time="))
		if err != nil {
			return series, fmt.Errorf("line %d: %w: rtt: %v", line, ErrMalformed, err)
		}

		epoch, err := cast.ToFloat64E(strings.Trim(parts[0], "[]"))
		if err != nil {
			return series, fmt.Errorf("line %d: %w: epoch: %v", line, ErrMalformed, err)
		}

		series.Samples = append(series.Samples, types.Sample{Time: epoch - zeroEpoch, Value: rtt})
	}
	if err := scanner.Err(); err != nil {
		return series, fmt.Errorf("failed to read log: %w", err)
	}

	return series, nil
}
