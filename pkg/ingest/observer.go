// Package ingest reads the measurement artifacts of an experiment run
// (the on-path observer CSV and the endpoint and ping logs) into the
// common types used by the analysis.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// ErrMalformed is returned when a field cannot be parsed
var ErrMalformed = errors.New("malformed input")

// Column maps one analyzer to its data and freshness columns in the observer CSV
type Column struct {
	Name       string
	DataField  string
	FreshField string
}

// QUICAnalyzers returns columns following the <name>_data / <name>_new layout
func QUICAnalyzers(names ...string) []Column {
	if len(names) == 0 {
		names = []string{"basic", "pn", "pn_valid", "valid", "pn_valid_edge",
			"valid_edge", "status", "two_bit", "stat_heur", "rel_heur", "handshake"}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, DataField: name + "_data", FreshField: name + "_new"}
	}
	return columns
}

// TCPAnalyzers returns the columns written by the TCP observer plugin
func TCPAnalyzers() []Column {
	return []Column{
		{Name: "vec", DataField: "status_data", FreshField: "status_new"},
		{Name: "single_ts", DataField: "single_ts_rtt", FreshField: "single_ts_rtt_new"},
		{Name: "all_ts", DataField: "all_ts_rtt", FreshField: "all_ts_rtt_new"},
	}
}

// ObserverOptions controls how an observer CSV is read
type ObserverOptions struct {
	Analyzers  []Column
	TimeField  string
	SkipRows   int
	ValueScale float64
	// Origin is subtracted from every time. Zero means the first row's time.
	Origin float64
}

// DefaultObserverOptions returns options for a QUIC observer CSV
// with RTTs in seconds converted to milliseconds
func DefaultObserverOptions() ObserverOptions {
	return ObserverOptions{
		Analyzers:  QUICAnalyzers(),
		TimeField:  "time",
		SkipRows:   2,
		ValueScale: 1000,
	}
}

// ReadObserverCSV parses an observer CSV into records on a timeline that
// starts at the first row unless opts.Origin is set. A reading is fresh on
// rows where its flag column is 1; the last fresh value is carried on the
// rows in between and the reading stays absent until the first fresh value.
func ReadObserverCSV(r io.Reader, opts ObserverOptions) ([]types.Record, error) {
	if opts.TimeField == "" {
		opts.TimeField = "time"
	}
	if opts.ValueScale == 0 {
		opts.ValueScale = 1
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	fields := make(map[string]int, len(header))
	for i, name := range header {
		fields[strings.TrimSpace(name)] = i
	}

	timeIdx, ok := fields[opts.TimeField]
	if !ok {
		return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, opts.TimeField)
	}

	type columnIdx struct {
		name        string
		data, fresh int
	}
	columns := make([]columnIdx, 0, len(opts.Analyzers))
	for _, c := range opts.Analyzers {
		data, ok := fields[c.DataField]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, c.DataField)
		}
		fresh, ok := fields[c.FreshField]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, c.FreshField)
		}
		columns = append(columns, columnIdx{name: c.Name, data: data, fresh: fresh})
	}

	latest := make(map[string]types.Reading, len(columns))
	var records []types.Record
	baseSet := false
	var base float64

	for row := 0; ; row++ {
		fieldsRow, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		line, _ := reader.FieldPos(0)

		t, err := parseField(fieldsRow, timeIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !baseSet {
			base, baseSet = opts.Origin, true
			if base == 0 {
				base = t
			}
		}
		if row < opts.SkipRows {
			continue
		}

		rec := types.Record{Time: t - base, Readings: make(map[string]types.Reading, len(columns))}
		for _, c := range columns {
			reading := latest[c.name]
			reading.Fresh = false

			if field(fieldsRow, c.fresh) == "1" {
				v, err := parseField(fieldsRow, c.data)
				if err != nil {
					return nil, fmt.Errorf("line %d, analyzer %q: %w", line, c.name, err)
				}
				reading = types.Reading{Value: v * opts.ValueScale, Present: true, Fresh: true}
			}

			latest[c.name] = reading
			rec.Readings[c.name] = reading
		}
		records = append(records, rec)
	}

	return records, nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseField(row []string, idx int) (float64, error) {
	raw := field(row, idx)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty field %d", ErrMalformed, idx)
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
