package storage

import (
	"fmt"
	"sort"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// runPayload is the stored form of a run. Records are split into columns:
// one time column plus a value/present/fresh triple per analyzer.
type runPayload struct {
	ID         string                   `json:"id"`
	Labels     map[string]string        `json:"labels,omitempty"`
	Count      int                      `json:"count"`
	Times      []byte                   `json:"times"`
	Analyzers  []analyzerColumn         `json:"analyzers"`
	References map[string]seriesPayload `json:"references,omitempty"`
}

type analyzerColumn struct {
	Name    string `json:"name"`
	Values  []byte `json:"values"`
	Present []byte `json:"present"`
	Fresh   []byte `json:"fresh"`
}

type seriesPayload struct {
	Count  int    `json:"count"`
	Times  []byte `json:"times"`
	Values []byte `json:"values"`
}

type resultPayload struct {
	Count         int     `json:"count"`
	Values        []byte  `json:"values"`
	Probabilities []byte  `json:"probabilities"`
	Weighted      bool    `json:"weighted"`
	Relative      bool    `json:"relative"`
	TotalDuration float64 `json:"total_duration"`
}

func (s *badgerStorage) encodeRun(run *types.Run) (*runPayload, error) {
	n := len(run.Records)
	payload := &runPayload{
		ID:     run.ID,
		Labels: run.Labels,
		Count:  n,
	}

	times := make([]float64, n)
	for i, rec := range run.Records {
		times[i] = rec.Time
	}
	var err error
	if payload.Times, err = s.compressor.CompressFloats(times); err != nil {
		return nil, err
	}

	for _, name := range run.Analyzers {
		values := make([]float64, n)
		present := make([]bool, n)
		fresh := make([]bool, n)
		for i, rec := range run.Records {
			r := rec.Reading(name)
			values[i], present[i], fresh[i] = r.Value, r.Present, r.Fresh
		}

		col := analyzerColumn{Name: name}
		if col.Values, err = s.compressor.CompressFloats(values); err != nil {
			return nil, fmt.Errorf("analyzer %q: %w", name, err)
		}
		if col.Present, err = s.compressor.CompressBits(present); err != nil {
			return nil, fmt.Errorf("analyzer %q: %w", name, err)
		}
		if col.Fresh, err = s.compressor.CompressBits(fresh); err != nil {
			return nil, fmt.Errorf("analyzer %q: %w", name, err)
		}
		payload.Analyzers = append(payload.Analyzers, col)
	}

	if len(run.References) > 0 {
		payload.References = make(map[string]seriesPayload, len(run.References))
		names := make([]string, 0, len(run.References))
		for name := range run.References {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			series := run.References[name]
			sp := seriesPayload{Count: series.Len()}
			if sp.Times, err = s.compressor.CompressFloats(series.Times()); err != nil {
				return nil, fmt.Errorf("reference %q: %w", name, err)
			}
			if sp.Values, err = s.compressor.CompressFloats(series.Values()); err != nil {
				return nil, fmt.Errorf("reference %q: %w", name, err)
			}
			payload.References[name] = sp
		}
	}

	return payload, nil
}

func (s *badgerStorage) decodeRun(payload *runPayload) (*types.Run, error) {
	n := payload.Count
	times, err := s.compressor.DecompressFloats(payload.Times, n)
	if err != nil {
		return nil, fmt.Errorf("run %q times: %w", payload.ID, err)
	}

	run := &types.Run{
		ID:      payload.ID,
		Labels:  payload.Labels,
		Records: make([]types.Record, n),
	}
	for i, t := range times {
		run.Records[i] = types.Record{Time: t, Readings: make(map[string]types.Reading, len(payload.Analyzers))}
	}

	for _, col := range payload.Analyzers {
		values, err := s.compressor.DecompressFloats(col.Values, n)
		if err != nil {
			return nil, fmt.Errorf("analyzer %q values: %w", col.Name, err)
		}
		present, err := s.compressor.DecompressBits(col.Present, n)
		if err != nil {
			return nil, fmt.Errorf("analyzer %q present: %w", col.Name, err)
		}
		fresh, err := s.compressor.DecompressBits(col.Fresh, n)
		if err != nil {
			return nil, fmt.Errorf("analyzer %q fresh: %w", col.Name, err)
		}

		run.Analyzers = append(run.Analyzers, col.Name)
		for i := range run.Records {
			run.Records[i].Readings[col.Name] = types.Reading{
				Value:   values[i],
				Present: present[i],
				Fresh:   fresh[i],
			}
		}
	}

	if len(payload.References) > 0 {
		run.References = make(map[string]types.Series, len(payload.References))
		for name, sp := range payload.References {
			times, err := s.compressor.DecompressFloats(sp.Times, sp.Count)
			if err != nil {
				return nil, fmt.Errorf("reference %q times: %w", name, err)
			}
			values, err := s.compressor.DecompressFloats(sp.Values, sp.Count)
			if err != nil {
				return nil, fmt.Errorf("reference %q values: %w", name, err)
			}

			series := types.Series{Name: name, Samples: make([]types.Sample, sp.Count)}
			for i := range series.Samples {
				series.Samples[i] = types.Sample{Time: times[i], Value: values[i]}
			}
			run.References[name] = series
		}
	}

	return run, nil
}

func (s *badgerStorage) encodeResult(ecdf *types.ECDF) (*resultPayload, error) {
	if ecdf == nil {
		return nil, fmt.Errorf("nil distribution")
	}
	if len(ecdf.Values) != len(ecdf.Probabilities) {
		return nil, fmt.Errorf("distribution has %d values but %d probabilities",
			len(ecdf.Values), len(ecdf.Probabilities))
	}

	payload := &resultPayload{
		Count:         ecdf.Len(),
		Weighted:      ecdf.Weighted,
		Relative:      ecdf.Relative,
		TotalDuration: ecdf.TotalDuration,
	}
	var err error
	if payload.Values, err = s.compressor.CompressFloats(ecdf.Values); err != nil {
		return nil, err
	}
	if payload.Probabilities, err = s.compressor.CompressFloats(ecdf.Probabilities); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *badgerStorage) decodeResult(payload *resultPayload) (*types.ECDF, error) {
	values, err := s.compressor.DecompressFloats(payload.Values, payload.Count)
	if err != nil {
		return nil, fmt.Errorf("result values: %w", err)
	}
	probs, err := s.compressor.DecompressFloats(payload.Probabilities, payload.Count)
	if err != nil {
		return nil, fmt.Errorf("result probabilities: %w", err)
	}

	return &types.ECDF{
		Values:        values,
		Probabilities: probs,
		Weighted:      payload.Weighted,
		Relative:      payload.Relative,
		TotalDuration: payload.TotalDuration,
	}, nil
}
