package analysis

import (
	"fmt"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// FreshSeries collects the fresh readings of one analyzer
func FreshSeries(records []types.Record, analyzer string) types.Series {
	series := types.Series{Name: analyzer}
	for _, rec := range records {
		reading := rec.Reading(analyzer)
		if reading.Fresh {
			series.Samples = append(series.Samples, types.Sample{Time: rec.Time, Value: reading.Value})
		}
	}
	return series
}

// AgainstReference pairs every fresh reading of analyzer with the reference
// series interpolated at the same instant. The returned records carry both
// readings as fresh, so BuildErrorDistribution over them yields one error per
// analyzer sample.
func AgainstReference(records []types.Record, analyzer string, reference types.Series, refName string) ([]types.Record, error) {
	if analyzer == "" || refName == "" {
		return nil, fmt.Errorf("%w: analyzer names must not be empty", ErrInvalidInput)
	}
	if analyzer == refName {
		return nil, fmt.Errorf("%w: reference name %q shadows the analyzer", ErrInvalidInput, refName)
	}

	observed := FreshSeries(records, analyzer)
	if err := observed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	interpolated, err := Interpolate(observed.Times(), reference)
	if err != nil {
		return nil, fmt.Errorf("interpolate %q: %w", reference.Name, err)
	}

	paired := make([]types.Record, observed.Len())
	for i, sample := range observed.Samples {
		paired[i] = types.Record{
			Time: sample.Time,
			Readings: map[string]types.Reading{
				analyzer: {Value: sample.Value, Present: true, Fresh: true},
				refName:  {Value: interpolated[i], Present: true, Fresh: true},
			},
		}
	}

	return paired, nil
}

// Overlay merges series into the timeline as analyzer name. A sample becomes
// fresh on the first record at or after its time and is carried forward until
// the next one. Records before the first sample hold no reading for name.
func Overlay(records []types.Record, name string, series types.Series) ([]types.Record, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: analyzer name must not be empty", ErrInvalidInput)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	merged := make([]types.Record, len(records))
	samples := series.Samples
	cursor := 0
	var reading types.Reading

	for i, rec := range records {
		reading.Fresh = false
		for cursor < len(samples) && samples[cursor].Time <= rec.Time {
			reading = types.Reading{Value: samples[cursor].Value, Present: true, Fresh: true}
			cursor++
		}
		merged[i] = rec.With(name, reading)
	}

	return merged, nil
}
