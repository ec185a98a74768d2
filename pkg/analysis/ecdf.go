package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/vjranagit/spinrtt/pkg/types"
)

// Options controls how an error distribution is built.
type Options struct {
	// Weighted weights every error by the time it stayed current instead of
	// counting each error once.
	Weighted bool `json:"weighted"`

	// Relative expresses errors as a percentage of analyzer A's value.
	Relative bool `json:"relative"`

	// Window restricts the pass to records inside [Start, End).
	Window types.Window `json:"window"`
}

// BuildErrorDistribution computes the ECDF of the error between analyzers a
// and b over one timeline.
//
// It returns ErrNoData if the two analyzers never both reported, and
// ErrInvalidInput for malformed records.
func BuildErrorDistribution(records []types.Record, a, b string, opts Options) (*types.ECDF, error) {
	segments, err := ErrorSegments(records, a, b, opts)
	if err != nil {
		return nil, err
	}

	ecdf := NewECDF(segments, opts.Weighted)
	ecdf.Relative = opts.Relative
	return ecdf, nil
}

// ErrorSegments walks the records once and returns the error segments in
// timeline order.
//
// The walk waits until both analyzers produced a fresh reading. From then on
// every record where at least one of them is fresh closes the current segment
// and opens a new one from the latest values. The last segment is closed at
// the time of the last record.
func ErrorSegments(records []types.Record, a, b string, opts Options) ([]types.ErrorSample, error) {
	if a == "" || b == "" {
		return nil, fmt.Errorf("%w: analyzer names must not be empty", ErrInvalidInput)
	}

	tracker := &segmentTracker{a: a, b: b, relative: opts.Relative}

	lastTime := math.Inf(-1)
	for i, rec := range records {
		if math.IsNaN(rec.Time) {
			return nil, fmt.Errorf("%w: record %d has undefined time", ErrInvalidInput, i)
		}
		if rec.Time < lastTime {
			return nil, fmt.Errorf("%w: record %d goes back in time (%g < %g)",
				ErrInvalidInput, i, rec.Time, lastTime)
		}
		lastTime = rec.Time

		if !opts.Window.Contains(rec.Time) {
			continue
		}

		if err := tracker.observe(i, rec); err != nil {
			return nil, err
		}
	}

	return tracker.finish()
}

// segmentTracker holds the working state of one ErrorSegments pass
type segmentTracker struct {
	a, b     string
	relative bool

	latestA, latestB float64
	readyA, readyB   bool

	tracking bool
	current  float64
	start    float64
	end      float64

	segments []types.ErrorSample
}

func (s *segmentTracker) observe(index int, rec types.Record) error {
	ra := rec.Reading(s.a)
	rb := rec.Reading(s.b)

	if ra.Fresh && !ra.Present {
		return fmt.Errorf("%w: record %d marks %q fresh without a value", ErrInvalidInput, index, s.a)
	}
	if rb.Fresh && !rb.Present {
		return fmt.Errorf("%w: record %d marks %q fresh without a value", ErrInvalidInput, index, s.b)
	}

	if ra.Present {
		s.latestA = ra.Value
	}
	if rb.Present {
		s.latestB = rb.Value
	}
	s.end = rec.Time

	if !s.tracking {
		if ra.Fresh {
			s.readyA = true
		}
		if rb.Fresh {
			s.readyB = true
		}
		if s.readyA && s.readyB {
			s.tracking = true
			s.current = s.errorOf(s.latestA, s.latestB)
			s.start = rec.Time
		}
		return nil
	}

	if !ra.Fresh && !rb.Fresh {
		return nil
	}

	s.segments = append(s.segments, types.ErrorSample{
		Error:    s.current,
		Duration: rec.Time - s.start,
	})
	s.current = s.errorOf(s.latestA, s.latestB)
	s.start = rec.Time

	return nil
}

func (s *segmentTracker) finish() ([]types.ErrorSample, error) {
	if !s.tracking {
		return nil, fmt.Errorf("%w: %q and %q never both reported", ErrNoData, s.a, s.b)
	}

	s.segments = append(s.segments, types.ErrorSample{
		Error:    s.current,
		Duration: s.end - s.start,
	})
	return s.segments, nil
}

// errorOf computes a - b, as a percentage of a in relative mode.
// A non-positive a keeps the absolute difference for that segment.
func (s *segmentTracker) errorOf(a, b float64) float64 {
	diff := a - b
	if s.relative && a > 0 {
		return diff / a * 100
	}
	return diff
}

// NewECDF sorts the error samples by error and builds the cumulative
// probabilities. Unweighted, the i-th of N samples gets i/N. Weighted, each
// sample contributes its share of the total duration; if the total duration
// is zero every sample is instantaneous and uniform weights are used instead.
func NewECDF(samples []types.ErrorSample, weighted bool) *types.ECDF {
	sorted := make([]types.ErrorSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Error < sorted[j].Error
	})

	n := len(sorted)
	ecdf := &types.ECDF{
		Values:        make([]float64, n),
		Probabilities: make([]float64, n),
		Weighted:      weighted,
	}

	total := 0.0
	for i, sample := range sorted {
		ecdf.Values[i] = sample.Error
		total += sample.Duration
	}
	ecdf.TotalDuration = total

	if !weighted || total <= 0 {
		for i := range sorted {
			ecdf.Probabilities[i] = float64(i+1) / float64(n)
		}
		return ecdf
	}

	running := 0.0
	for i, sample := range sorted {
		running += sample.Duration
		ecdf.Probabilities[i] = running / total
	}

	return ecdf
}
