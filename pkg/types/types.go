package types

import (
	"fmt"
	"math"
)

// Sample represents a single RTT reading on the experiment timeline
type Sample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Series represents an ordered sequence of samples from one observer
type Series struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// Len returns the number of samples in the series
func (s Series) Len() int {
	return len(s.Samples)
}

// Times returns a copy of the sample times
func (s Series) Times() []float64 {
	times := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		times[i] = sample.Time
	}
	return times
}

// Values returns a copy of the sample values
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		values[i] = sample.Value
	}
	return values
}

// Validate checks that sample times are defined and non-decreasing
func (s Series) Validate() error {
	for i, sample := range s.Samples {
		if math.IsNaN(sample.Time) {
			return fmt.Errorf("series %q: sample %d has undefined time", s.Name, i)
		}
		if i > 0 && sample.Time < s.Samples[i-1].Time {
			return fmt.Errorf("series %q: sample %d goes back in time (%g < %g)",
				s.Name, i, sample.Time, s.Samples[i-1].Time)
		}
	}
	return nil
}

// Reading is the state of one analyzer at one record.
// Present is false until the analyzer produced its first value.
// Fresh marks the instant the analyzer produced a new value.
type Reading struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
	Fresh   bool    `json:"fresh"`
}

// Record represents one row of the common timeline
type Record struct {
	Time     float64            `json:"time"`
	Readings map[string]Reading `json:"readings"`
}

// Reading returns the reading of the named analyzer. Unknown analyzers are absent.
func (r Record) Reading(name string) Reading {
	return r.Readings[name]
}

// With returns a copy of the record with the reading for name replaced
func (r Record) With(name string, reading Reading) Record {
	readings := make(map[string]Reading, len(r.Readings)+1)
	for k, v := range r.Readings {
		readings[k] = v
	}
	readings[name] = reading
	return Record{Time: r.Time, Readings: readings}
}

// ErrorSample is an error value and how long it stayed current
type ErrorSample struct {
	Error    float64 `json:"error"`
	Duration float64 `json:"duration"`
}

// ECDF is an empirical cumulative distribution function.
// Values and Probabilities are co-sorted by value.
type ECDF struct {
	Values        []float64 `json:"values"`
	Probabilities []float64 `json:"probabilities"`
	Weighted      bool      `json:"weighted"`
	Relative      bool      `json:"relative"`
	TotalDuration float64   `json:"total_duration"`
}

// Len returns the number of points in the distribution
func (e *ECDF) Len() int {
	return len(e.Values)
}

// Window is a half-open time interval [Start, End).
// The zero Window covers the whole timeline.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// IsZero reports whether the window is unset
func (w Window) IsZero() bool {
	return w.Start == 0 && w.End == 0
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t float64) bool {
	if w.IsZero() {
		return true
	}
	return t >= w.Start && t < w.End
}

// Duration returns the window length in seconds
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// Run represents one ingested experiment run
type Run struct {
	ID         string            `json:"id"`
	Labels     map[string]string `json:"labels"`
	Analyzers  []string          `json:"analyzers"`
	Records    []Record          `json:"records"`
	References map[string]Series `json:"references"`
}

// HasAnalyzer reports whether the run carries readings for name
func (r *Run) HasAnalyzer(name string) bool {
	for _, a := range r.Analyzers {
		if a == name {
			return true
		}
	}
	return false
}
