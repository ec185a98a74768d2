package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/storage"
	"github.com/vjranagit/spinrtt/pkg/types"
)

// Request names one error distribution to compute.
//
// Without Reference the distribution compares analyzers A and B over the
// run's timeline. With Reference every fresh reading of A is compared with
// the reference series interpolated at the same instant, and B is unused.
// A and B may also name a reference series of the run, which is then merged
// into the timeline as an analyzer.
type Request struct {
	RunID     string           `json:"run"`
	A         string           `json:"a"`
	B         string           `json:"b,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Options   analysis.Options `json:"options"`
}

// Key returns a stable fingerprint of everything but the run ID
func (r Request) Key() string {
	data, _ := json.Marshal(struct {
		A         string           `json:"a"`
		B         string           `json:"b"`
		Reference string           `json:"reference"`
		Options   analysis.Options `json:"options"`
	}{r.A, r.B, r.Reference, r.Options})

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:16])
}

// Validate checks that the request names a run and a pair to compare
func (r Request) Validate() error {
	if err := storage.ValidateRunID(r.RunID); err != nil {
		return errors.Wrap(analysis.ErrInvalidInput, err.Error())
	}
	if r.A == "" {
		return errors.Wrap(analysis.ErrInvalidInput, "analyzer A is required")
	}
	if r.Reference == "" && r.B == "" {
		return errors.Wrap(analysis.ErrInvalidInput, "analyzer B or a reference is required")
	}
	return nil
}

// String describes the compared pair
func (r Request) String() string {
	if r.Reference != "" {
		return fmt.Sprintf("%s/%s~%s", r.RunID, r.A, r.Reference)
	}
	return fmt.Sprintf("%s/%s-%s", r.RunID, r.A, r.B)
}

// pair resolves the request against a run and returns the records to walk
// together with the two analyzer names to compare.
func (r Request) pair(run *types.Run) ([]types.Record, string, string, error) {
	records, err := resolve(run, run.Records, r.A)
	if err != nil {
		return nil, "", "", err
	}

	if r.Reference != "" {
		ref, ok := run.References[r.Reference]
		if !ok {
			return nil, "", "", errors.Wrapf(analysis.ErrInvalidInput, "run %q has no reference %q", run.ID, r.Reference)
		}
		paired, err := analysis.AgainstReference(records, r.A, ref, r.Reference)
		return paired, r.A, r.Reference, err
	}

	records, err = resolve(run, records, r.B)
	return records, r.A, r.B, err
}

// resolve makes sure name is an analyzer of the timeline, merging in the
// run's reference series of that name when needed.
func resolve(run *types.Run, records []types.Record, name string) ([]types.Record, error) {
	if run.HasAnalyzer(name) {
		return records, nil
	}

	ref, ok := run.References[name]
	if !ok {
		return nil, errors.Wrapf(analysis.ErrInvalidInput, "run %q has no analyzer or reference %q", run.ID, name)
	}
	return analysis.Overlay(records, name, ref)
}
