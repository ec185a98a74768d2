// Package pipeline evaluates error distributions over stored runs, reusing
// results already computed and spreading batches over a bounded worker pool.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vjranagit/spinrtt/internal/metrics"
	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/storage"
	"github.com/vjranagit/spinrtt/pkg/types"
)

// Outcome is the result of one request of a batch
type Outcome struct {
	Request Request
	ECDF    *types.ECDF
	Summary analysis.Summary
	// NoData is set when the pair never reported together; Err is nil then.
	NoData bool
	Err    error
}

// Engine computes and persists error distributions
type Engine struct {
	store   storage.Storage
	workers int
	log     *logrus.Entry
}

// NewEngine creates an engine on top of store running at most workers
// evaluations at a time
func NewEngine(store storage.Storage, workers int, logger *logrus.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		store:   store,
		workers: workers,
		log:     logger.WithField("component", "pipeline"),
	}
}

// Evaluate returns the distribution for req, computing and storing it when
// no stored result exists yet. Pairs without data fail with analysis.ErrNoData.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*types.ECDF, error) {
	if err := req.Validate(); err != nil {
		metrics.Evaluations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	key := req.Key()
	ecdf, err := e.store.GetResult(ctx, req.RunID, key)
	if err == nil {
		metrics.Evaluations.WithLabelValues(metrics.OutcomeOK).Inc()
		return ecdf, nil
	}
	if !errors.Is(err, storage.ErrResultNotFound) {
		metrics.Evaluations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, errors.Wrapf(err, "load result %s", req)
	}

	run, err := e.store.GetRun(ctx, req.RunID)
	if err != nil {
		metrics.Evaluations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, errors.Wrapf(err, "load run %q", req.RunID)
	}

	start := time.Now()
	ecdf, err = compute(run, req)
	metrics.EvalDuration.Observe(time.Since(start).Seconds())
	metrics.CacheLookups.WithLabelValues(metrics.SourceCompute).Inc()

	switch {
	case errors.Is(err, analysis.ErrNoData):
		metrics.Evaluations.WithLabelValues(metrics.OutcomeNoData).Inc()
		return nil, errors.Wrapf(err, "evaluate %s", req)
	case errors.Is(err, analysis.ErrInvalidInput):
		metrics.Evaluations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, errors.Wrapf(err, "evaluate %s", req)
	case err != nil:
		metrics.Evaluations.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, errors.Wrapf(err, "evaluate %s", req)
	}

	metrics.Segments.Observe(float64(ecdf.Len()))
	metrics.Evaluations.WithLabelValues(metrics.OutcomeOK).Inc()

	e.log.WithFields(logrus.Fields{
		"run":        req.RunID,
		"analyzer_a": req.A,
		"analyzer_b": req.B,
		"reference":  req.Reference,
		"segments":   ecdf.Len(),
	}).Debug("distribution computed")

	if err := e.store.PutResult(ctx, req.RunID, key, ecdf); err != nil {
		return nil, errors.Wrapf(err, "store result %s", req)
	}

	return ecdf, nil
}

func compute(run *types.Run, req Request) (*types.ECDF, error) {
	records, a, b, err := req.pair(run)
	if err != nil {
		return nil, err
	}
	return analysis.BuildErrorDistribution(records, a, b, req.Options)
}

// Batch evaluates every request on the worker pool. Outcomes are returned in
// request order. Failed requests do not stop the batch; a cancelled context
// does, and the returned error is then the context's.
func (e *Engine) Batch(ctx context.Context, reqs []Request) ([]Outcome, error) {
	outcomes := make([]Outcome, len(reqs))
	for i, req := range reqs {
		outcomes[i].Request = req
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range reqs {
		if gctx.Err() != nil {
			break
		}

		i := i
		g.Go(func() error {
			out := &outcomes[i]
			if err := gctx.Err(); err != nil {
				out.Err = err
				return err
			}

			ecdf, err := e.Evaluate(gctx, out.Request)
			switch {
			case errors.Is(err, analysis.ErrNoData):
				out.NoData = true
				e.log.WithField("pair", out.Request.String()).Info("no data for pair, skipping")
			case err != nil:
				out.Err = err
				e.log.WithError(err).WithField("pair", out.Request.String()).Warn("evaluation failed")
			default:
				out.ECDF = ecdf
				out.Summary = analysis.Summarize(ecdf)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		for i := range outcomes {
			if outcomes[i].ECDF == nil && !outcomes[i].NoData && outcomes[i].Err == nil {
				outcomes[i].Err = err
			}
		}
	}

	return outcomes, err
}

// Ingest stores a run, replacing any earlier run with the same ID
func (e *Engine) Ingest(ctx context.Context, run *types.Run) error {
	if err := e.store.PutRun(ctx, run); err != nil {
		return errors.Wrapf(err, "store run %q", run.ID)
	}
	metrics.RunsIngested.Inc()

	e.log.WithFields(logrus.Fields{
		"run":        run.ID,
		"records":    len(run.Records),
		"analyzers":  len(run.Analyzers),
		"references": len(run.References),
	}).Info("run ingested")
	return nil
}

// Smooth derives <analyzer>_smooth with a one-RTT moving-minimum filter and
// stores it back into the run as a new analyzer. secondsPerUnit converts RTT
// values into the time axis unit.
func (e *Engine) Smooth(ctx context.Context, runID, analyzer string, secondsPerUnit float64) (string, error) {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return "", errors.Wrapf(err, "load run %q", runID)
	}
	if !run.HasAnalyzer(analyzer) {
		return "", errors.Wrapf(analysis.ErrInvalidInput, "run %q has no analyzer %q", runID, analyzer)
	}

	name := analyzer + "_smooth"
	smooth := analysis.MovingMinimum(analysis.FreshSeries(run.Records, analyzer), name, secondsPerUnit)

	records, err := analysis.Overlay(run.Records, name, smooth)
	if err != nil {
		return "", errors.Wrapf(err, "merge %q", name)
	}
	run.Records = records
	if !run.HasAnalyzer(name) {
		run.Analyzers = append(run.Analyzers, name)
	}

	if err := e.Ingest(ctx, run); err != nil {
		return "", err
	}
	return name, nil
}

// SamplesPerRTT reports how many fresh samples of name the run holds per
// rtt seconds of window. name may be an analyzer or a reference series.
// A zero window spans the run's records.
func (e *Engine) SamplesPerRTT(ctx context.Context, runID, name string, window types.Window, rtt float64) (float64, error) {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return 0, errors.Wrapf(err, "load run %q", runID)
	}

	var series types.Series
	if run.HasAnalyzer(name) {
		series = analysis.FreshSeries(run.Records, name)
	} else if ref, ok := run.References[name]; ok {
		series = ref
	} else {
		return 0, errors.Wrapf(analysis.ErrInvalidInput, "run %q has no analyzer or reference %q", runID, name)
	}

	if window.IsZero() && len(run.Records) > 0 {
		window = types.Window{Start: run.Records[0].Time, End: run.Records[len(run.Records)-1].Time}
	}

	rate, err := analysis.SamplesPerRTT(series, window, rtt)
	return rate, errors.Wrapf(err, "samples per rtt of %q", name)
}

// Runs lists the stored runs matching every label selector
func (e *Engine) Runs(ctx context.Context, selectors map[string]string) ([]storage.RunInfo, error) {
	runs, err := e.store.FindRuns(ctx, selectors)
	return runs, errors.Wrap(err, "find runs")
}
