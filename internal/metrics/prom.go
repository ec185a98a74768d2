package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spinrtt_evaluations_total", Help: "ECDF evaluations by outcome"},
		[]string{"outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "spinrtt_result_lookups_total", Help: "Stored result lookups by source"},
		[]string{"source"},
	)
	Segments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spinrtt_error_segments",
			Help:    "Error segments per computed distribution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	EvalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "spinrtt_evaluation_seconds", Help: "Time spent computing one distribution"},
	)
	RunsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "spinrtt_runs_ingested_total", Help: "Runs written to storage"},
	)
	CacheHitRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "spinrtt_result_cache_hit_ratio", Help: "Share of result reads served from memory"},
	)
)

// Outcome and source label values
const (
	OutcomeOK      = "ok"
	OutcomeNoData  = "no_data"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"

	SourceCache   = "cache"
	SourceStore   = "store"
	SourceCompute = "compute"
)

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{Evaluations, CacheLookups, Segments, EvalDuration, RunsIngested, CacheHitRatio}
}

// NewRegistry returns a private registry holding every collector
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	return reg
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(reg *prometheus.Registry, path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, reg)
}
