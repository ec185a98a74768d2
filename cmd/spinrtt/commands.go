package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/ingest"
	"github.com/vjranagit/spinrtt/pkg/pipeline"
	"github.com/vjranagit/spinrtt/pkg/report"
	"github.com/vjranagit/spinrtt/pkg/types"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		id, observer, protocol string
		analyzers              []string
		labels                 map[string]string
		client, server, ping   string
		zeroEpoch              float64
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Read an observer CSV and endpoint logs into a stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var columns []ingest.Column
			switch protocol {
			case "quic":
				columns = ingest.QUICAnalyzers(analyzers...)
			case "tcp":
				columns = ingest.TCPAnalyzers()
			default:
				return errors.Errorf("unknown protocol %q", protocol)
			}

			f, err := os.Open(observer)
			if err != nil {
				return errors.Wrap(err, "could not open observer CSV")
			}
			defer f.Close()

			opts := a.cfg.ObserverOptions(columns)
			opts.Origin = zeroEpoch
			records, err := ingest.ReadObserverCSV(f, opts)
			if err != nil {
				return errors.Wrapf(err, "could not parse %s", observer)
			}

			run := &types.Run{
				ID:         id,
				Labels:     labels,
				Records:    records,
				References: make(map[string]types.Series),
			}
			for _, c := range columns {
				run.Analyzers = append(run.Analyzers, c.Name)
			}
			if run.Labels == nil {
				run.Labels = make(map[string]string)
			}
			run.Labels["protocol"] = protocol

			for name, path := range map[string]string{"client": client, "server": server} {
				if path == "" {
					continue
				}
				if err := readEndpoint(run, name, path, zeroEpoch); err != nil {
					return err
				}
			}

			if ping != "" {
				f, err := os.Open(ping)
				if err != nil {
					return errors.Wrap(err, "could not open ping log")
				}
				defer f.Close()

				series, err := ingest.ReadPingLog(f, zeroEpoch)
				if err != nil {
					return errors.Wrapf(err, "could not parse %s", ping)
				}
				run.References[series.Name] = series
			}

			return a.engine.Ingest(cmd.Context(), run)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "run ID")
	cmd.Flags().StringVar(&observer, "observer", "", "observer CSV file")
	cmd.Flags().StringVar(&protocol, "protocol", "quic", "observer column layout: quic or tcp")
	cmd.Flags().StringSliceVar(&analyzers, "analyzers", nil, "QUIC analyzers to read (default all)")
	cmd.Flags().StringToStringVar(&labels, "label", nil, "run label as key=value")
	cmd.Flags().StringVar(&client, "client", "", "client endpoint log")
	cmd.Flags().StringVar(&server, "server", "", "server endpoint log")
	cmd.Flags().StringVar(&ping, "ping", "", "ping -D output")
	cmd.Flags().Float64Var(&zeroEpoch, "zero-epoch", 0, "epoch time of the timeline origin")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("observer")

	return cmd
}

// readEndpoint adds the RTT and RTT_TCP series of one endpoint log to run
func readEndpoint(run *types.Run, name, path string, zeroEpoch float64) error {
	if zeroEpoch == 0 {
		return errors.New("endpoint logs need --zero-epoch")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read %s log", name)
	}

	for suffix, marker := range map[string]string{"": ingest.MarkerRTT, "_tcp": ingest.MarkerRTTTCP} {
		series, err := ingest.ReadEndpointLog(bytes.NewReader(data), name+suffix, marker, zeroEpoch)
		if err != nil {
			return errors.Wrapf(err, "could not parse %s", path)
		}
		if series.Len() > 0 {
			run.References[series.Name] = series
		}
	}
	return nil
}

func newRunsCmd(a *app) *cobra.Command {
	var labels map[string]string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.engine.Runs(cmd.Context(), labels)
			if err != nil {
				return err
			}
			return report.WriteRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringToStringVar(&labels, "label", nil, "label selector as key=value")

	return cmd
}

func newECDFCmd(a *app) *cobra.Command {
	var (
		pair   pairFlags
		runID  string
		table  bool
		bounds []float64
		rtt    float64
	)

	cmd := &cobra.Command{
		Use:   "ecdf",
		Short: "Build the error distribution of one analyzer pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := pair.options()
			if err != nil {
				return err
			}

			req := pipeline.Request{RunID: runID, A: pair.a, B: pair.b, Reference: pair.ref, Options: opts}
			ecdf, err := a.engine.Evaluate(cmd.Context(), req)
			if errors.Is(err, analysis.ErrNoData) {
				a.log.WithField("pair", req.String()).Info("no data for pair")
				return nil
			}
			if err != nil {
				return err
			}

			printer := report.NewPrinter(cmd.OutOrStdout())
			label := strings.TrimPrefix(req.String(), runID+"/")
			report.PrintSummary(printer, label, ecdf)
			report.PrintFractions(printer, label, ecdf, bounds)

			if rtt > 0 {
				names := []string{pair.a, pair.b}
				if pair.ref != "" {
					names[1] = pair.ref
				}
				for _, name := range names {
					rate, err := a.engine.SamplesPerRTT(cmd.Context(), runID, name, opts.Window, rtt)
					if err != nil {
						return err
					}
					report.PrintSamplesPerRTT(printer, name, rate)
				}
			}

			if table {
				printer.Println()
				return report.WriteTable(cmd.OutOrStdout(), ecdf)
			}
			return nil
		},
	}

	pair.register(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "run ID")
	cmd.Flags().BoolVar(&table, "table", false, "print the full distribution")
	cmd.Flags().Float64SliceVar(&bounds, "within", nil, "print the share of errors within these bounds")
	cmd.Flags().Float64Var(&rtt, "rtt", 0, "also print samples per RTT of both series for this RTT in seconds")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		pair   pairFlags
		labels map[string]string
		bound  float64
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Evaluate one analyzer pair across every matching run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := pair.options()
			if err != nil {
				return err
			}

			runs, err := a.engine.Runs(cmd.Context(), labels)
			if err != nil {
				return err
			}

			reqs := make([]pipeline.Request, len(runs))
			for i, r := range runs {
				reqs[i] = pipeline.Request{RunID: r.ID, A: pair.a, B: pair.b, Reference: pair.ref, Options: opts}
			}

			outcomes, err := a.engine.Batch(cmd.Context(), reqs)
			if werr := report.WriteComparison(cmd.OutOrStdout(), outcomes, bound); werr != nil {
				return werr
			}
			return err
		},
	}

	pair.register(cmd)
	cmd.Flags().StringToStringVar(&labels, "label", nil, "label selector as key=value")
	cmd.Flags().Float64Var(&bound, "within", 5, "error bound for the comparison column")

	return cmd
}

func newSmoothCmd(a *app) *cobra.Command {
	var (
		runID, analyzer string
		secondsPerUnit  float64
	)

	cmd := &cobra.Command{
		Use:   "smooth",
		Short: "Derive <analyzer>_smooth with a one-RTT moving-minimum filter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := a.engine.Smooth(cmd.Context(), runID, analyzer, secondsPerUnit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added analyzer %s to run %s\n", name, runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "run ID")
	cmd.Flags().StringVar(&analyzer, "analyzer", "", "analyzer to smooth")
	cmd.Flags().Float64Var(&secondsPerUnit, "seconds-per-unit", 0.001, "time axis seconds per RTT value unit")
	_ = cmd.MarkFlagRequired("run")
	_ = cmd.MarkFlagRequired("analyzer")

	return cmd
}
