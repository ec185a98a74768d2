// Package report prints error distributions and batch comparisons as text.
package report

import (
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/pipeline"
	"github.com/vjranagit/spinrtt/pkg/storage"
	"github.com/vjranagit/spinrtt/pkg/types"
)

// NewPrinter returns a bare logger writing to w
func NewPrinter(w io.Writer) *log.Logger {
	return log.New(w, "", 0)
}

func unit(ecdf *types.ECDF) string {
	if ecdf.Relative {
		return "%"
	}
	return "ms"
}

// PrintSummary prints the summary block of one distribution under label
func PrintSummary(printer *log.Logger, label string, ecdf *types.ECDF) {
	if ecdf == nil {
		return
	}

	s := analysis.Summarize(ecdf)
	u := unit(ecdf)

	printer.Printf("%s-mean: %.3f %s\n", label, s.Mean, u)
	printer.Printf("%s-stddev: %.3f %s\n", label, s.StdDev, u)
	printer.Printf("%s-min: %.3f %s\n", label, s.Min, u)
	printer.Printf("%s-max: %.3f %s\n", label, s.Max, u)
	printer.Printf("%s-p5: %.3f %s\n", label, s.P5, u)
	printer.Printf("%s-median: %.3f %s\n", label, s.Median, u)
	printer.Printf("%s-p95: %.3f %s\n", label, s.P95, u)
	printer.Printf("%s-duration: %.3f s\n", label, s.TotalDuration)
	printer.Printf("%s-n: %d\n", label, s.N)
}

// PrintFractions prints the share of the distribution within each bound
func PrintFractions(printer *log.Logger, label string, ecdf *types.ECDF, bounds []float64) {
	if ecdf == nil {
		return
	}

	u := unit(ecdf)
	for _, b := range bounds {
		printer.Printf("%s-within-%g%s: %.3f\n", label, b, u, ecdf.FractionWithin(b))
	}
}

// PrintSamplesPerRTT prints the sampling density of the series name
func PrintSamplesPerRTT(printer *log.Logger, name string, rate float64) {
	printer.Printf("%s-samples-per-rtt: %.3f\n", name, rate)
}

// WriteTable writes the distribution as tab-separated value/probability rows
func WriteTable(w io.Writer, ecdf *types.ECDF) error {
	if _, err := fmt.Fprintln(w, "error\tprobability"); err != nil {
		return err
	}
	for i, v := range ecdf.Values {
		if _, err := fmt.Fprintf(w, "%g\t%g\n", v, ecdf.Probabilities[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteComparison writes one aligned row per batch outcome with the share of
// each distribution within bound
func WriteComparison(w io.Writer, outcomes []pipeline.Outcome, bound float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "RUN\tPAIR\tN\tMEDIAN\tWITHIN %g\n", bound)
	for _, out := range outcomes {
		pair := out.Request.A + "-" + out.Request.B
		if out.Request.Reference != "" {
			pair = out.Request.A + "~" + out.Request.Reference
		}

		switch {
		case out.Err != nil:
			fmt.Fprintf(tw, "%s\t%s\t-\t-\terror: %v\n", out.Request.RunID, pair, out.Err)
		case out.NoData:
			fmt.Fprintf(tw, "%s\t%s\t0\t-\tno data\n", out.Request.RunID, pair)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.3f\n", out.Request.RunID, pair,
				out.Summary.N, out.Summary.Median, out.ECDF.FractionWithin(bound))
		}
	}

	return tw.Flush()
}

// WriteRuns writes one aligned row per stored run
func WriteRuns(w io.Writer, runs []storage.RunInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tRECORDS\tSTART\tEND\tANALYZERS\tREFERENCES\tLABELS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%v\t%v\t%v\n",
			r.ID, r.Records, r.Start, r.End, r.Analyzers, r.References, r.Labels)
	}

	return tw.Flush()
}
