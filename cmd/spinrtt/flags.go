package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/vjranagit/spinrtt/pkg/analysis"
	"github.com/vjranagit/spinrtt/pkg/types"
)

// pairFlags are shared by the commands that evaluate distributions
type pairFlags struct {
	a, b, ref string
	weighted  bool
	relative  bool
	window    string
}

func (p *pairFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.a, "a", "", "analyzer A (the error is A - B)")
	cmd.Flags().StringVar(&p.b, "b", "", "analyzer B")
	cmd.Flags().StringVar(&p.ref, "ref", "", "compare A with this reference series instead of B")
	cmd.Flags().BoolVar(&p.weighted, "weighted", false, "weight errors by how long they stayed current")
	cmd.Flags().BoolVar(&p.relative, "relative", false, "express errors as a percentage of A")
	cmd.Flags().StringVar(&p.window, "window", "", "restrict to records in [start:end) seconds")
	_ = cmd.MarkFlagRequired("a")
}

func (p *pairFlags) options() (analysis.Options, error) {
	window, err := parseWindow(p.window)
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{Weighted: p.weighted, Relative: p.relative, Window: window}, nil
}

func parseWindow(s string) (types.Window, error) {
	if s == "" {
		return types.Window{}, nil
	}

	start, end, ok := strings.Cut(s, ":")
	if !ok {
		return types.Window{}, fmt.Errorf("window %q: expected start:end", s)
	}

	w := types.Window{}
	var err error
	if w.Start, err = cast.ToFloat64E(strings.TrimSpace(start)); err != nil {
		return types.Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	if w.End, err = cast.ToFloat64E(strings.TrimSpace(end)); err != nil {
		return types.Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	if w.End <= w.Start {
		return types.Window{}, fmt.Errorf("window %q: end must be after start", s)
	}
	return w, nil
}
