package storage

import (
	"fmt"
	"reflect"
	"testing"
)

func TestIndexAddRun(t *testing.T) {
	idx := NewIndex()

	info := &RunInfo{
		ID:     "quic-loss1",
		Labels: map[string]string{"protocol": "quic", "loss": "1"},
	}

	if err := idx.AddRun(info); err != nil {
		t.Fatalf("Failed to add run: %v", err)
	}

	// Adding the same run again replaces it
	if err := idx.AddRun(info); err != nil {
		t.Fatalf("Failed to add run again: %v", err)
	}

	if idx.RunCount() != 1 {
		t.Errorf("Expected 1 run, got %d", idx.RunCount())
	}

	if err := idx.AddRun(&RunInfo{}); err == nil {
		t.Error("Expected error for run without ID")
	}
}

func TestIndexFindRuns(t *testing.T) {
	idx := NewIndex()

	runs := []*RunInfo{
		{ID: "a", Labels: map[string]string{"protocol": "quic", "loss": "0"}},
		{ID: "b", Labels: map[string]string{"protocol": "quic", "loss": "1"}},
		{ID: "c", Labels: map[string]string{"protocol": "tcp", "loss": "1"}},
	}
	for _, r := range runs {
		if err := idx.AddRun(r); err != nil {
			t.Fatalf("Failed to add run: %v", err)
		}
	}

	tests := []struct {
		name      string
		selectors map[string]string
		want      []string
	}{
		{"all", nil, []string{"a", "b", "c"}},
		{"protocol", map[string]string{"protocol": "quic"}, []string{"a", "b"}},
		{"intersection", map[string]string{"protocol": "quic", "loss": "1"}, []string{"b"}},
		{"no match", map[string]string{"protocol": "sctp"}, nil},
		{"unknown label", map[string]string{"host": "x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.FindRuns(tt.selectors)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindRuns(%v) = %v, want %v", tt.selectors, got, tt.want)
			}
		})
	}
}

func TestIndexReplaceRunLabels(t *testing.T) {
	idx := NewIndex()

	_ = idx.AddRun(&RunInfo{ID: "a", Labels: map[string]string{"protocol": "quic"}})
	_ = idx.AddRun(&RunInfo{ID: "a", Labels: map[string]string{"protocol": "tcp"}})

	if got := idx.FindRuns(map[string]string{"protocol": "quic"}); len(got) != 0 {
		t.Errorf("Expected stale label to be dropped, got %v", got)
	}
	if got := idx.FindRuns(map[string]string{"protocol": "tcp"}); len(got) != 1 {
		t.Errorf("Expected 1 run with new label, got %v", got)
	}
}

func TestIndexRemoveRun(t *testing.T) {
	idx := NewIndex()

	_ = idx.AddRun(&RunInfo{ID: "a", Labels: map[string]string{"protocol": "quic"}})
	_ = idx.AddRun(&RunInfo{ID: "b", Labels: map[string]string{"protocol": "quic"}})

	idx.RemoveRun("a")
	idx.RemoveRun("missing")

	if _, ok := idx.GetRun("a"); ok {
		t.Error("Expected run a to be removed")
	}
	if got := idx.FindRuns(map[string]string{"protocol": "quic"}); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Expected [b], got %v", got)
	}

	idx.Clear()
	if idx.RunCount() != 0 {
		t.Errorf("Expected empty index after Clear, got %d runs", idx.RunCount())
	}
}

func BenchmarkIndexFindRuns(b *testing.B) {
	idx := NewIndex()
	for i := 0; i < 1000; i++ {
		_ = idx.AddRun(&RunInfo{
			ID: fmt.Sprintf("run-%d", i),
			Labels: map[string]string{
				"protocol": []string{"quic", "tcp"}[i%2],
				"loss":     fmt.Sprintf("%d", i%5),
			},
		})
	}

	selectors := map[string]string{"protocol": "quic", "loss": "2"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.FindRuns(selectors)
	}
}
