package storage

import (
	"fmt"
	"sort"
)

// RunInfo describes a stored run without its records
type RunInfo struct {
	ID         string            `json:"id"`
	Labels     map[string]string `json:"labels"`
	Analyzers  []string          `json:"analyzers"`
	References []string          `json:"references"`
	Records    int               `json:"records"`
	Start      float64           `json:"start"`
	End        float64           `json:"end"`
}

// Index manages the label index of stored runs
type Index struct {
	runs map[string]*RunInfo
	// Inverted index: label name -> label value -> run IDs
	labelIndex map[string]map[string][]string
}

// NewIndex creates a new index
func NewIndex() *Index {
	return &Index{
		runs:       make(map[string]*RunInfo),
		labelIndex: make(map[string]map[string][]string),
	}
}

// AddRun adds or replaces a run in the index
func (idx *Index) AddRun(info *RunInfo) error {
	if info.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	if _, exists := idx.runs[info.ID]; exists {
		idx.RemoveRun(info.ID)
	}
	idx.runs[info.ID] = info

	for name, value := range info.Labels {
		if idx.labelIndex[name] == nil {
			idx.labelIndex[name] = make(map[string][]string)
		}
		idx.labelIndex[name][value] = append(idx.labelIndex[name][value], info.ID)
	}

	return nil
}

// RemoveRun drops a run and its label postings
func (idx *Index) RemoveRun(id string) {
	info, ok := idx.runs[id]
	if !ok {
		return
	}
	delete(idx.runs, id)

	for name, value := range info.Labels {
		postings := idx.labelIndex[name][value]
		kept := postings[:0]
		for _, p := range postings {
			if p != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(idx.labelIndex[name], value)
		} else {
			idx.labelIndex[name][value] = kept
		}
	}
}

// GetRun retrieves run metadata by ID
func (idx *Index) GetRun(id string) (*RunInfo, bool) {
	info, ok := idx.runs[id]
	return info, ok
}

// FindRuns returns the IDs of runs matching every label selector, sorted
func (idx *Index) FindRuns(labelSelectors map[string]string) []string {
	if len(labelSelectors) == 0 {
		result := make([]string, 0, len(idx.runs))
		for id := range idx.runs {
			result = append(result, id)
		}
		sort.Strings(result)
		return result
	}

	// Find intersection of matching runs across all selectors
	var result []string
	first := true

	for labelName, labelValue := range labelSelectors {
		valueMap, ok := idx.labelIndex[labelName]
		if !ok {
			return nil
		}

		ids, ok := valueMap[labelValue]
		if !ok {
			return nil
		}

		if first {
			result = append([]string(nil), ids...)
			sort.Strings(result)
			first = false
		} else {
			result = intersect(result, ids)
		}

		if len(result) == 0 {
			return nil
		}
	}

	return result
}

// RunCount returns the number of indexed runs
func (idx *Index) RunCount() int {
	return len(idx.runs)
}

// intersect finds common elements of a sorted slice and an unsorted one
func intersect(sorted, other []string) []string {
	b := append([]string(nil), other...)
	sort.Strings(b)

	result := make([]string, 0)
	i, j := 0, 0

	for i < len(sorted) && j < len(b) {
		if sorted[i] < b[j] {
			i++
		} else if sorted[i] > b[j] {
			j++
		} else {
			result = append(result, sorted[i])
			i++
			j++
		}
	}

	return result
}

// Clear clears the index
func (idx *Index) Clear() {
	idx.runs = make(map[string]*RunInfo)
	idx.labelIndex = make(map[string]map[string][]string)
}
