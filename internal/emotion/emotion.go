package emotion

import (
	"slices"
	"sort"
)

// Score is one prosody inference: an emotion name and its intensity.
type Score struct {
	Name  string
	Value float64
}

// ScoreSet keeps scores in the order the service sent them.
type ScoreSet []Score

// FromMap builds a ScoreSet from a Go map. Map iteration is random,
// so entries are ordered by name to keep ranking deterministic.
func FromMap(m map[string]float64) ScoreSet {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(ScoreSet, 0, len(names))
	for _, name := range names {
		set = append(set, Score{Name: name, Value: m[name]})
	}
	return set
}

// TopN returns the k highest scores, highest first.
// Equal scores keep their input order. The input is not modified.
func TopN(set ScoreSet, k int) ScoreSet {
	if k <= 0 || len(set) == 0 {
		return ScoreSet{}
	}

	sorted := slices.Clone(set)
	slices.SortStableFunc(sorted, func(a, b Score) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})

	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// Labels fills a fixed number of label slots with ranked names.
// Unused slots stay empty.
func Labels(top ScoreSet) [3]string {
	var out [3]string
	for i := 0; i < len(top) && i < len(out); i++ {
		out[i] = top[i].Name
	}
	return out
}
