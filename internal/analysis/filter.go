package analysis

import "math"

// FilteredPair is one column pair whose |association| met the threshold.
// A always precedes B in table column order.
type FilteredPair struct {
	A     string  `json:"a" yaml:"a"`
	B     string  `json:"b" yaml:"b"`
	Value float64 `json:"value" yaml:"value"`
}

// ValidateThreshold rejects anything outside (0, 1], including NaN.
func ValidateThreshold(t float64) error {
	if !(t > 0 && t <= 1) {
		return &InvalidThresholdError{Value: t}
	}
	return nil
}

// FilterPairs returns the upper-triangular pairs (i < j) of m with
// |value| ≥ threshold, ordered by i then j. NaN entries never qualify. The
// comparison uses the exact value; the reported value is rounded to four
// decimals.
func FilterPairs(m *Matrix, threshold float64) ([]FilteredPair, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	pairs := []FilteredPair{}
	n := m.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := m.At(i, j)
			if !meetsThreshold(v, threshold) {
				continue
			}
			pairs = append(pairs, FilteredPair{A: m.columns[i], B: m.columns[j], Value: round4(v)})
		}
	}
	return pairs, nil
}

func meetsThreshold(v, threshold float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return math.Abs(v) >= threshold
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
