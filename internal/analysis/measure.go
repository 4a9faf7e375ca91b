package analysis

import (
	"fmt"
	"strings"
)

// Measure names one of the three association measures.
type Measure string

const (
	// Linear is the Pearson product-moment correlation.
	Linear Measure = "linear"
	// Rank is the Spearman rank correlation with average ranks for ties.
	Rank Measure = "rank"
	// Nonlinear is the distance correlation.
	Nonlinear Measure = "nonlinear"
)

// AllMeasures lists every measure in report order.
var AllMeasures = []Measure{Linear, Rank, Nonlinear}

// Label is the display name used for matrix sheets and headings.
func (m Measure) Label() string {
	switch m {
	case Linear:
		return "Pearson"
	case Rank:
		return "Spearman"
	case Nonlinear:
		return "DistanceCorr"
	default:
		return string(m)
	}
}

// Slug is the short lowercase name used in file and folder names.
func (m Measure) Slug() string {
	switch m {
	case Linear:
		return "pearson"
	case Rank:
		return "spearman"
	case Nonlinear:
		return "distance"
	default:
		return string(m)
	}
}

// FilteredLabel is the sheet name for the measure's filtered pair list.
func (m Measure) FilteredLabel() string {
	switch m {
	case Nonlinear:
		return "Distance_Filtered"
	default:
		return m.Label() + "_Filtered"
	}
}

// ParseMeasure accepts the canonical name or a common alias.
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "pearson":
		return Linear, nil
	case "rank", "spearman":
		return Rank, nil
	case "nonlinear", "distance", "dcor", "distancecorr":
		return Nonlinear, nil
	default:
		return "", fmt.Errorf("unknown measure %q (use linear|rank|nonlinear)", s)
	}
}
