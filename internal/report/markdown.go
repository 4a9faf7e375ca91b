package report

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// maxListedPairs caps the pairs printed per measure in the summary.
const maxListedPairs = 50

// Markdown renders a compact summary of a run.
func Markdown(res *analysis.Result) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if res.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", res.Name))
	}
	rows := 0
	if res.Table != nil {
		rows = res.Table.Rows()
	}
	if res.Stats.DroppedRows > 0 {
		b.WriteString(fmt.Sprintf("Rows: %d (kept %d, dropped %d)\n", res.Stats.InputRows, rows, res.Stats.DroppedRows))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", rows))
	}
	if res.Table != nil {
		b.WriteString(fmt.Sprintf("Columns: %d\n", len(res.Table.Columns)))
	}
	b.WriteString(fmt.Sprintf("Threshold: |r| >= %g\n", res.Threshold))

	var constant []string
	if res.Table != nil {
		b.WriteString("\n[SCHEMA]\n")
		for i, name := range res.Table.Columns {
			col := res.Table.Data[i]
			mean, std := stat.MeanStdDev(col, nil)
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range col {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			if lo == hi {
				constant = append(constant, name)
			}
			b.WriteString(fmt.Sprintf("- %s: min %.4g, max %.4g, mean %.4g, std %.4g\n", safeVal(name), lo, hi, mean, std))
		}
	}

	b.WriteString("\n[CORRELATIONS]\n")
	for _, m := range res.Measures {
		if res.Matrix(m) == nil {
			continue
		}
		pairs := res.FilteredPairs(m)
		b.WriteString(fmt.Sprintf("%s: %d pair(s)\n", m.Label(), len(pairs)))
		for i, p := range pairs {
			if i == maxListedPairs {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(pairs)-maxListedPairs))
				break
			}
			b.WriteString(fmt.Sprintf("  • %s ~ %s: %.4f\n", safeVal(p.A), safeVal(p.B), p.Value))
		}
	}

	if len(res.Warnings) > 0 || len(constant) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range res.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
		if len(constant) > 0 {
			b.WriteString(fmt.Sprintf("- constant columns (no linear or rank correlation defined): %s\n", strings.Join(constant, ", ")))
		}
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
