package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/utils"
)

// ScatterFileName returns the data file name for one filtered pair.
func ScatterFileName(p analysis.FilteredPair) string {
	return fmt.Sprintf("scatter_%s_%s.csv", utils.SafeFileName(p.A), utils.SafeFileName(p.B))
}

// uniqueScatterName returns ScatterFileName(p), suffixed -2, -3, ... when
// another pair in the same directory already mapped to that name (for
// example "x_y"~"z" and "x"~"y_z").
func uniqueScatterName(used map[string]bool, p analysis.FilteredPair) string {
	name := ScatterFileName(p)
	base := strings.TrimSuffix(name, ".csv")
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s-%d.csv", base, i)
	}
	used[name] = true
	return name
}

// WriteScatter writes the sanitized values of every filtered pair into
// scatter_plots/<measure>/ under dir, ready for a plotting tool. It returns
// the written paths relative to dir.
func WriteScatter(dir string, res *analysis.Result) ([]string, error) {
	if res.Table == nil {
		return nil, nil
	}
	var out []string
	for _, m := range res.Measures {
		if res.Matrix(m) == nil {
			continue
		}
		sub := filepath.Join(ScatterDir, m.Slug())
		if err := utils.EnsureDir(filepath.Join(dir, sub)); err != nil {
			return out, fmt.Errorf("create scatter dir: %w", err)
		}
		used := map[string]bool{}
		for _, p := range res.FilteredPairs(m) {
			x, okx := res.Table.Column(p.A)
			y, oky := res.Table.Column(p.B)
			if !okx || !oky {
				return out, fmt.Errorf("scatter %s ~ %s: column missing from table", p.A, p.B)
			}
			var buf bytes.Buffer
			cw := csv.NewWriter(&buf)
			_ = cw.Write([]string{p.A, p.B})
			for r := range x {
				_ = cw.Write([]string{formatFloat(x[r]), formatFloat(y[r])})
			}
			cw.Flush()
			if err := cw.Error(); err != nil {
				return out, err
			}
			rel := filepath.Join(sub, uniqueScatterName(used, p))
			if err := utils.SafeWriteFile(filepath.Join(dir, rel), buf.Bytes()); err != nil {
				return out, err
			}
			out = append(out, filepath.ToSlash(rel))
		}
	}
	return out, nil
}
