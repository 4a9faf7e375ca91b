package report

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// WriteMatrixCSV writes a labeled square matrix. NaN entries are left empty.
func WriteMatrixCSV(w io.Writer, mx *analysis.Matrix) error {
	cw := csv.NewWriter(w)
	cols := mx.Columns()
	if err := cw.Write(append([]string{""}, cols...)); err != nil {
		return err
	}
	rec := make([]string, len(cols)+1)
	for i, c := range cols {
		rec[0] = c
		for j := range cols {
			rec[j+1] = formatFloat(mx.At(i, j))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairsCSV writes filtered pairs under PairHeader.
func WritePairsCSV(w io.Writer, pairs []analysis.FilteredPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PairHeader); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cw.Write([]string{p.A, p.B, formatFloat(p.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
