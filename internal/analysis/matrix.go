package analysis

import (
	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable symmetric association matrix over named columns.
type Matrix struct {
	measure Measure
	columns []string
	index   map[string]int
	sym     *mat.SymDense
}

// newMatrix takes ownership of vals, a row-major n×n slice that is already
// symmetric.
func newMatrix(measure Measure, columns []string, vals []float64) *Matrix {
	cols := make([]string, len(columns))
	copy(cols, columns)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	return &Matrix{
		measure: measure,
		columns: cols,
		index:   idx,
		sym:     mat.NewSymDense(len(cols), vals),
	}
}

// Measure reports which measure produced the matrix.
func (m *Matrix) Measure() Measure { return m.measure }

// Columns returns the column names in table order.
func (m *Matrix) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

// Len returns N for an N×N matrix.
func (m *Matrix) Len() int { return len(m.columns) }

// At returns entry (i, j). It panics if either index is out of range.
func (m *Matrix) At(i, j int) float64 { return m.sym.At(i, j) }

// Value returns the entry for a pair of column names.
func (m *Matrix) Value(row, col string) (float64, bool) {
	i, ok := m.index[row]
	if !ok {
		return 0, false
	}
	j, ok := m.index[col]
	if !ok {
		return 0, false
	}
	return m.sym.At(i, j), true
}

// Rows returns a copy of the matrix as nested slices.
func (m *Matrix) Rows() [][]float64 {
	n := len(m.columns)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = m.sym.At(i, j)
		}
	}
	return out
}
