package analysis

import (
	"fmt"
	"strings"
)

// CellKind distinguishes the three states a raw cell can be in.
type CellKind uint8

const (
	// CellAbsent is an empty or missing cell.
	CellAbsent CellKind = iota
	// CellText holds a string that still needs numeric coercion.
	CellText
	// CellNumber holds a value the loader already typed as numeric.
	CellNumber
)

// Cell is one raw table value as handed over by a loader.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// Absent returns an empty cell.
func Absent() Cell { return Cell{} }

// Text returns a cell holding an uncoerced string.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Number returns a cell holding a typed numeric value.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Num: f} }

// String renders the cell the way it appeared in the source.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return fmt.Sprintf("%g", c.Num)
	default:
		return ""
	}
}

// RawTable is a loaded but unsanitized table. Rows may be shorter than the
// header; missing trailing cells are treated as absent.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]Cell
}

// NewRawTableFromStrings builds a RawTable from string records, mapping empty
// strings to absent cells.
func NewRawTableFromStrings(name string, header []string, records [][]string) *RawTable {
	rows := make([][]Cell, len(records))
	for i, rec := range records {
		row := make([]Cell, len(rec))
		for j, v := range rec {
			if strings.TrimSpace(v) == "" {
				row[j] = Absent()
				continue
			}
			row[j] = Text(v)
		}
		rows[i] = row
	}
	hdr := make([]string, len(header))
	copy(hdr, header)
	return &RawTable{Name: name, Header: hdr, Rows: rows}
}

// Table is a sanitized, fully numeric table. Data[c][r] is the value of
// column c at row r; all columns have the same length.
type Table struct {
	Columns []string
	Data    [][]float64
	index   map[string]int
}

// NewTable builds a Table from named columns. It does not validate lengths;
// Compute does that.
func NewTable(columns []string, data [][]float64) *Table {
	t := &Table{Columns: columns, Data: data}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if t == nil || len(t.Data) == 0 {
		return 0
	}
	return len(t.Data[0])
}

// Index returns the position of a column by name.
func (t *Table) Index(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	i, ok := t.index[name]
	return i, ok
}

// Column returns the retained values of a column by name.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.Index(name)
	if !ok {
		return nil, false
	}
	return t.Data[i], true
}

// uniqueNames makes header names unique and non-empty. Repeats get a ".N"
// suffix in order of appearance; blank names become "Unnamed: <idx>".
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	suffix := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			suffix[base]++
			name = fmt.Sprintf("%s.%d", base, suffix[base])
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out
}
