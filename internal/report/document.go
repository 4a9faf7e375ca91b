package report

import (
	"io"
	"math"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// Document is the serializable form of a Result. Matrix entries that are
// NaN become null.
type Document struct {
	Name        string            `json:"name" yaml:"name"`
	Threshold   float64           `json:"threshold" yaml:"threshold"`
	InputRows   int               `json:"input_rows" yaml:"input_rows"`
	DroppedRows int               `json:"dropped_rows" yaml:"dropped_rows"`
	Rows        int               `json:"rows" yaml:"rows"`
	Columns     []string          `json:"columns" yaml:"columns"`
	Measures    []MeasureDocument `json:"measures" yaml:"measures"`
	Warnings    []string          `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// MeasureDocument holds one matrix and its filtered pairs.
type MeasureDocument struct {
	Measure analysis.Measure        `json:"measure" yaml:"measure"`
	Label   string                  `json:"label" yaml:"label"`
	Matrix  [][]*float64            `json:"matrix" yaml:"matrix"`
	Pairs   []analysis.FilteredPair `json:"pairs" yaml:"pairs"`
}

// NewDocument converts res for JSON/YAML output.
func NewDocument(res *analysis.Result) *Document {
	doc := &Document{
		Name:        res.Name,
		Threshold:   res.Threshold,
		InputRows:   res.Stats.InputRows,
		DroppedRows: res.Stats.DroppedRows,
		Warnings:    res.Warnings,
	}
	if res.Table != nil {
		doc.Rows = res.Table.Rows()
		doc.Columns = append([]string(nil), res.Table.Columns...)
	}
	for _, m := range res.Measures {
		mx := res.Matrix(m)
		if mx == nil {
			continue
		}
		md := MeasureDocument{Measure: m, Label: m.Label(), Pairs: res.FilteredPairs(m)}
		if md.Pairs == nil {
			md.Pairs = []analysis.FilteredPair{}
		}
		for _, row := range mx.Rows() {
			out := make([]*float64, len(row))
			for j, v := range row {
				if !math.IsNaN(v) {
					out[j] = &v
				}
			}
			md.Matrix = append(md.Matrix, out)
		}
		doc.Measures = append(doc.Measures, md)
	}
	return doc
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
