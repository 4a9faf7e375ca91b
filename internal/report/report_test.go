package report_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/parser"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
)

func exampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	raw := analysis.NewRawTableFromStrings("example.csv", []string{"A", "B", "C", "D"}, [][]string{
		{"1", "2", "5", "7"},
		{"2", "4", "3", "7"},
		{"3", "6", "1", "7"},
		{"4", "8", "x", "7"},
	})
	res, err := analysis.Run(context.Background(), raw, analysis.DefaultConfig())
	require.NoError(t, err)
	return res
}

func TestDirName(t *testing.T) {
	ts := time.Date(2025, 7, 6, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "correlation_result_2025-07-06-0905", report.DirName(ts))
}

func TestParseFormats(t *testing.T) {
	got, err := report.ParseFormats([]string{"xlsx,JSON", "markdown", "json", "yml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"xlsx", "json", "md", "yaml"}, got)

	_, err = report.ParseFormats([]string{"png"})
	assert.ErrorContains(t, err, "unknown format")
}

func TestWriteAllFormats(t *testing.T) {
	res := exampleResult(t)
	dir := t.TempDir()
	arts, err := report.Write(dir, res, report.Options{Formats: report.AllFormats, Scatter: true})
	require.NoError(t, err)
	assert.Contains(t, arts, report.WorkbookFile)
	assert.Contains(t, arts, "pearson_matrix.csv")
	assert.Contains(t, arts, "distance_filtered.csv")
	assert.Contains(t, arts, report.JSONFile)
	assert.Contains(t, arts, report.YAMLFile)
	assert.Contains(t, arts, report.SummaryFile)
	assert.Contains(t, arts, "scatter_plots/pearson/scatter_A_B.csv")
	assert.Contains(t, arts, "scatter_plots/distance/scatter_B_C.csv")
	for _, a := range arts {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(a)))
		assert.NoError(t, err, a)
	}

	scatter, err := os.ReadFile(filepath.Join(dir, "scatter_plots", "spearman", "scatter_A_C.csv"))
	require.NoError(t, err)
	assert.Equal(t, "A,C\n1,5\n2,3\n3,1\n", string(scatter))

	pairs, err := os.ReadFile(filepath.Join(dir, "pearson_filtered.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Variable1,Variable2,Correlation\nA,B,1\nA,C,-1\nB,C,-1\n", string(pairs))
}

func TestWorkbookReadsBack(t *testing.T) {
	res := exampleResult(t)
	dir := t.TempDir()
	_, err := report.Write(dir, res, report.Options{Formats: []string{report.FormatXLSX}})
	require.NoError(t, err)
	p := filepath.Join(dir, report.WorkbookFile)

	sheets, err := parser.ListSheets(p)
	require.NoError(t, err)
	var names []string
	for _, s := range sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Pearson", "Spearman", "DistanceCorr", "Pearson_Filtered", "Spearman_Filtered", "Distance_Filtered"}, names)

	raw, err := parser.LoadXLSX(p, "Pearson", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A", "B", "C", "D"}, raw.Header)
	require.Len(t, raw.Rows, 4)
	assert.Equal(t, analysis.Text("A"), raw.Rows[0][0])
	assert.Equal(t, analysis.CellNumber, raw.Rows[0][2].Kind)
	assert.InDelta(t, 1.0, raw.Rows[0][2].Num, 1e-12)
	// constant column D has no Pearson value, so the trailing cell is omitted
	assert.Len(t, raw.Rows[0], 4)

	raw, err = parser.LoadXLSX(p, "Distance_Filtered", 0)
	require.NoError(t, err)
	assert.Equal(t, report.PairHeader, raw.Header)
	require.Len(t, raw.Rows, 3)
	assert.Equal(t, []analysis.Cell{analysis.Text("A"), analysis.Text("B"), analysis.Number(1)}, raw.Rows[0])
}

func TestWorkbookRepeatedMeasures(t *testing.T) {
	raw := analysis.NewRawTableFromStrings("dup.csv", []string{"A", "B"}, [][]string{
		{"1", "2"}, {"2", "4"}, {"3", "7"},
	})
	cfg := analysis.DefaultConfig()
	cfg.Measures = []analysis.Measure{analysis.Nonlinear, analysis.Linear, analysis.Linear}
	res, err := analysis.Run(context.Background(), raw, cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = report.Write(dir, res, report.Options{Formats: []string{report.FormatXLSX}})
	require.NoError(t, err)
	sheets, err := parser.ListSheets(filepath.Join(dir, report.WorkbookFile))
	require.NoError(t, err)
	var names []string
	for _, s := range sheets {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Pearson", "DistanceCorr", "Pearson_Filtered", "Distance_Filtered"}, names)
}

func TestScatterNamesDoNotCollide(t *testing.T) {
	raw := analysis.NewRawTableFromStrings("names.csv", []string{"x_y", "z", "x", "y_z"}, [][]string{
		{"1", "2", "3", "4"},
		{"2", "4", "6", "8"},
		{"3", "6", "9", "12"},
	})
	res, err := analysis.Run(context.Background(), raw, analysis.Config{Threshold: 0.9, Measures: []analysis.Measure{analysis.Linear}})
	require.NoError(t, err)

	dir := t.TempDir()
	arts, err := report.WriteScatter(dir, res)
	require.NoError(t, err)
	// all six pairs are perfectly correlated; ("x_y","z") and ("x","y_z") share a sanitized name
	require.Len(t, arts, 6)
	assert.Contains(t, arts, "scatter_plots/pearson/scatter_x_y_z.csv")
	assert.Contains(t, arts, "scatter_plots/pearson/scatter_x_y_z-2.csv")

	first, err := os.ReadFile(filepath.Join(dir, "scatter_plots", "pearson", "scatter_x_y_z.csv"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "scatter_plots", "pearson", "scatter_x_y_z-2.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(first), "x_y,z\n"))
	assert.True(t, strings.HasPrefix(string(second), "x,y_z\n"))
}

func TestDocumentJSONAndYAML(t *testing.T) {
	res := exampleResult(t)
	var buf strings.Builder
	require.NoError(t, report.WriteJSON(&buf, report.NewDocument(res)))

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &doc))
	assert.Equal(t, "example.csv", doc.Name)
	assert.Equal(t, 4, doc.InputRows)
	assert.Equal(t, 1, doc.DroppedRows)
	assert.Equal(t, 3, doc.Rows)
	require.Len(t, doc.Measures, 3)
	lin := doc.Measures[0]
	assert.Equal(t, analysis.Linear, lin.Measure)
	assert.Nil(t, lin.Matrix[0][3], "NaN is encoded as null")
	require.NotNil(t, lin.Matrix[0][0])
	assert.Equal(t, 1.0, *lin.Matrix[0][0])
	assert.Len(t, lin.Pairs, 3)
	assert.Contains(t, buf.String(), "null")

	var ybuf strings.Builder
	require.NoError(t, report.WriteYAML(&ybuf, report.NewDocument(res)))
	var ydoc report.Document
	require.NoError(t, yaml.Unmarshal([]byte(ybuf.String()), &ydoc))
	assert.Equal(t, doc.Columns, ydoc.Columns)
	assert.Equal(t, doc.Measures[2].Pairs, ydoc.Measures[2].Pairs)
}

func TestMarkdown(t *testing.T) {
	md := report.Markdown(exampleResult(t))
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "Rows: 4 (kept 3, dropped 1)")
	assert.Contains(t, md, "Pearson: 3 pair(s)")
	assert.Contains(t, md, "• A ~ C: -1.0000")
	assert.Contains(t, md, "constant columns (no linear or rank correlation defined): D")
}
