package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/corrloom-cli/internal/config"
	"github.com/KaramelBytes/corrloom-cli/internal/parser"
	"github.com/KaramelBytes/corrloom-cli/internal/report"
	"github.com/KaramelBytes/corrloom-cli/internal/run"
)

// runFlags are the analysis flags shared by analyze and analyze-batch.
type runFlags struct {
	threshold  float64
	outputDir  string
	formats    string
	measures   string
	scatter    bool
	workers    int
	maxRows    int
	maxCols    int
	maxCells   int64
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64VarP(&f.threshold, "threshold", "t", 0.9, "minimum |association| for a pair to be listed, in (0, 1]")
	fs.StringVarP(&f.outputDir, "output-dir", "o", ".", "directory that receives correlation_result_<timestamp>/")
	fs.StringVar(&f.formats, "format", strings.Join([]string{report.FormatXLSX, report.FormatCSV, report.FormatJSON, report.FormatMarkdown}, ","), "comma-separated outputs: xlsx,csv,json,yaml,md")
	fs.StringVar(&f.measures, "measures", "", "comma-separated measures: linear,rank,nonlinear (default all)")
	fs.BoolVar(&f.scatter, "scatter", true, "write scatter data files for every filtered pair")
	fs.IntVar(&f.workers, "workers", 0, "concurrent pair evaluations (0 = GOMAXPROCS)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	fs.IntVar(&f.maxCols, "max-cols", 0, "reject tables with more columns (0 = unlimited)")
	fs.Int64Var(&f.maxCells, "max-cells", 0, "reject nonlinear work above columns²·rows² (0 = unlimited)")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator: '.'|'comma'|'auto' (strict parsing if omitted)")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator: ','|'.'|'space'")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// settings is the resolved input of one or more runs.
type settings struct {
	config    analysis.Config
	load      parser.Options
	report    report.Options
	outputDir string
}

// resolve merges config values with flags the user set explicitly.
func (f *runFlags) resolve(cmd *cobra.Command) (settings, error) {
	c := cfg
	if c == nil {
		c = cfgpkg.Defaults()
	}
	fs := cmd.Flags()
	pick := func(name string) bool { return fs.Changed(name) }

	s := settings{
		config: analysis.Config{
			Threshold: c.Threshold,
			Workers:   c.Workers,
			Limits:    analysis.Limits{MaxRows: c.MaxRows, MaxColumns: c.MaxColumns, MaxCells: c.MaxCells},
			Logger:    logger,
		},
		load:      parser.Options{SheetName: f.sheetName, SheetIndex: f.sheetIndex},
		outputDir: c.OutputDir,
		report:    report.Options{Scatter: c.Scatter},
	}
	if pick("threshold") {
		s.config.Threshold = f.threshold
	}
	if err := analysis.ValidateThreshold(s.config.Threshold); err != nil {
		return s, err
	}
	if pick("workers") {
		s.config.Workers = f.workers
	}
	if pick("max-rows") {
		s.config.Limits.MaxRows = f.maxRows
	}
	if pick("max-cols") {
		s.config.Limits.MaxColumns = f.maxCols
	}
	if pick("max-cells") {
		s.config.Limits.MaxCells = f.maxCells
	}
	if pick("output-dir") {
		s.outputDir = f.outputDir
	}
	if pick("scatter") {
		s.report.Scatter = f.scatter
	}

	formats := c.Formats
	if pick("format") {
		formats = []string{f.formats}
	}
	fmts, err := report.ParseFormats(formats)
	if err != nil {
		return s, err
	}
	s.report.Formats = fmts

	if f.measures != "" {
		for _, name := range strings.Split(f.measures, ",") {
			m, err := analysis.ParseMeasure(name)
			if err != nil {
				return s, err
			}
			s.config.Measures = append(s.config.Measures, m)
		}
	}

	if f.delimiter != "" {
		switch f.delimiter {
		case ",":
			s.load.Delimiter = ','
		case "\t", "tab":
			s.load.Delimiter = '\t'
		case ";":
			s.load.Delimiter = ';'
		default:
			return s, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
		}
	}

	decimal, thousands := c.Decimal, c.Thousands
	if pick("decimal") {
		decimal = f.decimal
	}
	if pick("thousands") {
		thousands = f.thousands
	}
	co, err := parseCoercion(decimal, thousands)
	if err != nil {
		return s, err
	}
	s.config.Coercion = co
	return s, nil
}

// parseCoercion maps separator settings to a Coercion. Setting either one
// turns on locale-aware parsing.
func parseCoercion(decimal, thousands string) (analysis.Coercion, error) {
	var co analysis.Coercion
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		co.Locale, co.DecimalSeparator = true, ','
	case ".", "dot":
		co.Locale, co.DecimalSeparator = true, '.'
	case "auto":
		co.Locale = true
	case "":
	default:
		return co, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma'|'auto')", decimal)
	}
	switch strings.ToLower(thousands) {
	case ",":
		co.Locale, co.ThousandsSeparator = true, ','
	case ".":
		co.Locale, co.ThousandsSeparator = true, '.'
	case "space", " ":
		co.Locale, co.ThousandsSeparator = true, ' '
	case "":
	default:
		return co, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return co, nil
}

// analyzeFile loads one file, runs the engine and writes a result directory.
// It returns the run, or nil when toStdout is set and only Markdown is printed.
func analyzeFile(ctx context.Context, out io.Writer, path string, s settings, toStdout bool) (*run.Run, error) {
	raw, err := parser.LoadFile(path, s.load)
	if err != nil {
		return nil, err
	}
	res, err := analysis.Run(ctx, raw, s.config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if toStdout {
		fmt.Fprintln(out, report.Markdown(res))
		return nil, nil
	}

	src, err := run.NewSource(path, s.load.SheetName)
	if err != nil {
		return nil, err
	}
	r, err := run.Create(s.outputDir, src, time.Now())
	if err != nil {
		return nil, err
	}
	arts, err := report.Write(r.Dir(), res, s.report)
	if err != nil {
		return nil, err
	}
	r.Record(res, arts)
	if err := r.Save(); err != nil {
		return nil, err
	}
	logger.Debug("run saved",
		zap.String("id", r.ID),
		zap.String("dir", r.Dir()),
		zap.Int("artifacts", len(arts)))
	return r, nil
}

// printRunSummary prints the ✓/⚠ lines for one finished run.
func printRunSummary(out io.Writer, r *run.Run) {
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "⚠ Warning: %s\n", w)
	}
	var parts []string
	for _, m := range r.Measures {
		parts = append(parts, fmt.Sprintf("%s %d", m.Label(), r.Pairs[m]))
	}
	fmt.Fprintf(out, "✓ %d rows × %d columns; pairs with |r| >= %g: %s\n",
		r.InputRows-r.DroppedRows, r.Columns, r.Threshold, strings.Join(parts, ", "))
	fmt.Fprintf(out, "✓ Wrote results to %s\n", r.Dir())
}
