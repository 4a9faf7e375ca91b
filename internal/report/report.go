// Package report exports an analysis.Result as workbooks, CSV, JSON, YAML,
// Markdown and per-pair scatter data.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/utils"
)

// Format names accepted by Write.
const (
	FormatXLSX     = "xlsx"
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
)

// AllFormats lists every supported format.
var AllFormats = []string{FormatXLSX, FormatCSV, FormatJSON, FormatYAML, FormatMarkdown}

// File names inside a result directory.
const (
	WorkbookFile = "correlation_matrix_filtered.xlsx"
	SummaryFile  = "summary.md"
	JSONFile     = "result.json"
	YAMLFile     = "result.yaml"
	ScatterDir   = "scatter_plots"
)

// DirName returns the result directory name for a run started at t.
func DirName(t time.Time) string {
	return "correlation_result_" + t.Format("2006-01-02-1504")
}

// Options selects what Write produces.
type Options struct {
	Formats []string
	Scatter bool
}

// ParseFormats normalizes a list of format names, accepting comma-separated
// entries and the aliases "markdown" and "yml".
func ParseFormats(in []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, item := range in {
		for _, f := range strings.Split(item, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			switch f {
			case "":
				continue
			case "markdown":
				f = FormatMarkdown
			case "yml":
				f = FormatYAML
			case FormatXLSX, FormatCSV, FormatJSON, FormatYAML, FormatMarkdown:
			default:
				return nil, fmt.Errorf("unknown format %q (supported: %s)", f, strings.Join(AllFormats, ", "))
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Write exports res into dir and returns the artifact paths relative to dir.
func Write(dir string, res *analysis.Result, opt Options) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var artifacts []string
	put := func(rel string, render func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return fmt.Errorf("render %s: %w", rel, err)
		}
		p := filepath.Join(dir, rel)
		if err := utils.EnsureDir(filepath.Dir(p)); err != nil {
			return fmt.Errorf("create dir for %s: %w", rel, err)
		}
		if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
			return err
		}
		artifacts = append(artifacts, filepath.ToSlash(rel))
		return nil
	}
	for _, f := range opt.Formats {
		var err error
		switch f {
		case FormatXLSX:
			err = put(WorkbookFile, func(b *bytes.Buffer) error { return WriteXLSX(b, res) })
		case FormatCSV:
			for _, m := range res.Measures {
				mx := res.Matrix(m)
				if mx == nil {
					continue
				}
				if err = put(m.Slug()+"_matrix.csv", func(b *bytes.Buffer) error { return WriteMatrixCSV(b, mx) }); err != nil {
					break
				}
				pairs := res.FilteredPairs(m)
				if err = put(m.Slug()+"_filtered.csv", func(b *bytes.Buffer) error { return WritePairsCSV(b, pairs) }); err != nil {
					break
				}
			}
		case FormatJSON:
			err = put(JSONFile, func(b *bytes.Buffer) error { return WriteJSON(b, NewDocument(res)) })
		case FormatYAML:
			err = put(YAMLFile, func(b *bytes.Buffer) error { return WriteYAML(b, NewDocument(res)) })
		case FormatMarkdown:
			err = put(SummaryFile, func(b *bytes.Buffer) error {
				_, err := b.WriteString(Markdown(res))
				return err
			})
		default:
			err = fmt.Errorf("unknown format %q", f)
		}
		if err != nil {
			return artifacts, err
		}
	}
	if opt.Scatter {
		files, err := WriteScatter(dir, res)
		artifacts = append(artifacts, files...)
		if err != nil {
			return artifacts, err
		}
	}
	return artifacts, nil
}
