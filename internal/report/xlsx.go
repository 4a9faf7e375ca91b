package report

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

// PairHeader is the header row of filtered-pair sheets and CSV files.
var PairHeader = []string{"Variable1", "Variable2", "Correlation"}

type xlsxSheet struct {
	name string
	rows [][]xlsxValue
}

// xlsxValue is a cell to write; a nil num and empty text leaves the cell out.
type xlsxValue struct {
	text string
	num  *float64
}

func textValue(s string) xlsxValue { return xlsxValue{text: s} }

func numValue(f float64) xlsxValue {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return xlsxValue{}
	}
	return xlsxValue{num: &f}
}

// WriteXLSX writes one matrix sheet per measure followed by one filtered
// sheet per measure, using the sheet names of the Measure labels.
func WriteXLSX(w io.Writer, res *analysis.Result) error {
	var sheets []xlsxSheet
	for _, m := range res.Measures {
		if mx := res.Matrix(m); mx != nil {
			sheets = append(sheets, matrixSheet(m.Label(), mx))
		}
	}
	for _, m := range res.Measures {
		if res.Matrix(m) != nil {
			sheets = append(sheets, pairsSheet(m.FilteredLabel(), res.FilteredPairs(m)))
		}
	}
	return writeWorkbook(w, sheets)
}

func matrixSheet(name string, mx *analysis.Matrix) xlsxSheet {
	cols := mx.Columns()
	header := []xlsxValue{textValue("")}
	for _, c := range cols {
		header = append(header, textValue(c))
	}
	rows := [][]xlsxValue{header}
	for i, c := range cols {
		row := []xlsxValue{textValue(c)}
		for j := range cols {
			row = append(row, numValue(mx.At(i, j)))
		}
		rows = append(rows, row)
	}
	return xlsxSheet{name: name, rows: rows}
}

func pairsSheet(name string, pairs []analysis.FilteredPair) xlsxSheet {
	header := make([]xlsxValue, len(PairHeader))
	for i, h := range PairHeader {
		header[i] = textValue(h)
	}
	rows := [][]xlsxValue{header}
	for _, p := range pairs {
		rows = append(rows, []xlsxValue{textValue(p.A), textValue(p.B), numValue(p.Value)})
	}
	return xlsxSheet{name: name, rows: rows}
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>%s</Types>`
	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/></Relationships>`
	sheetNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
)

func writeWorkbook(w io.Writer, sheets []xlsxSheet) error {
	zw := zip.NewWriter(w)
	var overrides, wbSheets, rels strings.Builder
	for i := range sheets {
		n := i + 1
		fmt.Fprintf(&overrides, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, n)
		fmt.Fprintf(&wbSheets, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, escapeXML(sheets[i].name), n, n)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet%d.xml"/>`, n, n)
	}
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", fmt.Sprintf(contentTypesXML, overrides.String())},
		{"_rels/.rels", rootRelsXML},
		{"xl/workbook.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="` + sheetNS + `" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>` + wbSheets.String() + `</sheets></workbook>`},
		{"xl/_rels/workbook.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels.String() + `</Relationships>`},
	}
	for _, p := range parts {
		if err := writeZipPart(zw, p.name, p.body); err != nil {
			return err
		}
	}
	for i, s := range sheets {
		if err := writeZipPart(zw, fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1), sheetXML(s)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close xlsx: %w", err)
	}
	return nil
}

func writeZipPart(zw *zip.Writer, name, body string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.WriteString(f, body); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func sheetXML(s xlsxSheet) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<worksheet xmlns="` + sheetNS + `"><sheetData>`)
	for r, row := range s.rows {
		fmt.Fprintf(&b, `<row r="%d">`, r+1)
		for c, v := range row {
			ref := colName(c) + strconv.Itoa(r+1)
			switch {
			case v.num != nil:
				fmt.Fprintf(&b, `<c r="%s"><v>%s</v></c>`, ref, strconv.FormatFloat(*v.num, 'g', -1, 64))
			case v.text != "":
				fmt.Fprintf(&b, `<c r="%s" t="inlineStr"><is><t xml:space="preserve">%s</t></is></c>`, ref, escapeXML(v.text))
			}
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData></worksheet>`)
	return b.String()
}

// colName maps a 0-based column index to its letters (0 → A, 26 → AA).
func colName(i int) string {
	var out []byte
	for i++; i > 0; i = (i - 1) / 26 {
		out = append([]byte{byte('A' + (i-1)%26)}, out...)
	}
	return string(out)
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
