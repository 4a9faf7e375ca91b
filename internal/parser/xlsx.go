package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(p string, opt Options) (*analysis.RawTable, error) {
	return LoadXLSX(p, opt.SheetName, opt.SheetIndex)
}

// Sheet is one worksheet entry of a workbook.
type Sheet struct {
	Name    string
	SheetID int
	RID     string
}

type workbook struct {
	zr     *zip.ReadCloser
	sheets []Sheet
	rels   map[string]string
}

func openWorkbook(p string) (*workbook, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb := &workbook{zr: zr}
	wb.sheets = parseWorkbook(readZipFile(&zr.Reader, "xl/workbook.xml"))
	wb.rels = parseRelationships(readZipFile(&zr.Reader, "xl/_rels/workbook.xml.rels"))
	return wb, nil
}

func (wb *workbook) Close() error { return wb.zr.Close() }

// ListSheets returns the sheets of a workbook in workbook order.
func ListSheets(p string) ([]Sheet, error) {
	wb, err := openWorkbook(p)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.sheets, nil
}

// LoadXLSX reads the selected sheet of an .xlsx file. If sheetName is empty
// and sheetIndex <= 0, it defaults to the first sheet. sheetIndex is
// 1-based. The first row is the header.
func LoadXLSX(p string, sheetName string, sheetIndex int) (*analysis.RawTable, error) {
	wb, err := openWorkbook(p)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheet, target, err := wb.resolve(sheetName, sheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%w in workbook '%s'", err, filepath.Base(p))
	}
	sheetXML := readZipFile(&wb.zr.Reader, target)
	if sheetXML == nil {
		return nil, fmt.Errorf("worksheet %s missing from workbook '%s'", target, filepath.Base(p))
	}
	shared := parseSharedStrings(readZipFile(&wb.zr.Reader, "xl/sharedStrings.xml"))

	name := filepath.Base(p)
	if sheet != "" {
		name = fmt.Sprintf("%s (sheet: %s)", name, sheet)
	}
	rr := newSheetRowReader(sheetXML, shared)
	first, ok := rr.Next()
	if !ok {
		if err := rr.Err(); err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", target, err)
		}
		return &analysis.RawTable{Name: name}, nil
	}
	header := make([]string, len(first))
	for i, c := range first {
		header[i] = c.String()
	}
	var rows [][]analysis.Cell
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	if err := rr.Err(); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	return &analysis.RawTable{Name: name, Header: header, Rows: rows}, nil
}

// resolve maps a sheet selection to its display name and zip entry path.
func (wb *workbook) resolve(sheetName string, sheetIndex int) (string, string, error) {
	if sheetName != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, sheetName) {
				if rel, ok := wb.rels[s.RID]; ok {
					return s.Name, normalizeRelPath(rel), nil
				}
				break
			}
		}
		available := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			available[i] = s.Name
		}
		return "", "", fmt.Errorf("sheet '%s' not found (available sheets: %s)", sheetName, strings.Join(available, ", "))
	}
	idx := sheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx <= len(wb.sheets) {
		s := wb.sheets[idx-1]
		if rel, ok := wb.rels[s.RID]; ok {
			return s.Name, normalizeRelPath(rel), nil
		}
	} else if len(wb.sheets) > 0 {
		return "", "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(wb.sheets))
	}
	return "", path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

// parseWorkbook extracts sheet entries with names and relationship ids.
func parseWorkbook(data []byte) []Sheet {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []Sheet
	for {
		tok, err := dec.Token()
		if err != nil {
			return sheets
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		var s Sheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
			case "sheetId":
				s.SheetID, _ = strconv.Atoi(a.Value)
			case "id":
				s.RID = a.Value // r: namespace
			}
		}
		sheets = append(sheets, s)
	}
}

// parseRelationships returns map[r:id]Target.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return b
		}
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "si" {
				buf.Reset()
			}
			if se.Name.Local == "t" {
				inT = true
			}
		case xml.EndElement:
			if se.Name.Local == "t" {
				inT = false
			}
			if se.Name.Local == "si" {
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRowReader streams rows of typed cells out of a worksheet.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
	err    error
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Err returns the first decode error other than io.EOF.
func (r *sheetRowReader) Err() error { return r.err }

func (r *sheetRowReader) Next() ([]analysis.Cell, bool) {
	var row []analysis.Cell
	inRow := false
	next := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err != io.EOF {
				r.err = err
			}
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow = true
				row = nil
				next = 0
			}
			if inRow && se.Name.Local == "c" {
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				col := colIndexFromRef(ref)
				if col == badColumn {
					r.err = fmt.Errorf("bad cell reference %q", ref)
					return nil, false
				}
				if col < 0 {
					col = next
				}
				next = col + 1
				cell := r.readCell(typ)
				if len(row) <= col {
					tmp := make([]analysis.Cell, col+1)
					copy(tmp, row)
					row = tmp
				}
				row[col] = cell
			}
		case xml.EndElement:
			if se.Name.Local == "row" && inRow {
				return row, true
			}
		}
	}
}

// readCell consumes tokens up to </c> and types the captured value.
func (r *sheetRowReader) readCell(typ string) analysis.Cell {
	var val string
	var have bool
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return analysis.Absent()
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, er := r.dec.Token()
					if er != nil {
						break
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				// rich inline strings split text over several <t> runs
				if typ == "inlineStr" {
					val += sb.String()
				} else {
					val = sb.String()
				}
				have = true
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				if !have {
					return analysis.Absent()
				}
				return r.typeCell(typ, val)
			}
		}
	}
}

func (r *sheetRowReader) typeCell(typ, val string) analysis.Cell {
	switch typ {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || idx < 0 || idx >= len(r.shared) {
			return analysis.Absent()
		}
		return textCell(r.shared[idx])
	case "inlineStr", "str":
		return textCell(val)
	case "b":
		if strings.TrimSpace(val) == "1" {
			return analysis.Number(1)
		}
		return analysis.Number(0)
	case "e":
		return analysis.Absent()
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
		return analysis.Number(f)
	}
	return textCell(val)
}

func textCell(s string) analysis.Cell {
	if strings.TrimSpace(s) == "" {
		return analysis.Absent()
	}
	return analysis.Text(s)
}

// maxColumns is the column count of an Excel sheet (A..XFD).
const maxColumns = 16384

// badColumn marks a ref whose letters go past XFD.
const badColumn = -2

// colIndexFromRef maps refs like "C12" to a 0-based column (2). It returns
// -1 when the ref carries no column letters and badColumn past XFD.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
		if idx > maxColumns {
			return badColumn
		}
	}
	return idx - 1
}

// normalizeRelPath converts relationship Target paths to zip entry paths.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
