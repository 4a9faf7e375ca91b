package parser_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/corrloom-cli/internal/analysis"
	"github.com/KaramelBytes/corrloom-cli/internal/parser"
)

func writeZip(t *testing.T, p string, files map[string]string) {
	t.Helper()
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err, name)
		_, err = w.Write([]byte(body))
		require.NoError(t, err, name)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func fixtureWorkbook(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lab.xlsx")
	writeZip(t, p, map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Notes" sheetId="1" r:id="rId1"/><sheet name="Data" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>temp</t></si><si><t>ph</t></si><si><r><t>n</t></r><r><t>/a</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>hello</t></is></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="inlineStr"><is><t>ok</t></is></c></row>
<row r="2"><c r="A2"><v>21.5</v></c><c r="B2"><v>7</v></c><c r="C2" t="b"><v>1</v></c></row>
<row r="3"><c r="A3"><v>22</v></c><c r="C3" t="b"><v>0</v></c></row>
<row r="4"><c r="A4" t="s"><v>2</v></c><c r="B4"><f>1+1</f><v>2</v></c><c r="C4" t="e"><v>#DIV/0!</v></c></row>
</sheetData></worksheet>`,
	})
	return p
}

func TestListSheets(t *testing.T) {
	sheets, err := parser.ListSheets(fixtureWorkbook(t))
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "Notes", sheets[0].Name)
	assert.Equal(t, "Data", sheets[1].Name)
}

func TestLoadXLSXBySheetName(t *testing.T) {
	p := fixtureWorkbook(t)
	raw, err := parser.LoadFile(p, parser.Options{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, "lab.xlsx (sheet: Data)", raw.Name)
	assert.Equal(t, []string{"temp", "ph", "ok"}, raw.Header)
	require.Len(t, raw.Rows, 3)

	assert.Equal(t, []analysis.Cell{analysis.Number(21.5), analysis.Number(7), analysis.Number(1)}, raw.Rows[0])
	assert.Equal(t, analysis.CellAbsent, raw.Rows[1][1].Kind)
	assert.Equal(t, analysis.Number(0), raw.Rows[1][2])
	assert.Equal(t, analysis.Text("n/a"), raw.Rows[2][0])
	assert.Equal(t, analysis.Number(2), raw.Rows[2][1])
	assert.Equal(t, analysis.CellAbsent, raw.Rows[2][2].Kind)
}

func TestLoadXLSXByIndexAndDefault(t *testing.T) {
	p := fixtureWorkbook(t)
	raw, err := parser.LoadXLSX(p, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "temp", raw.Header[0])

	raw, err = parser.LoadXLSX(p, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, raw.Header)
	assert.Empty(t, raw.Rows)
}

func TestLoadXLSXMissingSheet(t *testing.T) {
	p := fixtureWorkbook(t)
	_, err := parser.LoadXLSX(p, "Nope", 0)
	assert.ErrorContains(t, err, "available sheets: Notes, Data")
	_, err = parser.LoadXLSX(p, "", 5)
	assert.ErrorContains(t, err, "out of range")
}

func singleSheet(t *testing.T, sheetData string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "one.xlsx")
	writeZip(t, p, map[string]string{
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData>` + sheetData + `</sheetData></worksheet>`,
	})
	return p
}

func TestLoadXLSXLastColumn(t *testing.T) {
	p := singleSheet(t, `<row r="1"><c r="A1" t="inlineStr"><is><t>a</t></is></c><c r="XFD1" t="inlineStr"><is><t>z</t></is></c></row>`)
	raw, err := parser.LoadXLSX(p, "", 0)
	require.NoError(t, err)
	require.Len(t, raw.Header, 16384)
	assert.Equal(t, "a", raw.Header[0])
	assert.Equal(t, "z", raw.Header[16383])
}

func TestLoadXLSXRejectsColumnPastXFD(t *testing.T) {
	for _, ref := range []string{"XFE1", "ZZZZZZZZ1", strings.Repeat("Z", 40) + "1"} {
		p := singleSheet(t, `<row r="1"><c r="`+ref+`"><v>1</v></c></row>`)
		_, err := parser.LoadXLSX(p, "", 0)
		assert.ErrorContains(t, err, "bad cell reference", ref)
	}
}
