package analysis

import (
	"math"
	"strconv"
	"strings"
)

// Coercion controls how text cells become numbers.
type Coercion struct {
	// Locale enables separator handling. When false, text is parsed strictly
	// and values like "1,000" or "12%" count as missing.
	Locale bool
	// DecimalSeparator is used when Locale is set. If 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator is optional; if 0, common separators are stripped.
	ThousandsSeparator rune
}

// SanitizeStats describes what sanitization did to the input.
type SanitizeStats struct {
	InputRows   int
	DroppedRows int
}

// Sanitize coerces every cell to a number and keeps only rows where every
// column coerced. Dropping is conjunctive across all columns: one bad cell
// removes the whole row from every column.
func Sanitize(raw *RawTable, co Coercion) (*Table, SanitizeStats, error) {
	if raw == nil || len(raw.Header) == 0 {
		rows := 0
		if raw != nil {
			rows = len(raw.Rows)
		}
		return nil, SanitizeStats{InputRows: rows, DroppedRows: rows}, &EmptyResultError{Rows: 0, Columns: 0}
	}
	ncol := len(raw.Header)
	names := uniqueNames(raw.Header)
	data := make([][]float64, ncol)
	for j := range data {
		data[j] = make([]float64, 0, len(raw.Rows))
	}
	stats := SanitizeStats{InputRows: len(raw.Rows)}
	vals := make([]float64, ncol)
	for _, row := range raw.Rows {
		ok := true
		for j := 0; j < ncol; j++ {
			var c Cell
			if j < len(row) {
				c = row[j]
			}
			x, good := coerce(c, co)
			if !good {
				ok = false
				break
			}
			vals[j] = x
		}
		if !ok {
			stats.DroppedRows++
			continue
		}
		for j := 0; j < ncol; j++ {
			data[j] = append(data[j], vals[j])
		}
	}
	kept := stats.InputRows - stats.DroppedRows
	if kept < 2 {
		return nil, stats, &EmptyResultError{Rows: kept, Columns: ncol}
	}
	return NewTable(names, data), stats, nil
}

func coerce(c Cell, co Coercion) (float64, bool) {
	var x float64
	switch c.Kind {
	case CellNumber:
		x = c.Num
	case CellText:
		var ok bool
		if co.Locale {
			x, ok = parseLocaleNumeric(c.Text, co)
		} else {
			x, ok = parseStrict(c.Text)
		}
		if !ok {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func parseStrict(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseLocaleNumeric(s string, co Coercion) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := co.DecimalSeparator
	thou := co.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
