package dataset

import (
	"strconv"
	"strings"
	"time"
)

// nullTokens are the cell spellings read as missing values from text sources.
var nullTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsNullToken reports whether a raw text cell denotes a missing value.
func IsNullToken(s string) bool { return nullTokens[s] }

var timeLayouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02", "2006/01/02",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999", "01/02/2006", "1/2/2006",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTime(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// plainNumber rejects the Go literal forms strconv accepts that a data file
// means as text: digit separators ("2023_01") and hex ("0x1p-2").
func plainNumber(s string) bool {
	if strings.ContainsRune(s, '_') {
		return false
	}
	s = strings.TrimLeft(s, "+-")
	return !(len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'))
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !plainNumber(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !plainNumber(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// textColumn infers a column kind from raw text cells and converts them.
// Null tokens become nil. A column with no values at all becomes float64,
// the way delimited readers type an empty column.
func textColumn(name string, raw []string) Column {
	cells := make([]any, len(raw))
	var present []int
	for i, s := range raw {
		if IsNullToken(s) {
			continue
		}
		present = append(present, i)
	}
	col := Column{Name: name, Values: cells}
	if len(present) == 0 {
		col.Kind = KindFloat
		return col
	}
	nulls := len(present) < len(raw)

	if all(present, raw, func(s string) bool { _, ok := parseBool(s); return ok }) {
		col.Kind = KindBool
		for _, i := range present {
			cells[i], _ = parseBool(raw[i])
		}
		if nulls {
			// missing values leave a bool column untyped
			col.Kind = KindText
		}
		return col
	}
	if all(present, raw, func(s string) bool { _, ok := parseInt(s); return ok }) {
		if nulls {
			col.Kind = KindFloat
			for _, i := range present {
				n, _ := parseInt(raw[i])
				cells[i] = float64(n)
			}
			return col
		}
		col.Kind = KindInt
		for _, i := range present {
			cells[i], _ = parseInt(raw[i])
		}
		return col
	}
	if all(present, raw, func(s string) bool { _, ok := parseFloat(s); return ok }) {
		col.Kind = KindFloat
		for _, i := range present {
			cells[i], _ = parseFloat(raw[i])
		}
		return col
	}
	if all(present, raw, func(s string) bool { _, ok := parseTime(s); return ok }) {
		col.Kind = KindTime
		for _, i := range present {
			cells[i], _ = parseTime(raw[i])
		}
		return col
	}
	col.Kind = KindText
	for _, i := range present {
		cells[i] = raw[i]
	}
	return col
}

func all(idx []int, raw []string, ok func(string) bool) bool {
	for _, i := range idx {
		if !ok(raw[i]) {
			return false
		}
	}
	return true
}

// valueColumn infers a column kind from already-typed values such as decoded
// JSON. Mixed or textual values produce an object column holding the values
// as they came.
func valueColumn(name string, vals []any) Column {
	col := Column{Name: name, Values: make([]any, len(vals))}
	var ints, floats, bools, strs, others, nulls int
	for _, v := range vals {
		switch v.(type) {
		case nil:
			nulls++
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case string:
			strs++
		default:
			others++
		}
	}
	present := len(vals) - nulls
	switch {
	case present == 0:
		col.Kind = KindText
	case bools == present && nulls == 0:
		col.Kind = KindBool
	case ints == present && nulls == 0:
		col.Kind = KindInt
	case ints+floats == present:
		col.Kind = KindFloat
	default:
		col.Kind = KindText
	}
	for i, v := range vals {
		switch col.Kind {
		case KindInt:
			f, _ := AsFloat(v)
			col.Values[i] = int64(f)
		case KindFloat:
			if v != nil {
				col.Values[i], _ = AsFloat(v)
			}
		default:
			col.Values[i] = v
		}
	}
	return col
}
