package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// jsonFormat accepts an array of records, newline-delimited records, or a
// column-oriented object ({"col": [...]} or {"col": {"0": v, ...}}).
type jsonFormat struct{}

func (jsonFormat) Extensions() []string { return []string{".json"} }

// orderedObject keeps JSON object keys in document order.
type orderedObject struct {
	keys []string
	vals map[string]any
}

func (jsonFormat) Decode(data []byte, _ Options) ([]Column, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return nil, errors.New("empty json document")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	switch trimmed[0] {
	case '[':
		recs, err := decodeRecordArray(dec)
		if err != nil {
			return nil, err
		}
		return columnsFromRecords(recs), nil
	case '{':
		first, err := decodeObject(dec)
		if err != nil {
			return nil, err
		}
		if dec.More() {
			recs := []orderedObject{first}
			for dec.More() {
				o, err := decodeObject(dec)
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", len(recs)+1, err)
				}
				recs = append(recs, o)
			}
			return columnsFromRecords(recs), nil
		}
		if isColumnOriented(first) {
			return columnsFromColumnObject(first)
		}
		return columnsFromRecords([]orderedObject{first}), nil
	default:
		return nil, fmt.Errorf("unexpected json value starting with %q", trimmed[0])
	}
}

func decodeRecordArray(dec *json.Decoder) ([]orderedObject, error) {
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []orderedObject
	for dec.More() {
		o, err := decodeObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(out)+1, err)
		}
		out = append(out, o)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) (orderedObject, error) {
	o := orderedObject{vals: map[string]any{}}
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return o, errors.New("unexpected end of json input")
		}
		return o, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return o, fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return o, err
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return o, err
		}
		v, err := decodeValue(raw)
		if err != nil {
			return o, fmt.Errorf("field %q: %w", key, err)
		}
		if _, dup := o.vals[key]; !dup {
			o.keys = append(o.keys, key)
		}
		o.vals[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return o, err
	}
	return o, nil
}

// decodeValue decodes one JSON value, keeping nested object key order.
func decodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		return decodeObject(dec)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeJSON(v), nil
}

func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		f, err := x.Float64()
		if err != nil {
			return s
		}
		return f
	case []any:
		for i := range x {
			x[i] = normalizeJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeJSON(x[k])
		}
		return x
	}
	return v
}

func isColumnOriented(o orderedObject) bool {
	if len(o.keys) == 0 {
		return false
	}
	for _, k := range o.keys {
		switch o.vals[k].(type) {
		case []any, orderedObject:
		default:
			return false
		}
	}
	return true
}

func columnsFromRecords(recs []orderedObject) []Column {
	var names []string
	seen := map[string]bool{}
	for _, r := range recs {
		for _, k := range r.keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	cols := make([]Column, len(names))
	for i, n := range names {
		vals := make([]any, len(recs))
		for r, rec := range recs {
			vals[r] = plainJSON(rec.vals[n])
		}
		cols[i] = valueColumn(n, vals)
	}
	return cols
}

func columnsFromColumnObject(o orderedObject) ([]Column, error) {
	// collect the row index labels in first-seen order
	var index []string
	seen := map[string]bool{}
	length := -1
	for _, k := range o.keys {
		switch v := o.vals[k].(type) {
		case []any:
			if length >= 0 && len(v) != length {
				return nil, fmt.Errorf("column %q has %d values, want %d", k, len(v), length)
			}
			length = len(v)
		case orderedObject:
			for _, ik := range v.keys {
				if !seen[ik] {
					seen[ik] = true
					index = append(index, ik)
				}
			}
		}
	}
	rows := len(index)
	if length > rows {
		rows = length
	}
	cols := make([]Column, len(o.keys))
	for i, k := range o.keys {
		vals := make([]any, rows)
		switch v := o.vals[k].(type) {
		case []any:
			for r := range v {
				vals[r] = plainJSON(v[r])
			}
		case orderedObject:
			for r, ik := range index {
				vals[r] = plainJSON(v.vals[ik])
			}
		}
		cols[i] = valueColumn(k, vals)
	}
	return cols, nil
}

// plainJSON turns nested ordered objects back into ordinary maps.
func plainJSON(v any) any {
	if o, ok := v.(orderedObject); ok {
		m := make(map[string]any, len(o.keys))
		for _, k := range o.keys {
			m[k] = plainJSON(o.vals[k])
		}
		return m
	}
	return v
}
