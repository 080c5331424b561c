package dataset

import (
	"fmt"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// String returns the type label used in summaries and prompts.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime64[ns]"
	default:
		return "object"
	}
}

// Numeric reports whether values of this kind take part in descriptive statistics.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Column is one named, typed sequence of cells. A nil cell is null; non-null
// cells hold int64, float64, bool, time.Time or string according to Kind.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Dataset is an ordered collection of equal-length columns.
type Dataset struct {
	name    string
	columns []*Column
	rows    int
}

// New builds a Dataset, checking that every column has the same length.
func New(name string, cols []Column) (*Dataset, error) {
	ds := &Dataset{name: name}
	seen := make(map[string]bool, len(cols))
	for i := range cols {
		c := cols[i]
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if i == 0 {
			ds.rows = len(c.Values)
		} else if len(c.Values) != ds.rows {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), ds.rows)
		}
		ds.columns = append(ds.columns, &c)
	}
	return ds, nil
}

// Name is the source file name the dataset was loaded from.
func (d *Dataset) Name() string { return d.name }

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.columns) }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// Kind returns the kind of the named column.
func (d *Dataset) Kind(name string) (Kind, bool) {
	i := d.index(name)
	if i < 0 {
		return KindText, false
	}
	return d.columns[i].Kind, true
}

// Values returns a copy of the named column's cells.
func (d *Dataset) Values(name string) ([]any, bool) {
	i := d.index(name)
	if i < 0 {
		return nil, false
	}
	out := make([]any, len(d.columns[i].Values))
	copy(out, d.columns[i].Values)
	return out, true
}

// Floats returns the non-null cells of a numeric column as float64 values,
// in row order, together with their row indexes.
func (d *Dataset) Floats(name string) ([]float64, []int, bool) {
	i := d.index(name)
	if i < 0 || !d.columns[i].Kind.Numeric() {
		return nil, nil, false
	}
	var vals []float64
	var rows []int
	for r, v := range d.columns[i].Values {
		if f, ok := AsFloat(v); ok {
			vals = append(vals, f)
			rows = append(rows, r)
		}
	}
	return vals, rows, true
}

// Cell returns the value at row r of column c.
func (d *Dataset) Cell(r, c int) any { return d.columns[c].Values[r] }

// Head returns up to n leading rows as records keyed by column name.
func (d *Dataset) Head(n int) []map[string]any {
	if n > d.rows {
		n = d.rows
	}
	out := make([]map[string]any, 0, n)
	for r := 0; r < n; r++ {
		rec := make(map[string]any, len(d.columns))
		for _, c := range d.columns {
			rec[c.Name] = c.Values[r]
		}
		out = append(out, rec)
	}
	return out
}

// NumericColumns returns numeric column names in order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.columns {
		if c.Kind.Numeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// TextColumns returns object (text) column names in order.
func (d *Dataset) TextColumns() []string {
	var out []string
	for _, c := range d.columns {
		if c.Kind == KindText {
			out = append(out, c.Name)
		}
	}
	return out
}

func (d *Dataset) index(name string) int {
	for i, c := range d.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AsFloat converts a numeric cell to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// IsTime reports whether v is a timestamp cell.
func IsTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}
