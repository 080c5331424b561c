package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SummaryText renders the cached summary as the fixed-layout context block
// handed to the language model. The output is byte-stable for a given dataset.
func (s *Summarizer) SummaryText() string {
	sum := s.Summary()
	lines := []string{
		"=== DATASET SUMMARY ===",
		fmt.Sprintf("Total Rows: %d", sum.RowCount),
		fmt.Sprintf("Total Columns: %d", sum.ColumnCount),
		"",
		"=== COLUMNS AND TYPES ===",
	}
	for _, col := range sum.Columns {
		e := sum.EmptyData[col]
		pct := "0"
		if sum.RowCount > 0 {
			pct = FormatFloat(e.Percentage)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %d empty values (%s%%)", col, sum.ColumnTypes[col], e.TotalEmpty, pct))
	}

	lines = append(lines, "", "=== SAMPLE DATA (first 5 rows) ===")
	if len(sum.SampleData) > 0 {
		lines = append(lines, strings.Join(sum.Columns, " | "))
		lines = append(lines, strings.Repeat("-", 50))
		for _, row := range sum.SampleData {
			cells := make([]string, len(sum.Columns))
			for i, col := range sum.Columns {
				cells[i] = FormatValue(row[col])
			}
			lines = append(lines, strings.Join(cells, " | "))
		}
	}

	if len(sum.BasicStats) > 0 {
		lines = append(lines, "", "=== NUMERICAL COLUMN STATISTICS ===")
		for _, col := range sum.Columns {
			st, ok := sum.BasicStats[col]
			if !ok {
				continue
			}
			lines = append(lines, "\n"+col+":")
			for _, e := range st.Entries() {
				if math.IsNaN(e.Value) {
					continue
				}
				lines = append(lines, fmt.Sprintf("  %s: %.2f", e.Label, e.Value))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// FormatValue renders a cell the way the summary text shows it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nan"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return FormatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// FormatFloat prints the shortest round-tripping form of f, keeping a ".0"
// on integral values and switching to exponent form outside [1e-4, 1e16).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
