package analysis

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// SampleRows is the number of leading rows kept in a Summary.
const SampleRows = 5

// EmptyStat counts missing values in one column.
type EmptyStat struct {
	NullCount        int     `json:"null_count"`
	EmptyStringCount int     `json:"empty_string_count"`
	TotalEmpty       int     `json:"total_empty"`
	Percentage       float64 `json:"percentage"`
}

// Summary is a snapshot of a dataset's shape and statistics.
type Summary struct {
	RowCount    int                     `json:"row_count"`
	ColumnCount int                     `json:"column_count"`
	Columns     []string                `json:"columns"`
	ColumnTypes map[string]string       `json:"column_types"`
	EmptyData   map[string]EmptyStat    `json:"empty_data"`
	BasicStats  map[string]NumericStats `json:"basic_stats"`
	SampleData  Records                 `json:"sample_data"`
}

// TotalEmpty sums empty values across all columns.
func (s *Summary) TotalEmpty() int {
	n := 0
	for _, e := range s.EmptyData {
		n += e.TotalEmpty
	}
	return n
}

// Summarizer derives statistics from one dataset. The dataset is never
// modified; the Summary is computed on first use and then reused.
type Summarizer struct {
	ds *dataset.Dataset

	once    sync.Once
	summary *Summary
}

// NewSummarizer returns a Summarizer for ds.
func NewSummarizer(ds *dataset.Dataset) *Summarizer {
	return &Summarizer{ds: ds}
}

// Dataset returns the summarized dataset.
func (s *Summarizer) Dataset() *dataset.Dataset { return s.ds }

// ColumnTypes maps each column to its type label.
func (s *Summarizer) ColumnTypes() map[string]string {
	out := make(map[string]string, s.ds.Width())
	for _, c := range s.ds.Columns() {
		k, _ := s.ds.Kind(c)
		out[c] = k.String()
	}
	return out
}

// EmptyStats counts nulls per column, plus exact empty strings in text
// columns. The percentage is relative to the row count, rounded to two
// decimals, and 0 for an empty dataset.
func (s *Summarizer) EmptyStats() map[string]EmptyStat {
	rows := s.ds.Rows()
	out := make(map[string]EmptyStat, s.ds.Width())
	for _, c := range s.ds.Columns() {
		k, _ := s.ds.Kind(c)
		vals, _ := s.ds.Values(c)
		var st EmptyStat
		for _, v := range vals {
			if v == nil {
				st.NullCount++
				continue
			}
			if k == dataset.KindText {
				if str, ok := v.(string); ok && str == "" {
					st.EmptyStringCount++
				}
			}
		}
		st.TotalEmpty = st.NullCount + st.EmptyStringCount
		if rows > 0 {
			st.Percentage = round2(float64(st.TotalEmpty) / float64(rows) * 100)
		}
		out[c] = st
	}
	return out
}

// BasicStats describes every numeric column. It is empty, not nil, when the
// dataset has no numeric columns.
func (s *Summarizer) BasicStats() map[string]NumericStats {
	out := map[string]NumericStats{}
	for _, c := range s.ds.NumericColumns() {
		vals, _, _ := s.ds.Floats(c)
		out[c] = describe(vals)
	}
	return out
}

// Summary returns the cached summary, computing it on the first call.
// Callers must treat the result as read-only.
func (s *Summarizer) Summary() *Summary {
	s.once.Do(func() {
		s.summary = &Summary{
			RowCount:    s.ds.Rows(),
			ColumnCount: s.ds.Width(),
			Columns:     s.ds.Columns(),
			ColumnTypes: s.ColumnTypes(),
			EmptyData:   s.EmptyStats(),
			BasicStats:  s.BasicStats(),
			SampleData:  s.ds.Head(SampleRows),
		}
	})
	return s.summary
}

// Records are rows keyed by column name. NaN and infinite floats encode
// as null, which JSON has no other spelling for.
type Records []map[string]any

func (r Records) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	out := make([]map[string]any, len(r))
	for i, rec := range r {
		m := make(map[string]any, len(rec))
		for k, v := range rec {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				v = nil
			}
			m[k] = v
		}
		out[i] = m
	}
	return json.Marshal(out)
}

// Preview is the leading rows of a dataset, for display.
type Preview struct {
	Columns []string         `json:"columns"`
	Data    Records  `json:"data"`
}

// NewPreview returns up to n leading rows of ds.
func NewPreview(ds *dataset.Dataset, n int) Preview {
	return Preview{Columns: ds.Columns(), Data: ds.Head(n)}
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
