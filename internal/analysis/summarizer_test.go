package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

func load(t *testing.T, name, body string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.LoadReader(strings.NewReader(body), name, dataset.Options{})
	require.NoError(t, err)
	return ds
}

const scoresCSV = "name,score\nann,90\nbob,\ncy,70\n"

func TestSummaryScoresEndToEnd(t *testing.T) {
	s := NewSummarizer(load(t, "scores.csv", scoresCSV))
	sum := s.Summary()

	assert.Equal(t, 3, sum.RowCount)
	assert.Equal(t, 2, sum.ColumnCount)
	assert.Equal(t, []string{"name", "score"}, sum.Columns)
	assert.Equal(t, map[string]string{"name": "object", "score": "float64"}, sum.ColumnTypes)

	require.Contains(t, sum.BasicStats, "score")
	assert.Equal(t, 2.0, sum.BasicStats["score"].Count)
	assert.NotContains(t, sum.BasicStats, "name")

	assert.Equal(t, 1, sum.EmptyData["score"].TotalEmpty)
	assert.Equal(t, 33.33, sum.EmptyData["score"].Percentage)
	assert.Equal(t, 0, sum.EmptyData["name"].TotalEmpty)
	assert.Equal(t, 1, sum.TotalEmpty())
	assert.Len(t, sum.SampleData, 3)
}

func TestEmptyStatsAllNullColumn(t *testing.T) {
	s := NewSummarizer(load(t, "gaps.csv", "a,b\n1,\n2,\n3,\n4,\n"))
	st := s.EmptyStats()["b"]
	assert.Equal(t, 4, st.NullCount)
	assert.Equal(t, 4, st.TotalEmpty)
	assert.Equal(t, 100.0, st.Percentage)
}

func TestEmptyStatsZeroRows(t *testing.T) {
	s := NewSummarizer(load(t, "header.csv", "a,b,c\n"))
	stats := s.EmptyStats()
	require.Len(t, stats, 3)
	for col, st := range stats {
		assert.Equal(t, 0.0, st.Percentage, col)
		assert.Equal(t, 0, st.TotalEmpty, col)
	}
	assert.Contains(t, s.SummaryText(), "- a (float64): 0 empty values (0%)")
}

func TestEmptyStatsCountsEmptyStringsInTextColumns(t *testing.T) {
	s := NewSummarizer(load(t, "notes.json", `[{"note":""},{"note":"ok"},{"note":null},{"note":""}]`))
	st := s.EmptyStats()["note"]
	assert.Equal(t, EmptyStat{NullCount: 1, EmptyStringCount: 2, TotalEmpty: 3, Percentage: 75.0}, st)
}

func TestBasicStatsEmptyWithoutNumericColumns(t *testing.T) {
	text := NewSummarizer(load(t, "t.csv", "a,b\nx,y\nz,w\n"))
	stats := text.BasicStats()
	require.NotNil(t, stats)
	assert.Empty(t, stats)
	assert.NotContains(t, text.SummaryText(), "NUMERICAL COLUMN STATISTICS")

	num := NewSummarizer(load(t, "n.csv", "a,b\nx,1\nz,2\n"))
	assert.Len(t, num.BasicStats(), 1)
}

func TestBasicStatsValues(t *testing.T) {
	s := NewSummarizer(load(t, "v.csv", "v\n1\n2\n3\n4\n"))
	st := s.BasicStats()["v"]
	assert.Equal(t, 4.0, st.Count)
	assert.InDelta(t, 2.5, st.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487, st.Std, 1e-9)
	assert.Equal(t, 1.0, st.Min)
	assert.InDelta(t, 1.75, st.Q25, 1e-12)
	assert.InDelta(t, 2.5, st.Q50, 1e-12)
	assert.InDelta(t, 3.25, st.Q75, 1e-12)
	assert.Equal(t, 4.0, st.Max)
}

func TestSummaryIsCachedAgainstMutation(t *testing.T) {
	names := []any{"ann", "bob"}
	ds, err := dataset.New("people", []dataset.Column{
		{Name: "name", Kind: dataset.KindText, Values: names},
		{Name: "age", Kind: dataset.KindInt, Values: []any{int64(30), int64(40)}},
	})
	require.NoError(t, err)

	s := NewSummarizer(ds)
	first := s.Summary()
	text := s.SummaryText()

	names[0] = ""

	second := s.Summary()
	assert.Same(t, first, second)
	assert.Equal(t, "ann", second.SampleData[0]["name"])
	assert.Equal(t, 0, second.EmptyData["name"].TotalEmpty)
	assert.Equal(t, text, s.SummaryText())

	fresh := NewSummarizer(ds).Summary()
	assert.Equal(t, 1, fresh.EmptyData["name"].TotalEmpty, "mutation is visible to a new summarizer")
}

func TestSummaryTextLayout(t *testing.T) {
	s := NewSummarizer(load(t, "scores.csv", scoresCSV))
	want := strings.Join([]string{
		"=== DATASET SUMMARY ===",
		"Total Rows: 3",
		"Total Columns: 2",
		"",
		"=== COLUMNS AND TYPES ===",
		"- name (object): 0 empty values (0.0%)",
		"- score (float64): 1 empty values (33.33%)",
		"",
		"=== SAMPLE DATA (first 5 rows) ===",
		"name | score",
		"--------------------------------------------------",
		"ann | 90.0",
		"bob | nan",
		"cy | 70.0",
		"",
		"=== NUMERICAL COLUMN STATISTICS ===",
		"",
		"score:",
		"  count: 2.00",
		"  mean: 80.00",
		"  std: 14.14",
		"  min: 70.00",
		"  25%: 75.00",
		"  50%: 80.00",
		"  75%: 85.00",
		"  max: 90.00",
	}, "\n")
	assert.Equal(t, want, s.SummaryText())

	again := NewSummarizer(load(t, "scores.csv", scoresCSV))
	assert.Equal(t, want, again.SummaryText(), "text is stable across instances")
}

func TestSummaryTextOmitsUndefinedStats(t *testing.T) {
	s := NewSummarizer(load(t, "one.csv", "x\n5\n"))
	text := s.SummaryText()
	assert.Contains(t, text, "  count: 1.00")
	assert.NotContains(t, text, "std:")
}

func TestNumericStatsJSON(t *testing.T) {
	st := describe([]float64{7})
	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"mean":7,"std":null,"min":7,"25%":7,"50%":7,"75%":7,"max":7}`, string(b))
	assert.True(t, strings.HasPrefix(string(b), `{"count":1,"mean":7,"std":null`), "keys keep describe order")

	empty := describe(nil)
	assert.True(t, math.IsNaN(empty.Mean))
	assert.Equal(t, 0.0, empty.Count)
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		90:      "90.0",
		33.33:   "33.33",
		0:       "0.0",
		-2.5:    "-2.5",
		1e16:    "1e+16",
		0.00001: "1e-05",
		0.5:     "0.5",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatFloat(in), "%v", in)
	}
	assert.Equal(t, "nan", FormatFloat(math.NaN()))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "nan", FormatValue(nil))
	assert.Equal(t, "12", FormatValue(int64(12)))
	assert.Equal(t, "True", FormatValue(true))
	assert.Equal(t, "text", FormatValue("text"))
}

func TestPreview(t *testing.T) {
	ds := load(t, "scores.csv", scoresCSV)
	p := NewPreview(ds, 10)
	assert.Equal(t, []string{"name", "score"}, p.Columns)
	require.Len(t, p.Data, 3)
	b, err := json.Marshal(p.Data[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"bob","score":null}`, string(b))
}

func TestRecordsEncodeNonFiniteAsNull(t *testing.T) {
	ds := load(t, "v.csv", "name,v\na,1.5\nb,inf\nc,-Infinity\n")
	k, _ := ds.Kind("v")
	require.Equal(t, dataset.KindFloat, k)

	b, err := json.Marshal(NewPreview(ds, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["name","v"],"data":[{"name":"a","v":1.5},{"name":"b","v":null},{"name":"c","v":null}]}`, string(b))

	sum := NewSummarizer(ds).Summary()
	_, err = json.Marshal(sum)
	require.NoError(t, err)
	assert.True(t, math.IsInf(sum.SampleData[1]["v"].(float64), 1), "the in-memory sample keeps the value")
}
