package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// NumericStats holds descriptive statistics for one numeric column.
// Undefined values (std of fewer than two values, anything on an empty
// column) are NaN and encode as JSON null.
type NumericStats struct {
	Count float64
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Stat is one labelled statistic.
type Stat struct {
	Label string
	Value float64
}

// Entries returns the statistics in their canonical order.
func (s NumericStats) Entries() []Stat {
	return []Stat{
		{"count", s.Count},
		{"mean", s.Mean},
		{"std", s.Std},
		{"min", s.Min},
		{"25%", s.Q25},
		{"50%", s.Q50},
		{"75%", s.Q75},
		{"max", s.Max},
	}
}

// MarshalJSON writes the statistics as an ordered object.
func (s NumericStats) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(e.Label)
		b.Write(k)
		b.WriteByte(':')
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			b.WriteString("null")
			continue
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// describe computes count, mean, sample standard deviation, min, quartiles
// and max. Mean and variance use Welford's online update.
func describe(vals []float64) NumericStats {
	nan := math.NaN()
	st := NumericStats{Count: float64(len(vals)), Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	if len(vals) == 0 {
		return st
	}
	var n int
	var mean, m2 float64
	for _, x := range vals {
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	st.Mean = mean
	if n > 1 {
		st.Std = math.Sqrt(m2 / float64(n-1))
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	st.Min = sorted[0]
	st.Max = sorted[len(sorted)-1]
	st.Q25 = quantile(sorted, 0.25)
	st.Q50 = quantile(sorted, 0.5)
	st.Q75 = quantile(sorted, 0.75)
	return st
}

// quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
