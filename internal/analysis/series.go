package analysis

import (
	"math"

	"github.com/shopspring/decimal"

	"exdform/internal/domain"
)

// Series is the per-record column of one numeric variable. Values[i] is nil
// when record RecordIDs[i] has no usable number.
type Series struct {
	Variable  string              `json:"variable"`
	Type      domain.VariableType `json:"type"`
	RecordIDs []int64             `json:"recordIds"`
	Values    []*float64          `json:"values"`
	Stats     Stats               `json:"stats"`

	exact []decimal.Decimal
}

// Stats describes the present values of a series.
type Stats struct {
	Count  int             `json:"count"`
	Mean   decimal.Decimal `json:"mean"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	StdDev decimal.Decimal `json:"stdDev"` // sample standard deviation
}

func newSeries(v domain.Variable, records []domain.StoredRecord) Series {
	s := Series{
		Variable:  v.Name(),
		Type:      v.Type(),
		RecordIDs: make([]int64, len(records)),
		Values:    make([]*float64, len(records)),
	}
	for i, rec := range records {
		s.RecordIDs[i] = rec.ID
		f, text, ok := numericValue(rec.Data[v.Name()])
		if !ok {
			continue
		}
		s.Values[i] = &f
		d, err := decimal.NewFromString(text)
		if err != nil {
			d = decimal.NewFromFloat(f)
		}
		s.exact = append(s.exact, d)
	}
	s.Stats = describe(s.exact)
	return s
}

// Present returns the non-missing values in record order.
func (s Series) Present() []float64 {
	out := make([]float64, 0, s.Stats.Count)
	for _, v := range s.Values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func describe(values []decimal.Decimal) Stats {
	st := Stats{Count: len(values)}
	if len(values) == 0 {
		return st
	}
	sum := decimal.Zero
	st.Min, st.Max = values[0], values[0]
	for _, v := range values {
		sum = sum.Add(v)
		if v.LessThan(st.Min) {
			st.Min = v
		}
		if v.GreaterThan(st.Max) {
			st.Max = v
		}
	}
	n := decimal.NewFromInt(int64(len(values)))
	st.Mean = sum.Div(n)

	if len(values) > 1 {
		sq := decimal.Zero
		for _, v := range values {
			d := v.Sub(st.Mean)
			sq = sq.Add(d.Mul(d))
		}
		variance := sq.Div(n.Sub(decimal.NewFromInt(1)))
		st.StdDev = decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
	}
	return st
}
