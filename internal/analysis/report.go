// Package analysis aggregates stored records into missingness figures and
// numeric series for distribution plots and normality tests.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"exdform/internal/domain"
)

// ErrNoData is returned when there are no records to analyse.
var ErrNoData = errors.New("no data available for analysis")

// UnknownType marks keys that match no schema variable.
const UnknownType = "unknown"

// MinNormalitySamples is the exclusive lower bound on present values for a
// series to be handed to normality tests.
const MinNormalitySamples = 3

// Missing is the missingness of one record key.
type Missing struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Type       string  `json:"type"`
}

// Report is the analysis of a record set.
type Report struct {
	TotalRecords    int       `json:"totalRecords"`
	VariableCount   int       `json:"variableCount"`
	MissingData     []Missing `json:"missingData"`
	NumericSeries   []Series  `json:"numericSeries"`
	NormalityInputs []Series  `json:"normalityInputs"`
	Summary         string    `json:"summary"`
}

// Build analyses records against schema.
func Build(schema []domain.Variable, records []domain.StoredRecord) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	total := len(records)
	observed := observedKeys(records)

	r := &Report{
		TotalRecords:  total,
		VariableCount: len(observed),
	}

	for _, key := range orderKeys(schema, observed) {
		absent := 0
		for _, rec := range records {
			if !rec.Data.Has(key) {
				absent++
			}
		}
		r.MissingData = append(r.MissingData, Missing{
			Key:        key,
			Count:      absent,
			Percentage: percent(absent, total),
			Type:       typeOf(schema, key),
		})
	}

	seen := map[string]bool{}
	for _, v := range schema {
		if !v.Type().IsNumeric() || !observed[v.Name()] || seen[v.Name()] {
			continue
		}
		seen[v.Name()] = true
		s := newSeries(v, records)
		r.NumericSeries = append(r.NumericSeries, s)
		if s.Stats.Count > MinNormalitySamples {
			r.NormalityInputs = append(r.NormalityInputs, s)
		}
	}

	r.Summary = summarize(schema, records, r)
	return r, nil
}

// observedKeys is the union of record keys, without the id column.
func observedKeys(records []domain.StoredRecord) map[string]bool {
	keys := map[string]bool{}
	for _, rec := range records {
		for k := range rec.Data {
			if k != "id" {
				keys[k] = true
			}
		}
	}
	return keys
}

// orderKeys lists observed keys in schema order (names, then modality
// labels for multiselects), then the remaining keys sorted.
func orderKeys(schema []domain.Variable, observed map[string]bool) []string {
	var out []string
	placed := map[string]bool{}
	for _, v := range schema {
		for _, k := range v.Keys() {
			if observed[k] && !placed[k] {
				placed[k] = true
				out = append(out, k)
			}
		}
	}
	var rest []string
	for k := range observed {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// typeOf returns the type of the first variable whose name or one of whose
// modality labels equals key.
func typeOf(schema []domain.Variable, key string) string {
	for _, v := range schema {
		if v.Name() == key {
			return string(v.Type())
		}
		for _, m := range v.Modalities() {
			if m.Label == key {
				return string(v.Type())
			}
		}
	}
	return UnknownType
}

func percent(n, total int) float64 {
	return 100 * float64(n) / float64(total)
}

// numericValue coerces a stored value; empty, unparsable and non-finite
// values are missing.
func numericValue(v domain.Value) (float64, string, bool) {
	if i, ok := v.IntValue(); ok {
		return float64(i), strconv.FormatInt(i, 10), true
	}
	s, ok := v.Str()
	if !ok {
		return 0, "", false
	}
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "", false
	}
	return f, s, true
}

// missingIn counts records where v has no value. A multiselect is missing
// when none of its modality keys is present.
func missingIn(v domain.Variable, records []domain.StoredRecord) int {
	n := 0
	for _, rec := range records {
		present := false
		for _, k := range v.Keys() {
			if rec.Data.Has(k) {
				present = true
				break
			}
		}
		if !present {
			n++
		}
	}
	return n
}

func isCategoricalLike(t domain.VariableType) bool {
	return t == domain.TypeCategorical || t == domain.TypeBinary || t == domain.TypeCategoricalMultiselect
}

func summarize(schema []domain.Variable, records []domain.StoredRecord, r *Report) string {
	rule := strings.Repeat("-", 40)
	var b strings.Builder
	b.WriteString("Exploratory Analysis Report\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Total records: %d\n", r.TotalRecords)
	fmt.Fprintf(&b, "Variables: %d\n\n", r.VariableCount)

	b.WriteString("Numeric variables:\n" + rule + "\n")
	for _, s := range r.NumericSeries {
		fmt.Fprintf(&b, "%s: %d values, %.1f%% missing\n",
			s.Variable, s.Stats.Count, percent(r.TotalRecords-s.Stats.Count, r.TotalRecords))
	}
	b.WriteString("\n")

	b.WriteString("Categorical variables:\n" + rule + "\n")
	for _, v := range schema {
		if !isCategoricalLike(v.Type()) {
			continue
		}
		fmt.Fprintf(&b, "%s: %.1f%% missing\n", v.Name(), percent(missingIn(v, records), r.TotalRecords))
	}
	return b.String()
}
