package pipeline

import (
	"health-export-pipeline/internal/model"
	"math"
	"sort"
	"strconv"
	"strings"
)

// AggregationRule reduces a group's values to one number
type AggregationRule int

const (
	RuleAverage AggregationRule = iota
	RuleSum
)

// Labels written to the summary's Aggregation column
const (
	LabelSum     = "Total (Sum)"
	LabelAverage = "Average"
)

// sumKeywords select RuleSum when found anywhere in a metric name
var sumKeywords = []string{"count", "energy", "distance", "active", "flights"}

// SelectRule picks the aggregation rule for a metric name. Keywords match
// as substrings, case-sensitively, in lower case ("step_count") or as a
// capitalized word of a camel-case name ("StepCount").
func SelectRule(metric string) AggregationRule {
	for _, word := range sumKeywords {
		if strings.Contains(metric, word) || strings.Contains(metric, capitalize(word)) {
			return RuleSum
		}
	}
	return RuleAverage
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// Label returns the summary label of the rule
func (r AggregationRule) Label() string {
	if r == RuleSum {
		return LabelSum
	}
	return LabelAverage
}

// Apply reduces values with the rule. values must not be empty.
func (r AggregationRule) Apply(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if r == RuleSum {
		return sum
	}
	return sum / float64(len(values))
}

// Aggregator accumulates reading quantities into daily groups
type Aggregator struct {
	groups        map[model.DailyKey][]float64
	skipped       map[SkipReason]int
	contributions int
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		groups:  make(map[model.DailyKey][]float64),
		skipped: make(map[SkipReason]int),
	}
}

// Add classifies a reading and, when usable, appends its quantity to its group
func (a *Aggregator) Add(metric string, reading model.Reading) SkipReason {
	c, reason := ClassifyReading(metric, reading)
	if reason != SkipNone {
		a.skipped[reason]++
		return reason
	}
	a.groups[c.Key] = append(a.groups[c.Key], c.Value)
	a.contributions++
	return SkipNone
}

// GroupCount returns the number of distinct daily groups
func (a *Aggregator) GroupCount() int { return len(a.groups) }

// Contributions returns the number of readings that reached a group
func (a *Aggregator) Contributions() int { return a.contributions }

// Skipped returns skip counts keyed by reason
func (a *Aggregator) Skipped() map[string]int {
	out := make(map[string]int, len(a.skipped))
	for reason, n := range a.skipped {
		out[string(reason)] = n
	}
	return out
}

// Summarize reduces every group to a SummaryRow, ordered by date, metric, source
func (a *Aggregator) Summarize() []model.SummaryRow {
	keys := make([]model.DailyKey, 0, len(a.groups))
	for key := range a.groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := make([]model.SummaryRow, 0, len(keys))
	for _, key := range keys {
		rule := SelectRule(key.Metric)
		rows = append(rows, model.SummaryRow{
			Date:        key.Date,
			Metric:      key.Metric,
			Device:      key.Source,
			Value:       Round2(rule.Apply(a.groups[key])),
			Aggregation: rule.Label(),
		})
	}
	return rows
}

// Round2 rounds the exact binary value to two decimal places, ties to even.
// Values too large to carry a fraction come back unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// FormatValue renders a summary value in shortest form. Decimal exponents
// from -4 to 15 print positionally with at least one fractional digit,
// anything outside that range in exponent form ("1e+21").
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	if v != 0 {
		e := strconv.FormatFloat(v, 'e', -1, 64)
		exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
		if err == nil && (exp < -4 || exp >= 16) {
			return e
		}
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SummaryCells renders a summary row in SummaryHeader order
func SummaryCells(row model.SummaryRow) []string {
	return []string{row.Date, row.Metric, row.Device, FormatValue(row.Value), row.Aggregation}
}
