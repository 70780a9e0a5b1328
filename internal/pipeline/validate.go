package pipeline

import (
	"health-export-pipeline/internal/model"
	"time"
	"unicode/utf8"
)

// SkipReason explains why a reading made no contribution to the summary
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipMissingDate     SkipReason = "missing_date"
	SkipMissingQuantity SkipReason = "missing_quantity"
	SkipUnparsableDate  SkipReason = "unparsable_date"
	SkipNonNumeric      SkipReason = "non_numeric_quantity"
)

// Month and day may be one or two digits; keys are always written zero-padded.
const (
	dateLayout = "2006-1-2"
	keyLayout  = "2006-01-02"
)

// Contribution is one numeric value bound for one aggregation group
type Contribution struct {
	Key   model.DailyKey
	Value float64
}

// ClassifyReading derives the daily key and quantity of a reading, or the
// reason it cannot contribute to the summary.
func ClassifyReading(metric string, reading model.Reading) (Contribution, SkipReason) {
	date := reading.Get(model.FieldDate)
	if date.Text() == "" {
		return Contribution{}, SkipMissingDate
	}

	qty := reading.Get(model.FieldQty)
	if qty.Absent() {
		qty = reading.Get(model.FieldValue)
	}
	if qty.Absent() {
		return Contribution{}, SkipMissingQuantity
	}

	if date.Kind != model.KindString {
		return Contribution{}, SkipUnparsableDate
	}
	day, ok := parseDay(date.Text())
	if !ok {
		return Contribution{}, SkipUnparsableDate
	}

	value, ok := qty.Float()
	if !ok {
		return Contribution{}, SkipNonNumeric
	}

	return Contribution{
		Key: model.DailyKey{
			Date:   day,
			Metric: metric,
			Source: readingSource(reading),
		},
		Value: value,
	}, SkipNone
}

// parseDay truncates a timestamp to its first 10 characters, checks it is a
// calendar date and normalizes it to YYYY-MM-DD
func parseDay(s string) (string, bool) {
	if utf8.RuneCountInString(s) > 10 {
		s = string([]rune(s)[:10])
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", false
	}
	return t.Format(keyLayout), true
}

func readingSource(reading model.Reading) string {
	source := reading.Get(model.FieldSource)
	if source.Absent() {
		return model.UnknownSource
	}
	return source.Text()
}
