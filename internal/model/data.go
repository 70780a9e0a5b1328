package model

import "time"

// Injected flattened-table fields
const (
	FieldMetricName  = "metric_name"
	FieldMetricUnits = "metric_units"
)

// Reading fields interpreted by the aggregator
const (
	FieldDate   = "date"
	FieldSource = "source"
	FieldQty    = "qty"
	FieldValue  = "value"
)

// UnknownSource labels readings without a source
const UnknownSource = "Unknown"

// FlatRow is a reading merged with its metric's name and units
type FlatRow map[string]Value

// Cell renders the named column, empty when the row has no such field
func (r FlatRow) Cell(column string) string {
	return r[column].Text()
}

// DailyKey identifies one aggregation group
type DailyKey struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Metric string `json:"metric"`
	Source string `json:"source"`
}

// Less orders keys by date, then metric, then source
func (k DailyKey) Less(o DailyKey) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	if k.Metric != o.Metric {
		return k.Metric < o.Metric
	}
	return k.Source < o.Source
}

// SummaryHeader is the fixed column order of the summary table
var SummaryHeader = []string{"Date", "Metric", "Device", "Value", "Aggregation"}

// SummaryRow is one reduced aggregation group
type SummaryRow struct {
	Date        string  `json:"date"`
	Metric      string  `json:"metric"`
	Device      string  `json:"device"`
	Value       float64 `json:"value"`
	Aggregation string  `json:"aggregation"`
	Units       string  `json:"units,omitempty"`
}

// DailySummary is a stored summary row. There is at most one per date,
// metric and source; the latest run to write it owns it.
type DailySummary struct {
	SummaryRow
	JobID     string    `json:"job_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryFilter narrows a daily summary listing. Empty fields match all.
type SummaryFilter struct {
	JobID  string
	Metric string
	Source string
	From   string // inclusive YYYY-MM-DD
	To     string // inclusive YYYY-MM-DD
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Table       string    `json:"table"` // "flattened" or "summary"
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Written     bool      `json:"written"`
	Reason      string    `json:"reason,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// RunReport summarizes one conversion run
type RunReport struct {
	JobID            string         `json:"job_id"`
	FlattenedRows    int            `json:"flattened_rows"`
	FlattenedWritten bool           `json:"flattened_written"`
	SummaryRows      int            `json:"summary_rows"`
	SummaryCreated   bool           `json:"summary_created"`
	Contributions    int            `json:"contributions"`
	Skipped          map[string]int `json:"skipped"`
	Exports          []ExportResult `json:"exports"`
	Duration         time.Duration  `json:"duration"`
}

// SkippedTotal returns the number of readings left out of the summary
func (r *RunReport) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}
