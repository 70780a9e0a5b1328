package model

// Reading is a single time-stamped data point. Its field set is open-ended;
// `date`, `source`, `qty` and `value` are the ones the pipeline interprets.
type Reading map[string]Value

// Get returns the named field, absent when missing
func (r Reading) Get(field string) Value {
	return r[field]
}

// MetricSeries is one named metric and its readings, in stored order
type MetricSeries struct {
	Name     Value     `json:"name"`
	Units    Value     `json:"units"`
	Readings []Reading `json:"data"`
}

// MetricName returns the metric's name as used in grouping keys
func (m MetricSeries) MetricName() string {
	return m.Name.Text()
}

// PayloadData holds the metric list of an export
type PayloadData struct {
	Metrics []MetricSeries `json:"metrics"`
}

// Payload is a full health export document: { data: { metrics: [...] } }
type Payload struct {
	Data PayloadData `json:"data"`
}

// ReadingCount returns the total number of readings across all metrics
func (p *Payload) ReadingCount() int {
	n := 0
	for _, m := range p.Data.Metrics {
		n += len(m.Readings)
	}
	return n
}
