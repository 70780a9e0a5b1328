package pipeline

import (
	"health-export-pipeline/internal/model"
	"sort"
)

// PreferredColumns lead the flattened table, in this order, when present
var PreferredColumns = []string{
	model.FieldMetricName,
	model.FieldDate,
	model.FieldQty,
	model.FieldSource,
	model.FieldMetricUnits,
}

// FlattenReading copies a reading and overlays its metric's name and units
func FlattenReading(metric model.MetricSeries, reading model.Reading) model.FlatRow {
	row := make(model.FlatRow, len(reading)+2)
	for k, v := range reading {
		row[k] = v
	}
	row[model.FieldMetricName] = metric.Name
	row[model.FieldMetricUnits] = metric.Units
	return row
}

// ResolveColumns returns the union of all row keys: the preferred columns
// that occur first, then everything else in lexicographic order.
func ResolveColumns(rows []model.FlatRow) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, col := range PreferredColumns {
		if seen[col] {
			columns = append(columns, col)
			delete(seen, col)
		}
	}

	rest := make([]string, 0, len(seen))
	for key := range seen {
		rest = append(rest, key)
	}
	sort.Strings(rest)

	return append(columns, rest...)
}

// RowCells renders a row against a column order, empty for missing fields
func RowCells(row model.FlatRow, columns []string) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		cells[i] = row.Cell(col)
	}
	return cells
}
