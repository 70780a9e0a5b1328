package pipeline

import (
	"encoding/csv"
	"fmt"
	"health-export-pipeline/internal/model"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Table names reported in ExportResult
const (
	TableFlattened = "flattened"
	TableSummary   = "summary"
)

// ExportManager writes the flattened and summary tables of one run
type ExportManager struct {
	JobID   string
	UseCRLF bool
	Logger  *zap.Logger
}

// NewExportManager creates an export manager for a job
func NewExportManager(jobID string, useCRLF bool, logger *zap.Logger) *ExportManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportManager{JobID: jobID, UseCRLF: useCRLF, Logger: logger}
}

// ExportFlattened writes one row per reading under the resolved columns.
// Nothing is written when rows is empty.
func (em *ExportManager) ExportFlattened(path string, rows []model.FlatRow) (model.ExportResult, error) {
	if len(rows) == 0 {
		return em.skipped(TableFlattened, path, "no readings"), nil
	}

	columns := ResolveColumns(rows)
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, RowCells(row, columns))
	}
	return em.export(TableFlattened, path, columns, records)
}

// ExportSummary writes the daily comparison table.
// Nothing is written when rows is empty.
func (em *ExportManager) ExportSummary(path string, rows []model.SummaryRow) (model.ExportResult, error) {
	if len(rows) == 0 {
		return em.skipped(TableSummary, path, "no aggregation groups"), nil
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, SummaryCells(row))
	}
	return em.export(TableSummary, path, model.SummaryHeader, records)
}

func (em *ExportManager) export(table, path string, header []string, records [][]string) (model.ExportResult, error) {
	result := model.ExportResult{
		Table: table,
		Path:  path,
	}

	if err := WriteTable(path, header, records, em.UseCRLF); err != nil {
		em.Logger.Error("❌ Export failed",
			zap.String("job_id", em.JobID),
			zap.String("table", table),
			zap.String("path", path),
			zap.Error(err))
		return result, err
	}

	result.RecordCount = len(records)
	result.Written = true
	result.ExportedAt = time.Now()
	em.Logger.Info("✅ Export successful",
		zap.String("job_id", em.JobID),
		zap.String("table", table),
		zap.String("path", path),
		zap.Int("records", len(records)))
	return result, nil
}

func (em *ExportManager) skipped(table, path, reason string) model.ExportResult {
	em.Logger.Info("💾 Export skipped",
		zap.String("job_id", em.JobID),
		zap.String("table", table),
		zap.String("reason", reason))
	return model.ExportResult{
		Table:  table,
		Path:   path,
		Reason: reason,
	}
}

// WriteTable writes a header and records as CSV to path. The file is built
// next to its destination and renamed into place, so a failed write leaves
// any previous file untouched.
func WriteTable(path string, header []string, records [][]string, useCRLF bool) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	writer := csv.NewWriter(tmp)
	writer.UseCRLF = useCRLF

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
