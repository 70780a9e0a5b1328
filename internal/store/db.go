package store

import (
	"database/sql"
	"errors"
	"fmt"
	"health-export-pipeline/internal/model"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("not found")

// Initialize DB connection
func InitDB(dbPath string) error {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT,
		input_path TEXT,
		flattened_path TEXT,
		summary_path TEXT,
		flattened_rows INTEGER DEFAULT 0,
		summary_rows INTEGER DEFAULT 0,
		skipped_readings INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	rawTable := `
	CREATE TABLE IF NOT EXISTS raw_health_exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT,
		payload TEXT,
		received_at DATETIME
	);
	`

	summaryTable := `
	CREATE TABLE IF NOT EXISTS daily_summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		metric TEXT NOT NULL,
		source TEXT NOT NULL,
		value REAL,
		aggregation TEXT,
		units TEXT DEFAULT '',
		job_id TEXT,
		updated_at DATETIME,
		UNIQUE(date, metric, source)
	);
	`

	for _, table := range []string{runTable, rawTable, summaryTable} {
		if _, err := conn.Exec(table); err != nil {
			conn.Close()
			return err
		}
	}

	db = conn
	return nil
}

// Enabled reports whether a database has been initialized
func Enabled() bool {
	return db != nil
}

// Close releases the database connection
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRawPayload stores a received export document as-is
func SaveRawPayload(jobID string, payload []byte) error {
	_, err := db.Exec(`INSERT INTO raw_health_exports (job_id, payload, received_at) VALUES (?, ?, ?)`,
		jobID, string(payload), time.Now().UTC())
	return err
}

// GetRawPayload returns the stored export document of a job
func GetRawPayload(jobID string) ([]byte, error) {
	var payload string
	err := db.QueryRow(`SELECT payload FROM raw_health_exports WHERE job_id = ? ORDER BY id DESC LIMIT 1`, jobID).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("raw payload for %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

// SaveRun stores a new pending run
func SaveRun(run model.Run) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, status, input_path, flattened_path, summary_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, model.RunPending, run.InputPath, run.FlattenedPath, run.SummaryPath, now, now)
	return err
}

// UpdateRunStatus updates run status
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// CompleteRun records the outcome of a successful run
func CompleteRun(report *model.RunReport) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, flattened_rows = ?, summary_rows = ?, skipped_readings = ?, updated_at = ?
		WHERE id = ?`,
		model.RunCompleted, report.FlattenedRows, report.SummaryRows, report.SkippedTotal(), now, report.JobID)
	return err
}

// SaveRunError marks a run failed with its error
func SaveRunError(runID string, runErr error) error {
	if runErr == nil {
		return nil
	}
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		model.RunFailed, runErr.Error(), now, runID)
	return err
}

const runColumns = `id, status, input_path, flattened_path, summary_path, flattened_rows, summary_rows,
	skipped_readings, error, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (model.Run, error) {
	var run model.Run
	err := s.Scan(&run.ID, &run.Status, &run.InputPath, &run.FlattenedPath, &run.SummaryPath,
		&run.FlattenedRows, &run.SummaryRows, &run.SkippedReadings, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	return run, err
}

// GetRun fetches one run
func GetRun(runID string) (model.Run, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

// ListRuns returns all runs, newest first
func ListRuns() ([]model.Run, error) {
	rows, err := db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveDailySummaries upserts the summary rows of a run. A row for an existing
// date, metric and source replaces the stored value.
func SaveDailySummaries(jobID string, rows []model.SummaryRow) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`INSERT INTO daily_summaries (date, metric, source, value, aggregation, units, job_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, metric, source) DO UPDATE SET
			value = excluded.value,
			aggregation = excluded.aggregation,
			units = excluded.units,
			job_id = excluded.job_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		if _, err = stmt.Exec(row.Date, row.Metric, row.Device, row.Value, row.Aggregation, row.Units, jobID, now); err != nil {
			return fmt.Errorf("upsert %s/%s/%s: %w", row.Date, row.Metric, row.Device, err)
		}
	}
	return tx.Commit()
}

// ListDailySummaries returns stored summary rows ordered by date, metric, source
func ListDailySummaries(filter model.SummaryFilter) ([]model.DailySummary, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, filter.JobID)
	}
	if filter.Metric != "" {
		where = append(where, "metric = ?")
		args = append(args, filter.Metric)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.From != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT date, metric, source, value, aggregation, units, job_id, updated_at FROM daily_summaries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, metric, source`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]model.DailySummary, 0)
	for rows.Next() {
		var s model.DailySummary
		if err := rows.Scan(&s.Date, &s.Metric, &s.Device, &s.Value, &s.Aggregation, &s.Units, &s.JobID, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
