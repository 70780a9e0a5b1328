package model

import "time"

// Run statuses
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is the persisted record of a conversion
type Run struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	InputPath       string    `json:"input_path"`
	FlattenedPath   string    `json:"flattened_path"`
	SummaryPath     string    `json:"summary_path"`
	FlattenedRows   int       `json:"flattened_rows"`
	SummaryRows     int       `json:"summary_rows"`
	SkippedReadings int       `json:"skipped_readings"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
