package pipeline

import (
	"health-export-pipeline/internal/model"
	"health-export-pipeline/internal/store"
	"time"

	"go.uber.org/zap"
)

// RunTracker records run progress in the run history, when one is configured
type RunTracker struct {
	JobID     string
	StartTime time.Time
	logger    *zap.Logger
	persist   bool
}

// NewRunTracker registers a pending run
func NewRunTracker(jobID string, paths Paths, logger *zap.Logger) *RunTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &RunTracker{
		JobID:     jobID,
		StartTime: time.Now(),
		logger:    logger,
		persist:   store.Enabled(),
	}

	if rt.persist {
		err := store.SaveRun(model.Run{
			ID:            jobID,
			InputPath:     paths.Input,
			FlattenedPath: paths.Flattened,
			SummaryPath:   paths.Summary,
		})
		rt.check("save run", err)
	}
	return rt
}

// Start marks the run as running
func (rt *RunTracker) Start() {
	if rt.persist {
		rt.check("update run status", store.UpdateRunStatus(rt.JobID, model.RunRunning))
	}
}

// Complete records a finished run and stamps its duration on the report
func (rt *RunTracker) Complete(report *model.RunReport) {
	report.Duration = time.Since(rt.StartTime)
	if rt.persist {
		rt.check("complete run", store.CompleteRun(report))
	}
}

// RecordSummaries upserts the run's daily summary rows into the history
func (rt *RunTracker) RecordSummaries(rows []model.SummaryRow) {
	if !rt.persist || len(rows) == 0 {
		return
	}
	if err := store.SaveDailySummaries(rt.JobID, rows); err != nil {
		rt.check("save daily summaries", err)
		return
	}
	rt.logger.Info("🗄️ Daily summaries stored", zap.String("job_id", rt.JobID), zap.Int("rows", len(rows)))
}

// Fail records a failed run
func (rt *RunTracker) Fail(err error) {
	if rt.persist {
		rt.check("save run error", store.SaveRunError(rt.JobID, err))
	}
}

// run history is best effort; a store failure never fails the conversion
func (rt *RunTracker) check(op string, err error) {
	if err != nil {
		rt.logger.Warn("⚠️ Run history update failed",
			zap.String("job_id", rt.JobID),
			zap.String("op", op),
			zap.Error(err))
	}
}
