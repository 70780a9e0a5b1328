package pipeline

import (
	"context"
	"health-export-pipeline/internal/model"

	"go.uber.org/zap"
)

// Paths names the input document and the two output tables of a run
type Paths struct {
	Input     string
	Flattened string
	Summary   string
}

// Options tune how a run writes and reports
type Options struct {
	UseCRLF bool
	Logger  *zap.Logger
}

// Result is the in-memory outcome of processing one payload
type Result struct {
	Rows       []model.FlatRow
	Summary    []model.SummaryRow
	Aggregator *Aggregator
}

// Process flattens and aggregates a payload in a single pass over its readings
func Process(payload *model.Payload) *Result {
	rows := make([]model.FlatRow, 0, payload.ReadingCount())
	agg := NewAggregator()
	units := make(map[string]string)

	for _, metric := range payload.Data.Metrics {
		name := metric.MetricName()
		if _, ok := units[name]; !ok || units[name] == "" {
			units[name] = metric.Units.Text()
		}
		for _, reading := range metric.Readings {
			rows = append(rows, FlattenReading(metric, reading))
			agg.Add(name, reading)
		}
	}

	summary := agg.Summarize()
	for i := range summary {
		summary[i].Units = units[summary[i].Metric]
	}

	return &Result{
		Rows:       rows,
		Summary:    summary,
		Aggregator: agg,
	}
}

// ------------------- Pipeline Runner -------------------

// Run loads the export at paths.Input and writes both tables. Nothing is
// written when the input is missing or malformed.
func Run(ctx context.Context, jobID string, paths Paths, opts Options) (*model.RunReport, error) {
	logger := opts.logger()
	tracker := NewRunTracker(jobID, paths, logger)

	logger.Info("🚀 Starting conversion", zap.String("job_id", jobID), zap.String("input", paths.Input))
	payload, _, err := LoadPayload(paths.Input)
	if err != nil {
		logger.Error("❌ Failed to load export", zap.String("job_id", jobID), zap.Error(err))
		tracker.Fail(err)
		return nil, err
	}

	return runPayload(ctx, tracker, payload, paths, opts)
}

// RunPayload processes an already decoded export and writes both tables
func RunPayload(ctx context.Context, jobID string, payload *model.Payload, paths Paths, opts Options) (*model.RunReport, error) {
	tracker := NewRunTracker(jobID, paths, opts.logger())
	return runPayload(ctx, tracker, payload, paths, opts)
}

func runPayload(ctx context.Context, tracker *RunTracker, payload *model.Payload, paths Paths, opts Options) (report *model.RunReport, err error) {
	logger := opts.logger()
	jobID := tracker.JobID
	tracker.Start()

	defer func() {
		if err != nil {
			tracker.Fail(err)
		}
	}()

	result := Process(payload)
	logger.Info("🔄 Processed export",
		zap.String("job_id", jobID),
		zap.Int("metrics", len(payload.Data.Metrics)),
		zap.Int("readings", len(result.Rows)),
		zap.Int("groups", result.Aggregator.GroupCount()),
		zap.Any("skipped", result.Aggregator.Skipped()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report = &model.RunReport{
		JobID:         jobID,
		FlattenedRows: len(result.Rows),
		SummaryRows:   len(result.Summary),
		Contributions: result.Aggregator.Contributions(),
		Skipped:       result.Aggregator.Skipped(),
	}

	em := NewExportManager(jobID, opts.UseCRLF, logger)

	flat, err := em.ExportFlattened(paths.Flattened, result.Rows)
	if err != nil {
		return nil, err
	}
	report.FlattenedWritten = flat.Written
	report.Exports = append(report.Exports, flat)

	summary, err := em.ExportSummary(paths.Summary, result.Summary)
	if err != nil {
		return nil, err
	}
	report.SummaryCreated = summary.Written
	report.Exports = append(report.Exports, summary)
	tracker.RecordSummaries(result.Summary)

	tracker.Complete(report)
	logger.Info("🏁 Conversion completed",
		zap.String("job_id", jobID),
		zap.Int("flattened_rows", report.FlattenedRows),
		zap.Bool("summary_created", report.SummaryCreated),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
