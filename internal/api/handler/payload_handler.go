package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"health-export-pipeline/internal/model"
	"health-export-pipeline/internal/pipeline"
	"health-export-pipeline/internal/store"
	"health-export-pipeline/pkg/utils"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPayloadBytes caps the size of an uploaded export
const MaxPayloadBytes = 64 << 20

// PayloadHandler serves export capture, run history and output downloads
type PayloadHandler struct {
	Outputs *utils.OutputManager
	UseCRLF bool
	Logger  *zap.Logger
}

// NewPayloadHandler creates a handler writing run outputs under outputDir
func NewPayloadHandler(outputDir string, useCRLF bool, logger *zap.Logger) *PayloadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayloadHandler{
		Outputs: utils.NewOutputManager(outputDir),
		UseCRLF: useCRLF,
		Logger:  logger,
	}
}

// CreatePayload captures a health export and converts it
// @Summary Capture and convert a health export
// @Description Store a health export, convert it and return the run report
// @Tags payloads
// @Accept json
// @Produce json
// @Param payload body object true "Health export document"
// @Success 200 {object} map[string]interface{} "Run report"
// @Failure 400 {object} map[string]interface{} "Malformed export document"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /payloads [post]
func (h *PayloadHandler) CreatePayload(w http.ResponseWriter, r *http.Request) {
	payload, raw, err := pipeline.ReadPayload(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export payload", err)
		return
	}

	jobID := uuid.New().String()
	logger := h.Logger.With(zap.String("job_id", jobID))

	if store.Enabled() {
		if err := store.SaveRawPayload(jobID, raw); err != nil {
			logger.Error("❌ Failed to store raw payload", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to store payload", err)
			return
		}
	}

	jobDir, err := h.Outputs.CreateJobOutputDir(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prepare outputs", err)
		return
	}
	paths := pipeline.Paths{
		Input:     h.Outputs.JobFilePath(jobID, utils.PayloadFileName),
		Flattened: h.Outputs.JobFilePath(jobID, utils.FlattenedFileName),
		Summary:   h.Outputs.JobFilePath(jobID, utils.SummaryFileName),
	}
	if err := os.WriteFile(paths.Input, raw, 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payload", err)
		return
	}
	logger.Info("📥 Payload captured", zap.String("dir", jobDir), zap.Int("bytes", len(raw)))

	report, err := pipeline.RunPayload(r.Context(), jobID, payload, paths, pipeline.Options{
		UseCRLF: h.UseCRLF,
		Logger:  logger,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Conversion failed", err)
		return
	}

	files, err := h.Outputs.ListJobFiles(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list outputs", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Payload converted successfully!",
		"jobID":     jobID,
		"report":    report,
		"files":     files,
		"createdAt": time.Now().UTC(),
	})
}

// ListRuns retrieves all conversion runs
// @Summary List conversion runs
// @Tags runs
// @Produce json
// @Success 200 {array} model.Run "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *PayloadHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !store.Enabled() {
		writeJSON(w, http.StatusOK, []model.Run{})
		return
	}

	runs, err := store.ListRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one conversion run
// @Summary Get a conversion run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.Run "Run"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *PayloadHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) != 4 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	runID := parts[3]

	if !store.Enabled() {
		http.Error(w, "Run history is disabled", http.StatusNotFound)
		return
	}

	run, err := store.GetRun(runID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunFiles lists the output files of a run
// @Summary List output files of a run
// @Tags files
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Files"
// @Failure 404 {object} map[string]interface{} "Run has no files"
// @Router /runs/{id}/files [get]
func (h *PayloadHandler) GetRunFiles(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) != 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	jobID := parts[3]

	files, err := h.Outputs.ListJobFiles(jobID)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Run has no files", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve files", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"files":  files,
		"count":  len(files),
	})
}

// GetRunPayload returns the export document a run was created from
// @Summary Get the stored export of a run
// @Tags payloads
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Export document"
// @Failure 404 {object} map[string]interface{} "Payload not found"
// @Router /runs/{id}/payload [get]
func (h *PayloadHandler) GetRunPayload(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) != 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	if !store.Enabled() {
		http.Error(w, "Run history is disabled", http.StatusNotFound)
		return
	}

	raw, err := store.GetRawPayload(parts[3])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Payload not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve payload", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// GetRunSummary lists the stored daily summaries last written by a run
// @Summary Get the daily summaries of a run
// @Tags summaries
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.DailySummary "Daily summaries"
// @Router /runs/{id}/summary [get]
func (h *PayloadHandler) GetRunSummary(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) != 5 {
		http.Error(w, "Invalid URL format", http.StatusBadRequest)
		return
	}
	h.writeSummaries(w, model.SummaryFilter{JobID: parts[3]})
}

// ListSummaries lists stored daily summaries across runs
// @Summary List daily summaries
// @Tags summaries
// @Produce json
// @Param metric query string false "Metric name"
// @Param source query string false "Source device"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {array} model.DailySummary "Daily summaries"
// @Failure 400 {object} map[string]interface{} "Invalid date"
// @Router /summaries [get]
func (h *PayloadHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.SummaryFilter{
		Metric: q.Get("metric"),
		Source: q.Get("source"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
	}
	h.writeSummaries(w, filter)
}

func (h *PayloadHandler) writeSummaries(w http.ResponseWriter, filter model.SummaryFilter) {
	if !store.Enabled() {
		writeJSON(w, http.StatusOK, []model.DailySummary{})
		return
	}

	summaries, err := store.ListDailySummaries(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// DownloadFile serves a file for download
// @Summary Download an output file
// @Tags files
// @Produce application/octet-stream
// @Param jobID path string true "Job ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{jobID}/{filename} [get]
func (h *PayloadHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	// URL format: /api/v1/download/jobID/filename
	parts := pathParts(r.URL.Path)
	if len(parts) != 5 {
		http.Error(w, fmt.Sprintf("Invalid URL format. Expected 5 parts, got %d", len(parts)), http.StatusBadRequest)
		return
	}
	jobID, fileName := parts[3], parts[4]

	filePath := h.Outputs.JobFilePath(jobID, fileName)
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() || strings.HasPrefix(jobID, ".") || strings.HasPrefix(fileName, ".") {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	w.Header().Set("Content-Type", h.Outputs.ContentType(fileName))
	http.ServeFile(w, r, filePath)
}

func pathParts(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeJSON(w, status, map[string]interface{}{
		"error":   message,
		"details": err.Error(),
	})
}
