package handler

import (
	"encoding/json"
	"health-export-pipeline/internal/model"
	"health-export-pipeline/internal/store"
	"health-export-pipeline/pkg/router"
	"health-export-pipeline/pkg/utils"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

const samplePayload = `{"data":{"metrics":[
	{"name":"step_count","units":"count","data":[
		{"date":"2024-01-01 08:00:00 -0500","source":"Phone","qty":10},
		{"date":"2024-01-01 09:00:00 -0500","source":"Phone","qty":5}
	]},
	{"name":"heart_rate","units":"count/min","data":[
		{"date":"2024-01-01T08:00:00Z","source":"Watch","qty":60},
		{"date":"2024-01-01","source":"Watch","qty":80}
	]}
]}}`

func setupServer(t *testing.T) (*PayloadHandler, http.Handler) {
	t.Helper()
	if err := store.InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewPayloadHandler(t.TempDir(), false, nil)
	r := router.New(nil)
	r.POST("/api/v1/payloads", h.CreatePayload)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*/files", h.GetRunFiles)
	r.GET("/api/v1/runs/*/payload", h.GetRunPayload)
	r.GET("/api/v1/runs/*/summary", h.GetRunSummary)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/api/v1/summaries", h.ListSummaries)
	r.GET("/api/v1/download/*/*", h.DownloadFile)
	return h, r.Handler()
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func createRun(t *testing.T, srv http.Handler) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/v1/payloads", samplePayload)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: code = %d body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		JobID  string             `json:"jobID"`
		Report model.RunReport    `json:"report"`
		Files  []utils.OutputFile `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Report.FlattenedRows != 4 || resp.Report.SummaryRows != 2 || !resp.Report.SummaryCreated {
		t.Errorf("unexpected report: %+v", resp.Report)
	}
	if len(resp.Files) != 3 {
		t.Errorf("expected payload and two tables, got %+v", resp.Files)
	}
	return resp.JobID
}

func TestCreatePayload(t *testing.T) {
	_, srv := setupServer(t)
	jobID := createRun(t, srv)

	raw, err := store.GetRawPayload(jobID)
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if string(raw) != samplePayload {
		t.Errorf("raw payload not stored unchanged")
	}

	run, err := store.GetRun(jobID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != model.RunCompleted {
		t.Errorf("status = %s", run.Status)
	}
}

func TestCreatePayload_Malformed(t *testing.T) {
	_, srv := setupServer(t)

	rec := do(t, srv, http.MethodPost, "/api/v1/payloads", `{"data":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("malformed payload must not create a run")
	}
}

func TestDownloadFile(t *testing.T) {
	_, srv := setupServer(t)
	jobID := createRun(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/download/"+jobID+"/"+utils.SummaryFileName, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %s", ct)
	}
	want := "Date,Metric,Device,Value,Aggregation\n" +
		"2024-01-01,heart_rate,Watch,70.0,Average\n" +
		"2024-01-01,step_count,Phone,15.0,Total (Sum)\n"
	if rec.Body.String() != want {
		t.Errorf("summary = %q, want %q", rec.Body.String(), want)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/download/"+jobID+"/missing.csv", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file: code = %d, want 404", rec.Code)
	}
}

func TestRunEndpoints(t *testing.T) {
	_, srv := setupServer(t)
	jobID := createRun(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/runs", "")
	var runs []model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != jobID {
		t.Errorf("unexpected runs: %+v", runs)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/"+jobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: code = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown run: code = %d, want 404", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/"+jobID+"/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("files: code = %d", rec.Code)
	}
	var files struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &files)
	if files.Count != 3 {
		t.Errorf("file count = %d, want 3", files.Count)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/unknown/files", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown run files: code = %d, want 404", rec.Code)
	}
}

func TestGetRunPayload(t *testing.T) {
	_, srv := setupServer(t)
	jobID := createRun(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/runs/"+jobID+"/payload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if rec.Body.String() != samplePayload {
		t.Errorf("payload not returned unchanged")
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/unknown/payload", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown payload: code = %d, want 404", rec.Code)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	_, srv := setupServer(t)
	jobID := createRun(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/runs/"+jobID+"/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("run summary: code = %d", rec.Code)
	}
	var summaries []model.DailySummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %+v", summaries)
	}
	hr := summaries[0]
	if hr.Metric != "heart_rate" || hr.Device != "Watch" || hr.Value != 70 || hr.Units != "count/min" || hr.JobID != jobID {
		t.Errorf("unexpected heart rate summary: %+v", hr)
	}

	// a second capture of the same days replaces the stored rows
	secondID := createRun(t, srv)
	rec = do(t, srv, http.MethodGet, "/api/v1/summaries?metric=step_count", "")
	summaries = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Value != 15 || summaries[0].JobID != secondID {
		t.Errorf("unexpected step_count summaries: %+v", summaries)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/summaries?from=2024-01-02", "")
	summaries = nil
	json.Unmarshal(rec.Body.Bytes(), &summaries)
	if len(summaries) != 0 {
		t.Errorf("expected no summaries after 2024-01-02, got %+v", summaries)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/summaries?to=01/02/2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid date: code = %d, want 400", rec.Code)
	}
}
