package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Minute},
		{"15s", 15 * time.Second},
		{"garbage", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		if got := ParseDuration(tt.in, time.Minute); got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("ShortID = %q", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID = %q", got)
	}
}

func TestOutputManager_JobFiles(t *testing.T) {
	om := NewOutputManager(t.TempDir())

	dir, err := om.CreateJobOutputDir("job-1")
	if err != nil {
		t.Fatalf("CreateJobOutputDir: %v", err)
	}
	if got := om.JobFilePath("job-1", "../../"+SummaryFileName); got != filepath.Join(dir, SummaryFileName) {
		t.Errorf("JobFilePath must stay inside the job dir, got %s", got)
	}

	for _, name := range []string{SummaryFileName, PayloadFileName, ".tmp-partial"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := om.ListJobFiles("job-1")
	if err != nil {
		t.Fatalf("ListJobFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 visible files, got %+v", files)
	}
	if files[0].Name != SummaryFileName || files[0].Type != "csv" || files[0].Size != 1 {
		t.Errorf("unexpected first file: %+v", files[0])
	}
	if files[1].DownloadURL != "/api/v1/download/job-1/"+PayloadFileName {
		t.Errorf("download url = %s", files[1].DownloadURL)
	}
}

func TestOutputManager_ContentType(t *testing.T) {
	om := NewOutputManager("outputs")
	tests := map[string]string{
		"a.csv":  "text/csv; charset=utf-8",
		"b.JSON": "application/json",
		"c.bin":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := om.ContentType(name); got != want {
			t.Errorf("ContentType(%s) = %s, want %s", name, got, want)
		}
	}
}
