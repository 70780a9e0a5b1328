package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "payload.json")
	payload := `{"data":{"metrics":[{"name":"step_count","units":"count","data":[
		{"date":"2024-01-01","source":"Phone","qty":10},
		{"date":"2024-01-01","source":"Phone","qty":5},
		{"date":"2024-01-01","source":"Phone"}
	]}]}}`
	if err := os.WriteFile(input, []byte(payload), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	flattened := filepath.Join(dir, "flat.csv")
	summary := filepath.Join(dir, "summary.csv")

	stdout, stderr, err := runCommand(t,
		"--input", input,
		"--flattened", flattened,
		"--summary", summary,
		"--log-level", "error",
		"--store", filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("Execute: %v (stderr: %s)", err, stderr)
	}

	if !strings.Contains(stdout, "Successfully converted 3 data points to "+flattened) {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "Successfully created daily summary: "+summary) {
		t.Errorf("stdout = %q", stdout)
	}

	if !strings.Contains(stdout, "recorded in "+filepath.Join(dir, "runs.db")) {
		t.Errorf("stdout = %q", stdout)
	}

	got, _ := os.ReadFile(summary)
	want := "Date,Metric,Device,Value,Aggregation\r\n2024-01-01,step_count,Phone,15.0,Total (Sum)\r\n"
	if string(got) != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestConvert_MissingInput(t *testing.T) {
	dir := t.TempDir()
	flattened := filepath.Join(dir, "flat.csv")

	_, stderr, err := runCommand(t,
		"--input", filepath.Join(dir, "absent.json"),
		"--flattened", flattened,
		"--summary", filepath.Join(dir, "summary.csv"),
		"--log-level", "error")
	if err == nil {
		t.Fatalf("expected an error for missing input")
	}
	if !strings.Contains(stderr, "missing input") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(flattened); !os.IsNotExist(err) {
		t.Errorf("no output should be written")
	}
}

func TestConvert_RejectsArguments(t *testing.T) {
	if _, _, err := runCommand(t, "unexpected"); err == nil {
		t.Fatalf("positional arguments should be rejected")
	}
}
