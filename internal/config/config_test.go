package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Input.Path != DefaultInputPath {
		t.Errorf("input = %q", cfg.Input.Path)
	}
	if cfg.Output.Flattened != DefaultFlattenedPath || cfg.Output.Summary != DefaultSummaryPath {
		t.Errorf("outputs = %+v", cfg.Output)
	}
	if !cfg.Output.CRLF {
		t.Errorf("CRLF should default to true")
	}
	if cfg.Store.Path != "" {
		t.Errorf("run history should be disabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HEALTHPIPE_INPUT_PATH", "/tmp/in.json")
	t.Setenv("HEALTHPIPE_LOG_LEVEL", "debug")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input.Path != "/tmp/in.json" {
		t.Errorf("input = %q", cfg.Input.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := "output:\n  summary: /tmp/summary.csv\n  crlf: false\nstore:\n  path: /tmp/runs.db\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(New(), file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Summary != "/tmp/summary.csv" || cfg.Output.CRLF {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Store.Path != "/tmp/runs.db" {
		t.Errorf("store = %q", cfg.Store.Path)
	}
	if cfg.Output.Flattened != DefaultFlattenedPath {
		t.Errorf("unset keys should keep defaults, got %q", cfg.Output.Flattened)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty input", func(c *Config) { c.Input.Path = "" }, "Path"},
		{"same output paths", func(c *Config) { c.Output.Summary = c.Output.Flattened }, "Flattened"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(New(), "")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}
}
