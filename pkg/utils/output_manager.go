package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fixed file names inside a job's output directory
const (
	PayloadFileName   = "payload.json"
	FlattenedFileName = "payload_flattened.csv"
	SummaryFileName   = "daily_device_comparison.csv"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// OutputFile describes one file of a job's output directory
type OutputFile struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateJobOutputDir creates a UUID-based directory for a job's outputs
func (om *OutputManager) CreateJobOutputDir(jobID string) (string, error) {
	jobDir := filepath.Join(om.BaseOutputDir, filepath.Base(jobID))

	err := os.MkdirAll(jobDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create job output directory: %w", err)
	}

	return jobDir, nil
}

// JobFilePath returns the path of a file inside a job's directory without creating it
func (om *OutputManager) JobFilePath(jobID, fileName string) string {
	return filepath.Join(om.BaseOutputDir, filepath.Base(jobID), filepath.Base(fileName))
}

// GetDownloadURL generates a download URL for a file
func (om *OutputManager) GetDownloadURL(jobID, fileName string) string {
	cleanFileName := filepath.Base(fileName)
	return fmt.Sprintf("/api/v1/download/%s/%s", jobID, cleanFileName)
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// ContentType maps a file to its HTTP content type
func (om *OutputManager) ContentType(fileName string) string {
	switch om.GetFileType(fileName) {
	case "csv":
		return "text/csv; charset=utf-8"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// ListJobFiles returns the files of a job's output directory sorted by name
func (om *OutputManager) ListJobFiles(jobID string) ([]OutputFile, error) {
	entries, err := os.ReadDir(filepath.Join(om.BaseOutputDir, filepath.Base(jobID)))
	if err != nil {
		return nil, err
	}

	files := make([]OutputFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, OutputFile{
			Name:        entry.Name(),
			Type:        om.GetFileType(entry.Name()),
			Size:        info.Size(),
			DownloadURL: om.GetDownloadURL(jobID, entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}
