package utils

import (
	"time"
)

// ParseDuration safely parses duration string like "15s", falling back on error
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

// ShortID returns the first 8 characters of an ID for log lines and file names
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
