package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"health-export-pipeline/internal/model"
	"io"
	"os"
)

var (
	// ErrMissingInput is returned when the export document does not exist
	ErrMissingInput = errors.New("missing input")
	// ErrMalformedInput is returned when the export document is not valid structured data
	ErrMalformedInput = errors.New("malformed input")
)

// ------------------- Ingestion -------------------

// LoadPayload reads and decodes the export document at path
func LoadPayload(path string) (*model.Payload, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s not found", ErrMissingInput, path)
		}
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	payload, err := DecodePayload(raw)
	if err != nil {
		return nil, nil, err
	}
	return payload, raw, nil
}

// ReadPayload decodes an export document from a stream
func ReadPayload(r io.Reader) (*model.Payload, []byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	payload, err := DecodePayload(raw)
	if err != nil {
		return nil, nil, err
	}
	return payload, raw, nil
}

// DecodePayload parses raw JSON into a Payload. A document without
// data.metrics decodes to an empty payload; wrong shapes are malformed.
func DecodePayload(raw []byte) (*model.Payload, error) {
	var payload model.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return &payload, nil
}
