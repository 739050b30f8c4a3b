package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// MetricsFileName is the metrics file written for a restore point.
func MetricsFileName(restoreFile string) string {
	return fmt.Sprintf("metrics_test_%s.json", restoreFile)
}

// TaggedFileName is the tagged-sentences dump written next to the model.
const TaggedFileName = "output_tagged_sentences.txt"

// SaveDictToJSON writes a metrics map as an indented json object.
func SaveDictToJSON(m map[string]float64, path string) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// LoadDictFromJSON reads a metrics file written by SaveDictToJSON.
func LoadDictFromJSON(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics %s: %w", path, err)
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metrics %s: %w", path, err)
	}
	return m, nil
}

// WriteTagged writes one tagged sentence per line, without a trailing newline.
func WriteTagged(path string, lines []string) error {
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write tagged sentences %s: %w", path, err)
	}
	return nil
}
