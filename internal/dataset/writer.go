package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Snapshot is the YAML document layout
type Snapshot struct {
	ExportedAt string           `yaml:"exportedat"`
	Count      int              `yaml:"count"`
	Records    []SnapshotRecord `yaml:"records"`
}

// Write stores records at path in the format implied by its extension
func Write(path string, records []SnapshotRecord) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatParquet:
		err = writeParquet(path, records)
	case FormatYAML:
		err = writeYAML(path, records)
	default:
		err = writeJSONL(path, records)
	}
	if err != nil {
		return err
	}

	slog.Info("Wrote snapshot", "path", path, "format", format, "records", len(records))
	return nil
}

func writeJSONL(path string, records []SnapshotRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", r.ID, err)
		}
	}
	return file.Close()
}

func writeParquet(path string, records []SnapshotRecord) error {
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

func writeYAML(path string, records []SnapshotRecord) error {
	snap := Snapshot{
		ExportedAt: time.Now().Format("2006-01-02_15-04-05"),
		Count:      len(records),
		Records:    records,
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}
