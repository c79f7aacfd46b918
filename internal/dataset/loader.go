// Package dataset reads and writes snapshots of the record cache as JSONL,
// Parquet or YAML files.
package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot file format, chosen by file extension
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
	FormatYAML    Format = "yaml"
)

// DetectFormat maps a file extension to a Format
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return FormatParquet, nil
	case ".jsonl", ".json":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl, .yaml)", ext)
	}
}

// Loader reads snapshot files
type Loader struct {
	path string
}

// NewLoader creates a loader for the snapshot at path
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every record in the snapshot
func (l *Loader) Load() ([]SnapshotRecord, error) {
	return l.LoadSample(-1)
}

// LoadSample reads at most limit records; limit < 0 reads all
func (l *Loader) LoadSample(limit int) ([]SnapshotRecord, error) {
	format, err := DetectFormat(l.path)
	if err != nil {
		return nil, err
	}

	var records []SnapshotRecord
	switch format {
	case FormatParquet:
		records, err = l.loadParquet(limit)
	case FormatYAML:
		records, err = l.loadYAML()
	default:
		records, err = l.loadJSONL(limit)
	}
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (l *Loader) loadJSONL(limit int) ([]SnapshotRecord, error) {
	slog.Debug("Opening JSONL file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	records := []SnapshotRecord{}
	scanner := bufio.NewScanner(file)

	// Descriptions can be long; allow 1MB per line
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit >= 0 && len(records) >= limit {
			break
		}
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record SnapshotRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)
	return records, nil
}

func (l *Loader) loadParquet(limit int) ([]SnapshotRecord, error) {
	slog.Debug("Opening Parquet file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[SnapshotRecord](pf)
	defer reader.Close()

	records, err := readRows(reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records))
	return records, nil
}

type rowReader interface {
	Read(rows []SnapshotRecord) (int, error)
}

// readRows drains r until io.EOF or until limit rows are read (limit < 0 reads all)
func readRows(r rowReader, limit int) ([]SnapshotRecord, error) {
	records := []SnapshotRecord{}
	rows := make([]SnapshotRecord, 128)

	for limit < 0 || len(records) < limit {
		n, err := r.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (l *Loader) loadYAML() ([]SnapshotRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse YAML snapshot: %w", err)
	}
	if snap.Records == nil {
		snap.Records = []SnapshotRecord{}
	}
	return snap.Records, nil
}
