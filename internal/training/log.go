// ABOUTME: Append-only CSV log of training runs: date, model, rmse, artifact path.
// ABOUTME: The header is written only when the file is created.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const logDateLayout = "2006-01-02"

var logHeader = []string{"date", "model", "rmse", "path"}

// LogEntry is one metrics log row.
type LogEntry struct {
	Date  time.Time `json:"date"`
	Model string    `json:"model"`
	RMSE  float64   `json:"rmse"`
	Path  string    `json:"path"`
}

// MetricsLog is the CSV file at Path.
type MetricsLog struct {
	Path string
}

// Append adds e, creating the file and its directory when absent. An
// empty file gets the header first.
func (l MetricsLog) Append(e LogEntry) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open metrics log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat metrics log: %w", err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(logHeader); err != nil {
			_ = file.Close()
			return fmt.Errorf("write metrics log header: %w", err)
		}
	}
	if err := w.Write([]string{
		e.Date.Format(logDateLayout),
		e.Model,
		strconv.FormatFloat(e.RMSE, 'f', -1, 64),
		e.Path,
	}); err != nil {
		_ = file.Close()
		return fmt.Errorf("write metrics log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("write metrics log: %w", err)
	}
	return file.Close()
}

// Entries returns every logged row in file order. A missing file has none.
func (l MetricsLog) Entries() ([]LogEntry, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open metrics log: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	var entries []LogEntry
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metrics log line %d: %w", line, err)
		}
		if line == 1 && len(record) > 0 && record[0] == logHeader[0] {
			continue
		}
		if len(record) < len(logHeader) {
			return nil, fmt.Errorf("metrics log line %d: want %d fields, got %d", line, len(logHeader), len(record))
		}
		day, err := time.Parse(logDateLayout, record[0])
		if err != nil {
			return nil, fmt.Errorf("metrics log line %d: %w", line, err)
		}
		rmse, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("metrics log line %d: %w", line, err)
		}
		entries = append(entries, LogEntry{Date: day, Model: record[1], RMSE: rmse, Path: record[3]})
	}
	return entries, nil
}

// LastDate returns the latest logged date, or ok=false when the log is
// missing or has no rows.
func (l MetricsLog) LastDate() (time.Time, bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return time.Time{}, false, err
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}
	last := entries[0].Date
	for _, e := range entries[1:] {
		if e.Date.After(last) {
			last = e.Date
		}
	}
	return last, true, nil
}
