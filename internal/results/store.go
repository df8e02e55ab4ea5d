// Package results persists run records to an append-only CSV file and
// reads complete record sets back for aggregation. One Store owns one
// output file; writes are serialized, and readers only ever consume a
// closed, complete file.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/afsysbench/afbench/internal/runner"
)

var columns = []string{"timestamp", "stage", "input_file", "threads", "status", "duration_sec", "used_fallback", "run_id"}

// Store appends run records to a single CSV file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("results: create output dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Path returns the CSV file location.
func (s *Store) Path() string { return s.path }

// Append writes one record as a CSV row, emitting the header first on an
// empty file. Safe for concurrent use.
func (s *Store) Append(rec runner.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("results: open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("results: stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("results: write header: %w", err)
		}
	}
	row := []string{
		rec.Timestamp.Format(time.RFC3339),
		rec.Stage.String(),
		rec.InputID,
		strconv.Itoa(rec.Threads),
		string(rec.Status),
		strconv.FormatFloat(rec.DurationSeconds, 'f', 2, 64),
		strconv.FormatBool(rec.UsedFallbackMemory),
		rec.ID,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("results: write row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// ReadFile loads every record from a results CSV. Lines starting with '#'
// are comments and skipped.
func ReadFile(path string) ([]runner.RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("results: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses records from CSV content. The captured stdout/stderr of a run
// is not persisted, so loaded records carry empty output fields.
func Read(r io.Reader) ([]runner.RunRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("results: read: %w", err)
	}

	var kept []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(kept, "\n")))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("results: parse csv: %w", err)
	}

	idx, rows := headerIndex(rows)
	var records []runner.RunRecord
	for _, row := range rows {
		rec, err := parseRow(idx, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// headerIndex maps column names to positions from the header row, falling
// back to the canonical order for headerless files.
func headerIndex(rows [][]string) (map[string]int, [][]string) {
	idx := make(map[string]int, len(columns))
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == columns[0] {
		for i, name := range rows[0] {
			idx[name] = i
		}
		return idx, rows[1:]
	}
	for i, name := range columns {
		idx[name] = i
	}
	return idx, rows
}

func parseRow(idx map[string]int, row []string) (runner.RunRecord, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	stage, err := runner.ParseStage(field("stage"))
	if err != nil {
		return runner.RunRecord{}, fmt.Errorf("results: row for %q: %w", field("input_file"), err)
	}
	threads, err := strconv.Atoi(field("threads"))
	if err != nil {
		return runner.RunRecord{}, fmt.Errorf("results: bad thread count %q: %w", field("threads"), err)
	}
	duration, err := strconv.ParseFloat(field("duration_sec"), 64)
	if err != nil {
		return runner.RunRecord{}, fmt.Errorf("results: bad duration %q: %w", field("duration_sec"), err)
	}
	ts, err := time.Parse(time.RFC3339, field("timestamp"))
	if err != nil {
		return runner.RunRecord{}, fmt.Errorf("results: bad timestamp %q: %w", field("timestamp"), err)
	}
	fallback, _ := strconv.ParseBool(field("used_fallback"))

	return runner.RunRecord{
		ID:                 field("run_id"),
		InputID:            field("input_file"),
		Stage:              stage,
		Threads:            threads,
		DurationSeconds:    duration,
		Status:             runner.RunStatus(field("status")),
		UsedFallbackMemory: fallback,
		Timestamp:          ts,
	}, nil
}
