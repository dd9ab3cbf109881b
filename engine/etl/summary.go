package etl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReaderStats is the reader's owner-local half of a stage summary. The
// reader goroutine builds this value itself and returns it on exit; it is
// never mutated by any other goroutine (SPEC_FULL.md §9, "shared summary
// map").
type ReaderStats struct {
	InputRecords int `json:"input_records"`
	InputLines   int `json:"input_lines,omitempty"`
}

// WriterStats is the writer's owner-local half of a stage summary.
type WriterStats struct {
	OutputBatches int `json:"output_batches"`
	OutputRecords int `json:"output_records"`
}

// Summary is the structured run record written atomically to a stage's
// summary path on successful completion (spec §3, §4.6 step 9). Its mere
// presence on disk is the stage's idempotency witness (P4).
type Summary struct {
	Source map[string]any `json:"source"`
	ReaderStats
	WriterStats
	WallTimeSeconds      float64 `json:"wall_time_seconds"`
	ObservedRate         float64 `json:"observed_rate"`
	EstimatedTotalSeconds float64 `json:"estimated_total_seconds,omitempty"`
}

// merge combines the two owner-local halves and the derived statistics of
// §4.6 step 8 into one Summary. It is called exactly once, after both the
// reader and writer goroutines have exited, so no lock is needed — this is
// the "two separate owner-local records merged at stage join" design from
// SPEC_FULL.md §9.
func merge(source map[string]any, r ReaderStats, w WriterStats, wallTime time.Duration, knownCorpusSize int) Summary {
	s := Summary{
		Source:      source,
		ReaderStats: r,
		WriterStats: w,
	}
	wt := wallTime.Seconds()
	s.WallTimeSeconds = wt
	if wt > 0 && r.InputRecords > 0 {
		s.ObservedRate = float64(r.InputRecords) / wt
	}
	if s.ObservedRate > 0 && knownCorpusSize > 0 {
		s.EstimatedTotalSeconds = float64(knownCorpusSize) / s.ObservedRate
	}
	return s
}

// WriteAtomically serializes the summary to path by writing to a temp file
// in the same directory and renaming over the target, so a reader never
// observes a partially written summary file (spec §4.6 step 9 / P4).
func (s Summary) WriteAtomically(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("etl: marshal summary: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("etl: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("etl: create temp summary: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("etl: write temp summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("etl: close temp summary: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("etl: rename temp summary: %w", err)
	}
	return nil
}

// LoadSummary reads a previously written summary file.
func LoadSummary(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("etl: unmarshal summary %s: %w", path, err)
	}
	return s, nil
}

// Exists reports whether a summary file is present — the idempotency
// witness consulted by the Pipeline Driver.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
