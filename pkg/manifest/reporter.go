// Package manifest tracks per-symbol download outcomes and writes the run's
// manifest.csv and failed.csv reports. The reporter is safe for concurrent
// use by fetch workers.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Status is the final outcome recorded for one symbol.
type Status string

const (
	// StatusSuccess means data was fetched and written.
	StatusSuccess Status = "SUCCESS"
	// StatusSkipped means an output file already existed and the symbol was
	// not re-fetched.
	StatusSkipped Status = "SKIPPED"
	// StatusEmpty means the provider answered but returned zero rows. Nothing
	// was written; the symbol also appears in failed.csv so a later run can
	// retry it.
	StatusEmpty Status = "EMPTY"
	// StatusFailed means all attempts were exhausted without data.
	StatusFailed Status = "FAILED"
)

// Record is one symbol's outcome.
type Record struct {
	Symbol    string
	Status    Status
	Rows      int
	Detail    string
	Timestamp time.Time
}

// Reporter collects records in completion order. Recording the same symbol
// twice replaces the earlier record in place, so a retry within one run does
// not produce duplicate manifest lines.
type Reporter struct {
	mu      sync.Mutex
	records []Record
	index   map[string]int
	now     func() time.Time
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Record stores the outcome for a symbol, stamping it with the current time.
func (r *Reporter) Record(symbol string, status Status, rows int, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{
		Symbol:    symbol,
		Status:    status,
		Rows:      rows,
		Detail:    detail,
		Timestamp: r.now(),
	}
	if i, ok := r.index[symbol]; ok {
		r.records[i] = rec
		return
	}
	r.index[symbol] = len(r.records)
	r.records = append(r.records, rec)
}

// Records returns a copy of all records in insertion order.
func (r *Reporter) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Summary counts records by status.
func (r *Reporter) Summary() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := make(map[Status]int)
	for _, rec := range r.records {
		summary[rec.Status]++
	}
	return summary
}

// WriteManifest writes every record to <dir>/manifest.csv. A run with no
// symbols still produces a file with the header row.
func (r *Reporter) WriteManifest(dir string) error {
	return r.write(filepath.Join(dir, "manifest.csv"), func(Record) bool { return true })
}

// WriteFailed writes the symbols that need another run (FAILED and EMPTY) to
// <dir>/failed.csv, preserving their full manifest rows.
func (r *Reporter) WriteFailed(dir string) error {
	return r.write(filepath.Join(dir, "failed.csv"), func(rec Record) bool {
		return rec.Status == StatusFailed || rec.Status == StatusEmpty
	})
}

func (r *Reporter) write(path string, keep func(Record) bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("manifest: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"symbol", "status", "rows", "detail", "timestamp"}); err != nil {
		return fmt.Errorf("manifest: write header: %w", err)
	}
	for _, rec := range r.Records() {
		if !keep(rec) {
			continue
		}
		row := []string{
			rec.Symbol,
			string(rec.Status),
			strconv.Itoa(rec.Rows),
			rec.Detail,
			rec.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("manifest: write row for %s: %w", rec.Symbol, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("manifest: flush %s: %w", path, err)
	}
	return f.Close()
}
