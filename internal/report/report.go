// Package report accumulates per-file compression outcomes into a JSON run
// report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/webpress/webpress/internal/utils/errs"
)

// Variant records one encoded output of a source file.
type Variant struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Quality     int     `json:"quality"`
	SizeBytes   int     `json:"size_bytes"`
	TargetBytes int     `json:"target_bytes"`
	TargetMet   bool    `json:"target_met"`
	Iterations  int     `json:"iterations"`
	HasAlpha    bool    `json:"has_alpha"`
	Reduction   float64 `json:"reduction_pct"`
	Hash        string  `json:"hash"`
}

// Entry records the outcome for one source file.
type Entry struct {
	Source        string    `json:"source"`
	OriginalBytes int64     `json:"original_bytes"`
	Variants      []Variant `json:"variants"`
}

// Stats aggregates the run.
type Stats struct {
	Files            int     `json:"files"`
	Outputs          int     `json:"outputs"`
	OriginalBytes    int64   `json:"original_bytes"`
	CompressedBytes  int64   `json:"compressed_bytes"`
	OverallReduction float64 `json:"overall_reduction_pct"`
}

// Report is the full JSON document for one run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Backend     string    `json:"backend"`
	Entries     []Entry   `json:"entries"`
	Stats       Stats     `json:"stats"`

	mu sync.Mutex
}

func New(backend string) *Report {
	return &Report{
		GeneratedAt: time.Now().UTC(),
		Backend:     backend,
	}
}

// Add appends an entry. Safe to call from concurrent workers.
func (r *Report) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, entry)
}

// ComputeStats fills the aggregate section from the collected entries.
func (r *Report) ComputeStats() {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Files: len(r.Entries)}
	for _, entry := range r.Entries {
		// Each variant competes against the same original, so the original
		// counts once per output when aggregating the reduction.
		for _, variant := range entry.Variants {
			stats.Outputs++
			stats.OriginalBytes += entry.OriginalBytes
			stats.CompressedBytes += int64(variant.SizeBytes)
		}
	}
	if stats.OriginalBytes > 0 {
		stats.OverallReduction = (1 - float64(stats.CompressedBytes)/float64(stats.OriginalBytes)) * 100
	}
	r.Stats = stats
}

// Write marshals the report to path as indented JSON.
func (r *Report) Write(path string) (err error) {
	r.ComputeStats()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer errs.Capture(&err, f.Close, "failed to close report file")

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ContentHash returns the hex xxhash64 of an encoded output, recorded per
// variant so report consumers can verify the written files.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
