// Package record defines the measurement record written for every
// iteration of every test, and the append-mode CSV writer that accumulates
// them across an entire run.
package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Record is one row: one cooperative window (or one whole-process run, in
// Process mode) of one test, with every optional bundle column it was
// configured to collect. Unset optional columns are written as the empty
// string, matching the original CSV's sparse-column convention for hosts
// that don't expose every counter.
type Record struct {
	Language  string
	Scenario  string
	Test      string
	Niceness  int
	Affinity  string
	Mode      string
	Iteration int

	TimeUs float64

	// RAPL energy, Joules. Zero value vs "not collected" is disambiguated
	// by Collected.
	Pkg, Cores, GPU, RAM, Psys float64

	Cycles float64

	L1DMisses, L1IMisses, LLCMisses, BranchMisses float64

	CStateCoreResidency map[string]float64
	CStatePkgResidency  map[string]float64

	Collected map[string]bool

	// EndedUsEpoch is the wall-clock time, in microseconds since the Unix
	// epoch, at which this iteration's measurement window was read. It is
	// always populated (never optional) and is strictly non-decreasing
	// across iterations of the same (language, scenario, test) triple.
	EndedUsEpoch int64
}

var baseColumns = []string{
	"language", "scenario", "test", "niceness", "affinity", "mode", "iteration",
	"time",
	"pkg", "cores", "gpu", "ram", "psys",
	"cycles",
	"l1d_misses", "l1i_misses", "llc_misses", "branch_misses",
	"ended_us_epoch",
}

func (r *Record) col(name string, v float64) string {
	if !r.Collected[name] {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Row renders the fixed columns plus one cell per entry of cstateColumns,
// in the order given (blank when this record has no value for it), followed
// by ended_us_epoch. cstateColumns must be passed in (and kept identical) across every row of
// a run so the CSV stays rectangular even though different hosts expose
// different residency counters.
func (r *Record) Row(cstateColumns []string) []string {
	row := make([]string, 0, len(baseColumns)+len(cstateColumns))
	row = append(row,
		r.Language, r.Scenario, r.Test,
		strconv.Itoa(r.Niceness), r.Affinity, r.Mode, strconv.Itoa(r.Iteration),
		r.col("time", r.TimeUs),
		r.col("pkg", r.Pkg), r.col("cores", r.Cores), r.col("gpu", r.GPU), r.col("ram", r.RAM), r.col("psys", r.Psys),
		r.col("cycles", r.Cycles),
		r.col("l1d_misses", r.L1DMisses), r.col("l1i_misses", r.L1IMisses),
		r.col("llc_misses", r.LLCMisses), r.col("branch_misses", r.BranchMisses),
	)
	for _, c := range cstateColumns {
		if v, ok := r.CStateCoreResidency[c]; ok {
			row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
		} else if v, ok := r.CStatePkgResidency[c]; ok {
			row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
		} else {
			row = append(row, "")
		}
	}
	row = append(row, strconv.FormatInt(r.EndedUsEpoch, 10))
	return row
}

// Writer appends records to a CSV file, writing the header only the first
// time the file is created (matching the original append-across-runs CSV
// convention: re-running a measurement suite accumulates, it doesn't
// overwrite).
type Writer struct {
	f             *os.File
	w             *csv.Writer
	cstateColumns []string
}

// NewWriter opens path for appending, creating it and writing the header
// row if it doesn't already exist. cstateColumns fixes the set of residency
// columns for this run (the union of what every configured CState bundle
// can report) so the header is known before the first row.
func NewWriter(path string, cstateColumns []string) (*Writer, error) {
	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	wr := &Writer{f: f, w: w, cstateColumns: cstateColumns}

	if !existed {
		header := append(append([]string{}, baseColumns[:len(baseColumns)-1]...), cstateColumns...)
		header = append(header, "ended_us_epoch")
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("record: write header: %w", err)
		}
		w.Flush()
	}
	return wr, nil
}

// Write appends one record and flushes immediately, so a run killed
// mid-measurement leaves every completed row intact on disk.
func (w *Writer) Write(r *Record) error {
	if err := w.w.Write(r.Row(w.cstateColumns)); err != nil {
		return fmt.Errorf("record: write row: %w", err)
	}
	w.w.Flush()
	return w.w.Error()
}

func (w *Writer) Close() error { return w.f.Close() }
