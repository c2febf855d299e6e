package reconcile

import (
	"fmt"
	"sync"
	"time"
)

// RunOutcome accumulates entry results. It is safe for concurrent use.
// Results are stored by plan index, so the finished report follows
// enumeration order no matter which worker finished first.
type RunOutcome struct {
	mu      sync.Mutex
	results []Result
	done    []bool
	sealed  bool
}

// NewRunOutcome creates an accumulator for n entries, all Pending.
func NewRunOutcome(n int) *RunOutcome {
	return &RunOutcome{
		results: make([]Result, n),
		done:    make([]bool, n),
	}
}

// Record stores the terminal result of one entry.
func (o *RunOutcome) Record(res Result) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sealed {
		return fmt.Errorf("record %d: outcome is finalized", res.Index)
	}
	if res.Index < 0 || res.Index >= len(o.results) {
		return fmt.Errorf("record %d: index out of range [0,%d)", res.Index, len(o.results))
	}
	if o.done[res.Index] {
		return fmt.Errorf("record %d: %w", res.Index, ErrAlreadyRecorded)
	}
	if res.Status == StatusPending || res.Status == "" {
		return fmt.Errorf("record %d: status %q is not terminal", res.Index, res.Status)
	}
	o.results[res.Index] = res
	o.done[res.Index] = true
	return nil
}

// Pending returns the number of entries without a terminal state.
func (o *RunOutcome) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, d := range o.done {
		if !d {
			n++
		}
	}
	return n
}

// Finalize seals the outcome and builds the report. Entries that never
// reached a terminal state are reported as failed.
func (o *RunOutcome) Finalize(meta ReportMeta) *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sealed = true

	r := &Report{
		RunID:      meta.RunID,
		Mode:       meta.Mode,
		Total:      len(o.results),
		TotalBytes: meta.TotalBytes,
		Duration:   meta.Duration,
	}
	for i, res := range o.results {
		if !o.done[i] {
			res = Result{Index: i, Status: StatusFailed, Err: fmt.Errorf("entry %d was never executed", i)}
		}
		r.add(res)
	}
	return r
}

// ReportMeta carries run-level information into the report.
type ReportMeta struct {
	RunID      string
	Mode       string
	TotalBytes int64
	Duration   time.Duration
}
