package reconcile

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// maxKeyColumn caps the padded key column. Longer keys overflow it.
const maxKeyColumn = 64

// Failure is one failed entry of a run.
type Failure struct {
	Key    string `json:"key"`
	Target string `json:"target,omitempty"`
	Action Action `json:"action,omitempty"`
	Error  string `json:"error"`
}

// Report is the reconciliation summary of one run. For a given plan it is
// fully deterministic: key lists follow plan order.
type Report struct {
	RunID string `json:"run_id"`
	Mode  string `json:"mode"`

	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	SucceededKeys []string  `json:"succeeded_keys"`
	SkippedKeys   []string  `json:"skipped_keys"`
	Failures      []Failure `json:"failures"`

	TotalBytes       int64 `json:"total_bytes"`
	TransferredBytes int64 `json:"transferred_bytes"`
	BytesBefore      int64 `json:"bytes_before,omitempty"`
	BytesAfter       int64 `json:"bytes_after,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the run finished without a single failed entry.
func (r *Report) OK() bool {
	return r.Failed == 0
}

func (r *Report) add(res Result) {
	switch res.Status {
	case StatusSucceeded:
		r.Succeeded++
		r.SucceededKeys = append(r.SucceededKeys, res.SourceKey)
		r.TransferredBytes += res.Bytes
		r.BytesBefore += res.BytesBefore
		r.BytesAfter += res.BytesAfter
	case StatusSkipped:
		r.Skipped++
		r.SkippedKeys = append(r.SkippedKeys, res.SourceKey)
		// A skipped rewrite still reports the size it measured.
		r.BytesBefore += res.BytesBefore
		r.BytesAfter += res.BytesAfter
	default:
		r.Failed++
		msg := "unknown error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{
			Key:    res.SourceKey,
			Target: res.TargetKey,
			Action: res.Action,
			Error:  msg,
		})
	}
}

// Render writes the human-readable summary of r.
func Render(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s (%s) finished in %s\n", r.RunID, r.Mode, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  total %d, succeeded %d, skipped %d, failed %d\n", r.Total, r.Succeeded, r.Skipped, r.Failed)
	fmt.Fprintf(&b, "  transferred %s of %s\n", humanize.IBytes(uint64(r.TransferredBytes)), humanize.IBytes(uint64(r.TotalBytes)))
	if r.BytesBefore > 0 {
		fmt.Fprintf(&b, "  size %s -> %s\n", humanize.IBytes(uint64(r.BytesBefore)), humanize.IBytes(uint64(r.BytesAfter)))
	}

	writeKeys(&b, "succeeded", r.SucceededKeys)
	writeKeys(&b, "skipped", r.SkippedKeys)

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\nfailed (%d):\n", len(r.Failures))
		keys := make([]string, len(r.Failures))
		for i, f := range r.Failures {
			keys[i] = f.Key
		}
		width := columnWidth(keys)
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  %s  %s\n", runewidth.FillRight(f.Key, width), f.Error)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderPlan writes the preview of a plan: one aligned line per entry.
func RenderPlan(w io.Writer, plan *SyncPlan) error {
	var b strings.Builder

	counts := plan.Counts()
	fmt.Fprintf(&b, "plan %s: %d entries, %s\n", plan.Mode, len(plan.Entries), humanize.IBytes(uint64(plan.TotalBytes())))
	actions := make([]string, 0, len(counts))
	for a := range counts {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Fprintf(&b, "  %-14s %d\n", a, counts[a])
	}
	if len(plan.Entries) == 0 {
		_, err := io.WriteString(w, b.String())
		return err
	}

	keys := make([]string, len(plan.Entries))
	for i, e := range plan.Entries {
		keys[i] = e.SourceKey
	}
	width := columnWidth(keys)

	b.WriteString("\n")
	for _, e := range plan.Entries {
		action := string(e.Action)
		reason := e.Reason
		if e.Err != nil {
			action = "error"
			reason = e.Err.Error()
		}
		target := ""
		if e.TargetKey != e.SourceKey {
			target = "-> " + e.TargetKey
		}
		fmt.Fprintf(&b, "  %-14s %s  %9s  %s", action, runewidth.FillRight(e.SourceKey, width), humanize.IBytes(uint64(e.Size)), target)
		if reason != "" {
			if target != "" {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "(%s)", reason)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeKeys(b *strings.Builder, title string, keys []string) {
	if len(keys) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(keys))
	for _, k := range keys {
		fmt.Fprintf(b, "  %s\n", k)
	}
}

// columnWidth is the display width of the widest key, capped at maxKeyColumn.
// Display width counts CJK characters as two cells.
func columnWidth(keys []string) int {
	width := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > width {
			width = w
		}
	}
	if width > maxKeyColumn {
		width = maxKeyColumn
	}
	return width
}
