package reconcile

import (
	"context"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"asset-sync/core/storage"
)

// Options control how a plan is executed.
type Options struct {
	// Concurrency is the number of entries in flight. 1 (the default) runs
	// strictly sequentially in plan order.
	Concurrency int
	// ConfirmDelete allows delete entries to reach the store.
	ConfirmDelete bool
	// Headers are attached to every copy, upload and header update.
	Headers CacheHeaderSet
	// Logger receives one line per entry. Nil disables logging.
	Logger *zap.Logger
	// Progress receives the progress bar. Nil discards it.
	Progress io.Writer
	// RunID identifies the run in logs and in the report.
	RunID string
}

// Run executes every entry of plan exactly once and returns the report.
// Entry failures are recorded in the report and never abort the run; the
// returned error is reserved for misuse of the outcome accumulator.
func Run(ctx context.Context, store storage.Store, plan *SyncPlan, opts Options) (*Report, error) {
	started := time.Now()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	bar := NewProgressBar(opts.Progress, len(plan.Entries), plan.Mode)

	exec := &Executor{
		Store:         store,
		Headers:       opts.Headers,
		ConfirmDelete: opts.ConfirmDelete,
	}
	outcome := NewRunOutcome(len(plan.Entries))

	logger.Info("Starting run",
		zap.String("mode", plan.Mode),
		zap.Int("entries", len(plan.Entries)),
		zap.Int("concurrency", concurrency),
	)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, entry := range plan.Entries {
		g.Go(func() error {
			res := exec.Execute(ctx, entry)
			logResult(logger, res)
			_ = bar.Add(1)
			return outcome.Record(res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	_ = bar.Finish()

	report := outcome.Finalize(ReportMeta{
		RunID:      opts.RunID,
		Mode:       plan.Mode,
		TotalBytes: plan.TotalBytes(),
		Duration:   time.Since(started),
	})

	logger.Info("Run finished",
		zap.String("mode", report.Mode),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("transferred_bytes", report.TransferredBytes),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func logResult(logger *zap.Logger, res Result) {
	fields := []zap.Field{
		zap.Int("index", res.Index),
		zap.String("action", string(res.Action)),
		zap.String("source", res.SourceKey),
		zap.String("target", res.TargetKey),
	}
	switch res.Status {
	case StatusFailed:
		logger.Warn("Entry failed", append(fields, zap.Error(res.Err))...)
	case StatusSkipped:
		logger.Debug("Entry skipped", fields...)
	default:
		logger.Info("Entry done", append(fields, zap.Int64("bytes", res.Bytes))...)
	}
}

// NewProgressBar returns the bar a run draws on w, one step per plan entry.
// A nil w discards it.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}
