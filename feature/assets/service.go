package assets

import (
	"io"
	"time"

	"asset-sync/core/config"
	"asset-sync/core/reconcile"
	"asset-sync/core/storage"

	"go.uber.org/zap"
)

// Service runs maintenance jobs against one bucket.
type Service struct {
	store      storage.Store
	logger     *zap.Logger
	cfg        *config.Config
	compressor Compressor
	progress   io.Writer
	runID      string
	now        func() time.Time
}

// Options are optional collaborators of the service.
type Options struct {
	// RunID tags the reports produced by the service.
	RunID string
	// Progress receives progress bars. Nil discards them.
	Progress io.Writer
	// Compressor rewrites PDFs. Defaults to Ghostscript.
	Compressor Compressor
}

// NewService creates a new maintenance service.
func NewService(store storage.Store, logger *zap.Logger, cfg *config.Config, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	compressor := opts.Compressor
	if compressor == nil {
		compressor = &Ghostscript{}
	}
	return &Service{
		store:      store,
		logger:     logger,
		cfg:        cfg,
		compressor: compressor,
		progress:   opts.Progress,
		runID:      opts.RunID,
		now:        time.Now,
	}
}

// RunFlags are shared by every job.
type RunFlags struct {
	// DryRun stops after planning.
	DryRun bool
	// Confirmed authorizes destructive steps.
	Confirmed bool
	// Includes and Excludes are glob patterns relative to the job's prefix.
	Includes []string
	Excludes []string
	// Concurrency overrides sync.concurrency when positive.
	Concurrency int
}

// Outcome is what a job produced. Report is nil for a dry run.
type Outcome struct {
	Plan   *reconcile.SyncPlan
	Report *reconcile.Report
	// CleanupPlan lists the source deletes of a merge with DeleteSource. On a
	// dry run it is a preview and Cleanup stays nil.
	CleanupPlan *reconcile.SyncPlan
	// Cleanup is the report of a follow-up delete pass, when one ran.
	Cleanup *reconcile.Report
}

// OK reports whether no entry of any executed pass failed.
func (o *Outcome) OK() bool {
	if o.Report != nil && !o.Report.OK() {
		return false
	}
	if o.Cleanup != nil && !o.Cleanup.OK() {
		return false
	}
	return true
}

func (s *Service) concurrency(f RunFlags) int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	if s.cfg.Sync.Concurrency > 0 {
		return s.cfg.Sync.Concurrency
	}
	return 1
}

func (s *Service) planOptions(f RunFlags) (reconcile.PlanOptions, error) {
	filter, err := reconcile.NewKeyFilter(f.Includes, f.Excludes)
	if err != nil {
		return reconcile.PlanOptions{}, err
	}
	return reconcile.PlanOptions{
		Filter:      filter,
		PageSize:    s.cfg.Sync.PageSize,
		Concurrency: s.concurrency(f),
	}, nil
}

func (s *Service) headers() reconcile.CacheHeaderSet {
	return s.cfg.Cache.Headers(s.now())
}

func (s *Service) runOptions(f RunFlags, confirmDelete bool) reconcile.Options {
	return reconcile.Options{
		Concurrency:   s.concurrency(f),
		ConfirmDelete: confirmDelete,
		Headers:       s.headers(),
		Logger:        s.logger,
		Progress:      s.progress,
		RunID:         s.runID,
	}
}

func (s *Service) logPlan(plan *reconcile.SyncPlan) {
	fields := []zap.Field{
		zap.String("mode", plan.Mode),
		zap.Int("entries", len(plan.Entries)),
		zap.Int64("bytes", plan.TotalBytes()),
	}
	for action, n := range plan.Counts() {
		fields = append(fields, zap.Int(action, n))
	}
	s.logger.Info("Plan ready", fields...)
}
