package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"asset-sync/core/config"
	"asset-sync/core/logger"
	"asset-sync/core/reconcile"
	"asset-sync/core/storage"
	"asset-sync/feature/assets"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// commonFlags are registered on the root command and shared by every job.
type commonFlags struct {
	dryRun      bool
	yes         bool
	includes    []string
	excludes    []string
	concurrency int
	json        bool
	envDir      string
}

var flags = commonFlags{envDir: "."}

func (f commonFlags) runFlags() assets.RunFlags {
	return assets.RunFlags{
		DryRun:      f.dryRun,
		Confirmed:   f.yes,
		Includes:    f.includes,
		Excludes:    f.excludes,
		Concurrency: f.concurrency,
	}
}

// session holds everything a command needs after bootstrap.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.Store
	service  *assets.Service
	progress io.Writer
	runID    string
}

// openSession loads configuration, validates it before any network access,
// and connects to the store.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadConfig(flags.envDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.OSS.Validate(); err != nil {
		return nil, err
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	runID := uuid.NewString()
	l = logger.WithRunID(l, runID)

	store, err := storage.NewStore(ctx, cfg.OSS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	l.Info("Connected to storage",
		zap.String("bucket", store.Bucket()),
		zap.String("driver", cfg.OSS.Driver),
		zap.String("endpoint", cfg.OSS.ResolvedEndpoint()),
	)

	var progress io.Writer = os.Stderr
	if flags.json {
		progress = io.Discard
	}
	svc := assets.NewService(store, l, cfg, assets.Options{
		RunID:    runID,
		Progress: progress,
	})

	return &session{cfg: cfg, logger: l, store: store, service: svc, progress: progress, runID: runID}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// finish prints the outcome of a job. An executed run with failed entries
// turns into an error so the process exits non-zero; a preview never does.
func finish(w io.Writer, out *assets.Outcome, asJSON bool) error {
	if asJSON {
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else if err := writeText(w, out); err != nil {
		return err
	}

	if out.Report == nil {
		return nil
	}
	if !out.OK() {
		failed := out.Report.Failed
		if out.Cleanup != nil {
			failed += out.Cleanup.Failed
		}
		return fmt.Errorf("%d entries failed, re-run to retry them", failed)
	}
	return nil
}

func writeText(w io.Writer, out *assets.Outcome) error {
	if out.Report == nil {
		if err := reconcile.RenderPlan(w, out.Plan); err != nil {
			return err
		}
		if out.CleanupPlan != nil {
			if _, err := fmt.Fprintln(w, "\nsource cleanup:"); err != nil {
				return err
			}
			if err := reconcile.RenderPlan(w, out.CleanupPlan); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintln(w, "\npreview only, nothing was changed")
		return err
	}
	if err := reconcile.Render(w, out.Report); err != nil {
		return err
	}
	if out.Cleanup != nil {
		if _, err := fmt.Fprintln(w, "\nsource cleanup:"); err != nil {
			return err
		}
		return reconcile.Render(w, out.Cleanup)
	}
	return nil
}

type planEntryView struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	Source string `json:"source"`
	Target string `json:"target"`
	Size   int64  `json:"size"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

type outcomeView struct {
	Mode   string            `json:"mode"`
	Plan   []planEntryView   `json:"plan"`
	Report *reconcile.Report `json:"report,omitempty"`
	// CleanupPlan is only set on a preview. An executed cleanup is reported
	// under Cleanup.
	CleanupPlan []planEntryView   `json:"cleanup_plan,omitempty"`
	Cleanup     *reconcile.Report `json:"cleanup,omitempty"`
}

func writeJSON(w io.Writer, out *assets.Outcome) error {
	view := outcomeView{
		Mode:    out.Plan.Mode,
		Plan:    planView(out.Plan),
		Report:  out.Report,
		Cleanup: out.Cleanup,
	}
	if out.Report == nil && out.CleanupPlan != nil {
		view.CleanupPlan = planView(out.CleanupPlan)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func planView(plan *reconcile.SyncPlan) []planEntryView {
	views := make([]planEntryView, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		v := planEntryView{
			Index:  e.Index,
			Action: string(e.Action),
			Source: e.SourceKey,
			Target: e.TargetKey,
			Size:   e.Size,
			Reason: e.Reason,
		}
		if e.Err != nil {
			v.Error = e.Err.Error()
		}
		views = append(views, v)
	}
	return views
}
