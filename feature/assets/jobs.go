package assets

import (
	"context"
	"fmt"
	"strings"

	"asset-sync/core/reconcile"
	"asset-sync/core/storage"

	"go.uber.org/zap"
)

// MergeRequest merges SourcePrefix into TargetPrefix.
type MergeRequest struct {
	SourcePrefix string
	TargetPrefix string
	// DeleteSource removes each source object whose target holds the same
	// content once the merge is done. Requires Confirmed.
	DeleteSource bool
	RunFlags
}

// Merge copies every source object whose target key is free. Existing
// targets are left untouched.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*Outcome, error) {
	src := reconcile.NormalizePrefix(req.SourcePrefix)
	dst := reconcile.NormalizePrefix(req.TargetPrefix)
	if src == dst {
		return nil, fmt.Errorf("source and target prefix are both %q", src)
	}
	if strings.HasPrefix(dst, src) || strings.HasPrefix(src, dst) {
		return nil, fmt.Errorf("prefixes %q and %q overlap", src, dst)
	}
	if req.DeleteSource && !req.DryRun && !req.Confirmed {
		return nil, reconcile.ErrDeleteNotConfirmed
	}

	opts, err := s.planOptions(req.RunFlags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Planning merge", zap.String("source", src), zap.String("target", dst))
	plan, err := reconcile.PlanCopy(ctx, s.store, reconcile.CopyJob{
		SourcePrefix: src,
		TargetPrefix: dst,
		PlanOptions:  opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan merge: %w", err)
	}
	s.logPlan(plan)

	out := &Outcome{Plan: plan}
	if req.DryRun {
		if req.DeleteSource {
			// Every planned copy is assumed to land.
			out.CleanupPlan = s.planCleanup(ctx, plan, func(reconcile.PlanEntry) bool { return true })
		}
		return out, nil
	}

	out.Report, err = reconcile.Run(ctx, s.store, plan, s.runOptions(req.RunFlags, false))
	if err != nil {
		return nil, err
	}

	if req.DeleteSource {
		succeeded := make(map[string]bool, len(out.Report.SucceededKeys))
		for _, k := range out.Report.SucceededKeys {
			succeeded[k] = true
		}
		out.CleanupPlan = s.planCleanup(ctx, plan, func(e reconcile.PlanEntry) bool { return succeeded[e.SourceKey] })
		out.Cleanup, err = reconcile.Run(ctx, s.store, out.CleanupPlan, s.runOptions(req.RunFlags, req.Confirmed))
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// planCleanup selects the merge sources whose targets now carry the same
// content: copied objects and skipped ones with matching ETags. A source that
// cannot be checked becomes a failed entry, never a silent keep.
func (s *Service) planCleanup(ctx context.Context, plan *reconcile.SyncPlan, copied func(reconcile.PlanEntry) bool) *reconcile.SyncPlan {
	var entries []reconcile.PlanEntry
	for _, e := range plan.Entries {
		if e.Err != nil {
			continue
		}
		switch {
		case e.Action == reconcile.ActionCopy:
			if copied(e) {
				entries = append(entries, sourceDelete(e, "copied to "+e.TargetKey))
			}
		case e.Action == reconcile.ActionSkip && e.Existing != nil:
			src, err := reconcile.Probe(ctx, s.store, e.SourceKey)
			switch {
			case err != nil:
				d := sourceDelete(e, "source check failed")
				d.Err = err
				entries = append(entries, d)
			case !src.Exists:
				s.logger.Warn("Source gone before cleanup", zap.String("source", e.SourceKey))
			case src.Metadata.ETag != "" && src.Metadata.ETag == e.Existing.ETag:
				entries = append(entries, sourceDelete(e, "target holds same content"))
			default:
				s.logger.Warn("Keeping source, target differs", zap.String("source", e.SourceKey), zap.String("target", e.TargetKey))
			}
		}
	}

	cleanup := reconcile.NewSyncPlan("prune", entries)
	s.logPlan(cleanup)
	return cleanup
}

func sourceDelete(e reconcile.PlanEntry, reason string) reconcile.PlanEntry {
	return reconcile.PlanEntry{
		SourceKey: e.SourceKey,
		TargetKey: e.SourceKey,
		Action:    reconcile.ActionDelete,
		Size:      e.Size,
		Reason:    reason,
	}
}

// UploadRequest uploads the files under LocalDir to TargetPrefix.
type UploadRequest struct {
	LocalDir     string
	TargetPrefix string
	RunFlags
}

// Upload writes every local file whose target key is free.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Outcome, error) {
	files, err := CollectFiles(req.LocalDir)
	if err != nil {
		return nil, err
	}
	opts, err := s.planOptions(req.RunFlags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Planning upload",
		zap.String("dir", req.LocalDir),
		zap.String("target", req.TargetPrefix),
		zap.Int("files", len(files)),
	)
	plan, err := reconcile.PlanUpload(ctx, s.store, reconcile.UploadJob{
		Files:        files,
		TargetPrefix: req.TargetPrefix,
		PlanOptions:  opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan upload: %w", err)
	}
	s.logPlan(plan)

	out := &Outcome{Plan: plan}
	if req.DryRun {
		return out, nil
	}
	out.Report, err = reconcile.Run(ctx, s.store, plan, s.runOptions(req.RunFlags, false))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HeadersRequest applies the configured cache policy under Prefix.
type HeadersRequest struct {
	Prefix string
	RunFlags
}

// UpdateHeaders self-copies every object whose Cache-Control does not satisfy
// the policy. Content and ETags are preserved.
func (s *Service) UpdateHeaders(ctx context.Context, req HeadersRequest) (*Outcome, error) {
	opts, err := s.planOptions(req.RunFlags)
	if err != nil {
		return nil, err
	}
	headers := s.headers()

	s.logger.Info("Planning header update",
		zap.String("prefix", req.Prefix),
		zap.String("cache_control", headers.CacheControl),
	)
	plan, err := reconcile.PlanHeaders(ctx, s.store, reconcile.HeadersJob{
		Prefix:      req.Prefix,
		Headers:     headers,
		PlanOptions: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan header update: %w", err)
	}
	s.logPlan(plan)

	out := &Outcome{Plan: plan}
	if req.DryRun {
		return out, nil
	}
	runOpts := s.runOptions(req.RunFlags, false)
	runOpts.Headers = headers
	out.Report, err = reconcile.Run(ctx, s.store, plan, runOpts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PruneRequest deletes the objects under Prefix.
type PruneRequest struct {
	Prefix string
	RunFlags
}

// Prune lists Prefix and deletes what the filters select. Without Confirmed it
// only previews.
func (s *Service) Prune(ctx context.Context, req PruneRequest) (*Outcome, error) {
	prefix := reconcile.NormalizePrefix(req.Prefix)
	if prefix == "" {
		return nil, fmt.Errorf("refusing to prune the whole bucket")
	}
	opts, err := s.planOptions(req.RunFlags)
	if err != nil {
		return nil, err
	}

	objects, err := reconcile.ListAll(ctx, s.store, prefix, opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to plan prune: %w", err)
	}
	var selected []storage.ObjectMetadata
	for _, obj := range objects {
		if opts.Filter.Match(strings.TrimPrefix(obj.Key, prefix)) {
			selected = append(selected, obj)
		}
	}
	plan := reconcile.PlanDelete(selected)
	s.logPlan(plan)

	out := &Outcome{Plan: plan}
	if req.DryRun || !req.Confirmed {
		if !req.DryRun {
			s.logger.Warn("Prune not confirmed, nothing deleted. Re-run with --yes to delete.")
		}
		return out, nil
	}
	out.Report, err = reconcile.Run(ctx, s.store, plan, s.runOptions(req.RunFlags, true))
	if err != nil {
		return nil, err
	}
	return out, nil
}
