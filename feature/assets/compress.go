package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"asset-sync/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Level is a Ghostscript PDFSETTINGS preset.
type Level string

const (
	LevelScreen   Level = "screen"
	LevelEbook    Level = "ebook"
	LevelPrinter  Level = "printer"
	LevelPrepress Level = "prepress"
)

// DefaultLevel balances size and legibility for floor plans and brochures.
const DefaultLevel = LevelEbook

// ActionCompress rewrites a PDF in place with a smaller rendition.
const ActionCompress reconcile.Action = "compress"

// ParseLevel validates a level name. An empty name selects DefaultLevel.
func ParseLevel(name string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(name))); l {
	case "":
		return DefaultLevel, nil
	case LevelScreen, LevelEbook, LevelPrinter, LevelPrepress:
		return l, nil
	default:
		return "", fmt.Errorf("unknown compression level %q (screen, ebook, printer, prepress)", name)
	}
}

// Compressor produces a compressed rendition of a PDF.
type Compressor interface {
	Compress(ctx context.Context, pdf []byte, level Level) ([]byte, error)
}

// Ghostscript compresses with the gs binary.
type Ghostscript struct {
	// Binary defaults to "gs" on PATH.
	Binary string
}

func (g *Ghostscript) Compress(ctx context.Context, pdf []byte, level Level) ([]byte, error) {
	bin := g.Binary
	if bin == "" {
		bin = "gs"
	}

	dir, err := os.MkdirTemp("", "asset-sync-pdf-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/"+string(level),
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile="+out,
		in,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ghostscript: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(out)
}

// CompressRequest recompresses the PDFs under Prefix.
type CompressRequest struct {
	Prefix string
	Level  Level
	RunFlags
}

// CompressPDFs downloads every PDF under Prefix and compresses it. A smaller
// result replaces the original only when Confirmed; otherwise the run only
// measures the savings.
func (s *Service) CompressPDFs(ctx context.Context, req CompressRequest) (*Outcome, error) {
	started := time.Now()
	level := req.Level
	if level == "" {
		level = DefaultLevel
	}
	if _, err := ParseLevel(string(level)); err != nil {
		return nil, err
	}
	prefix := reconcile.NormalizePrefix(req.Prefix)

	opts, err := s.planOptions(req.RunFlags)
	if err != nil {
		return nil, err
	}
	objects, err := reconcile.ListAll(ctx, s.store, prefix, opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to plan compression: %w", err)
	}

	var entries []reconcile.PlanEntry
	for _, obj := range objects {
		if !strings.EqualFold(filepath.Ext(obj.Key), ".pdf") || !opts.Filter.Match(strings.TrimPrefix(obj.Key, prefix)) {
			continue
		}
		entries = append(entries, reconcile.PlanEntry{
			SourceKey:   obj.Key,
			TargetKey:   obj.Key,
			Action:      ActionCompress,
			Size:        obj.Size,
			ContentType: "application/pdf",
			Reason:      "level " + string(level),
		})
	}
	plan := reconcile.NewSyncPlan("compress", entries)
	s.logPlan(plan)

	out := &Outcome{Plan: plan}
	if req.DryRun {
		return out, nil
	}
	if !req.Confirmed {
		s.logger.Warn("Compression not confirmed, originals are kept. Re-run with --yes to replace them.")
	}

	headers := s.headers()
	bar := reconcile.NewProgressBar(s.progress, len(plan.Entries), plan.Mode)
	outcome := reconcile.NewRunOutcome(len(plan.Entries))
	var g errgroup.Group
	g.SetLimit(s.concurrency(req.RunFlags))
	for _, e := range plan.Entries {
		g.Go(func() error {
			res := s.compressOne(ctx, e, level, headers, req.Confirmed)
			if res.Err != nil {
				s.logger.Warn("Compression failed", zap.String("key", e.SourceKey), zap.Error(res.Err))
			} else {
				s.logger.Info("Compressed",
					zap.String("key", e.SourceKey),
					zap.Int64("before", res.BytesBefore),
					zap.Int64("after", res.BytesAfter),
					zap.String("status", string(res.Status)),
				)
			}
			_ = bar.Add(1)
			return outcome.Record(res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	_ = bar.Finish()

	out.Report = outcome.Finalize(reconcile.ReportMeta{
		RunID:      s.runID,
		Mode:       plan.Mode,
		TotalBytes: plan.TotalBytes(),
		Duration:   time.Since(started),
	})
	return out, nil
}

func (s *Service) compressOne(ctx context.Context, e reconcile.PlanEntry, level Level, headers reconcile.CacheHeaderSet, confirmed bool) reconcile.Result {
	res := reconcile.Result{
		Index:     e.Index,
		SourceKey: e.SourceKey,
		TargetKey: e.TargetKey,
		Action:    e.Action,
		Status:    reconcile.StatusFailed,
	}

	original, err := s.download(ctx, e.SourceKey)
	if err != nil {
		res.Err = &reconcile.TransferError{Key: e.SourceKey, Action: e.Action, Err: err}
		return res
	}
	compressed, err := s.compressor.Compress(ctx, original, level)
	if err != nil {
		res.Err = &reconcile.TransferError{Key: e.SourceKey, Action: e.Action, Err: err}
		return res
	}

	res.BytesBefore = int64(len(original))
	res.BytesAfter = int64(len(compressed))
	if len(compressed) == 0 || len(compressed) >= len(original) {
		// Not worth it, the original stays in place.
		res.BytesAfter = res.BytesBefore
		res.Status = reconcile.StatusSkipped
		return res
	}
	if !confirmed {
		res.Status = reconcile.StatusSkipped
		return res
	}

	meta, err := s.store.Put(ctx, e.TargetKey, bytes.NewReader(compressed), int64(len(compressed)), headers.PutOptions(e.ContentType))
	if err != nil {
		res.BytesAfter = res.BytesBefore
		res.Err = &reconcile.TransferError{Key: e.TargetKey, Action: e.Action, Err: err}
		return res
	}
	res.Status = reconcile.StatusSucceeded
	res.Bytes = int64(len(compressed))
	res.Metadata = &meta
	return res
}

func (s *Service) download(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
