package assets

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"asset-sync/core/storage"
	"asset-sync/core/storage/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halvingCompressor returns the first half of the input, or the input plus
// padding for keys marked as incompressible.
type halvingCompressor struct {
	mu    sync.Mutex
	grow  map[int]bool
	fail  error
	level Level
}

func (c *halvingCompressor) Compress(_ context.Context, pdf []byte, level Level) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
	if c.fail != nil {
		return nil, c.fail
	}
	if c.grow[len(pdf)] {
		return append(append([]byte(nil), pdf...), ' '), nil
	}
	return pdf[:len(pdf)/2], nil
}

func seedPDFs(store *memstore.Store) {
	store.Seed("docs/floorplan.pdf", bytes.Repeat([]byte("f"), 1000), storage.PutOptions{ContentType: "application/pdf"})
	store.Seed("docs/lease.PDF", bytes.Repeat([]byte("l"), 400), storage.PutOptions{ContentType: "application/pdf"})
	store.Seed("docs/tiny.pdf", bytes.Repeat([]byte("t"), 7), storage.PutOptions{ContentType: "application/pdf"})
	store.Seed("docs/cover.jpg", []byte("jpeg"), storage.PutOptions{})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelEbook, false},
		{"screen", LevelScreen, false},
		{"Printer", LevelPrinter, false},
		{"prepress", LevelPrepress, false},
		{"lossless", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompressPDFs_DryRun(t *testing.T) {
	store := memstore.New("assets")
	seedPDFs(store)
	comp := &halvingCompressor{}
	svc := newTestService(store, Options{Compressor: comp})

	out, err := svc.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs", RunFlags: RunFlags{DryRun: true}})
	require.NoError(t, err)

	assert.Nil(t, out.Report)
	require.Len(t, out.Plan.Entries, 3)
	assert.Equal(t, ActionCompress, out.Plan.Entries[0].Action)
	assert.Zero(t, store.Calls(memstore.OpGet))
}

func TestCompressPDFs_Unconfirmed(t *testing.T) {
	store := memstore.New("assets")
	seedPDFs(store)
	svc := newTestService(store, Options{Compressor: &halvingCompressor{}})

	out, err := svc.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs"})
	require.NoError(t, err)

	assert.Equal(t, 0, out.Report.Succeeded)
	assert.Equal(t, 3, out.Report.Skipped)
	assert.Equal(t, int64(1407), out.Report.BytesBefore)
	assert.Equal(t, int64(703), out.Report.BytesAfter)
	assert.Zero(t, store.Calls(memstore.OpPut))
}

func TestCompressPDFs_Confirmed(t *testing.T) {
	store := memstore.New("assets")
	seedPDFs(store)
	comp := &halvingCompressor{grow: map[int]bool{400: true}}
	svc := newTestService(store, Options{Compressor: comp})

	out, err := svc.CompressPDFs(context.Background(), CompressRequest{
		Prefix:   "docs",
		Level:    LevelScreen,
		RunFlags: RunFlags{Confirmed: true, Concurrency: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, LevelScreen, comp.level)
	assert.Equal(t, "compress", out.Report.Mode)
	assert.Equal(t, []string{"docs/floorplan.pdf", "docs/tiny.pdf"}, out.Report.SucceededKeys)
	assert.Equal(t, []string{"docs/lease.PDF"}, out.Report.SkippedKeys)
	assert.Equal(t, int64(1407), out.Report.BytesBefore)
	assert.Equal(t, int64(500+400+3), out.Report.BytesAfter)

	meta, data, opts, ok := store.Object("docs/floorplan.pdf")
	require.True(t, ok)
	assert.Equal(t, int64(500), meta.Size)
	assert.Len(t, data, 500)
	assert.Equal(t, "application/pdf", opts.ContentType)
	assert.Equal(t, "public, max-age=31536000, immutable", opts.CacheControl)

	_, lease, _, _ := store.Object("docs/lease.PDF")
	assert.Len(t, lease, 400)
}

func TestCompressPDFs_DrawsProgress(t *testing.T) {
	store := memstore.New("assets")
	seedPDFs(store)
	var progress bytes.Buffer
	svc := newTestService(store, Options{Compressor: &halvingCompressor{}, Progress: &progress})

	out, err := svc.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs", RunFlags: RunFlags{Confirmed: true}})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Report.Total)
	assert.Contains(t, progress.String(), "compress")
}

func TestCompressPDFs_Failures(t *testing.T) {
	store := memstore.New("assets")
	seedPDFs(store)
	store.FailOn(memstore.OpGet, "docs/tiny.pdf", errors.New("read timeout"))
	svc := newTestService(store, Options{Compressor: &halvingCompressor{}})

	out, err := svc.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs", RunFlags: RunFlags{Confirmed: true}})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Report.Succeeded)
	assert.Equal(t, 1, out.Report.Failed)
	assert.Equal(t, "docs/tiny.pdf", out.Report.Failures[0].Key)
	assert.False(t, out.OK())

	broken := newTestService(store, Options{Compressor: &halvingCompressor{fail: errors.New("gs crashed")}})
	out, err = broken.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs", RunFlags: RunFlags{Confirmed: true}})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Report.Failed)
	for _, f := range out.Report.Failures {
		assert.Contains(t, f.Error, "gs crashed")
		assert.Equal(t, ActionCompress, f.Action)
	}
}

func TestCompressPDFs_InvalidLevel(t *testing.T) {
	store := memstore.New("assets")
	svc := newTestService(store, Options{Compressor: &halvingCompressor{}})

	_, err := svc.CompressPDFs(context.Background(), CompressRequest{Prefix: "docs", Level: "lossless"})
	assert.Error(t, err)
	assert.Zero(t, store.Calls(memstore.OpList))
}

func TestGhostscript_MissingBinary(t *testing.T) {
	gs := &Ghostscript{Binary: "/nonexistent/gs"}
	_, err := gs.Compress(context.Background(), []byte("%PDF-1.4"), LevelEbook)
	assert.Error(t, err)
}
