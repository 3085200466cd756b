package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/searchpdf-mcp/internal/pdfdoc"
	"github.com/ironsheep/searchpdf-mcp/internal/procexec"
	"github.com/ironsheep/searchpdf-mcp/internal/workspace"
)

// fakePdftoppm emulates pdftoppm output naming. produce decides, per page and
// format, what bytes (if any) are written; it may also return an exit code.
type fakePdftoppm struct {
	produce func(page int, format Format) ([]byte, int)
	err     error
	onRun   func()
	calls   []procexec.Command
}

func (f *fakePdftoppm) Run(_ context.Context, cmd procexec.Command) (procexec.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.onRun != nil {
		f.onRun()
	}
	if f.err != nil {
		return procexec.Result{}, f.err
	}
	args := cmd.Args
	page, _ := strconv.Atoi(args[3])
	format := Format(strings.TrimPrefix(args[6], "-"))
	prefix := args[8]

	data, code := f.produce(page, format)
	if data != nil {
		name := fmt.Sprintf("%s-%02d.%s", prefix, page, format.Ext())
		if err := os.WriteFile(name, data, 0o600); err != nil {
			return procexec.Result{}, err
		}
	}
	return procexec.Result{ExitCode: code, Stderr: []byte("simulated")}, nil
}

func pageImage(t *testing.T, format Format, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if format == FormatJPEG {
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	} else {
		require.NoError(t, png.Encode(&buf, img))
	}
	return buf.Bytes()
}

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Acquire(t.TempDir(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Release() })
	return ws
}

func TestRasterize_PNGFirst(t *testing.T) {
	fake := &fakePdftoppm{produce: func(page int, format Format) ([]byte, int) {
		return pageImage(t, format, 40, 60), 0
	}}
	r := New(fake, Options{DPI: 150})
	ws := newWorkspace(t)

	img, err := r.Rasterize(context.Background(), ws, ws.Join("input.pdf"), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, img.Index)
	assert.Equal(t, FormatPNG, img.Format)
	assert.Equal(t, 40, img.Width)
	assert.Equal(t, 60, img.Height)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "pdftoppm", fake.calls[0].Name)
	assert.Equal(t, []string{"-r", "150", "-f", "3", "-l", "3", "-png", ws.Join("input.pdf"), ws.Join("page0003")}, fake.calls[0].Args)
}

func TestRasterize_JPEGFallbackPerPage(t *testing.T) {
	fake := &fakePdftoppm{produce: func(page int, format Format) ([]byte, int) {
		if page == 2 && format == FormatPNG {
			return nil, 99
		}
		return pageImage(t, format, 10, 10), 0
	}}
	r := New(fake, Options{})
	ws := newWorkspace(t)

	var formats []Format
	for page := 1; page <= 3; page++ {
		img, err := r.Rasterize(context.Background(), ws, "in.pdf", page)
		require.NoError(t, err)
		formats = append(formats, img.Format)
	}

	assert.Equal(t, []Format{FormatPNG, FormatJPEG, FormatPNG}, formats)
	assert.Len(t, fake.calls, 4)
}

func TestRasterize_ExitStatusIgnored(t *testing.T) {
	fake := &fakePdftoppm{produce: func(page int, format Format) ([]byte, int) {
		return pageImage(t, format, 8, 8), 1
	}}
	img, err := New(fake, Options{}).Rasterize(context.Background(), newWorkspace(t), "in.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, img.Format)
}

func TestRasterize_UndecodableCountsAsMissing(t *testing.T) {
	fake := &fakePdftoppm{produce: func(page int, format Format) ([]byte, int) {
		if format == FormatPNG {
			return []byte("\x89PNG\r\n\x1a\ngarbage"), 0
		}
		return pageImage(t, format, 8, 8), 0
	}}
	img, err := New(fake, Options{}).Rasterize(context.Background(), newWorkspace(t), "in.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, img.Format)
}

func TestRasterize_WrongTypeCountsAsMissing(t *testing.T) {
	fake := &fakePdftoppm{produce: func(page int, format Format) ([]byte, int) {
		// A JPEG body behind the .png name.
		return pageImage(t, FormatJPEG, 8, 8), 0
	}}
	img, err := New(fake, Options{}).Rasterize(context.Background(), newWorkspace(t), "in.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, img.Format)
	assert.Len(t, fake.calls, 2)
}

func TestRasterize_BothMissing(t *testing.T) {
	fake := &fakePdftoppm{produce: func(int, Format) ([]byte, int) { return nil, 1 }}
	ws := newWorkspace(t)
	_, err := ws.WriteFile("input.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	_, err = New(fake, Options{}).Rasterize(context.Background(), ws, ws.Join("input.pdf"), 7)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 7, failed.Page)
	assert.Equal(t, "input.pdf 8 B", failed.Listing)
	assert.NotContains(t, err.Error(), ws.Path())
}

func TestRasterize_Timeout(t *testing.T) {
	fake := &fakePdftoppm{err: fmt.Errorf("pdftoppm: %w", procexec.ErrTimeout)}
	_, err := New(fake, Options{Timeout: time.Second}).Rasterize(context.Background(), newWorkspace(t), "in.pdf", 2)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 2, timeout.Page)
	assert.ErrorIs(t, err, procexec.ErrTimeout)
	assert.Len(t, fake.calls, 1, "a timeout must not fall through to the next format")
}

func TestRasterize_CallerDeadlineIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakePdftoppm{
		err:   fmt.Errorf("pdftoppm: %w", context.DeadlineExceeded),
		onRun: cancel,
	}

	_, err := New(fake, Options{Timeout: time.Minute}).Rasterize(ctx, newWorkspace(t), "in.pdf", 1)

	var timeout *TimeoutError
	assert.False(t, errors.As(err, &timeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, fake.calls, 1)
}

func TestRasterize_Cancelled(t *testing.T) {
	fake := &fakePdftoppm{produce: func(int, Format) ([]byte, int) { return nil, 0 }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fake, Options{}).Rasterize(ctx, newWorkspace(t), "in.pdf", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.calls)
}

func TestFindOutput_MatchesPaddedSuffix(t *testing.T) {
	dir := t.TempDir()
	prefix := dir + "/page0005"
	require.NoError(t, os.WriteFile(prefix+"-005.png", []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(prefix+"-15.png", []byte("x"), 0o600))

	path, ok := findOutput(prefix, "png", 5)
	assert.True(t, ok)
	assert.Equal(t, prefix+"-005.png", path)

	_, ok = findOutput(prefix, "jpg", 5)
	assert.False(t, ok)
}

func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc, err := pdfdoc.New(pdfdoc.Options{})
	require.NoError(t, err)
	for i := 0; i < pages; i++ {
		require.NoError(t, doc.AddPage(100, 200, nil, nil))
	}
	out, err := doc.Bytes()
	require.NoError(t, err)
	return out
}

func TestPageCount(t *testing.T) {
	for _, n := range []int{1, 4} {
		got, err := PageCount(buildPDF(t, n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestPageCount_ScanFallback(t *testing.T) {
	// Broken xref: pdfcpu cannot open it, but the page dictionaries are intact.
	src := []byte("%PDF-1.4\n" +
		"1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
		"2 0 obj << /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >> endobj\n" +
		"3 0 obj << /Type /Page /Parent 2 0 R >> endobj\n" +
		"4 0 obj << /Type/Page/Parent 2 0 R >> endobj\n" +
		"startxref\n999999\n%%EOF\n")

	got, err := PageCount(src)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestPageCount_Rejects(t *testing.T) {
	_, err := PageCount([]byte("hello"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = PageCount([]byte("%PDF-1.4\n%%EOF\n"))
	assert.ErrorIs(t, err, ErrNoPages)
}
