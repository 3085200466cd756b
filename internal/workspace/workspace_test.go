package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_CreatesDirectoryUnderRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	ws, err := Acquire(root, "job42")
	require.NoError(t, err)
	defer ws.Release()

	info, err := os.Stat(ws.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, root, filepath.Dir(ws.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Path()), "searchpdf-job42-"))
}

func TestAcquire_DistinctPerJob(t *testing.T) {
	root := t.TempDir()

	a, err := Acquire(root, "same")
	require.NoError(t, err)
	defer a.Release()
	b, err := Acquire(root, "same")
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path(), b.Path())
}

func TestRelease_RemovesEverything(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "")
	require.NoError(t, err)

	_, err = ws.WriteFile("input.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(ws.Join("sub"), 0o755))
	require.NoError(t, os.WriteFile(ws.Join("sub/page-1.png"), []byte("png"), 0o600))

	require.NoError(t, ws.Release())
	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err), "workspace should be gone, stat err = %v", err)
}

func TestRelease_Idempotent(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "")
	require.NoError(t, err)

	require.NoError(t, ws.Release())
	require.NoError(t, ws.Release())
	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRelease_RunsOnPanicPath(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "")
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		defer ws.Release()
		panic("boom")
	}()

	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestListing(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "")
	require.NoError(t, err)
	defer ws.Release()

	assert.Equal(t, "<empty>", ws.Listing())

	_, err = ws.WriteFile("b.txt", make([]byte, 2048))
	require.NoError(t, err)
	_, err = ws.WriteFile("a.txt", []byte("x"))
	require.NoError(t, err)

	listing := ws.Listing()
	assert.Equal(t, "a.txt 1 B, b.txt 2.0 kB", listing)
	assert.NotContains(t, listing, ws.Path())
}
