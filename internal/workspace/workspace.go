// Package workspace owns the scratch directory of a single conversion job.
//
// A Workspace is created with Acquire and must be released with Release,
// normally via defer right after a successful Acquire. Release removes the
// directory and everything written into it, and is safe to call more than
// once. Workspaces are never shared between jobs.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

// Workspace is a private directory scoped to one conversion.
type Workspace struct {
	dir string

	once       sync.Once
	releaseErr error
}

// Acquire creates a fresh workspace below root. An empty root uses the OS
// temporary directory. The root itself is created if it does not exist.
func Acquire(root, jobID string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	pattern := "searchpdf-*"
	if jobID != "" {
		pattern = "searchpdf-" + jobID + "-*"
	}
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Path returns the absolute workspace directory.
func (w *Workspace) Path() string { return w.dir }

// Join returns the path of name inside the workspace.
func (w *Workspace) Join(name string) string { return filepath.Join(w.dir, name) }

// WriteFile writes data to name inside the workspace and returns its path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Join(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// Listing describes the workspace contents for operator diagnostics. Entries
// are relative to the workspace so no absolute temp paths leak into errors.
func (w *Workspace) Listing() string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	if len(entries) == 0 {
		return "<empty>"
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			lines = append(lines, e.Name()+" ?")
			continue
		}
		size := humanize.Bytes(uint64(info.Size()))
		if e.IsDir() {
			size = "dir"
		}
		lines = append(lines, e.Name()+" "+size)
	}
	sort.Strings(lines)
	return strings.Join(lines, ", ")
}

// Release removes the workspace directory. Only the first call does work;
// later calls return the first call's result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if err := os.RemoveAll(w.dir); err != nil {
			w.releaseErr = fmt.Errorf("remove workspace: %w", err)
		}
	})
	return w.releaseErr
}
