package roundtrip

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/idmap"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/rs/zerolog/log"
)

// Directory names inside a workspace root.
const (
	ExportDirName  = "Export"
	SidecarDirName = "pathIDs"
)

// Workspace is the working context of one extracted container: the
// extracted files, the identifier map and the directory holding them.
// Callers must Close it; an owned workspace deletes its directory on Close.
type Workspace struct {
	SourcePath  string
	Root        string
	ExportDir   string
	SidecarPath string
	IDs         *idmap.Map

	owned  bool
	mu     sync.Mutex
	closed bool
}

func newWorkspace(src, root string, owned bool) *Workspace {
	return &Workspace{
		SourcePath:  src,
		Root:        root,
		ExportDir:   filepath.Join(root, ExportDirName),
		SidecarPath: filepath.Join(root, SidecarDirName, idmap.SidecarName(src)),
		owned:       owned,
	}
}

// OpenWorkspace reattaches to an extraction left on disk at root, for
// example by `extract --keep`. The directory is not deleted on Close.
func OpenWorkspace(src, root string) (*Workspace, error) {
	ws := newWorkspace(src, root, false)
	if _, err := os.Stat(ws.ExportDir); err != nil {
		return nil, errs.Phase("open workspace", root, errs.ErrNoContainerLoaded, err)
	}
	ids, err := idmap.Load(ws.SidecarPath)
	if err != nil {
		return nil, err
	}
	ws.IDs = ids
	return ws, nil
}

// FilePath returns where the extracted file for name lives.
func (w *Workspace) FilePath(name string) string {
	return filepath.Join(w.ExportDir, name+textcodec.Ext)
}

// Files lists the extracted file paths in extraction order.
func (w *Workspace) Files() []string {
	if w.IDs == nil {
		return nil
	}
	entries := w.IDs.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = w.FilePath(e.Name)
	}
	return out
}

// Closed reports whether Close has run.
func (w *Workspace) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close releases the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.owned {
		return nil
	}
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("remove workspace %s: %w", w.Root, err)
	}
	log.Debug().Str("dir", w.Root).Msg("Removed workspace")
	return nil
}

// Keep disowns the workspace directory so Close leaves it on disk.
func (w *Workspace) Keep() {
	w.mu.Lock()
	w.owned = false
	w.mu.Unlock()
}
