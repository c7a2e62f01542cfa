// Package roundtrip extracts the data objects of a container into named
// JSON files and rebuilds the container from those files.
package roundtrip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/idmap"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/rs/zerolog/log"
)

// DefaultInterestTypes are the object types extracted when none are given.
var DefaultInterestTypes = []string{"MonoBehaviour"}

// TempPrefix prefixes every workspace directory.
const TempPrefix = "bdsp_editor_"

// Option configures an Extractor or a Rebuilder.
type Option func(*options)

type options struct {
	codec         Codec
	interest      map[string]bool
	tempRoot      string
	skipUnchanged bool
}

func newOptions(opts []Option) options {
	o := options{codec: ContainerCodec{}}
	WithInterestTypes(DefaultInterestTypes...)(&o)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCodec replaces the container codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithInterestTypes sets which object types are extracted and rebuilt.
func WithInterestTypes(types ...string) Option {
	return func(o *options) {
		o.interest = make(map[string]bool, len(types))
		for _, t := range types {
			o.interest[t] = true
		}
	}
}

// WithTempRoot sets the parent directory for new workspaces. Empty means the
// OS temp directory.
func WithTempRoot(dir string) Option {
	return func(o *options) { o.tempRoot = dir }
}

// WithSkipUnchanged makes Rebuild leave an object alone when its extracted
// file parses to the same tree the container already holds.
func WithSkipUnchanged(skip bool) Option {
	return func(o *options) { o.skipUnchanged = skip }
}

// Extractor pulls objects of interest out of a container.
type Extractor struct {
	opts options
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	return &Extractor{opts: newOptions(opts)}
}

// Extract writes every object of interest in src to its own JSON file in a
// fresh workspace and records the names in the identifier map sidecar.
// Objects are scanned in container order; the first object to claim a name
// keeps it. On failure nothing is left on disk.
func (e *Extractor) Extract(ctx context.Context, src string) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archive, err := e.opts.codec.Open(src)
	if err != nil {
		return nil, err
	}

	if e.opts.tempRoot != "" {
		if err := os.MkdirAll(e.opts.tempRoot, 0o755); err != nil {
			return nil, errs.Phase("extract", src, errs.ErrExtractionFailed, err)
		}
	}
	root, err := os.MkdirTemp(e.opts.tempRoot, TempPrefix)
	if err != nil {
		return nil, errs.Phase("extract", src, errs.ErrExtractionFailed, err)
	}
	ws := newWorkspace(src, root, true)

	if err := e.extractInto(ws, archive); err != nil {
		_ = ws.Close()
		return nil, errs.Phase("extract", src, errs.ErrExtractionFailed, err)
	}

	log.Info().
		Str("source", src).
		Str("workspace", root).
		Int("objects", ws.IDs.Len()).
		Msg("Extracted container")
	return ws, nil
}

func (e *Extractor) extractInto(ws *Workspace, archive Archive) error {
	for _, dir := range []string{ws.ExportDir, filepath.Dir(ws.SidecarPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	ids := idmap.New()
	names := newNameSet()
	for _, obj := range archive.Objects() {
		if !e.opts.interest[obj.TypeName] {
			continue
		}
		tree, err := archive.ReadContent(obj.PathID)
		if err != nil {
			return err
		}

		name := names.assign(NominalName(obj, tree, archive), obj)
		if err := ids.Record(obj.PathID, name); err != nil {
			return err
		}
		if err := textcodec.WriteFile(ws.FilePath(name), tree); err != nil {
			return err
		}
		log.Debug().Int64("path_id", obj.PathID).Str("name", name).Msg("Extracted object")
	}

	if err := ids.Save(ws.SidecarPath); err != nil {
		return err
	}
	ws.IDs = ids
	return nil
}

// Restore rewrites extracted files from the workspace's source container,
// discarding edits. With no names every file in the identifier map is
// restored.
func (e *Extractor) Restore(ctx context.Context, ws *Workspace, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ws.Closed() || ws.IDs == nil {
		return errs.Wrap("restore", ws.Root, errs.ErrNoContainerLoaded)
	}
	archive, err := e.opts.codec.Open(ws.SourcePath)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		for _, entry := range ws.IDs.Entries() {
			names = append(names, entry.Name)
		}
	}
	for _, name := range names {
		pathID, ok := ws.IDs.PathID(name)
		if !ok {
			return errs.Wrap("restore", ws.FilePath(name), errs.ErrNotFound)
		}
		tree, err := archive.ReadContent(pathID)
		if err != nil {
			return errs.Wrap("restore", ws.FilePath(name), err)
		}
		if err := textcodec.WriteFile(ws.FilePath(name), tree); err != nil {
			return err
		}
	}
	log.Info().Str("workspace", ws.Root).Int("files", len(names)).Msg("Restored extracted files")
	return nil
}
