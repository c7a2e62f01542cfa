package roundtrip

import (
	"context"
	"errors"

	"bdsp-batch-editor/internal/container"
	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/fsutil"
	"bdsp-batch-editor/internal/idmap"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/rs/zerolog/log"
)

// RebuildReport counts what happened to each object of interest.
type RebuildReport struct {
	Destination string
	Replaced    int
	Unchanged   int
	Untouched   int
	Bytes       int
}

// Rebuilder writes a new container from the original source and the edited
// files of a workspace.
type Rebuilder struct {
	opts   options
	packer container.Packer
}

// NewRebuilder creates a Rebuilder that packs with container.DefaultPacker.
func NewRebuilder(opts ...Option) *Rebuilder {
	return &Rebuilder{opts: newOptions(opts), packer: container.DefaultPacker}
}

// Rebuild re-opens the workspace's source container, substitutes the content
// of every object that has an extracted file, and writes the result to dest.
// Objects without a file are carried over unchanged. Either the whole
// container is written or dest is left as it was.
func (r *Rebuilder) Rebuild(ctx context.Context, ws *Workspace, dest string) (*RebuildReport, error) {
	if ws == nil || ws.Closed() {
		return nil, errs.Wrap("rebuild", dest, errs.ErrNoContainerLoaded)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := idmap.Load(ws.SidecarPath)
	if err != nil {
		return nil, errs.Phase("rebuild", dest, errs.ErrRepackFailed, err)
	}
	archive, err := r.opts.codec.Open(ws.SourcePath)
	if err != nil {
		return nil, errs.Phase("rebuild", dest, errs.ErrRepackFailed, err)
	}

	report := &RebuildReport{Destination: dest}
	if err := r.substitute(ws, ids, archive, report); err != nil {
		return nil, errs.Phase("rebuild", dest, errs.ErrRepackFailed, err)
	}

	data, err := archive.Serialize(r.packer)
	if err != nil {
		return nil, errs.Phase("rebuild", dest, errs.ErrRepackFailed, err)
	}
	if err := fsutil.WriteFileAtomic(dest, data, 0o644); err != nil {
		return nil, errs.Phase("rebuild", dest, errs.ErrRepackFailed, err)
	}
	report.Bytes = len(data)

	log.Info().
		Str("dest", dest).
		Int("replaced", report.Replaced).
		Int("unchanged", report.Unchanged).
		Int("untouched", report.Untouched).
		Msg("Rebuilt container")
	return report, nil
}

func (r *Rebuilder) substitute(ws *Workspace, ids *idmap.Map, archive Archive, report *RebuildReport) error {
	for _, obj := range archive.Objects() {
		if !r.opts.interest[obj.TypeName] {
			continue
		}

		name, ok := ids.Resolve(obj.PathID)
		if !ok {
			tree, err := archive.ReadContent(obj.PathID)
			if err != nil {
				return err
			}
			name = NominalName(obj, tree, archive)
			log.Warn().Int64("path_id", obj.PathID).Str("name", name).Msg("Path id missing from identifier map, using nominal name")
		}

		edited, err := textcodec.ReadFile(ws.FilePath(name))
		if errors.Is(err, errs.ErrExtractedFileMissing) {
			report.Untouched++
			continue
		}
		if err != nil {
			return err
		}

		if r.opts.skipUnchanged {
			current, err := archive.ReadContent(obj.PathID)
			if err != nil {
				return err
			}
			if datatree.Equal(current, edited) {
				report.Unchanged++
				continue
			}
		}
		if err := archive.WriteContent(obj.PathID, edited); err != nil {
			return err
		}
		report.Replaced++
	}
	return nil
}
