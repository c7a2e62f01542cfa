// Package export writes rebuilt containers either as single files or as a
// ROMFS tree ready to drop into a mod folder.
package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// Mode selects the output layout.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeROMFS  Mode = "romfs"
)

// Output locations.
const (
	SingleSubdir = "ModifiedFiles"
	OutputFolder = "Output"
	ROMFSDir     = "romfs"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSingle, ModeROMFS:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown export mode %q (want single or romfs)", s)
	}
}

// Job is one family to export. A job without a workspace exports the
// original file unchanged.
type Job struct {
	Family    catalog.Family
	Source    string
	Workspace *roundtrip.Workspace
}

// Modified reports whether the job carries edits.
func (j Job) Modified() bool {
	return j.Workspace != nil
}

// Result describes one exported file.
type Result struct {
	Family   string
	Location string
	Size     int64
	Modified bool
}

// Exporter rebuilds and publishes containers.
type Exporter struct {
	rebuilder *roundtrip.Rebuilder
	workers   int
	tempRoot  string
}

// NewExporter creates an Exporter.
func NewExporter(rebuilder *roundtrip.Rebuilder, workers int, tempRoot string) *Exporter {
	return &Exporter{rebuilder: rebuilder, workers: workers, tempRoot: tempRoot}
}

// SinglePath returns where single mode writes a container from src.
func SinglePath(baseDir, src string) string {
	return filepath.Join(baseDir, SingleSubdir, filepath.Base(src))
}

// ROMFSPath returns the slash-separated path of a family's file inside an
// exported ROMFS tree.
func ROMFSPath(f catalog.Family, src string) string {
	return path.Join(ROMFSDir, catalog.AssetRoot, f.Dir, filepath.Base(src))
}

// ExportSingle rebuilds one workspace into baseDir/ModifiedFiles.
func (e *Exporter) ExportSingle(ctx context.Context, ws *roundtrip.Workspace, baseDir string) (*Result, error) {
	dest := SinglePath(baseDir, ws.SourcePath)
	report, err := e.rebuilder.Rebuild(ctx, ws, dest)
	if err != nil {
		return nil, fmt.Errorf("export single file: %w", err)
	}
	log.Info().Str("dest", dest).Str("size", humanize.Bytes(uint64(report.Bytes))).Msg("Exported container")
	return &Result{Location: dest, Size: int64(report.Bytes), Modified: true}, nil
}

// ExportROMFS writes every job into sink under the ROMFS layout. Modified
// jobs are rebuilt first; the rest are copied as they are. Jobs run on the
// worker pool since each has its own workspace.
func (e *Exporter) ExportROMFS(ctx context.Context, jobs []Job, sink Sink) ([]Result, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("export ROMFS structure: no files detected")
	}
	pool := worker.NewPool[Job, Result](e.workers, func(ctx context.Context, j Job) (Result, error) {
		return e.exportJob(ctx, j, sink)
	})
	tasks := pool.Execute(ctx, jobs)
	if err := worker.Errors(tasks); err != nil {
		return nil, fmt.Errorf("export ROMFS structure: %w", err)
	}

	results := make([]Result, len(tasks))
	var total int64
	for i, t := range tasks {
		results[i] = t.Result
		total += t.Result.Size
	}
	log.Info().Int("files", len(results)).Str("size", humanize.Bytes(uint64(total))).Msg("Exported ROMFS structure")
	return results, nil
}

func (e *Exporter) exportJob(ctx context.Context, j Job, sink Sink) (Result, error) {
	rel := ROMFSPath(j.Family, j.Source)
	file := j.Source

	if j.Modified() {
		tmpDir, err := os.MkdirTemp(e.tempRoot, "bdsp_export_")
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", j.Family.Name, err)
		}
		defer os.RemoveAll(tmpDir)

		file = filepath.Join(tmpDir, filepath.Base(j.Source))
		if _, err := e.rebuilder.Rebuild(ctx, j.Workspace, file); err != nil {
			return Result{}, fmt.Errorf("%s: %w", j.Family.Name, err)
		}
	}

	size, err := putFile(ctx, sink, rel, file)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", j.Family.Name, err)
	}
	log.Debug().Str("family", j.Family.Name).Str("to", sink.Location(rel)).Bool("modified", j.Modified()).Msg("Exported file")
	return Result{Family: j.Family.Name, Location: sink.Location(rel), Size: size, Modified: j.Modified()}, nil
}

// Summary describes what an export will do.
func Summary(mode Mode, detected int, modified []string) string {
	if mode == ModeSingle {
		if len(modified) > 0 {
			return fmt.Sprintf("Export single modified %s file", modified[0])
		}
		return "Export single file (no modifications)"
	}
	return fmt.Sprintf("Export ROMFS structure with %d files (%d modified)", detected, len(modified))
}
