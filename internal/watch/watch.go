// Package watch rebuilds a container whenever files in its workspace change.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long the watcher waits after the last change
// before rebuilding.
const DefaultDebounce = 500 * time.Millisecond

// Watcher rebuilds Dest from Workspace after edits settle. Rebuilds run one
// at a time on the watcher's goroutine.
type Watcher struct {
	Workspace *roundtrip.Workspace
	Rebuilder *roundtrip.Rebuilder
	Dest      string
	Debounce  time.Duration

	// OnRebuild, if set, is called after every rebuild attempt.
	OnRebuild func(*roundtrip.RebuildReport, error)
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Workspace.ExportDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Workspace.ExportDir, err)
	}
	log.Info().Str("dir", w.Workspace.ExportDir).Str("dest", w.Dest).Msg("Watching workspace")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Workspace changed")
			fire = time.After(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case <-fire:
			fire = nil
			report, err := w.Rebuilder.Rebuild(ctx, w.Workspace, w.Dest)
			if err != nil {
				log.Error().Err(err).Msg("Rebuild failed")
			}
			if w.OnRebuild != nil {
				w.OnRebuild(report, err)
			}
		}
	}
}

func relevant(e fsnotify.Event) bool {
	if !strings.HasSuffix(e.Name, textcodec.Ext) {
		return false
	}
	return e.Has(fsnotify.Write) || e.Has(fsnotify.Create) || e.Has(fsnotify.Rename) || e.Has(fsnotify.Remove)
}
