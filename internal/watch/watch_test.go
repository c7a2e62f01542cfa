package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bdsp-batch-editor/internal/container"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherRebuildsAfterEdit(t *testing.T) {
	dir := t.TempDir()
	c := container.New()
	require.NoError(t, c.Add(1, "MonoBehaviour", map[string]any{"m_Name": "TrainerTable", "v": 1}))
	data, err := c.Serialize(container.DefaultPacker)
	require.NoError(t, err)
	src := filepath.Join(dir, "masterdatas")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	ws, err := roundtrip.NewExtractor(roundtrip.WithTempRoot(dir)).Extract(context.Background(), src)
	require.NoError(t, err)
	defer ws.Close()

	done := make(chan error, 1)
	w := &Watcher{
		Workspace: ws,
		Rebuilder: roundtrip.NewRebuilder(),
		Dest:      filepath.Join(dir, "out", "masterdatas"),
		Debounce:  50 * time.Millisecond,
		OnRebuild: func(_ *roundtrip.RebuildReport, err error) {
			select {
			case done <- err:
			default:
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, textcodec.WriteFile(ws.FilePath("TrainerTable"), map[string]any{"m_Name": "TrainerTable", "v": 2}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after edit")
	}

	out, err := container.Open(w.Dest)
	require.NoError(t, err)
	tree, err := out.ReadContent(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tree.(map[string]any)["v"])
}
