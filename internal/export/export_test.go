package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/container"
	"bdsp-batch-editor/internal/roundtrip"
	"bdsp-batch-editor/internal/textcodec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeContainer(t *testing.T, path string, level int) {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Add(1, "MonoBehaviour", map[string]any{
		"m_Name":      "TrainerTable",
		"TrainerPoke": []any{map[string]any{"ID": 1, "P1MonsNo": 1, "P1Level": level}},
	}))
	data, err := c.Serialize(container.DefaultPacker)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func editLevel(t *testing.T, ws *roundtrip.Workspace, level int) {
	t.Helper()
	tree, err := textcodec.ReadFile(ws.FilePath("TrainerTable"))
	require.NoError(t, err)
	tree.(map[string]any)["TrainerPoke"].([]any)[0].(map[string]any)["P1Level"] = int64(level)
	require.NoError(t, textcodec.WriteFile(ws.FilePath("TrainerTable"), tree))
}

func readLevel(t *testing.T, path string) int64 {
	t.Helper()
	c, err := container.Open(path)
	require.NoError(t, err)
	tree, err := c.ReadContent(1)
	require.NoError(t, err)
	return tree.(map[string]any)["TrainerPoke"].([]any)[0].(map[string]any)["P1Level"].(int64)
}

func TestExportSingle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in", "masterdatas")
	writeContainer(t, src, 10)

	ws, err := roundtrip.NewExtractor(roundtrip.WithTempRoot(dir)).Extract(context.Background(), src)
	require.NoError(t, err)
	defer ws.Close()
	editLevel(t, ws, 42)

	out := filepath.Join(dir, "out")
	res, err := NewExporter(roundtrip.NewRebuilder(), 2, dir).ExportSingle(context.Background(), ws, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, SingleSubdir, "masterdatas"), res.Location)
	assert.Equal(t, int64(42), readLevel(t, res.Location))
	assert.Equal(t, int64(10), readLevel(t, src), "source is never modified")
}

func TestExportROMFS(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "in", "masterdatas")
	pm := filepath.Join(dir, "in", "personal_masterdatas")
	writeContainer(t, md, 10)
	writeContainer(t, pm, 20)

	ws, err := roundtrip.NewExtractor(roundtrip.WithTempRoot(dir)).Extract(context.Background(), md)
	require.NoError(t, err)
	defer ws.Close()
	editLevel(t, ws, 55)

	out := filepath.Join(dir, "out")
	jobs := []Job{
		{Family: catalog.Masterdatas, Source: md, Workspace: ws},
		{Family: catalog.PersonalMasterdatas, Source: pm},
	}
	results, err := NewExporter(roundtrip.NewRebuilder(), 2, dir).ExportROMFS(context.Background(), jobs, DirSink{Root: out})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Modified)
	assert.False(t, results[1].Modified)

	assets := filepath.Join(out, "romfs", "Data", "StreamingAssets", "AssetAssistant")
	assert.Equal(t, int64(55), readLevel(t, filepath.Join(assets, "Dpr", "masterdatas")))
	assert.Equal(t, int64(20), readLevel(t, filepath.Join(assets, "Pml", "personal_masterdatas")))

	orig, err := os.ReadFile(pm)
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(assets, "Pml", "personal_masterdatas"))
	require.NoError(t, err)
	assert.Equal(t, orig, copied)

	leftovers, err := filepath.Glob(filepath.Join(dir, "bdsp_export_*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestExportROMFSWithoutJobs(t *testing.T) {
	_, err := NewExporter(roundtrip.NewRebuilder(), 1, "").ExportROMFS(context.Background(), nil, DirSink{Root: t.TempDir()})
	assert.Error(t, err)
}

func TestDirSinkRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	sink := DirSink{Root: root}
	require.NoError(t, sink.Put(context.Background(), "../../evil", strings.NewReader("x"), 1))
	assert.FileExists(t, filepath.Join(root, "evil"))
	assert.Error(t, sink.Put(context.Background(), "/", strings.NewReader("x"), 1))
}

func TestS3SinkKeys(t *testing.T) {
	s, err := NewS3Sink(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "mods", Prefix: "/release/"})
	require.NoError(t, err)
	assert.Equal(t, "s3://mods/release/romfs/Data/x", s.Location("romfs/Data/x"))

	_, err = NewS3Sink(S3Config{Endpoint: "localhost:9000", Bucket: "mods"})
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Export single modified masterdatas file", Summary(ModeSingle, 1, []string{"masterdatas"}))
	assert.Equal(t, "Export single file (no modifications)", Summary(ModeSingle, 1, nil))
	assert.Equal(t, "Export ROMFS structure with 2 files (1 modified)", Summary(ModeROMFS, 2, []string{"masterdatas"}))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("romfs")
	require.NoError(t, err)
	assert.Equal(t, ModeROMFS, m)
	_, err = ParseMode("zip")
	assert.Error(t, err)
}
