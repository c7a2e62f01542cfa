package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadProfile(writeProfile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MinLevel)
	assert.Equal(t, 100, cfg.MaxLevel)
	assert.Equal(t, 50, cfg.PreviewLimit)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "single", cfg.ExportMode)
}

func TestProfileOverridesDefaults(t *testing.T) {
	path := writeProfile(t, `
[levels]
min = 5
max = 80
preview_limit = 10

[export]
output_dir = out
mode = romfs

[s3]
bucket = mods
use_ssl = false
`)
	cfg, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MinLevel)
	assert.Equal(t, 80, cfg.MaxLevel)
	assert.Equal(t, 10, cfg.PreviewLimit)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "romfs", cfg.ExportMode)
	assert.Equal(t, "mods", cfg.S3Bucket)
	assert.False(t, cfg.S3UseSSL)
}

func TestEnvOverridesProfile(t *testing.T) {
	path := writeProfile(t, "[levels]\nmax = 80\nmin = nope\n\n[export]\nmode = sideways\n")
	t.Setenv("BDSP_MAX_LEVEL", "70")
	t.Setenv("BDSP_WORKER_COUNT", "not a number")
	t.Setenv("BDSP_S3_USE_SSL", "false")

	cfg, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.MaxLevel)
	assert.Equal(t, 1, cfg.MinLevel, "unparseable profile value keeps the default")
	assert.Equal(t, 4, cfg.WorkerCount, "unparseable env value keeps the fallback")
	assert.Equal(t, "single", cfg.ExportMode, "unknown mode keeps the default")
	assert.False(t, cfg.S3UseSSL)
}

func TestLoadProfileMissing(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "none.ini"))
	assert.True(t, os.IsNotExist(err))
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ProfileFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
