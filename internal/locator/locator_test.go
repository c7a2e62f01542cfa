package locator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bdsp-batch-editor/internal/catalog"
	"bdsp-batch-editor/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	return dir, paths
}

func newLocator(t *testing.T) *Locator {
	t.Helper()
	l, err := New(8, 2)
	require.NoError(t, err)
	return l
}

func TestClassifyPrefersCandidateName(t *testing.T) {
	dir, files := writeFiles(t, map[string]string{
		"TrainerTable.json":                 `{"TrainerPoke": []}`,
		"TrainerTable_MonoBehaviour_9.json": `{"TrainerPoke": []}`,
		"FieldEncount.json":                 `{"table": []}`,
	})

	res, err := newLocator(t).Classify(context.Background(), catalog.Masterdatas.Name, files)
	require.NoError(t, err)

	p, ok := res.Locate(catalog.TrainerTable)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "TrainerTable.json"), p)
	assert.Equal(t, []string{filepath.Join(dir, "FieldEncount.json")}, res.Unsupported())
}

func TestClassifyFallsBackToSniffing(t *testing.T) {
	dir, files := writeFiles(t, map[string]string{
		"unnamed_12.json": `{"TrainerPoke": [{"ID": 1}]}`,
		"broken.json":     `{`,
		"list.json":       `[1, 2]`,
	})

	path, ok, err := newLocator(t).Locate(context.Background(), catalog.Masterdatas.Name, catalog.TrainerTable, files)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "unnamed_12.json"), path)
}

func TestClassifyKeywords(t *testing.T) {
	dir, files := writeFiles(t, map[string]string{
		"PersonalTable.json": `{"Personal": []}`,
		"WazaMoveTable.json": `{}`,
		"ItemTable.json":     `{}`,
		"data_12.json":       `{"other": 1}`,
	})

	res, err := newLocator(t).Classify(context.Background(), catalog.PersonalMasterdatas.Name, files)
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.ItemTable, catalog.MoveTable, catalog.PersonalTable}, res.Contents())

	p, ok := res.Locate(catalog.PersonalTable)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "PersonalTable.json"), p)
	assert.Len(t, res.Unsupported(), 1)

	for _, c := range res.Files {
		if filepath.Base(c.Path) == "WazaMoveTable.json" {
			assert.Equal(t, RuleKeyword, c.Rule)
		}
	}
}

func TestLocateAbsentContent(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"other.json": `{}`})
	l := newLocator(t)

	p, ok, err := l.Locate(context.Background(), catalog.Masterdatas.Name, catalog.TrainerTable, files)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, p)

	// Files that vanished are treated as unclassified.
	p, ok, err = l.Locate(context.Background(), catalog.Masterdatas.Name, catalog.TrainerTable, []string{"/does/not/exist.json"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, p)
}

func TestClassifyUnknownFamily(t *testing.T) {
	_, err := newLocator(t).Classify(context.Background(), "ev_script", nil)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSniffCacheTracksFileChanges(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"x.json": `{"nothing": 1}`})
	l := newLocator(t)

	_, ok, err := l.Locate(context.Background(), catalog.Masterdatas.Name, catalog.TrainerTable, files)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, l.cache.Len())

	require.NoError(t, os.WriteFile(files[0], []byte(`{"TrainerPoke": [], "pad": "changed size"}`), 0o644))
	_, ok, err = l.Locate(context.Background(), catalog.Masterdatas.Name, catalog.TrainerTable, files)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRuleString(t *testing.T) {
	assert.Equal(t, "none", RuleNone.String())
	assert.Equal(t, "candidate", RuleCandidate.String())
	assert.Equal(t, "keyword", RuleKeyword.String())
	assert.Equal(t, "sniff", RuleSniff.String())
}
