package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bdsp-batch-editor/internal/catalog"

	"github.com/rs/zerolog/log"
)

// FileEntry is a discovered container file.
type FileEntry struct {
	Path   string
	Family catalog.Family
}

// Detection maps each family to the container file found for it.
type Detection struct {
	// Roots are the ROMFS roots that were searched, in search order.
	Roots []string
	Files map[string]string
}

// Path returns the file found for family.
func (d *Detection) Path(family string) (string, bool) {
	p, ok := d.Files[family]
	return p, ok
}

// Found counts the families with a file.
func (d *Detection) Found() int {
	return len(d.Files)
}

// IsROMFS reports whether dir holds the game's asset directory layout.
func IsROMFS(dir string) bool {
	assets := filepath.Join(dir, filepath.FromSlash(catalog.AssetRoot))
	if !isDir(assets) {
		return false
	}
	for _, f := range catalog.Families {
		if isDir(filepath.Join(assets, f.Dir)) {
			return true
		}
	}
	return false
}

// Detect looks for ROMFS layouts in folder itself, in folder/romfs, and in
// each direct subdirectory, and returns the first container found for each
// family.
func Detect(folder string) (*Detection, error) {
	folder, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	if !isDir(folder) {
		return nil, fmt.Errorf("detect %s: not a directory", folder)
	}

	var candidates []string
	if IsROMFS(folder) {
		candidates = append(candidates, folder)
	}
	if sub := filepath.Join(folder, "romfs"); IsROMFS(sub) {
		candidates = append(candidates, sub)
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	for _, e := range entries {
		sub := filepath.Join(folder, e.Name())
		if e.IsDir() && e.Name() != "romfs" && IsROMFS(sub) {
			candidates = append(candidates, sub)
		}
	}

	d := &Detection{Roots: candidates, Files: make(map[string]string)}
	for _, root := range candidates {
		for _, f := range catalog.Families {
			if _, done := d.Files[f.Name]; done {
				continue
			}
			if p, ok := findFile(root, f); ok {
				d.Files[f.Name] = p
			}
		}
	}

	log.Info().Str("folder", folder).Int("roots", len(candidates)).Int("found", d.Found()).Msg("Detected ROMFS files")
	return d, nil
}

func findFile(root string, f catalog.Family) (string, bool) {
	expected := filepath.Join(root, filepath.FromSlash(f.RelPath()))
	if isFile(expected) {
		return expected, true
	}
	dir := filepath.Dir(expected)
	for _, alt := range f.AltNames {
		if p := filepath.Join(dir, alt); isFile(p) {
			return p, true
		}
	}
	return "", false
}

// FileType identifies the family of a container path by its file name, or
// failing that by the directory it sits in.
func FileType(path string) (catalog.Family, bool) {
	name := strings.ToLower(filepath.Base(path))
	for _, f := range catalog.Families {
		for _, alt := range f.AltNames {
			if strings.HasPrefix(name, strings.ToLower(alt)) {
				return f, true
			}
		}
	}

	parent := strings.ToLower(filepath.ToSlash(filepath.Dir(path)))
	for _, f := range catalog.Families {
		if strings.Contains(parent, strings.ToLower(catalog.AssetRoot+"/"+f.Dir)) {
			return f, true
		}
	}
	return catalog.Family{}, false
}

// Walker finds container files anywhere below a directory.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Walk discovers all container files under the given root directory.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if info.IsDir() {
			return nil
		}
		name := strings.ToLower(info.Name())
		for _, f := range catalog.Families {
			for _, alt := range f.AltNames {
				if name == alt {
					entries = append(entries, FileEntry{Path: path, Family: f})
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered container files")
	return entries, nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
