// Package idmap persists the mapping from an embedded object's path id to the
// file name assigned to it during extraction.
package idmap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/textcodec"
)

// SidecarSuffix is appended to the source container's base name to form the
// sidecar file name.
const SidecarSuffix = "_pathIDs.json"

// Entry is one recorded assignment.
type Entry struct {
	PathID int64
	Name   string
}

// Map is write-once per path id. Names are unique within one map.
type Map struct {
	byID   map[int64]string
	byName map[string]int64
	order  []int64
}

// New returns an empty map.
func New() *Map {
	return &Map{
		byID:   make(map[int64]string),
		byName: make(map[string]int64),
	}
}

// SidecarName returns the sidecar file name for a source container.
func SidecarName(srcPath string) string {
	return filepath.Base(srcPath) + SidecarSuffix
}

// Record stores the name assigned to pathID.
func (m *Map) Record(pathID int64, name string) error {
	if _, ok := m.byID[pathID]; ok {
		return fmt.Errorf("record %d: %w", pathID, errs.ErrDuplicatePathID)
	}
	if other, ok := m.byName[name]; ok {
		return fmt.Errorf("record %d as %q (held by %d): %w", pathID, name, other, errs.ErrDuplicateName)
	}
	m.byID[pathID] = name
	m.byName[name] = pathID
	m.order = append(m.order, pathID)
	return nil
}

// Resolve returns the name assigned to pathID.
func (m *Map) Resolve(pathID int64) (string, bool) {
	name, ok := m.byID[pathID]
	return name, ok
}

// PathID returns the path id a name was assigned to.
func (m *Map) PathID(name string) (int64, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Len returns the number of recorded assignments.
func (m *Map) Len() int {
	return len(m.order)
}

// Entries lists assignments in the order they were recorded.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.order))
	for i, id := range m.order {
		out[i] = Entry{PathID: id, Name: m.byID[id]}
	}
	return out
}

// Save writes the map as a flat JSON object of path id strings to names.
func (m *Map) Save(path string) error {
	flat := make(map[string]any, len(m.byID))
	for id, name := range m.byID {
		flat[strconv.FormatInt(id, 10)] = name
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap("save identifier map", path, fmt.Errorf("%w: %w", errs.ErrIO, err))
	}
	return textcodec.WriteFile(path, flat)
}

// Load reads a sidecar written by Save. A missing or malformed sidecar is
// reported as errs.ErrSidecarInvalid.
func Load(path string) (*Map, error) {
	tree, err := textcodec.ReadFile(path)
	if err != nil {
		return nil, errs.Phase("load identifier map", path, errs.ErrSidecarInvalid, err)
	}
	flat, ok := datatree.Mapping(tree)
	if !ok {
		return nil, errs.Phase("load identifier map", path, errs.ErrSidecarInvalid, fmt.Errorf("top level is %T, want object", tree))
	}

	entries := make([]Entry, 0, len(flat))
	for key, v := range flat {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errs.Phase("load identifier map", path, errs.ErrSidecarInvalid, fmt.Errorf("key %q is not a path id", key))
		}
		name, ok := v.(string)
		if !ok || name == "" {
			return nil, errs.Phase("load identifier map", path, errs.ErrSidecarInvalid, fmt.Errorf("path id %d has no name", id))
		}
		entries = append(entries, Entry{PathID: id, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PathID < entries[j].PathID })

	m := New()
	for _, e := range entries {
		if err := m.Record(e.PathID, e.Name); err != nil {
			return nil, errs.Phase("load identifier map", path, errs.ErrSidecarInvalid, err)
		}
	}
	return m, nil
}
