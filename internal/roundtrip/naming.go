package roundtrip

import (
	"fmt"
	"strings"

	"bdsp-batch-editor/internal/container"
	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/textcodec"

	"golang.org/x/text/cases"
)

// Field names read when deriving an object's name.
const (
	nameField     = "m_Name"
	scriptField   = "m_Script"
	scriptIDField = "m_PathID"
)

// DeclaredName returns the name an object's content declares for itself,
// following at most one script reference when the object has none.
func DeclaredName(obj container.ObjectInfo, tree any, archive Archive) string {
	m, _ := datatree.Mapping(tree)
	if name := baseName(datatree.String(m, nameField)); name != "" {
		return name
	}

	script, ok := datatree.Mapping(m[scriptField])
	if !ok {
		return ""
	}
	ref, ok := datatree.Int(script[scriptIDField])
	if !ok || ref == 0 || ref == obj.PathID {
		return ""
	}
	target, err := archive.ReadContent(ref)
	if err != nil {
		return ""
	}
	tm, _ := datatree.Mapping(target)
	return baseName(datatree.String(tm, nameField))
}

// NominalName is DeclaredName with the unnamed fallback applied.
func NominalName(obj container.ObjectInfo, tree any, archive Archive) string {
	if name := DeclaredName(obj, tree, archive); name != "" {
		return name
	}
	return fmt.Sprintf("unnamed_%d", obj.PathID)
}

// DisambiguatedName is the name given to an object whose nominal name was
// already taken in the same pass.
func DisambiguatedName(name string, obj container.ObjectInfo) string {
	return fmt.Sprintf("%s_%s_%d", name, obj.TypeName, obj.PathID)
}

// baseName strips any directory part, accepting either separator.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// nameSet tracks the file names emitted in one extraction pass. Comparison
// is case-insensitive because extracted files may land on a case-insensitive
// filesystem.
type nameSet struct {
	fold cases.Caser
	seen map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{fold: cases.Fold(), seen: make(map[string]struct{})}
}

func (s *nameSet) key(name string) string {
	return s.fold.String(name + textcodec.Ext)
}

func (s *nameSet) has(name string) bool {
	_, ok := s.seen[s.key(name)]
	return ok
}

func (s *nameSet) add(name string) {
	s.seen[s.key(name)] = struct{}{}
}

// assign picks the file name for obj. The first object to claim a nominal
// name keeps it; later ones get the disambiguated form.
func (s *nameSet) assign(nominal string, obj container.ObjectInfo) string {
	name := nominal
	if s.has(name) {
		name = DisambiguatedName(nominal, obj)
		for n := 2; s.has(name); n++ {
			name = fmt.Sprintf("%s_%d", DisambiguatedName(nominal, obj), n)
		}
	}
	s.add(name)
	return name
}
