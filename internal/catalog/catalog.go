// Package catalog lists the container families the editor understands and
// the logical content each one carries.
package catalog

import (
	"path"
	"strings"
)

// AssetRoot is where every supported container lives below a ROMFS root.
const AssetRoot = "Data/StreamingAssets/AssetAssistant"

// Content type names.
const (
	TrainerTable  = "TrainerTable"
	PersonalTable = "PersonalTable"
	AbilityTable  = "AbilityTable"
	MoveTable     = "MoveTable"
	ItemTable     = "ItemTable"
	TypeTable     = "TypeTable"
)

// Family describes one kind of container file.
type Family struct {
	Name        string
	Dir         string
	DisplayName string
	Description string
	// AltNames are file names the container is also shipped under.
	AltNames []string
	// Supported lists the content types the editor can change.
	Supported []string
	// Interest lists the object types extracted from the container.
	Interest []string
}

// RelPath returns the family's path relative to a ROMFS root.
func (f Family) RelPath() string {
	return path.Join(AssetRoot, f.Dir, f.Name)
}

// Supports reports whether content can be edited in this family.
func (f Family) Supports(content string) bool {
	for _, c := range f.Supported {
		if c == content {
			return true
		}
	}
	return false
}

var (
	// Masterdatas holds the trainer tables.
	Masterdatas = Family{
		Name:        "masterdatas",
		Dir:         "Dpr",
		DisplayName: "Trainer Data (masterdatas)",
		Description: "Main trainer data including levels, Pokemon, and movesets",
		AltNames:    []string{"masterdatas", "masterdatas.dat", "masterdatas.unity3d"},
		Supported:   []string{TrainerTable},
		Interest:    []string{"MonoBehaviour"},
	}
	// PersonalMasterdatas holds the per-species Pokemon data.
	PersonalMasterdatas = Family{
		Name:        "personal_masterdatas",
		Dir:         "Pml",
		DisplayName: "Pokemon Data (personal_masterdatas)",
		Description: "Pokemon base stats, abilities, and species data",
		AltNames:    []string{"personal_masterdatas", "personal_masterdatas.dat", "personal_masterdatas.unity3d"},
		Supported:   []string{PersonalTable},
		Interest:    []string{"MonoBehaviour"},
	}
)

// Families lists every supported family in a fixed order.
var Families = []Family{Masterdatas, PersonalMasterdatas}

// Lookup finds a family by name, ignoring case.
func Lookup(name string) (Family, bool) {
	for _, f := range Families {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Family{}, false
}

var contentNames = map[string]string{
	TrainerTable:  "Trainer Pokemon",
	PersonalTable: "Pokemon Stats",
	AbilityTable:  "Abilities",
	MoveTable:     "Moves",
	ItemTable:     "Items",
	TypeTable:     "Types",
}

// ContentDisplayName returns a readable name for a content type.
func ContentDisplayName(content string) string {
	if n, ok := contentNames[content]; ok {
		return n
	}
	return content
}
