// Package roster gives typed access to the trainer party table: a top-level
// "TrainerPoke" sequence of records with up to six party slots each.
package roster

import (
	"fmt"
	"strconv"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
)

// TableKey is the top-level key holding the record sequence.
const TableKey = "TrainerPoke"

// IDKey is the record identifier field.
const IDKey = "ID"

// SlotCount is the number of party slots per record.
const SlotCount = 6

// Stats lists the suffixes of the per-slot IV ("Talent") and EV ("Effort")
// fields.
var Stats = []string{"Hp", "Atk", "Def", "SpAtk", "SpDef", "Agi"}

// Collection is the record sequence of one loaded table. Records alias the
// underlying tree, so edits are visible to whoever owns the tree.
type Collection struct {
	tree     map[string]any
	records  []any
	snapshot []any
}

// Load finds the record sequence in tree.
func Load(tree any) (*Collection, error) {
	m, ok := datatree.Mapping(tree)
	if !ok {
		return nil, fmt.Errorf("load records: %w: top level is %T", errs.ErrNoRecords, tree)
	}
	seq, ok := datatree.Sequence(m[TableKey])
	if !ok {
		return nil, fmt.Errorf("load records: %w: no %q sequence", errs.ErrNoRecords, TableKey)
	}
	c := &Collection{tree: m, records: seq}
	c.snapshot = datatree.Clone(seq).([]any)
	return c, nil
}

// FromRecords wraps a bare record sequence.
func FromRecords(records []any) *Collection {
	c := &Collection{tree: map[string]any{TableKey: records}, records: records}
	c.snapshot = datatree.Clone(records).([]any)
	return c
}

// Tree returns the table tree with the current records.
func (c *Collection) Tree() map[string]any {
	c.tree[TableKey] = c.records
	return c.tree
}

// Raw returns the underlying record sequence.
func (c *Collection) Raw() []any {
	return c.records
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// Record returns the i-th record. Entries that are not mappings yield a
// record with no fields.
func (c *Collection) Record(i int) Record {
	m, _ := datatree.Mapping(c.records[i])
	return Record{m: m}
}

// Records returns a view of every record.
func (c *Collection) Records() []Record {
	out := make([]Record, len(c.records))
	for i := range c.records {
		out[i] = c.Record(i)
	}
	return out
}

// Clone deep-copies the collection, including its snapshot.
func (c *Collection) Clone() *Collection {
	tree := datatree.Clone(c.tree).(map[string]any)
	records := datatree.Clone(c.records).([]any)
	tree[TableKey] = records
	return &Collection{tree: tree, records: records, snapshot: datatree.Clone(c.snapshot).([]any)}
}

// Snapshot records the current state as the one reset point.
func (c *Collection) Snapshot() {
	c.snapshot = datatree.Clone(c.records).([]any)
}

// Reset restores the records to the last snapshot, in place.
func (c *Collection) Reset() {
	restored := datatree.Clone(c.snapshot).([]any)
	c.records = c.records[:0]
	c.records = append(c.records, restored...)
	c.tree[TableKey] = c.records
}

// Validate checks that the first record carries the fields editing relies on.
func (c *Collection) Validate() error {
	if len(c.records) == 0 {
		return nil
	}
	first := c.Record(0)
	for _, key := range []string{IDKey, "P1Level", "P1MonsNo"} {
		if _, ok := first.m[key]; !ok {
			return fmt.Errorf("validate records: %w: first record has no %q", errs.ErrNoRecords, key)
		}
	}
	return nil
}

// PokemonCountByTrainer maps each record id to its occupied slot count.
func (c *Collection) PokemonCountByTrainer() map[int64]int {
	out := make(map[int64]int, len(c.records))
	for _, r := range c.Records() {
		out[r.ID()] += r.Occupied()
	}
	return out
}

// Record is one entry of the table.
type Record struct {
	m map[string]any
}

// ID returns the record id, or 0 when absent.
func (r Record) ID() int64 {
	id, _ := datatree.Int(r.m[IDKey])
	return id
}

// Slot returns party slot n, 1 through SlotCount.
func (r Record) Slot(n int) Slot {
	return Slot{m: r.m, prefix: "P" + strconv.Itoa(n), n: n}
}

// Slots returns all party slots in order.
func (r Record) Slots() []Slot {
	out := make([]Slot, SlotCount)
	for i := range out {
		out[i] = r.Slot(i + 1)
	}
	return out
}

// Occupied counts occupied slots.
func (r Record) Occupied() int {
	n := 0
	for _, s := range r.Slots() {
		if s.Occupied() {
			n++
		}
	}
	return n
}

// Slot is one party member of a record, addressed by field prefix.
type Slot struct {
	m      map[string]any
	prefix string
	n      int
}

// Number returns the slot number.
func (s Slot) Number() int { return s.n }

func (s Slot) field(name string) int64 {
	v, _ := datatree.Int(s.m[s.prefix+name])
	return v
}

// MonsNo returns the species id.
func (s Slot) MonsNo() int64 { return s.field("MonsNo") }

// Level returns the level.
func (s Slot) Level() int64 { return s.field("Level") }

// FormNo returns the form number.
func (s Slot) FormNo() int64 { return s.field("FormNo") }

// Occupied reports whether both species id and level are positive.
func (s Slot) Occupied() bool {
	return s.MonsNo() > 0 && s.Level() > 0
}

// SetLevel stores a new level.
func (s Slot) SetLevel(level int64) {
	if s.m == nil {
		return
	}
	s.m[s.prefix+"Level"] = level
}

// Talents returns the six IVs in Stats order.
func (s Slot) Talents() [6]int64 {
	return s.statBlock("Talent")
}

// Efforts returns the six EVs in Stats order.
func (s Slot) Efforts() [6]int64 {
	return s.statBlock("Effort")
}

func (s Slot) statBlock(kind string) [6]int64 {
	var out [6]int64
	for i, st := range Stats {
		out[i] = s.field(kind + st)
	}
	return out
}
