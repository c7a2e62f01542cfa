package transform

import (
	"sort"
	"strconv"

	"bdsp-batch-editor/internal/roster"
)

// Filter selects records by id. An empty filter selects every record.
type Filter []int64

func (f Filter) matcher() func(int64) bool {
	if len(f) == 0 {
		return func(int64) bool { return true }
	}
	set := make(map[int64]struct{}, len(f))
	for _, id := range f {
		set[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := set[id]
		return ok
	}
}

// SlotChange is the before and after of one slot.
type SlotChange struct {
	Slot     int
	MonsNo   int64
	OldLevel int64
	NewLevel int64
}

// RecordChange lists the changed slots of one record.
type RecordChange struct {
	RecordID int64
	Slots    []SlotChange
}

// Modification is the log entry of one applied change.
type Modification struct {
	Spec            Spec
	Bounds          Bounds
	Filter          Filter
	Records         []RecordChange
	RecordsModified int
	SlotsModified   int
}

// Apply changes the level of every occupied slot in the selected records, in
// place. Slots whose level comes out the same are not counted.
func Apply(c *roster.Collection, spec Spec, bounds Bounds, filter Filter) (*Modification, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	mod := &Modification{Spec: spec, Bounds: bounds, Filter: append(Filter(nil), filter...)}
	selected := filter.matcher()
	for _, rec := range c.Records() {
		if !selected(rec.ID()) {
			continue
		}
		var changes []SlotChange
		for _, slot := range rec.Slots() {
			if !slot.Occupied() {
				continue
			}
			old := slot.Level()
			next := spec.NewLevel(old, bounds)
			if next == old {
				continue
			}
			slot.SetLevel(next)
			changes = append(changes, SlotChange{Slot: slot.Number(), MonsNo: slot.MonsNo(), OldLevel: old, NewLevel: next})
		}
		if len(changes) > 0 {
			mod.Records = append(mod.Records, RecordChange{RecordID: rec.ID(), Slots: changes})
			mod.RecordsModified++
			mod.SlotsModified += len(changes)
		}
	}
	return mod, nil
}

// PreviewSlot shows what would happen to one occupied slot.
type PreviewSlot struct {
	Slot     int
	MonsNo   int64
	OldLevel int64
	NewLevel int64
	Changed  bool
}

// PreviewEntry lists every occupied slot of a record that would change.
type PreviewEntry struct {
	RecordID int64
	Slots    []PreviewSlot
}

// Preview computes what Apply would do without touching c. Only records with
// at least one change are returned, at most maxEntries of them; maxEntries
// of zero or less means no limit.
func Preview(c *roster.Collection, spec Spec, bounds Bounds, filter Filter, maxEntries int) ([]PreviewEntry, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	var out []PreviewEntry
	selected := filter.matcher()
	for _, rec := range c.Clone().Records() {
		if maxEntries > 0 && len(out) >= maxEntries {
			break
		}
		if !selected(rec.ID()) {
			continue
		}
		entry := PreviewEntry{RecordID: rec.ID()}
		changed := false
		for _, slot := range rec.Slots() {
			if !slot.Occupied() {
				continue
			}
			old := slot.Level()
			next := spec.NewLevel(old, bounds)
			entry.Slots = append(entry.Slots, PreviewSlot{
				Slot:     slot.Number(),
				MonsNo:   slot.MonsNo(),
				OldLevel: old,
				NewLevel: next,
				Changed:  next != old,
			})
			changed = changed || next != old
		}
		if changed {
			out = append(out, entry)
		}
	}
	return out, nil
}

// BucketWidth is the level range covered by one histogram bucket.
const BucketWidth = 10

// Bucket counts occupied slots whose level falls in [Low, Low+BucketWidth).
type Bucket struct {
	Low   int64
	Count int
}

// Label renders the bucket as "50-59".
func (b Bucket) Label() string {
	return strconv.FormatInt(b.Low, 10) + "-" + strconv.FormatInt(b.Low+BucketWidth-1, 10)
}

// Stats summarizes a collection.
type Stats struct {
	TotalRecords       int
	RecordsWithPokemon int
	TotalPokemon       int
	Distribution       []Bucket
	AveragePerRecord   float64
}

// Statistics summarizes the occupied slots of c.
func Statistics(c *roster.Collection) Stats {
	st := Stats{TotalRecords: c.Len()}
	buckets := make(map[int64]int)
	for _, rec := range c.Records() {
		n := 0
		for _, slot := range rec.Slots() {
			if !slot.Occupied() {
				continue
			}
			n++
			buckets[slot.Level()/BucketWidth*BucketWidth]++
		}
		if n > 0 {
			st.RecordsWithPokemon++
			st.TotalPokemon += n
		}
	}

	for low, count := range buckets {
		st.Distribution = append(st.Distribution, Bucket{Low: low, Count: count})
	}
	sort.Slice(st.Distribution, func(i, j int) bool { return st.Distribution[i].Low < st.Distribution[j].Low })
	st.AveragePerRecord = float64(st.TotalPokemon) / float64(max(st.RecordsWithPokemon, 1))
	return st
}
