package transform

import (
	"testing"

	"bdsp-batch-editor/internal/datatree"
	"bdsp-batch-editor/internal/errs"
	"bdsp-batch-editor/internal/roster"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainer(id int64, levels ...int64) map[string]any {
	r := map[string]any{"ID": id}
	for i := 1; i <= roster.SlotCount; i++ {
		p := "P" + string(rune('0'+i))
		r[p+"MonsNo"] = int64(0)
		r[p+"Level"] = int64(0)
		if i <= len(levels) {
			r[p+"MonsNo"] = int64(100 + i)
			r[p+"Level"] = levels[i-1]
		}
	}
	return r
}

func collection(records ...map[string]any) *roster.Collection {
	seq := make([]any, len(records))
	for i, r := range records {
		seq[i] = r
	}
	return roster.FromRecords(seq)
}

func level(c *roster.Collection, rec, slot int) int64 {
	return c.Record(rec).Slot(slot).Level()
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
		err  error
	}{
		{"+10", Spec{Absolute, 10}, nil},
		{"-5", Spec{Absolute, -5}, nil},
		{"7", Spec{Absolute, 7}, nil},
		{"20%", Spec{Percentage, 20}, nil},
		{"-12.5%", Spec{Percentage, -12.5}, nil},
		{"  +3.25 ", Spec{Absolute, 3.25}, nil},
		{"", Spec{}, errs.ErrEmptyInput},
		{"   ", Spec{}, errs.ErrEmptyInput},
		{"abc", Spec{}, errs.ErrInvalidFormat},
		{"%", Spec{}, errs.ErrInvalidFormat},
		{"10%%", Spec{}, errs.ErrInvalidFormat},
		{"1.", Spec{}, errs.ErrInvalidFormat},
		{"+-1", Spec{}, errs.ErrInvalidFormat},
		{"1e3", Spec{}, errs.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpec(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.ErrorIs(t, err, errs.ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLevel(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		old  int64
		b    Bounds
		want int64
	}{
		{"percentage", Spec{Percentage, 20}, 50, DefaultBounds, 60},
		{"absolute clamped high", Spec{Absolute, 10}, 95, DefaultBounds, 100},
		{"absolute clamped low", Spec{Absolute, -20}, 5, DefaultBounds, 1},
		{"absolute truncates", Spec{Absolute, 2.9}, 10, DefaultBounds, 12},
		{"absolute truncates toward zero", Spec{Absolute, -2.9}, 10, DefaultBounds, 8},
		{"percentage rounds half away", Spec{Percentage, 50}, 5, DefaultBounds, 8},
		{"percentage minimum one", Spec{Percentage, -100}, 40, Bounds{Min: 0, Max: 100}, 1},
		{"narrow bounds", Spec{Absolute, 0}, 70, Bounds{Min: 20, Max: 50}, 50},
		{"huge magnitude", Spec{Absolute, 1e30}, 1, DefaultBounds, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.NewLevel(tt.old, tt.b))
		})
	}
}

func TestApplyClampsEveryOccupiedSlot(t *testing.T) {
	c := collection(trainer(1, 95, 3, 50), trainer(2, 99, 100))
	bounds := Bounds{Min: 10, Max: 100}

	mod, err := Apply(c, Spec{Absolute, 10}, bounds, nil)
	require.NoError(t, err)

	for _, rec := range c.Records() {
		for _, s := range rec.Slots() {
			if s.Occupied() {
				assert.GreaterOrEqual(t, s.Level(), bounds.Min)
				assert.LessOrEqual(t, s.Level(), bounds.Max)
			}
		}
	}
	assert.Equal(t, int64(100), level(c, 0, 1))
	assert.Equal(t, int64(13), level(c, 0, 2))
	assert.Equal(t, int64(60), level(c, 0, 3))
	assert.Equal(t, int64(100), level(c, 1, 1))
	assert.Equal(t, int64(100), level(c, 1, 2))

	assert.Equal(t, 2, mod.RecordsModified)
	assert.Equal(t, 4, mod.SlotsModified, "slot already at the cap is not counted")
	assert.Equal(t, []SlotChange{{Slot: 1, MonsNo: 101, OldLevel: 99, NewLevel: 100}}, mod.Records[1].Slots)
}

func TestApplySkipsEmptySlots(t *testing.T) {
	r := trainer(1, 30)
	r["P2MonsNo"] = int64(5) // level 0
	r["P3Level"] = int64(40) // species 0
	c := collection(r)

	mod, err := Apply(c, Spec{Absolute, 5}, DefaultBounds, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mod.SlotsModified)
	assert.Equal(t, int64(0), level(c, 0, 2))
	assert.Equal(t, int64(40), level(c, 0, 3))
}

func TestApplyFilter(t *testing.T) {
	c := collection(trainer(1, 10), trainer(2, 10), trainer(3, 10), trainer(4, 10))

	mod, err := Apply(c, Spec{Absolute, 1}, DefaultBounds, Filter{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, mod.RecordsModified)
	for i, want := range []int64{11, 11, 11, 10} {
		assert.Equal(t, want, level(c, i, 1))
	}

	mod, err = Apply(c, Spec{Absolute, 1}, DefaultBounds, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, mod.RecordsModified)
}

func TestApplyInvalidBoundsDoesNotMutate(t *testing.T) {
	c := collection(trainer(1, 10))
	before := datatree.Clone(c.Raw())

	_, err := Apply(c, Spec{Absolute, 5}, Bounds{Min: 50, Max: 10}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidBounds)
	assert.Equal(t, before, c.Raw())
}

func TestApplyIsDeterministic(t *testing.T) {
	build := func() *roster.Collection { return collection(trainer(1, 33, 47), trainer(2, 12)) }
	a, b := build(), build()
	modA, err := Apply(a, Spec{Percentage, 15}, DefaultBounds, nil)
	require.NoError(t, err)
	modB, err := Apply(b, Spec{Percentage, 15}, DefaultBounds, nil)
	require.NoError(t, err)
	assert.Equal(t, modA, modB)
	assert.Equal(t, a.Raw(), b.Raw())
}

func TestPreviewDoesNotMutate(t *testing.T) {
	c := collection(trainer(1, 100), trainer(2, 50, 60), trainer(3), trainer(4, 10))
	before := datatree.Clone(c.Raw())

	entries, err := Preview(c, Spec{Absolute, 10}, DefaultBounds, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, before, c.Raw())

	require.Len(t, entries, 2, "records without a real change are left out")
	assert.Equal(t, int64(2), entries[0].RecordID)
	assert.Equal(t, PreviewSlot{Slot: 2, MonsNo: 102, OldLevel: 60, NewLevel: 70, Changed: true}, entries[0].Slots[1])
	assert.Equal(t, int64(4), entries[1].RecordID)

	entries, err = Preview(c, Spec{Absolute, 10}, DefaultBounds, nil, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].RecordID)
}

func TestStatistics(t *testing.T) {
	c := collection(trainer(1, 5, 15, 19), trainer(2), trainer(3, 100))
	st := Statistics(c)
	assert.Equal(t, 3, st.TotalRecords)
	assert.Equal(t, 2, st.RecordsWithPokemon)
	assert.Equal(t, 4, st.TotalPokemon)
	assert.Equal(t, 2.0, st.AveragePerRecord)
	assert.Equal(t, []Bucket{{0, 1}, {10, 2}, {100, 1}}, st.Distribution)
	assert.Equal(t, "10-19", st.Distribution[1].Label())
}

func TestStatisticsWithoutPokemon(t *testing.T) {
	st := Statistics(collection(trainer(1), trainer(2)))
	assert.Equal(t, 0, st.RecordsWithPokemon)
	assert.Equal(t, 0.0, st.AveragePerRecord)

	st = Statistics(collection())
	assert.Equal(t, 0.0, st.AveragePerRecord)
}

func TestEngineApplyFromString(t *testing.T) {
	e := NewEngine(zerolog.Nop())
	c := collection(trainer(1, 50))

	out, mod, err := e.ApplyFromString(c, "20%", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(60), level(out, 0, 1))
	assert.Equal(t, int64(50), level(c, 0, 1))
	assert.Equal(t, 1, mod.SlotsModified)
	assert.Equal(t, 1, e.History.Len())

	_, _, err = e.ApplyFromString(c, "x", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidFormat)
	assert.Equal(t, 1, e.History.Len())

	e.History.Clear()
	assert.Empty(t, e.History.List())
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "+10", Spec{Absolute, 10}.String())
	assert.Equal(t, "-2.5%", Spec{Percentage, -2.5}.String())
}
