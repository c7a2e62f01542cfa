package roster

import (
	"testing"

	"bdsp-batch-editor/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table() map[string]any {
	return map[string]any{
		"m_Name": "TrainerTable",
		"TrainerPoke": []any{
			map[string]any{
				"ID": int64(7), "P1MonsNo": int64(25), "P1Level": int64(12), "P1FormNo": int64(1),
				"P1TalentHp": int64(31), "P1TalentAgi": int64(20), "P1EffortAtk": int64(252),
				"P2MonsNo": int64(0), "P2Level": int64(0),
			},
			map[string]any{"ID": int64(8), "P1MonsNo": int64(1), "P1Level": int64(5), "P2MonsNo": int64(4), "P2Level": int64(6)},
		},
	}
}

func TestLoad(t *testing.T) {
	c, err := Load(table())
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Len())

	r := c.Record(0)
	assert.Equal(t, int64(7), r.ID())
	s := r.Slot(1)
	assert.True(t, s.Occupied())
	assert.Equal(t, int64(25), s.MonsNo())
	assert.Equal(t, int64(1), s.FormNo())
	assert.Equal(t, [6]int64{31, 0, 0, 0, 0, 20}, s.Talents())
	assert.Equal(t, [6]int64{0, 252, 0, 0, 0, 0}, s.Efforts())
	assert.False(t, r.Slot(2).Occupied())
	assert.Equal(t, 1, r.Occupied())

	assert.Equal(t, map[int64]int{7: 1, 8: 2}, c.PokemonCountByTrainer())
}

func TestLoadRejectsOtherShapes(t *testing.T) {
	for _, tree := range []any{nil, []any{}, map[string]any{"Personal": []any{}}, map[string]any{"TrainerPoke": "x"}} {
		_, err := Load(tree)
		assert.ErrorIs(t, err, errs.ErrNoRecords)
	}
}

func TestValidateRequiresKeys(t *testing.T) {
	c := FromRecords([]any{map[string]any{"ID": int64(1), "P1Level": int64(3)}})
	assert.ErrorIs(t, c.Validate(), errs.ErrNoRecords)
	assert.NoError(t, FromRecords(nil).Validate())
}

func TestEditsAliasTree(t *testing.T) {
	tree := table()
	c, err := Load(tree)
	require.NoError(t, err)

	c.Record(1).Slot(2).SetLevel(40)
	rec := tree["TrainerPoke"].([]any)[1].(map[string]any)
	assert.Equal(t, int64(40), rec["P2Level"])
}

func TestResetRestoresSnapshot(t *testing.T) {
	tree := table()
	c, err := Load(tree)
	require.NoError(t, err)

	c.Record(0).Slot(1).SetLevel(99)
	clone := c.Clone()
	c.Reset()
	assert.Equal(t, int64(12), c.Record(0).Slot(1).Level())
	assert.Equal(t, int64(12), c.Tree()["TrainerPoke"].([]any)[0].(map[string]any)["P1Level"])
	assert.Equal(t, int64(99), clone.Record(0).Slot(1).Level())

	c.Record(0).Slot(1).SetLevel(50)
	c.Snapshot()
	c.Record(0).Slot(1).SetLevel(60)
	c.Reset()
	assert.Equal(t, int64(50), c.Record(0).Slot(1).Level())
}
