package datatree

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize(map[string]any{
		"i":   7,
		"u8":  uint8(3),
		"big": uint64(math.MaxUint64),
		"f32": float32(0.5),
		"num": json.Number("12"),
		"seq": []any{int32(1), json.Number("1.5")},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"i":   int64(7),
		"u8":  int64(3),
		"big": uint64(math.MaxUint64),
		"f32": 0.5,
		"num": int64(12),
		"seq": []any{int64(1), 1.5},
	}, got)

	_, err = Normalize(map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	orig := map[string]any{"seq": []any{map[string]any{"Level": int64(5)}}}
	c := Clone(orig).(map[string]any)
	c["seq"].([]any)[0].(map[string]any)["Level"] = int64(9)
	assert.Equal(t, int64(5), orig["seq"].([]any)[0].(map[string]any)["Level"])
	assert.False(t, Equal(orig, c))
}

func TestInt(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(4), 4, true},
		{3.0, 3, true},
		{3.5, 0, false},
		{uint64(math.MaxUint64), 0, false},
		{"4", 0, false},
		{json.Number("8"), 8, true},
	}
	for _, c := range cases {
		got, ok := Int(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
	}
}

func TestEqualTreatsNaNAsEqual(t *testing.T) {
	a := map[string]any{"limit": math.NaN(), "seq": []any{math.Inf(1), "x"}}
	b := map[string]any{"limit": math.NaN(), "seq": []any{math.Inf(1), "x"}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, map[string]any{"limit": 1.0, "seq": []any{math.Inf(1), "x"}}))
	assert.False(t, Equal([]any{int64(1)}, []any{1.0}))
	assert.False(t, Equal(map[string]any{"a": nil}, map[string]any{"b": nil}))
}
