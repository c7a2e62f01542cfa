package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Train...", Truncate("TrainerTable", 5))
	assert.Equal(t, "ポケモ...", Truncate("ポケモンデータ", 3))
}

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, Hash("a|1|2"), Hash("a|1|2"))
	assert.NotEqual(t, Hash("a|1|2"), Hash("a|1|3"))
	assert.Len(t, Hash(""), 64)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("personaltable.json", "pokemon", "personal"))
	assert.False(t, ContainsAny("waza.json", "move", "item"))
}
