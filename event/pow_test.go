package event

import (
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shugur-Network/norc/keys"
)

func TestCountLeadingZeroBits(t *testing.T) {
	cases := []struct {
		hex  string
		want int
	}{
		{"000000000e9d97a1ab09fc381030b346cdd7a142ad57e6df0b46dc9bef6c7e2d", 36},
		{"ff", 0},
		{"80", 0},
		{"7f", 1},
		{"01", 7},
		{"0001", 15},
		{"0000", 16},
		{"00", 8},
	}
	for _, tc := range cases {
		digest, err := hex.DecodeString(tc.hex)
		require.NoError(t, err)
		assert.Equal(t, tc.want, CountLeadingZeroBits(digest), "digest %s", tc.hex)
	}
	assert.Equal(t, 0, CountLeadingZeroBits(nil))
}

func TestEventDifficulty(t *testing.T) {
	ev := Event{ID: "000000000e9d97a1ab09fc381030b346cdd7a142ad57e6df0b46dc9bef6c7e2d"}
	assert.Equal(t, 36, ev.Difficulty())

	malformed := Event{ID: "not hex"}
	assert.Equal(t, 0, malformed.Difficulty())
}

func TestMineReachesDifficulty(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	for _, difficulty := range []int{1, 4, 8, 12} {
		b := New(id, KindTextNote, "pow note", nil)
		b.Mine(difficulty)

		ev, err := b.Sign(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ev.Difficulty(), difficulty)

		// exactly one nonce tag committing the target
		var nonceTags [][]string
		for _, tag := range ev.Tags {
			if len(tag) > 0 && tag[0] == "nonce" {
				nonceTags = append(nonceTags, tag)
			}
		}
		require.Len(t, nonceTags, 1)
		require.Len(t, nonceTags[0], 3)
		assert.Equal(t, strconv.Itoa(difficulty), nonceTags[0][2])

		require.NoError(t, ev.Verify())
	}
}

func TestMineZeroDifficultyIsNoOp(t *testing.T) {
	id, err := keys.Generate()
	require.NoError(t, err)

	b := New(id, KindTextNote, "plain note", [][]string{{"t", "go"}})
	before := b.ID()
	b.Mine(0)
	assert.Equal(t, before, b.ID())
	assert.Len(t, b.Tags, 1)

	b.Mine(-3)
	assert.Len(t, b.Tags, 1)
}
