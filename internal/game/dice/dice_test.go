package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combot/internal/game/dice"
)

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "1d10+2", Dice: []int{7}, Modifier: 2}
	assert.Equal(t, 9, r.Total())
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

// TestRollResult_Total_Property verifies Total() == sum(Dice) + Modifier for arbitrary inputs.
func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		faces := rapid.SliceOf(rapid.IntRange(1, 100)).Draw(rt, "faces")
		modifier := rapid.IntRange(-50, 50).Draw(rt, "modifier")

		expected := modifier
		for _, f := range faces {
			expected += f
		}
		r := dice.RollResult{Expression: "NdS+M", Dice: faces, Modifier: modifier}
		assert.Equal(rt, expected, r.Total())
		assert.True(rt, strings.HasSuffix(r.String(), fmt.Sprintf("= %d", expected)))
	})
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(100)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 100)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestScriptedSource_ReplaysFaces(t *testing.T) {
	src := dice.NewScriptedSource(45, 90, 1)
	assert.Equal(t, 44, src.Intn(100))
	assert.Equal(t, 89, src.Intn(100))
	assert.Equal(t, 0, src.Intn(100))
	assert.Equal(t, 0, src.Remaining())
	// exhausted scripts fall back to a face of 1
	assert.Equal(t, 0, src.Intn(20))
}

func TestScriptedSource_ClampsToDieSize(t *testing.T) {
	src := dice.NewScriptedSource(25, -3)
	assert.Equal(t, 19, src.Intn(20))
	assert.Equal(t, 0, src.Intn(20))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		count    int
		sides    int
		modifier int
	}{
		{"d20", 1, 20, 0},
		{"1d10", 1, 10, 0},
		{"1D8+2", 1, 8, 2},
		{"2d6-1", 2, 6, -1},
		{"d100", 1, 100, 0},
		{"d%", 1, 100, 0},
		{" 1d4 + 1 ", 1, 4, 1},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.modifier, e.Modifier)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "20", "0d6", "xd6", "1d1", "1dx", "1d6+x"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestExpression_Canonical(t *testing.T) {
	assert.Equal(t, "1d10", dice.MustParse("d10").Canonical())
	assert.Equal(t, "2d6-1", dice.MustParse("2d6-1").Canonical())
}

func TestRollExpr_UsesSource(t *testing.T) {
	res, err := dice.RollExpr("2d6+1", dice.NewScriptedSource(3, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, res.Dice)
	assert.Equal(t, 9, res.Total())
}

func TestRoll_Property_WithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(rt, "count")
		sides := rapid.IntRange(2, 100).Draw(rt, "sides")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides}
		res := dice.Roll(e, dice.NewCryptoSource())
		require.Len(rt, res.Dice, count)
		for _, d := range res.Dice {
			assert.GreaterOrEqual(rt, d, 1)
			assert.LessOrEqual(rt, d, sides)
		}
	})
}

func TestRoller_PercentileAndD20(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewScriptedSource(100, 1, 20, 7), zap.NewNop())
	assert.Equal(t, 100, r.Percentile("attack"))
	assert.Equal(t, 1, r.Percentile("defense"))
	assert.Equal(t, 20, r.D20("hit location"))
	assert.Equal(t, 7, r.D10("initiative"))
}

func TestRoller_RollExpr_Invalid(t *testing.T) {
	r := dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop())
	_, err := r.RollExpr("damage", "banana")
	assert.Error(t, err)
}
