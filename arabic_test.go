package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runArabicJoining feeds runes through the joining machine and
// returns the per-rune action.
func runArabicJoining(t *testing.T, text []rune) []uint8 {
	t.Helper()
	b := NewBuffer()
	b.AddRunes(text, 0)
	b.setUnicodeProps()

	plan := &shapePlan{shaperData: &arabicPlan{isArabic: true}}
	arabicJoining(plan, b)

	actions := make([]uint8, len(b.Info))
	for i := range b.Info {
		actions[i] = b.Info[i].complexAux
	}
	return actions
}

func TestArabicJoiningSheenYehNoon(t *testing.T) {
	// all three are dual-joining: INIT MEDI FINA in logical order
	actions := runArabicJoining(t, []rune{0x0634, 0x064A, 0x0646})
	require.Len(t, actions, 3)
	assert.Equal(t, uint8(arabINIT), actions[0])
	assert.Equal(t, uint8(arabMEDI), actions[1])
	assert.Equal(t, uint8(arabFINA), actions[2])
}

func TestArabicJoiningIsolated(t *testing.T) {
	// HAMZA is non-joining: it takes no positional form at all
	actions := runArabicJoining(t, []rune{0x0621})
	assert.Equal(t, uint8(arabNone), actions[0])
}

func TestArabicJoiningRightJoinerBreaksChain(t *testing.T) {
	// DAL is right-joining: the following letter restarts
	actions := runArabicJoining(t, []rune{0x0628, 0x062F, 0x0628}) // BEH DAL BEH
	require.Len(t, actions, 3)
	assert.Equal(t, uint8(arabINIT), actions[0])
	assert.Equal(t, uint8(arabFINA), actions[1])
	assert.Equal(t, uint8(arabISOL), actions[2])
}

func TestArabicJoiningTransparentMarks(t *testing.T) {
	// a fatha between letters must not break the join
	actions := runArabicJoining(t, []rune{0x0628, 0x064E, 0x0646}) // BEH fatha NOON
	require.Len(t, actions, 3)
	assert.Equal(t, uint8(arabINIT), actions[0])
	assert.Equal(t, uint8(arabNone), actions[1])
	assert.Equal(t, uint8(arabFINA), actions[2])
}

func TestArabicStateTableIsClosed(t *testing.T) {
	for si, state := range arabicStateTable {
		for ci, entry := range state {
			assert.Less(t, int(entry.nextState), len(arabicStateTable),
				"state %d column %d", si, ci)
		}
	}
}

func TestArabicPresentationFormsTable(t *testing.T) {
	// dual-joining letters carry all four forms, right-joining two
	beh := arabicPresentationForms[0x0628]
	assert.NotZero(t, beh.isol)
	assert.NotZero(t, beh.fina)
	assert.NotZero(t, beh.init)
	assert.NotZero(t, beh.medi)

	alef := arabicPresentationForms[0x0627]
	assert.NotZero(t, alef.isol)
	assert.NotZero(t, alef.fina)
	assert.Zero(t, alef.init)
	assert.Zero(t, alef.medi)
}

func TestLamAlefLigatureTable(t *testing.T) {
	for alef, forms := range arabicLamAlef {
		assert.NotZero(t, forms[0], "U+%04X isolated", alef)
		assert.NotZero(t, forms[1], "U+%04X final", alef)
	}
}

func TestModifierCombiningMarks(t *testing.T) {
	assert.True(t, isModifierCombiningMark(0x0654))
	assert.True(t, isModifierCombiningMark(0x0655))
	assert.False(t, isModifierCombiningMark(0x064E))
}
