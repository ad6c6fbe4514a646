package shaping

import (
	"testing"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAatFeatureMappingIsSorted(t *testing.T) {
	for i := 1; i < len(aatFeatureMappings); i++ {
		require.Less(t, aatFeatureMappings[i-1].otTag, aatFeatureMappings[i].otTag,
			"mapping table must stay sorted for the bsearch")
	}
}

func TestAatFeatureMappingLookup(t *testing.T) {
	m := aatFeatureMappingForTag(ot.NewTag('l', 'i', 'g', 'a'))
	require.NotNil(t, m)
	assert.Equal(t, uint16(1), m.featureType) // Ligatures
	assert.Equal(t, uint16(2), m.selectorToEnable)

	assert.Nil(t, aatFeatureMappingForTag(ot.NewTag('z', 'z', 'z', 'z')))
}

func TestMorxRearrangementVerbs(t *testing.T) {
	// every verb moves at most two glyphs per side
	for verb, m := range morxRearrangementMap {
		l := m >> 4
		r := m & 0x0F
		assert.LessOrEqual(t, l, 3, "verb %d", verb)
		assert.LessOrEqual(t, r, 3, "verb %d", verb)
	}
}

func rearrangeGlyphs(t *testing.T, verb uint16, glyphs ...rune) []rune {
	t.Helper()
	b := NewBuffer()
	b.AddRunes(glyphs, 0)

	d := &morxRearrangementDriver{}
	driver := &stateTableDriver{buffer: b}

	// mark first, walk to the end, apply the verb on the last glyph
	b.idx = 0
	d.transition(driver, tables.AATStateEntry{Flags: mrMarkFirst})
	b.idx = len(b.Info) - 1
	d.transition(driver, tables.AATStateEntry{Flags: mrMarkLast | verb})

	out := make([]rune, len(b.Info))
	for i := range b.Info {
		out[i] = b.Info[i].codepoint
	}
	return out
}

func TestMorxRearrangementAxToXA(t *testing.T) {
	got := rearrangeGlyphs(t, 1, 'A', 'x')
	assert.Equal(t, []rune{'x', 'A'}, got)
}

func TestMorxRearrangementABxCDToCDxBA(t *testing.T) {
	got := rearrangeGlyphs(t, 13, 'A', 'B', 'x', 'C', 'D')
	assert.Equal(t, []rune{'C', 'D', 'x', 'B', 'A'}, got)
}

func TestMorxRearrangementNoChange(t *testing.T) {
	got := rearrangeGlyphs(t, 0, 'A', 'B')
	assert.Equal(t, []rune{'A', 'B'}, got)
}

func TestMorxInsertionKashidaLikeFlagTolerated(t *testing.T) {
	// the kashida-like bits must parse as flags without changing
	// anything: insertions are always split-vowel-like
	entry := tables.AATStateEntry{Flags: miCurrentIsKashida | miMarkedIsKashida}
	d := &morxInsertionDriver{}
	assert.False(t, d.isActionable(nil, entry))
}

func TestAatDeletedGlyphCleanup(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	b.clearPositions()
	b.Info[1].Glyph = glyphDeleted
	b.Pos[1].XAdvance = 100

	aatLayoutZeroWidthDeletedGlyphs(b)
	assert.Zero(t, b.Pos[1].XAdvance)

	aatLayoutRemoveDeletedGlyphs(b)
	assert.Equal(t, 2, b.Len())
}
