package shaping

import (
	"testing"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicCategorizeDevanagari(t *testing.T) {
	cases := []struct {
		r       rune
		wantCat uint8
	}{
		{0x0915, icC},  // KA
		{0x0930, icRa}, // RA
		{0x093F, icM},  // vowel sign I
		{0x094D, icH},  // virama
		{0x093C, icN},  // nukta
		{0x0902, icSM}, // anusvara
		{0x0905, icV},  // A
		{0x0966, icPlaceholder}, // digit zero
		{0x200D, icZWJ},
		{0x25CC, icDottedCircle},
	}
	for _, c := range cases {
		cat, _ := indicCategorize(language.Devanagari, c.r)
		assert.Equal(t, c.wantCat, cat, "U+%04X", c.r)
	}
}

func TestIndicMatraPositions(t *testing.T) {
	_, pos := indicCategorize(language.Devanagari, 0x093F)
	assert.Equal(t, uint8(iposPreM), pos, "I matra is pre-base")

	_, pos = indicCategorize(language.Devanagari, 0x093E)
	assert.Equal(t, uint8(iposPostC), pos, "AA matra is post-base")

	_, pos = indicCategorize(language.Devanagari, 0x0941)
	assert.Equal(t, uint8(iposBelowC), pos, "U matra is below-base")

	_, pos = indicCategorize(language.Bengali, 0x09BF)
	assert.Equal(t, uint8(iposPreM), pos, "Bengali I matra is pre-base")
}

func scanIndicKinds(cats ...uint8) []uint8 {
	s := &syllabicScanner{cats: cats}
	var kinds []uint8
	for !s.atEnd() {
		start := s.pos
		kind := scanIndicSyllable(s)
		if s.pos == start {
			s.pos++
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

func TestIndicSyllableScanner(t *testing.T) {
	// KA + I-matra: one consonant syllable
	kinds := scanIndicKinds(icC, icM)
	assert.Equal(t, []uint8{indicConsonantSyllable}, kinds)

	// KA + virama + KA: still one syllable
	kinds = scanIndicKinds(icC, icH, icC)
	assert.Equal(t, []uint8{indicConsonantSyllable}, kinds)

	// vowel with matra-less tail
	kinds = scanIndicKinds(icV)
	assert.Equal(t, []uint8{indicVowelSyllable}, kinds)

	// leading matra is broken
	kinds = scanIndicKinds(icM)
	assert.Equal(t, []uint8{indicBrokenCluster}, kinds)

	// Latin letter: non-Indic
	kinds = scanIndicKinds(icX)
	assert.Equal(t, []uint8{indicNonIndicCluster}, kinds)

	// two separate syllables
	kinds = scanIndicKinds(icC, icM, icC)
	assert.Equal(t, []uint8{indicConsonantSyllable, indicConsonantSyllable}, kinds)
}

// buildIndicSyllable prepares a buffer with categorized Devanagari
// text, tagged as one syllable.
func buildIndicSyllable(t *testing.T, text []rune) (*Buffer, *indicPlan) {
	t.Helper()
	b := NewBuffer()
	b.AddRunes(text, 0)
	b.setUnicodeProps()
	for i := range b.Info {
		cat, pos := indicCategorize(language.Devanagari, b.Info[i].codepoint)
		b.Info[i].complexCategory = cat
		b.Info[i].complexAux = pos
	}
	cats := make([]uint8, len(b.Info))
	for i := range b.Info {
		cats[i] = b.Info[i].complexCategory
	}
	tagSyllables(b, cats, scanIndicSyllable)
	data := &indicPlan{
		config:    indicConfigFor(language.Devanagari),
		maskArray: map[tables.Tag]GlyphMask{},
	}
	return b, data
}

func TestIndicInitialReorderMovesPreBaseMatra(t *testing.T) {
	// KA + I-matra: the matra must precede the consonant after
	// reordering
	b, data := buildIndicSyllable(t, []rune{0x0915, 0x093F})
	indicReorderSyllable(data, b, 0, 2)
	require.Equal(t, 2, b.Len())
	assert.Equal(t, rune(0x093F), b.Info[0].codepoint)
	assert.Equal(t, rune(0x0915), b.Info[1].codepoint)
	// both glyphs share the cluster
	assert.Equal(t, b.Info[0].Cluster, b.Info[1].Cluster)
}

func TestIndicBaseStaysForPostMatra(t *testing.T) {
	// KA + AA-matra keeps its order
	b, data := buildIndicSyllable(t, []rune{0x0915, 0x093E})
	indicReorderSyllable(data, b, 0, 2)
	assert.Equal(t, rune(0x0915), b.Info[0].codepoint)
	assert.Equal(t, rune(0x093E), b.Info[1].codepoint)
}

func TestIndicRephTagging(t *testing.T) {
	// RA + virama + KA: the RA is tagged to become reph; initial
	// reordering keeps it leading with the rphf mask set
	b, data := buildIndicSyllable(t, []rune{0x0930, 0x094D, 0x0915})
	data.maskArray[otTag('r', 'p', 'h', 'f')] = 0x10
	indicReorderSyllable(data, b, 0, 3)
	assert.Equal(t, rune(0x0930), b.Info[0].codepoint)
	assert.Equal(t, uint8(iposRaToBecomeReph), b.Info[0].complexAux)
	assert.NotZero(t, b.Info[0].Mask&0x10)

	// the final pass moves an unligated reph towards the syllable end
	indicFinalReorderSyllable(data, nil, b, 0, 3)
	assert.Equal(t, rune(0x0930), b.Info[2].codepoint)
}

func TestIndicConfigs(t *testing.T) {
	for _, cfg := range indicConfigs {
		assert.NotZero(t, cfg.virama, "script %v", cfg.script)
		base := scriptBlockBase(cfg.script)
		require.NotZero(t, base)
		assert.Equal(t, base+0x4D, cfg.virama)
	}
}
