package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyanmarCategorize(t *testing.T) {
	cases := []struct {
		r    rune
		want uint8
	}{
		{0x1000, icC},       // KA
		{0x101B, icRa},      // RA
		{0x1031, icM},       // vowel E, pre-base
		{0x102F, icM},       // vowel U, below
		{0x1039, icH},       // virama
		{0x103A, mcAsat},
		{0x103C, mcMedialR},
		{0x1036, mcAnusvara},
		{0x1038, mcVisarga},
		{0x1040, icPlaceholder},
	}
	for _, c := range cases {
		cat, _ := myanmarCategorize(c.r)
		assert.Equal(t, c.want, cat, "U+%04X", c.r)
	}
}

func scanMyanmarKinds(cats ...uint8) []uint8 {
	s := &syllabicScanner{cats: cats}
	var kinds []uint8
	for !s.atEnd() {
		start := s.pos
		kind := scanMyanmarSyllable(s)
		if s.pos == start {
			s.pos++
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

func TestMyanmarSyllableScanner(t *testing.T) {
	// consonant, stacked consonant, medial, vowel: one cluster
	kinds := scanMyanmarKinds(icC, icH, icC, mcMedialY, icM)
	assert.Equal(t, []uint8{myanmarConsonantSyllable}, kinds)

	kinds = scanMyanmarKinds(icM)
	assert.Equal(t, []uint8{myanmarBrokenCluster}, kinds)

	kinds = scanMyanmarKinds(icX)
	assert.Equal(t, []uint8{myanmarNonMyanmarCluster}, kinds)
}

func TestMyanmarReorderPreBaseVowel(t *testing.T) {
	// KA + E-vowel: the vowel sorts before the base
	b := NewBuffer()
	b.AddRunes([]rune{0x1000, 0x1031}, 0)
	b.setUnicodeProps()
	for i := range b.Info {
		cat, pos := myanmarCategorize(b.Info[i].codepoint)
		b.Info[i].complexCategory = cat
		b.Info[i].complexAux = pos
	}
	cats := []uint8{icC, icM}
	tagSyllables(b, cats, scanMyanmarSyllable)
	myanmarReorderSyllable(b, 0, 2)

	require.Equal(t, rune(0x1031), b.Info[0].codepoint)
	assert.Equal(t, rune(0x1000), b.Info[1].codepoint)
	assert.Equal(t, b.Info[0].Cluster, b.Info[1].Cluster)
}

func TestMyanmarMedialRaMovesPreBase(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x1000, 0x103C}, 0) // KA + MEDIAL RA
	b.setUnicodeProps()
	for i := range b.Info {
		cat, pos := myanmarCategorize(b.Info[i].codepoint)
		b.Info[i].complexCategory = cat
		b.Info[i].complexAux = pos
	}
	cats := []uint8{icC, mcMedialR}
	tagSyllables(b, cats, scanMyanmarSyllable)
	myanmarReorderSyllable(b, 0, 2)

	assert.Equal(t, rune(0x103C), b.Info[0].codepoint)
	assert.Equal(t, rune(0x1000), b.Info[1].codepoint)
}
