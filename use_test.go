package shaping

import (
	"testing"

	"github.com/go-text/typesetting/language"
	"github.com/stretchr/testify/assert"
)

func TestUSECoverage(t *testing.T) {
	assert.True(t, useScriptCovered(language.Sinhala))
	assert.True(t, useScriptCovered(language.Javanese))
	assert.True(t, useScriptCovered(language.Tibetan))
	assert.False(t, useScriptCovered(language.Latin))
	assert.False(t, useScriptCovered(language.Arabic))
	assert.False(t, useScriptCovered(language.Devanagari))
}

func TestUSECategorize(t *testing.T) {
	cases := []struct {
		r    rune
		want uint8
	}{
		{0x0D85, useB},   // Sinhala A
		{0x0DCA, useH},   // Sinhala virama (al-lakuna)
		{0x0DD9, useVPre},
		{0x0F90, useSub}, // Tibetan subjoined KA
		{0x200D, useZWJ},
		{0x200C, useZWNJ},
		{0x25CC, useGB},
		{'1', useGB},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, useCategorize(c.r), "U+%04X", c.r)
	}
}

func scanUSEKinds(cats ...uint8) []uint8 {
	s := &syllabicScanner{cats: cats}
	var kinds []uint8
	for !s.atEnd() {
		start := s.pos
		kind := scanUSECluster(s)
		if s.pos == start {
			s.pos++
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

func TestUSEClusterScanner(t *testing.T) {
	kinds := scanUSEKinds(useB, useH, useB, useVPst)
	assert.Equal(t, []uint8{useStandardCluster}, kinds)

	kinds = scanUSEKinds(useB, useSub, useVAbv)
	assert.Equal(t, []uint8{useStandardCluster}, kinds)

	kinds = scanUSEKinds(useVAbv)
	assert.Equal(t, []uint8{useBrokenCluster}, kinds)

	kinds = scanUSEKinds(useO)
	assert.Equal(t, []uint8{useNonCluster}, kinds)
}

func TestUSEReorderPreBaseVowel(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x0DB1, 0x0DD9}, 0) // Sinhala NA + E vowel
	b.setUnicodeProps()
	for i := range b.Info {
		b.Info[i].complexCategory = useCategorize(b.Info[i].codepoint)
	}
	cats := []uint8{useB, useVPre}
	tagSyllables(b, cats, scanUSECluster)
	useReorderCluster(b, 0, 2)

	assert.Equal(t, rune(0x0DD9), b.Info[0].codepoint)
	assert.Equal(t, rune(0x0DB1), b.Info[1].codepoint)
	assert.Equal(t, b.Info[0].Cluster, b.Info[1].Cluster)
}
