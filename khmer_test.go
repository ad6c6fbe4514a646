package shaping

import (
	"testing"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKhmerCategorize(t *testing.T) {
	cases := []struct {
		r    rune
		want uint8
	}{
		{0x1780, icC},    // KA
		{0x179A, icRa},   // RO
		{0x17D2, icCoeng},
		{0x17B6, icM},    // AA
		{0x17C1, icM},    // E (pre-base)
		{0x17C6, icSM},   // NIKAHIT
		{0x17C9, icRS},
		{0x17CC, icRobat},
		{0x17E0, icPlaceholder},
	}
	for _, c := range cases {
		cat, _ := khmerCategorize(c.r)
		assert.Equal(t, c.want, cat, "U+%04X", c.r)
	}
}

func TestKhmerSplitMatraDecomposition(t *testing.T) {
	sh := &shaperKhmer{}
	for _, m := range []rune{0x17BE, 0x17BF, 0x17C0, 0x17C4, 0x17C5} {
		a, b, ok := sh.decompose(nil, m)
		require.True(t, ok, "U+%04X", m)
		assert.Equal(t, rune(0x17C1), a)
		assert.Equal(t, m, b)
	}
}

func scanKhmerKinds(cats ...uint8) []uint8 {
	s := &syllabicScanner{cats: cats}
	var kinds []uint8
	for !s.atEnd() {
		start := s.pos
		kind := scanKhmerSyllable(s)
		if s.pos == start {
			s.pos++
		}
		kinds = append(kinds, kind)
	}
	return kinds
}

func TestKhmerSyllableScanner(t *testing.T) {
	// consonant + coeng + RO + vowel: one cluster
	kinds := scanKhmerKinds(icC, icCoeng, icRa, icM)
	assert.Equal(t, []uint8{khmerConsonantSyllable}, kinds)

	// leading vowel sign: broken
	kinds = scanKhmerKinds(icM)
	assert.Equal(t, []uint8{khmerBrokenCluster}, kinds)

	kinds = scanKhmerKinds(icX)
	assert.Equal(t, []uint8{khmerNonKhmerCluster}, kinds)
}

func TestKhmerCoengRoMovesToFront(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x1780, 0x17D2, 0x179A, 0x17B6}, 0) // KA COENG RO AA
	b.setUnicodeProps()
	for i := range b.Info {
		cat, pos := khmerCategorize(b.Info[i].codepoint)
		b.Info[i].complexCategory = cat
		b.Info[i].complexAux = pos
	}
	cats := []uint8{icC, icCoeng, icRa, icM}
	tagSyllables(b, cats, scanKhmerSyllable)

	data := &khmerPlan{maskArray: map[tables.Tag]GlyphMask{}}
	data.maskArray[otTag('p', 'r', 'e', 'f')] = 0x20
	khmerReorderSyllable(data, b, 0, 4)

	// the coeng+ro pair leads the cluster and carries 'pref'
	require.Equal(t, rune(0x17D2), b.Info[0].codepoint)
	require.Equal(t, rune(0x179A), b.Info[1].codepoint)
	assert.NotZero(t, b.Info[0].Mask&0x20)
	assert.NotZero(t, b.Info[1].Mask&0x20)
	assert.Equal(t, rune(0x1780), b.Info[2].codepoint)
}
