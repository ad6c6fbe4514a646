package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHangulSyllableArithmetic(t *testing.T) {
	// U+AC01 GAG = G + A + G final
	s := rune(0xAC01)
	assert.True(t, isHangulSyllable(s))

	si := s - hangulSBase
	l := rune(hangulLBase + si/hangulNCount)
	v := rune(hangulVBase + (si%hangulNCount)/hangulTCount)
	tt := rune(hangulTBase + si%hangulTCount)

	assert.Equal(t, rune(0x1100), l)
	assert.Equal(t, rune(0x1161), v)
	assert.Equal(t, rune(0x11A8), tt)

	// and back
	back := hangulSBase + (l-hangulLBase)*hangulNCount + (v-hangulVBase)*hangulTCount + (tt - hangulTBase)
	assert.Equal(t, s, back)
}

func TestHangulJamoClassification(t *testing.T) {
	assert.True(t, isHangulLJamo(0x1100))
	assert.True(t, isHangulVJamo(0x1161))
	assert.True(t, isHangulTJamo(0x11A8))
	assert.False(t, isHangulTJamo(0x11A7), "TBase itself is a filler, not a T jamo")
	assert.False(t, isHangulLJamo(0x1161))
	assert.True(t, isHangulToneMark(0x302E))
}

func TestHangulLVSyllableHasNoTrailing(t *testing.T) {
	// U+AC00 GA has no trailing consonant
	si := rune(0xAC00) - hangulSBase
	assert.Zero(t, si%hangulTCount)
}
