package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecategorizeHebrewPoints(t *testing.T) {
	// modified classes, as the normalizer stores them
	assert.Equal(t, cccBelow, recategorizeCombiningClass(0x05B0, modifiedCombiningClass(0x05B0)))  // sheva
	assert.Equal(t, cccAboveRight, recategorizeCombiningClass(0x05C1, modifiedCombiningClass(0x05C1))) // shin dot
	assert.Equal(t, cccAboveLeft, recategorizeCombiningClass(0x05C2, modifiedCombiningClass(0x05C2)))  // sin dot
}

func TestRecategorizeArabicMarks(t *testing.T) {
	assert.Equal(t, cccAbove, recategorizeCombiningClass(0x064E, modifiedCombiningClass(0x064E))) // fatha
	assert.Equal(t, cccBelow, recategorizeCombiningClass(0x0650, modifiedCombiningClass(0x0650))) // kasra
	assert.Equal(t, cccAbove, recategorizeCombiningClass(0x0651, modifiedCombiningClass(0x0651))) // shadda
}

func TestRecategorizeThaiPerCharacter(t *testing.T) {
	assert.Equal(t, cccAboveRight, recategorizeCombiningClass(0x0E31, 0))
	assert.Equal(t, cccBelowRight, recategorizeCombiningClass(0x0E38, modifiedCombiningClass(0x0E38)))
}

func TestRecategorizeLeavesPositionalClasses(t *testing.T) {
	for _, cc := range []uint8{cccBelow, cccAbove, cccAttachedAbove, cccDoubleBelow} {
		assert.Equal(t, cc, recategorizeCombiningClass('x', cc))
	}
}

func TestFallbackRecategorizeMarksInBuffer(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{'a', 0x05B0}, 0) // a + sheva
	b.setUnicodeProps()
	fallbackMarkPositionRecategorizeMarks(b)
	assert.Equal(t, cccBelow, b.Info[1].modifiedCombiningClass())
	// the base is untouched
	assert.Zero(t, b.Info[0].modifiedCombiningClass())
}
