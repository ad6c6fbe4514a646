package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestGeneralCategories(t *testing.T) {
	cases := []struct {
		r    rune
		want generalCategory
	}{
		{'a', lowercaseLetter},
		{'A', uppercaseLetter},
		{'5', decimalNumber},
		{' ', spaceSeparator},
		{0x0301, nonSpacingMark},
		{0x200D, format},
		{0x0E33, spacingMark}, // THAI SARA AM
		{'.', otherPunctuation},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, generalCategoryOf(c.r), "U+%04X", c.r)
	}
}

func TestModifiedCombiningClassOverrides(t *testing.T) {
	// shadda sorts before the other Arabic marks
	shadda := modifiedCombiningClass(0x0651)
	fatha := modifiedCombiningClass(0x064E)
	assert.Less(t, shadda, fatha)

	// Thai sara u is lowered
	assert.Equal(t, uint8(3), modifiedCombiningClass(0x0E38))

	// Tibetan special cases
	assert.Equal(t, uint8(254), modifiedCombiningClass(0x0FC6))
	assert.Equal(t, uint8(127), modifiedCombiningClass(0x0F39))
}

func TestDefaultIgnorables(t *testing.T) {
	for _, r := range []rune{0x00AD, 0x200B, 0x200C, 0x200D, 0xFE0F, 0xFEFF, 0x1D173} {
		assert.True(t, isDefaultIgnorable(r), "U+%04X", r)
	}
	for _, r := range []rune{'a', 0x0301, 0x0020} {
		assert.False(t, isDefaultIgnorable(r), "U+%04X", r)
	}
	// hidden ones stay visible to context matching
	assert.True(t, hiddenDefaultIgnorable(0x034F))
	assert.False(t, hiddenDefaultIgnorable(0x200D))
}

func TestComputeUPropsJoiners(t *testing.T) {
	zwj, _ := computeUProps(0x200D)
	assert.True(t, zwj&upCfZwj != 0)
	assert.True(t, zwj&upIgnorable != 0)

	zwnj, _ := computeUProps(0x200C)
	assert.True(t, zwnj&upCfZwnj != 0)
}

func TestComputeUPropsScratchFlags(t *testing.T) {
	_, flags := computeUProps(0x034F)
	assert.NotZero(t, flags&bsfHasCGJ)
	assert.NotZero(t, flags&bsfHasDefaultIgnorables)
	assert.NotZero(t, flags&bsfHasNonASCII)

	_, flags = computeUProps('a')
	assert.Zero(t, flags)
}

func TestSpaceFallbackTypes(t *testing.T) {
	assert.Equal(t, uint8(spaceEM), fallbackSpaceType(0x2003))
	assert.Equal(t, uint8(spaceEM2), fallbackSpaceType(0x2002))
	assert.Equal(t, uint8(spaceFigure), fallbackSpaceType(0x2007))
	assert.Equal(t, uint8(spacePunct), fallbackSpaceType(0x2008))
	assert.Equal(t, uint8(spaceNarrow), fallbackSpaceType(0x202F))
	assert.Equal(t, uint8(space4EM18), fallbackSpaceType(0x205F))
	assert.Equal(t, uint8(notSpace), fallbackSpaceType('a'))
}

func TestDecomposeAgreesWithNFD(t *testing.T) {
	// the ucd decomposition pair must match x/text NFD for simple cases
	for _, r := range []rune{0x00E9 /* é */, 0x01D5 /* ǖ */, 0x0939} {
		a, b, ok := unicodeDecompose(r)
		nfd := []rune(norm.NFD.String(string(r)))
		if !ok {
			assert.Len(t, nfd, 1, "U+%04X", r)
			continue
		}
		if b == 0 {
			assert.Equal(t, []rune{a}, nfd[:1], "U+%04X", r)
			continue
		}
		assert.Equal(t, a, nfd[0], "U+%04X", r)
	}
}

func TestComposeRoundTrip(t *testing.T) {
	a, b, ok := unicodeDecompose(0x00E9)
	if !ok {
		t.Skip("no decomposition data")
	}
	back, ok := unicodeCompose(a, b)
	assert.True(t, ok)
	assert.Equal(t, rune(0x00E9), back)
}
