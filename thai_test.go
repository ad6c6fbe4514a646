package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaraAmMapping(t *testing.T) {
	assert.True(t, isSaraAm(0x0E33))
	assert.True(t, isSaraAm(0x0EB3)) // the Lao twin
	assert.False(t, isSaraAm(0x0E32))

	assert.Equal(t, rune(0x0E4D), nikhahitFromSaraAm(0x0E33))
	assert.Equal(t, rune(0x0E32), saraAaFromSaraAm(0x0E33))
	assert.Equal(t, rune(0x0ECD), nikhahitFromSaraAm(0x0EB3))
}

func TestThaiSaraAmDecomposition(t *testing.T) {
	// "กำ" decomposes to KO KAI + NIKHAHIT + SARA AA, all one cluster
	b := NewBuffer()
	b.AddRunes([]rune{0x0E01, 0x0E33}, 0)
	b.setUnicodeProps()

	sh := shaperThai{}
	plan := &shapePlan{}
	sh.preprocessText(plan, b, nil)

	require.Equal(t, 3, b.Len())
	assert.Equal(t, rune(0x0E01), b.Info[0].codepoint)
	assert.Equal(t, rune(0x0E4D), b.Info[1].codepoint)
	assert.Equal(t, rune(0x0E32), b.Info[2].codepoint)
	assert.Equal(t, b.Info[1].Cluster, b.Info[2].Cluster)
}

func TestThaiNikhahitSlidesOverToneMarks(t *testing.T) {
	// KO KAI + MAI EK + SARA AM: the nikhahit must move before the
	// tone mark
	b := NewBuffer()
	b.AddRunes([]rune{0x0E01, 0x0E48, 0x0E33}, 0)
	b.setUnicodeProps()

	sh := shaperThai{}
	plan := &shapePlan{}
	sh.preprocessText(plan, b, nil)

	require.Equal(t, 4, b.Len())
	assert.Equal(t, rune(0x0E01), b.Info[0].codepoint)
	assert.Equal(t, rune(0x0E4D), b.Info[1].codepoint)
	assert.Equal(t, rune(0x0E48), b.Info[2].codepoint)
	assert.Equal(t, rune(0x0E32), b.Info[3].codepoint)
}
