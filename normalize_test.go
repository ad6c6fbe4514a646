package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortMarksByCombiningClass(t *testing.T) {
	// dot below (220) must sort before acute (230) regardless of input
	// order
	b := NewBuffer()
	b.AddRunes([]rune{'a', 0x0301, 0x0323}, 0)
	b.setUnicodeProps()
	b.sortMarks(1, 3)
	assert.Equal(t, rune(0x0323), b.Info[1].codepoint)
	assert.Equal(t, rune(0x0301), b.Info[2].codepoint)
}

func TestSortMarksIsStable(t *testing.T) {
	// two below-marks keep their relative order
	b := NewBuffer()
	b.AddRunes([]rune{0x0323, 0x0325}, 0)
	b.setUnicodeProps()
	b.sortMarks(0, 2)
	assert.Equal(t, rune(0x0323), b.Info[0].codepoint)
	assert.Equal(t, rune(0x0325), b.Info[1].codepoint)
}

func TestSortMarksMergesClustersOnMove(t *testing.T) {
	b := NewBuffer()
	b.AddRune('a', 0)
	b.AddRune(0x0301, 1) // acute, 230
	b.AddRune(0x0323, 2) // dot below, 220
	b.setUnicodeProps()
	b.sortMarks(1, 3)
	// moving the dot across the acute merges their clusters
	assert.Equal(t, b.Info[1].Cluster, b.Info[2].Cluster)
}

func TestUnhideCGJ(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x0323, 0x034F, 0x0301}, 0) // below, CGJ, above
	b.setUnicodeProps()
	require.True(t, b.Info[1].uprops&upHidden != 0)
	// classes are in order (220 <= 230): the CGJ becomes skippable
	unhideCGJ(b.Info)
	assert.True(t, b.Info[1].uprops&upHidden == 0)
}

func TestUnhideCGJKeepsBlockingCGJ(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x0301, 0x034F, 0x0323}, 0) // above, CGJ, below
	b.setUnicodeProps()
	unhideCGJ(b.Info)
	// classes out of order (230 > 220): the CGJ keeps blocking
	assert.True(t, b.Info[1].uprops&upHidden != 0)
}
