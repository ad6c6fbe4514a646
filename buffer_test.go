package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferWithClusters(clusters ...int) *Buffer {
	b := NewBuffer()
	for i, c := range clusters {
		b.AddRune(rune('a'+i), c)
	}
	return b
}

func clustersOf(b *Buffer) []int {
	out := make([]int, len(b.Info))
	for i := range b.Info {
		out[i] = b.Info[i].Cluster
	}
	return out
}

func TestMergeClustersLowersToMinimum(t *testing.T) {
	b := bufferWithClusters(0, 1, 2, 3, 4)
	b.mergeClusters(1, 4)
	assert.Equal(t, []int{0, 1, 1, 1, 4}, clustersOf(b))
}

func TestMergeClustersExtendsOverSharedBoundaries(t *testing.T) {
	b := bufferWithClusters(0, 2, 2, 3, 3, 5)
	// the range ends inside the 3-cluster; merging must take the whole
	// cluster with it
	b.mergeClusters(1, 4)
	assert.Equal(t, []int{0, 2, 2, 2, 2, 5}, clustersOf(b))
}

func TestClustersStayMonotone(t *testing.T) {
	b := bufferWithClusters(0, 1, 1, 3, 4, 4, 6)
	b.mergeClusters(2, 5)
	prev := -1
	for _, c := range clustersOf(b) {
		require.GreaterOrEqual(t, c, prev)
		prev = c
	}
}

func TestOutputModeSyncRoundTrip(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	b.clearOutput()
	b.nextGlyph()
	b.replaceGlyphs(1, []rune{'x', 'y'}, nil)
	b.nextGlyph()
	b.sync()
	require.Equal(t, 4, b.Len())
	assert.Equal(t, []int{0, 1, 1, 2}, clustersOf(b))
	assert.False(t, b.haveOutput)
}

func TestMoveToSlidesOutputBack(t *testing.T) {
	b := bufferWithClusters(0, 1, 2, 3)
	b.clearOutput()
	b.nextGlyph()
	b.nextGlyph()
	b.nextGlyph()
	require.True(t, b.moveTo(1))
	assert.Equal(t, 1, len(b.outInfo))
	assert.Equal(t, 1, b.idx)
	require.True(t, b.moveTo(3))
	b.sync()
	assert.Equal(t, []int{0, 1, 2, 3}, clustersOf(b))
}

func TestReverseRangeKeepsPositionsAligned(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	b.clearPositions()
	b.Pos[0].XAdvance = 10
	b.Pos[2].XAdvance = 30
	b.Reverse()
	assert.Equal(t, Position(30), b.Pos[0].XAdvance)
	assert.Equal(t, Position(10), b.Pos[2].XAdvance)
	assert.Equal(t, []int{2, 1, 0}, clustersOf(b))
}

func TestUnsafeToBreakMarksWholeClusters(t *testing.T) {
	b := bufferWithClusters(0, 0, 1, 2, 2)
	b.unsafeToBreak(1, 4)
	// extension to cluster boundaries covers slots 0 and 4 too
	for i := 0; i < 5; i++ {
		assert.NotZero(t, b.Info[i].Mask&GlyphUnsafeToBreak, "slot %d", i)
	}
	assert.NotZero(t, b.scratchFlags&bsfHasGlyphFlags)
}

func TestSafeToBreakIsTheDefault(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	for i := range b.Info {
		assert.Zero(t, b.Info[i].Mask&GlyphUnsafeToBreak)
	}
}

func TestUnsafeToConcatNeedsOptIn(t *testing.T) {
	b := bufferWithClusters(0, 1)
	b.unsafeToConcat(0, 2)
	assert.Zero(t, b.Info[0].Mask&GlyphUnsafeToConcat)

	b.Flags |= ProduceUnsafeToConcat
	b.unsafeToConcat(0, 2)
	assert.NotZero(t, b.Info[0].Mask&GlyphUnsafeToConcat)
}

func TestDeleteGlyphsInplaceFoldsClusters(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	b.clearPositions()
	b.Info[1].Glyph = glyphDeleted
	b.deleteGlyphsInplace(func(info *GlyphInfo) bool { return info.Glyph == glyphDeleted })
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []int{0, 1}, clustersOf(b))
	assert.Equal(t, 2, len(b.Pos))
}

func TestLigIDZeroMeansNoLigature(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 40; i++ {
		id := b.allocateLigID()
		assert.NotZero(t, id, "allocation %d", i)
	}
}

func TestBufferBudgetFailureIsSticky(t *testing.T) {
	b := bufferWithClusters(0, 1, 2)
	b.maxLen = 2
	b.clearOutput()
	b.nextGlyph() // 3 glyphs pending already exceed maxLen 2: fails here
	b.nextGlyph()
	b.nextGlyph()
	assert.False(t, b.successful)
	// further mutators no-op
	before := len(b.outInfo)
	b.copyGlyph()
	assert.Equal(t, before, len(b.outInfo))
}

func TestRandomIsDeterministicPerSeed(t *testing.T) {
	a := NewBuffer()
	b := NewBuffer()
	a.random, b.random = 42, 42
	for i := 0; i < 8; i++ {
		assert.Equal(t, a.randomNumber(), b.randomNumber())
	}
}
