package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropagateAttachmentOffsets(t *testing.T) {
	// mark at slot 2 attaches to base at slot 0; the base advance
	// between them is subtracted in a forward run
	pos := []GlyphPosition{
		{XAdvance: 500, XOffset: 10},
		{XAdvance: 400},
		{XOffset: 7, attachType: attachTypeMark, attachChain: -2},
	}
	propagateAttachmentOffsets(pos, 2, LeftToRight)
	assert.Equal(t, Position(7+10-500-400), pos[2].XOffset)
	assert.Zero(t, pos[2].attachChain, "chains clear as they resolve")
}

func TestPropagateAttachmentOffsetsIdempotent(t *testing.T) {
	mk := func() []GlyphPosition {
		return []GlyphPosition{
			{XAdvance: 500},
			{attachType: attachTypeMark, attachChain: -1, XOffset: 3},
		}
	}
	once := mk()
	propagateAttachmentOffsets(once, 1, LeftToRight)
	again := make([]GlyphPosition, len(once))
	copy(again, once)
	propagateAttachmentOffsets(again, 1, LeftToRight)
	assert.Equal(t, once, again, "running the pass twice changes nothing")
}

func TestPropagateCursiveChains(t *testing.T) {
	// cursive chain: glyph 1 hangs off glyph 0 in the cross axis
	pos := []GlyphPosition{
		{YOffset: 50},
		{attachType: attachTypeCursive, attachChain: -1, YOffset: 20},
	}
	propagateAttachmentOffsets(pos, 1, LeftToRight)
	assert.Equal(t, Position(70), pos[1].YOffset)
}

func TestPropagateChainTerminates(t *testing.T) {
	// a would-be cycle resolves because visited chains are cleared
	pos := []GlyphPosition{
		{attachType: attachTypeCursive, attachChain: 1},
		{attachType: attachTypeCursive, attachChain: -1},
	}
	propagateAttachmentOffsets(pos, 0, LeftToRight)
	propagateAttachmentOffsets(pos, 1, LeftToRight)
	assert.Zero(t, pos[0].attachChain)
	assert.Zero(t, pos[1].attachChain)
}

func TestPositionFinishRequiresScratchFlag(t *testing.T) {
	b := bufferWithClusters(0, 1)
	b.clearPositions()
	b.Pos[1].attachType = attachTypeMark
	b.Pos[1].attachChain = -1
	// without the scratch flag the pass does not run
	positionFinishOffsetsGPOS(b)
	assert.NotZero(t, b.Pos[1].attachChain)

	b.scratchFlags |= bsfHasGPOSAttachment
	positionFinishOffsetsGPOS(b)
	assert.Zero(t, b.Pos[1].attachChain)
}
