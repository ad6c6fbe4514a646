package shaping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubKerns implements font.SimpleKerns over a pair map.
type stubKerns map[[2]GID]int16

func (s stubKerns) KernPair(left, right GID) int16 { return s[[2]GID{left, right}] }

func TestKernPairsSplitsValue(t *testing.T) {
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Info[0].Mask = ^GlyphMask(0)
	b.Info[1].Mask = ^GlyphMask(0)

	kernPairs(stubKerns{{1, 2}: -100}, false, f, b, ^GlyphMask(0))

	// the kern value splits between the pair, the second glyph also
	// shifting by its share
	assert.Equal(t, Position(-50), b.Pos[0].XAdvance)
	assert.Equal(t, Position(-50), b.Pos[1].XAdvance)
	assert.Equal(t, Position(-50), b.Pos[1].XOffset)
	assert.NotZero(t, b.Info[0].Mask&GlyphUnsafeToBreak)
}

func TestKernPairsHonorsMask(t *testing.T) {
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Info[0].Mask = 0 // kern feature off for this glyph
	b.Info[1].Mask = 0

	kernPairs(stubKerns{{1, 2}: -100}, false, f, b, 0x40)

	assert.Zero(t, b.Pos[0].XAdvance)
	assert.Zero(t, b.Pos[1].XAdvance)
}

func TestKernPairsCrossStreamSetsOffset(t *testing.T) {
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Info[0].Mask = ^GlyphMask(0)
	b.Info[1].Mask = ^GlyphMask(0)

	kernPairs(stubKerns{{1, 2}: 30}, true, f, b, ^GlyphMask(0))

	assert.Equal(t, Position(30), b.Pos[1].YOffset)
	assert.Zero(t, b.Pos[1].XAdvance)
	assert.NotZero(t, b.scratchFlags&bsfHasGPOSAttachment)
}

// crossStreamDriver builds a kerx format-1 driver in cross-stream mode
// with glyph idx already pushed on the kerning stack.
func crossStreamDriver(f *Font, b *Buffer, idx int) *kerx1Driver {
	c := newAatApplyContext(&shapePlan{requestedKerning: true, kernMask: ^GlyphMask(0)}, f, b)
	d := &kerx1Driver{c: c, crossStream: true}
	d.stack[0] = idx
	d.depth = 1
	return d
}

func TestKerxCrossStreamAccumulates(t *testing.T) {
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Pos[1].attachType = attachTypeCursive
	b.Pos[1].attachChain = -1

	d := crossStreamDriver(f, b, 1)
	// value 40, odd bit terminates the action list
	d.applyKernActions(b, []int16{40 | 1})

	assert.Equal(t, Position(40), b.Pos[1].YOffset)
	assert.Equal(t, uint8(attachTypeCursive), b.Pos[1].attachType)
	assert.NotZero(t, b.scratchFlags&bsfHasGPOSAttachment)
}

func TestKerxCrossStreamResetSentinel(t *testing.T) {
	// the -0x8000 sentinel detaches a previously attached glyph and
	// zeroes its cross-stream offset
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Pos[1].attachType = attachTypeCursive
	b.Pos[1].attachChain = -1
	b.Pos[1].YOffset = 70

	d := crossStreamDriver(f, b, 1)
	d.applyKernActions(b, []int16{kerxCrossStreamReset | 1})

	assert.Equal(t, uint8(attachTypeNone), b.Pos[1].attachType)
	assert.Zero(t, b.Pos[1].attachChain)
	assert.Zero(t, b.Pos[1].YOffset)
	assert.Zero(t, d.depth)
}

func TestKerxCrossStreamIgnoresUnattached(t *testing.T) {
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	// no prior attachment: plain values do nothing cross-stream
	d := crossStreamDriver(f, b, 1)
	d.applyKernActions(b, []int16{40 | 1})
	assert.Zero(t, b.Pos[1].YOffset)
}

func TestKerx1StackPop(t *testing.T) {
	// two pushed glyphs pop in LIFO order, values assigned in action
	// order; the odd terminator ends the walk
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2, 3)
	for i := range b.Info {
		b.Info[i].Mask = ^GlyphMask(0)
	}
	c := newAatApplyContext(&shapePlan{requestedKerning: true, kernMask: ^GlyphMask(0)}, f, b)
	d := &kerx1Driver{c: c}
	d.stack[0], d.stack[1] = 0, 2
	d.depth = 2

	d.applyKernActions(b, []int16{100, 60 | 1})

	require.Equal(t, Position(100), b.Pos[2].XAdvance, "top of stack pops first")
	assert.Equal(t, Position(60), b.Pos[0].XAdvance)
	assert.Zero(t, d.depth)
}
