package shaping

import (
	"testing"

	"github.com/go-text/typesetting/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionProperties(t *testing.T) {
	assert.True(t, LeftToRight.isHorizontal())
	assert.True(t, LeftToRight.isForward())
	assert.True(t, RightToLeft.isBackward())
	assert.True(t, TopToBottom.isVertical())
	assert.Equal(t, RightToLeft, LeftToRight.Reverse())
	assert.Equal(t, TopToBottom, BottomToTop.Reverse())
	assert.False(t, Direction(0).isValid())
}

func TestGuessSegmentProperties(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x0634, 0x064A, 0x0646}, 0) // Arabic
	b.GuessSegmentProperties()
	assert.Equal(t, language.Arabic, b.Props.Script)
	assert.Equal(t, RightToLeft, b.Props.Direction)

	b = NewBuffer()
	b.AddRunes([]rune("abc"), 0)
	b.GuessSegmentProperties()
	assert.Equal(t, LeftToRight, b.Props.Direction)
}

func TestGuessKeepsExplicitProperties(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x05D0}, 0) // Hebrew alef
	b.Props.Direction = LeftToRight
	b.GuessSegmentProperties()
	assert.Equal(t, LeftToRight, b.Props.Direction, "explicit direction wins")
	assert.Equal(t, language.Hebrew, b.Props.Script)
}

func TestShapeNilArguments(t *testing.T) {
	b := NewBuffer()
	b.AddRune('a', 0)
	assert.Error(t, Shape(nil, b, nil))
	assert.Error(t, Shape(&Font{}, nil, nil))
}

func TestShapeEmptyBufferIsNoop(t *testing.T) {
	// an empty buffer must not touch the face at all, so even a
	// zero-value font works
	b := NewBuffer()
	require.NoError(t, Shape(&Font{}, b, nil))
	assert.Zero(t, b.Len())
}

func TestVertCharFor(t *testing.T) {
	assert.Equal(t, rune(0xFE35), vertCharFor(0xFF08))
	assert.Equal(t, rune(0xFE11), vertCharFor(0x3001))
	assert.Equal(t, rune(0xFE32), vertCharFor(0x2013))
	assert.Equal(t, 'a', vertCharFor('a'))
}

func TestPropagateFlagsUnifiesClusters(t *testing.T) {
	b := bufferWithClusters(0, 0, 1)
	b.Info[0].Mask |= GlyphUnsafeToBreak
	b.scratchFlags |= bsfHasGlyphFlags
	propagateFlags(b)
	assert.NotZero(t, b.Info[1].Mask&GlyphUnsafeToBreak, "flag spreads over the cluster")
	assert.Zero(t, b.Info[2].Mask&GlyphUnsafeToBreak)
}

func TestPropagateFlagsTatweelInteraction(t *testing.T) {
	b := bufferWithClusters(0, 1)
	b.Flags = ProduceSafeToInsertTatweel | ProduceUnsafeToConcat
	b.scratchFlags |= bsfHasGlyphFlags

	// a cluster that is both unsafe-to-break and safe-to-insert loses
	// the tatweel bit
	b.Info[0].Mask |= GlyphUnsafeToBreak | GlyphSafeToInsertTatweel
	// a cluster that is safe-to-insert becomes unsafe-to-break
	b.Info[1].Mask |= GlyphSafeToInsertTatweel

	propagateFlags(b)
	assert.Zero(t, b.Info[0].Mask&GlyphSafeToInsertTatweel)
	assert.NotZero(t, b.Info[1].Mask&GlyphUnsafeToBreak)
	assert.NotZero(t, b.Info[1].Mask&GlyphSafeToInsertTatweel)
}

func TestEnsureNativeDirectionFlipsRTLRuns(t *testing.T) {
	b := NewBuffer()
	b.AddRunes([]rune{0x05D0, 0x05D1}, 0)
	b.Props.Script = language.Hebrew
	b.Props.Direction = RightToLeft
	b.setUnicodeProps()
	b.ensureNativeDirection()
	// Hebrew is natively RTL: nothing changes
	assert.Equal(t, RightToLeft, b.Props.Direction)
	assert.Equal(t, rune(0x05D0), b.Info[0].codepoint)

	// a forced-LTR Hebrew run flips to native order for shaping
	b.Props.Direction = LeftToRight
	b.ensureNativeDirection()
	assert.Equal(t, RightToLeft, b.Props.Direction)
	assert.Equal(t, rune(0x05D1), b.Info[0].codepoint)
}
