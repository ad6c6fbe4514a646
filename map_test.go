package shaping

import (
	"testing"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBsearchFeature(t *testing.T) {
	features := []mappedFeature{
		{tag: ot.NewTag('c', 'c', 'm', 'p'), mask: 1},
		{tag: ot.NewTag('k', 'e', 'r', 'n'), mask: 2},
		{tag: ot.NewTag('l', 'i', 'g', 'a'), mask: 4},
	}
	f := bsearchFeature(features, ot.NewTag('k', 'e', 'r', 'n'))
	require.NotNil(t, f)
	assert.Equal(t, GlyphMask(2), f.mask)
	assert.Nil(t, bsearchFeature(features, ot.NewTag('z', 'e', 'r', 'o')))
}

func TestShapeMapStageLookupSlicing(t *testing.T) {
	var m shapeMap
	m.lookups[0] = []mappedLookup{{index: 1}, {index: 2}, {index: 3}, {index: 4}}
	m.stages[0] = []mappedStage{{lastLookup: 2}, {lastLookup: 4}}

	assert.Len(t, m.getStageLookups(0, 0), 2)
	assert.Len(t, m.getStageLookups(0, 1), 2)
	assert.Equal(t, uint16(3), m.getStageLookups(0, 1)[0].index)
	assert.Nil(t, m.getStageLookups(0, 5))
}

func TestShapeMapMaskQueries(t *testing.T) {
	var m shapeMap
	m.features = []mappedFeature{
		{tag: ot.NewTag('k', 'e', 'r', 'n'), mask: 0xF0, mask1: 0x10, shift: 4, needsFallback: true},
	}
	mask, shift := m.getMask(ot.NewTag('k', 'e', 'r', 'n'))
	assert.Equal(t, GlyphMask(0xF0), mask)
	assert.Equal(t, 4, shift)
	assert.Equal(t, GlyphMask(0x10), m.getMask1(ot.NewTag('k', 'e', 'r', 'n')))
	assert.True(t, m.needsFallback(ot.NewTag('k', 'e', 'r', 'n')))
	assert.Zero(t, m.getMask1(ot.NewTag('l', 'i', 'g', 'a')))
}

func TestGlobalMaskLayout(t *testing.T) {
	// the global bit is the top bit and never collides with glyph flags
	assert.Equal(t, uint32(1)<<31, uint32(globalBitMask))
	assert.Zero(t, GlyphMask(globalBitMask)&glyphFlagDefined)
}

func TestSetMasksRespectsClusterRange(t *testing.T) {
	b := bufferWithClusters(0, 1, 2, 3)
	b.setMasks(0x10, 0xF0, 1, 3)
	assert.Zero(t, b.Info[0].Mask&0xF0)
	assert.Equal(t, GlyphMask(0x10), b.Info[1].Mask&0xF0)
	assert.Equal(t, GlyphMask(0x10), b.Info[2].Mask&0xF0)
	assert.Zero(t, b.Info[3].Mask&0xF0)
}
