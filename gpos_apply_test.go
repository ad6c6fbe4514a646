package shaping

import (
	"testing"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// positionedBuffer returns a glyph buffer with zeroed positions, ready
// for GPOS application.
func positionedBuffer(glyphs ...GID) *Buffer {
	b := glyphBuffer(glyphs...)
	b.clearPositions()
	return b
}

func newGPOSContext(f *Font, b *Buffer) *applyContext {
	c := new(applyContext)
	c.reset(tableGPOS, f, b)
	return c
}

func TestApplyGPOSValueRecord(t *testing.T) {
	f := newTestFont(nil, nil)
	c := &applyContext{font: f, direction: LeftToRight}
	var pos GlyphPosition

	applied := c.applyGPOSValueRecord(
		tables.XAdvance|tables.XPlacement,
		tables.ValueRecord{XAdvance: 120, XPlacement: -10},
		&pos)

	assert.True(t, applied)
	assert.Equal(t, Position(120), pos.XAdvance)
	assert.Equal(t, Position(-10), pos.XOffset)
	assert.Zero(t, pos.YAdvance)
}

func TestApplyGPOSValueRecordVerticalNegatesYAdvance(t *testing.T) {
	f := newTestFont(nil, nil)
	c := &applyContext{font: f, direction: TopToBottom}
	var pos GlyphPosition

	c.applyGPOSValueRecord(tables.YAdvance, tables.ValueRecord{YAdvance: 100}, &pos)
	assert.Equal(t, Position(-100), pos.YAdvance)
}

func TestApplyGPOSSinglePos(t *testing.T) {
	table := tables.SinglePos{Data: tables.SinglePosData1{
		Coverage:    tables.Coverage1{Glyphs: []tables.GlyphID{5}},
		ValueFormat: tables.XAdvance,
		ValueRecord: tables.ValueRecord{XAdvance: 80},
	}}
	f := newTestFont(nil, nil)
	b := positionedBuffer(5, 6)
	c := newGPOSContext(f, b)

	require.True(t, c.applyGPOS(table))
	assert.Equal(t, Position(80), b.Pos[0].XAdvance)
	assert.Equal(t, 1, b.idx, "single positioning consumes the glyph")

	// uncovered glyph: no match, no movement
	assert.False(t, c.applyGPOS(table))
	assert.Zero(t, b.Pos[1].XAdvance)
}

func TestApplyGPOSPairFormat1(t *testing.T) {
	table := tables.PairPos{Data: tables.PairPosData1{
		Coverage:     tables.Coverage1{Glyphs: []tables.GlyphID{1}},
		ValueFormat1: tables.XAdvance,
		PairSets: []tables.PairSet{{
			PairValueRecords: []tables.PairValueRecord{{
				SecondGlyph:  2,
				ValueRecord1: tables.ValueRecord{XAdvance: -50},
			}},
		}},
	}}
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	c := newGPOSContext(f, b)

	require.True(t, c.applyGPOS(table))
	assert.Equal(t, Position(-50), b.Pos[0].XAdvance)
	assert.Zero(t, b.Pos[1].XAdvance)
	// the pair is unsafe to break between its glyphs
	assert.NotZero(t, b.Info[0].Mask&GlyphUnsafeToBreak)
	assert.NotZero(t, b.Info[1].Mask&GlyphUnsafeToBreak)
	// with an empty second value record, the second glyph stays
	// current so it can head another pair
	assert.Equal(t, 1, b.idx)
}

func TestApplyGPOSPairFormat1NoSecondMatch(t *testing.T) {
	table := tables.PairPos{Data: tables.PairPosData1{
		Coverage:     tables.Coverage1{Glyphs: []tables.GlyphID{1}},
		ValueFormat1: tables.XAdvance,
		PairSets: []tables.PairSet{{
			PairValueRecords: []tables.PairValueRecord{{
				SecondGlyph:  9,
				ValueRecord1: tables.ValueRecord{XAdvance: -50},
			}},
		}},
	}}
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	c := newGPOSContext(f, b)

	assert.False(t, c.applyGPOS(table))
	assert.Zero(t, b.Pos[0].XAdvance)
}

func TestApplyGPOSCursive(t *testing.T) {
	table := tables.CursivePos{
		Coverage: tables.Coverage1{Glyphs: []tables.GlyphID{1, 2}},
		EntryExits: []tables.EntryExit{
			{ExitAnchor: tables.AnchorFormat1{XCoordinate: 500, YCoordinate: 0}},
			{EntryAnchor: tables.AnchorFormat1{XCoordinate: 0, YCoordinate: 100}},
		},
	}
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	c := newGPOSContext(f, b)

	// cursive applies at the second glyph, looking back at the first
	b.idx = 1
	require.True(t, c.applyGPOS(table))

	// LTR: the exit anchor sets the first glyph's advance
	assert.Equal(t, Position(500), b.Pos[0].XAdvance)
	// the child (second glyph, LTR) chains to its parent
	assert.Equal(t, uint8(attachTypeCursive), b.Pos[1].attachType)
	assert.Equal(t, int16(-1), b.Pos[1].attachChain)
	assert.Equal(t, Position(-100), b.Pos[1].YOffset)
	assert.NotZero(t, b.scratchFlags&bsfHasGPOSAttachment)
	assert.Equal(t, 2, b.idx)
}

// stubAnchorMatrix implements tables.AnchorMatrix for mark tests.
type stubAnchorMatrix struct {
	anchors [][]tables.Anchor // [component][markClass]
}

func (s stubAnchorMatrix) Anchor(glyph, markClass int) tables.Anchor {
	if glyph >= len(s.anchors) || markClass >= len(s.anchors[glyph]) {
		return nil
	}
	return s.anchors[glyph][markClass]
}

func (s stubAnchorMatrix) Len() int { return len(s.anchors) }

func TestApplyGPOSMarks(t *testing.T) {
	marks := tables.MarkArray{
		MarkRecords: []tables.MarkRecord{{MarkClass: 0}},
		MarkAnchors: []tables.Anchor{tables.AnchorFormat1{XCoordinate: 10, YCoordinate: 20}},
	}
	base := stubAnchorMatrix{anchors: [][]tables.Anchor{
		{tables.AnchorFormat1{XCoordinate: 100, YCoordinate: 200}},
	}}
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2) // base, mark
	c := newGPOSContext(f, b)
	b.idx = 1

	require.True(t, c.applyGPOSMarks(marks, 0, 0, base, 0))

	assert.Equal(t, Position(90), b.Pos[1].XOffset)  // base 100 - mark 10
	assert.Equal(t, Position(180), b.Pos[1].YOffset) // base 200 - mark 20
	assert.Equal(t, uint8(attachTypeMark), b.Pos[1].attachType)
	assert.Equal(t, int16(-1), b.Pos[1].attachChain)
	assert.NotZero(t, b.scratchFlags&bsfHasGPOSAttachment)
	assert.Equal(t, 2, b.idx)
}

func TestApplyGPOSMarksMissingAnchorDefers(t *testing.T) {
	marks := tables.MarkArray{
		MarkRecords: []tables.MarkRecord{{MarkClass: 0}},
		MarkAnchors: []tables.Anchor{tables.AnchorFormat1{}},
	}
	base := stubAnchorMatrix{anchors: [][]tables.Anchor{{nil}}}
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	c := newGPOSContext(f, b)
	b.idx = 1

	// absent anchors leave the mark for later subtables
	assert.False(t, c.applyGPOSMarks(marks, 0, 0, base, 0))
	assert.Equal(t, 1, b.idx)
}

func TestGPOSIdempotentOnPositionedBuffer(t *testing.T) {
	// running a value-record lookup twice simply adds twice; the
	// engine guarantees idempotence at the pipeline level by applying
	// GPOS once per call, with attachment propagation being the
	// idempotent step
	f := newTestFont(nil, nil)
	b := positionedBuffer(1, 2)
	b.Pos[1].attachType = attachTypeMark
	b.Pos[1].attachChain = -1
	b.scratchFlags |= bsfHasGPOSAttachment

	positionFinishOffsetsGPOS(b)
	snapshot := append([]GlyphPosition(nil), b.Pos...)
	positionFinishOffsetsGPOS(b)
	assert.Equal(t, snapshot, b.Pos)
}
