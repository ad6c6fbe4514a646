package shaping

import (
	"testing"

	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFont builds a faceless font with 1:1 scaling and callback
// metrics, enough to drive the appliers without a parsed face.
func newTestFont(cmap map[rune]GID, advances map[GID]float32) *Font {
	f := &Font{XScale: 1000, YScale: 1000, unitsPerEm: 1000}
	f.Funcs.NominalGlyph = func(r rune) (GID, bool) {
		g, ok := cmap[r]
		return g, ok
	}
	f.Funcs.GlyphHAdvance = func(g GID) float32 { return advances[g] }
	return f
}

// glyphBuffer fills a buffer with already-mapped glyphs, one cluster
// each, masks set so the default lookup mask matches.
func glyphBuffer(glyphs ...GID) *Buffer {
	b := NewBuffer()
	b.Props.Direction = LeftToRight
	for i, g := range glyphs {
		b.AddRune(0, i)
		b.Info[i].Glyph = g
		b.Info[i].Mask = 1
	}
	return b
}

func glyphsOf(b *Buffer) []GID {
	out := make([]GID, len(b.Info))
	for i := range b.Info {
		out[i] = b.Info[i].Glyph
	}
	return out
}

// applyGSUBLookup runs one synthetic GSUB lookup over the buffer the
// way the engine does, including digests and the skipping iterator.
func applyGSUBLookup(f *Font, b *Buffer, lookup gofont.GSUBLookup) *applyContext {
	var accel lookupAccel
	accel.init(lookupGSUB(lookup))
	c := new(applyContext)
	c.reset(tableGSUB, f, b)
	c.applyString(false, &accel)
	return c
}

func TestApplyGSUBSingleSubstitution(t *testing.T) {
	sub := tables.SingleSubs{Data: tables.SingleSubstData2{
		Coverage:           tables.Coverage1{Glyphs: []tables.GlyphID{10}},
		SubstituteGlyphIDs: []tables.GlyphID{20},
	}}
	f := newTestFont(nil, nil)
	b := glyphBuffer(10, 11)
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	assert.Equal(t, []GID{20, 11}, glyphsOf(b))
	assert.True(t, b.Info[0].substituted())
	assert.False(t, b.Info[1].substituted())
}

func TestApplyGSUBSingleDelta(t *testing.T) {
	sub := tables.SingleSubs{Data: tables.SingleSubstData1{
		Coverage:     tables.Coverage1{Glyphs: []tables.GlyphID{10, 11}},
		DeltaGlyphID: 5,
	}}
	f := newTestFont(nil, nil)
	b := glyphBuffer(10, 11, 12)
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	assert.Equal(t, []GID{15, 16, 12}, glyphsOf(b))
}

func TestApplyGSUBMultipleSubstitution(t *testing.T) {
	sub := tables.MultipleSubs{
		Coverage:  tables.Coverage1{Glyphs: []tables.GlyphID{10}},
		Sequences: []tables.Sequence{{SubstituteGlyphIDs: []tables.GlyphID{7, 8}}},
	}
	f := newTestFont(nil, nil)
	b := glyphBuffer(10)
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	require.Equal(t, []GID{7, 8}, glyphsOf(b))
	// both outputs keep the input cluster
	assert.Equal(t, b.Info[0].Cluster, b.Info[1].Cluster)
	assert.True(t, b.Info[0].multiplied())
	assert.True(t, b.Info[1].multiplied())
}

func TestApplyGSUBMultipleDeletes(t *testing.T) {
	sub := tables.MultipleSubs{
		Coverage:  tables.Coverage1{Glyphs: []tables.GlyphID{10}},
		Sequences: []tables.Sequence{{SubstituteGlyphIDs: nil}},
	}
	f := newTestFont(nil, nil)
	b := glyphBuffer(9, 10, 11)
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	assert.Equal(t, []GID{9, 11}, glyphsOf(b))
}

func TestApplyGSUBLigature(t *testing.T) {
	sub := tables.LigatureSubs{
		Coverage: tables.Coverage1{Glyphs: []tables.GlyphID{1}},
		LigatureSets: []tables.LigatureSet{{
			Ligatures: []tables.Ligature{{
				LigatureGlyph:     3,
				ComponentGlyphIDs: []tables.GlyphID{2},
			}},
		}},
	}
	f := newTestFont(nil, nil)
	b := glyphBuffer(1, 2)
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	require.Equal(t, []GID{3}, glyphsOf(b))
	assert.Equal(t, 0, b.Info[0].Cluster)
	// a successful match marks the matched range unsafe to break
	assert.NotZero(t, b.Info[0].Mask&GlyphUnsafeToBreak)
}

func TestApplyGSUBLigatureNoMatchLeavesBuffer(t *testing.T) {
	sub := tables.LigatureSubs{
		Coverage: tables.Coverage1{Glyphs: []tables.GlyphID{1}},
		LigatureSets: []tables.LigatureSet{{
			Ligatures: []tables.Ligature{{
				LigatureGlyph:     3,
				ComponentGlyphIDs: []tables.GlyphID{2},
			}},
		}},
	}
	f := newTestFont(nil, nil)
	b := glyphBuffer(1, 5) // second glyph does not match
	applyGSUBLookup(f, b, gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}})

	assert.Equal(t, []GID{1, 5}, glyphsOf(b))
}

func TestApplyGSUBContextualNested(t *testing.T) {
	// context format 3: pair (1,2) triggers a nested single
	// substitution at sequence index 1, replacing glyph 2 with 9
	nested := tables.SingleSubs{Data: tables.SingleSubstData2{
		Coverage:           tables.Coverage1{Glyphs: []tables.GlyphID{2}},
		SubstituteGlyphIDs: []tables.GlyphID{9},
	}}
	ctx := tables.ContextualSubs{Data: tables.ContextualSubs3{
		Coverages: []tables.Coverage{
			tables.Coverage1{Glyphs: []tables.GlyphID{1}},
			tables.Coverage1{Glyphs: []tables.GlyphID{2}},
		},
		SeqLookupRecords: []tables.SequenceLookupRecord{
			{SequenceIndex: 1, LookupListIndex: 1},
		},
	}}
	lookups := []layoutLookup{
		lookupGSUB(gofont.GSUBLookup{Subtables: []tables.GSUBLookup{ctx}}),
		lookupGSUB(gofont.GSUBLookup{Subtables: []tables.GSUBLookup{nested}}),
	}

	f := newTestFont(nil, nil)
	b := glyphBuffer(1, 2, 1)
	var accel lookupAccel
	accel.init(lookups[0])
	c := new(applyContext)
	c.reset(tableGSUB, f, b)
	c.recurseFunc = func(c *applyContext, lookupIndex uint16) bool {
		if int(lookupIndex) >= len(lookups) {
			return false
		}
		return c.applyRecurseLookup(lookupIndex, lookups[lookupIndex])
	}
	c.applyString(false, &accel)

	assert.Equal(t, []GID{1, 9, 1}, glyphsOf(b))
	// the context match spans both glyphs
	assert.NotZero(t, b.Info[0].Mask&GlyphUnsafeToBreak)
	assert.NotZero(t, b.Info[1].Mask&GlyphUnsafeToBreak)
}

func TestApplyGSUBRespectsLookupMask(t *testing.T) {
	sub := tables.SingleSubs{Data: tables.SingleSubstData2{
		Coverage:           tables.Coverage1{Glyphs: []tables.GlyphID{10}},
		SubstituteGlyphIDs: []tables.GlyphID{20},
	}}
	f := newTestFont(nil, nil)
	b := glyphBuffer(10)
	b.Info[0].Mask = 2 // outside the lookup mask

	var accel lookupAccel
	accel.init(lookupGSUB(gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}}))
	c := new(applyContext)
	c.reset(tableGSUB, f, b)
	c.setLookupMask(1)
	c.applyString(false, &accel)

	assert.Equal(t, []GID{10}, glyphsOf(b), "masked-out glyph stays put")
}

func TestLookupAccelDigestRejects(t *testing.T) {
	sub := tables.SingleSubs{Data: tables.SingleSubstData2{
		Coverage:           tables.Coverage1{Glyphs: []tables.GlyphID{10}},
		SubstituteGlyphIDs: []tables.GlyphID{20},
	}}
	var accel lookupAccel
	accel.init(lookupGSUB(gofont.GSUBLookup{Subtables: []tables.GSUBLookup{sub}}))
	assert.True(t, accel.digest.mayHave(10))
	// a digest miss proves absence
	if accel.digest.mayHave(40000) {
		t.Skip("digest false positive, permitted")
	}
}
