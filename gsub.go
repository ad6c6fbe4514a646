package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// lookupGSUB drives one GSUB lookup.
type lookupGSUB font.GSUBLookup

var _ layoutLookup = lookupGSUB{}

func (l lookupGSUB) props() uint32 { return l.LookupOptions.Props() }

func (l lookupGSUB) collectCoverage(dst *setDigest) {
	for _, table := range l.Subtables {
		dst.collectCoverage(table.Cov())
	}
}

func (l lookupGSUB) subtables() []subtableApp {
	out := make([]subtableApp, len(l.Subtables))
	for i, table := range l.Subtables {
		table := table
		out[i] = subtableApp{apply: func(c *applyContext) bool { return c.applyGSUB(table) }}
		out[i].digest.collectCoverage(table.Cov())
	}
	return out
}

func (l lookupGSUB) dispatchApply(c *applyContext) bool {
	for _, table := range l.Subtables {
		if c.applyGSUB(table) {
			return true
		}
	}
	return false
}

func (l lookupGSUB) isReverse() bool {
	for _, table := range l.Subtables {
		if _, ok := table.(tables.ReverseChainSingleSubs); ok {
			return true
		}
	}
	return false
}

func applyRecurseGSUB(c *applyContext, lookupIndex uint16) bool {
	if c.font.face == nil {
		return false
	}
	gsub := c.font.face.GSUB
	if int(lookupIndex) >= len(gsub.Lookups) {
		return false
	}
	l := lookupGSUB(gsub.Lookups[lookupIndex])
	return c.applyRecurseLookup(lookupIndex, l)
}

// applyGSUB applies one GSUB subtable at the buffer cursor. A true
// return means the subtable consumed the position.
func (c *applyContext) applyGSUB(table tables.GSUBLookup) bool {
	glyph := c.buffer.cur(0).Glyph
	index, ok := table.Cov().Index(gID(glyph))
	if !ok {
		return false
	}

	switch data := table.(type) {
	case tables.SingleSubs:
		// replace one glyph, in place
		switch inner := data.Data.(type) {
		case tables.SingleSubstData1:
			sub := gID(int(glyph) + int(inner.DeltaGlyphID))
			tracer().Debugf("GSUB 1/1: subst %d for %d", sub, glyph)
			c.replaceGlyph(GID(sub))
		case tables.SingleSubstData2:
			if index >= len(inner.SubstituteGlyphIDs) {
				return false
			}
			tracer().Debugf("GSUB 1/2: subst %d for %d", inner.SubstituteGlyphIDs[index], glyph)
			c.replaceGlyph(GID(inner.SubstituteGlyphIDs[index]))
		}
		return true

	case tables.MultipleSubs:
		if index >= len(data.Sequences) {
			return false
		}
		c.applySubsSequence(data.Sequences[index].SubstituteGlyphIDs)
		return true

	case tables.AlternateSubs:
		if index >= len(data.AlternateSets) {
			return false
		}
		alternates := data.AlternateSets[index].AlternateGlyphIDs
		return c.applySubsAlternate(alternates)

	case tables.LigatureSubs:
		if index >= len(data.LigatureSets) {
			return false
		}
		return c.applySubsLigature(data.LigatureSets[index].Ligatures)

	case tables.ContextualSubs:
		switch inner := data.Data.(type) {
		case tables.ContextualSubs1:
			return c.applyLookupContext1(tables.SequenceContextFormat1(inner), index)
		case tables.ContextualSubs2:
			return c.applyLookupContext2(tables.SequenceContextFormat2(inner), index, glyph)
		case tables.ContextualSubs3:
			return c.applyLookupContext3(tables.SequenceContextFormat3(inner), index)
		}

	case tables.ChainedContextualSubs:
		switch inner := data.Data.(type) {
		case tables.ChainedContextualSubs1:
			return c.applyLookupChainedContext1(tables.ChainedSequenceContextFormat1(inner), index)
		case tables.ChainedContextualSubs2:
			return c.applyLookupChainedContext2(tables.ChainedSequenceContextFormat2(inner), index, glyph)
		case tables.ChainedContextualSubs3:
			return c.applyLookupChainedContext3(tables.ChainedSequenceContextFormat3(inner), index)
		}

	case tables.ReverseChainSingleSubs:
		return c.applySubsReverseChain(data, index)
	}
	return false
}

// applySubsSequence realizes a multiple substitution: empty sequences
// delete, singletons replace in place, longer sequences mark each
// output with its component index so marks can attach per component
// later.
func (c *applyContext) applySubsSequence(seq []tables.GlyphID) {
	switch len(seq) {
	case 1:
		// single output stays in place and is not "multiplied"
		c.replaceGlyph(GID(seq[0]))
	case 0:
		c.buffer.deleteGlyph()
	default:
		var klass uint16
		if c.buffer.cur(0).isLigature() {
			klass = tables.GPBaseGlyph
		}
		ligID := c.buffer.cur(0).ligID()
		for i, g := range seq {
			// glyphs already attached to a ligature keep their props
			if ligID == 0 {
				c.buffer.cur(0).setLigPropsForMark(0, uint8(minInt2(i, 0x0F)))
			}
			c.setGlyphClassExt(GID(g), klass, false, true)
			c.buffer.outputGlyphIndex(GID(g))
		}
		c.buffer.skipGlyph()
	}
}

// applySubsAlternate picks an alternate, honoring the 'rand' feature
// with the buffer-local generator.
func (c *applyContext) applySubsAlternate(alternates []tables.GlyphID) bool {
	count := uint32(len(alternates))
	if count == 0 {
		return false
	}
	altIndex := c.lookupMask & c.buffer.cur(0).Mask
	// the alternate index is the feature value stored in the mask
	if shift := maskBitShift(c.lookupMask); shift >= 0 {
		altIndex >>= uint(shift)
	}
	if c.random && altIndex == randomFeatureValue {
		altIndex = c.buffer.randomNumber()%count + 1
	}
	if altIndex > count || altIndex == 0 {
		return false
	}
	c.replaceGlyph(GID(alternates[altIndex-1]))
	return true
}

// applySubsLigature tries each ligature of the set in font order.
func (c *applyContext) applySubsLigature(ligatures []tables.Ligature) bool {
	for _, lig := range ligatures {
		count := len(lig.ComponentGlyphIDs) + 1
		// a one-component ligature is a cheap single substitution
		if count == 1 {
			c.replaceGlyph(GID(lig.LigatureGlyph))
			return true
		}
		var matchPositions [maxContextLength]int
		ok, matchEnd, totalComponentCount := c.matchInput(lig.ComponentGlyphIDs, matchGlyph, &matchPositions)
		if !ok {
			c.buffer.unsafeToConcat(c.buffer.idx, matchEnd)
			continue
		}
		c.buffer.unsafeToBreak(c.buffer.idx, matchEnd)
		c.ligateInput(count, matchPositions, matchEnd, gID(lig.LigatureGlyph), totalComponentCount)
		return true
	}
	return false
}

// applySubsReverseChain applies GSUB type 8. Scanning is right to left,
// strictly in place, and never nests.
func (c *applyContext) applySubsReverseChain(data tables.ReverseChainSingleSubs, index int) bool {
	if c.nestingLevelLeft != maxNestingLevel {
		return false // no nesting
	}
	if index >= len(data.SubstituteGlyphIDs) {
		return false
	}
	lB, lL := len(data.BacktrackCoverages), len(data.LookaheadCoverages)
	hasMatch, startIndex := c.matchBacktrack(seq1N(&c.indices, 0, lB), matchCoverage(data.BacktrackCoverages))
	if !hasMatch {
		c.buffer.unsafeToConcatFromOutbuffer(startIndex, c.buffer.idx+1)
		return false
	}
	hasMatch, endIndex := c.matchLookahead(seq1N(&c.indices, 0, lL), matchCoverage(data.LookaheadCoverages), c.buffer.idx+1)
	if !hasMatch {
		c.buffer.unsafeToConcat(c.buffer.idx, endIndex)
		return false
	}
	c.buffer.unsafeToBreakFromOutbuffer(startIndex, endIndex)
	c.setGlyphClass(GID(data.SubstituteGlyphIDs[index]))
	c.buffer.cur(0).Glyph = GID(data.SubstituteGlyphIDs[index])
	// the cursor is not moved here, the backward driver does it
	return true
}

// maskBitShift returns the shift of the lowest set bit of mask, or -1.
func maskBitShift(mask GlyphMask) int {
	if mask == 0 {
		return -1
	}
	shift := 0
	for mask&1 == 0 {
		mask >>= 1
		shift++
	}
	return shift
}
