package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// lookupGPOS drives one GPOS lookup.
type lookupGPOS font.GPOSLookup

var _ layoutLookup = lookupGPOS{}

func (l lookupGPOS) props() uint32 { return l.LookupOptions.Props() }

func (l lookupGPOS) collectCoverage(dst *setDigest) {
	for _, table := range l.Subtables {
		dst.collectCoverage(table.Cov())
	}
}

func (l lookupGPOS) subtables() []subtableApp {
	out := make([]subtableApp, len(l.Subtables))
	for i, table := range l.Subtables {
		table := table
		out[i] = subtableApp{apply: func(c *applyContext) bool { return c.applyGPOS(table) }}
		out[i].digest.collectCoverage(table.Cov())
	}
	return out
}

func (l lookupGPOS) dispatchApply(c *applyContext) bool {
	for _, table := range l.Subtables {
		if c.applyGPOS(table) {
			return true
		}
	}
	return false
}

func (lookupGPOS) isReverse() bool { return false }

func applyRecurseGPOS(c *applyContext, lookupIndex uint16) bool {
	if c.font.face == nil {
		return false
	}
	gpos := c.font.face.GPOS
	if int(lookupIndex) >= len(gpos.Lookups) {
		return false
	}
	l := lookupGPOS(gpos.Lookups[lookupIndex])
	return c.applyRecurseLookup(lookupIndex, l)
}

// Attachment kinds stored in GlyphPosition.attachType. A glyph attaches
// either as a mark or cursively, never both.
const (
	attachTypeNone    = 0x00
	attachTypeMark    = 0x01
	attachTypeCursive = 0x02
)

// positionStartGPOS clears stale attachment state before positioning.
func positionStartGPOS(buffer *Buffer) {
	for i := range buffer.Pos {
		buffer.Pos[i].attachChain = 0
		buffer.Pos[i].attachType = 0
	}
}

// propagateAttachmentOffsets resolves one glyph's attachment chain to
// absolute offsets, recursing into the anchor glyph first. Chains are
// cleared as visited, which guarantees termination.
func propagateAttachmentOffsets(pos []GlyphPosition, i int, direction Direction) {
	chain, kind := pos[i].attachChain, pos[i].attachType
	if chain == 0 {
		return
	}
	pos[i].attachChain = 0

	j := i + int(chain)
	if j < 0 || j >= len(pos) {
		return
	}
	propagateAttachmentOffsets(pos, j, direction)

	if kind&attachTypeCursive != 0 {
		// cursive chains accumulate only the cross-axis offset
		if direction.isHorizontal() {
			pos[i].YOffset += pos[j].YOffset
		} else {
			pos[i].XOffset += pos[j].XOffset
		}
	} else {
		pos[i].XOffset += pos[j].XOffset
		pos[i].YOffset += pos[j].YOffset
		if direction.isForward() {
			for _, p := range pos[j:i] {
				pos[i].XOffset -= p.XAdvance
				pos[i].YOffset -= p.YAdvance
			}
		} else {
			for _, p := range pos[j+1 : i+1] {
				pos[i].XOffset += p.XAdvance
				pos[i].YOffset += p.YAdvance
			}
		}
	}
}

// positionFinishOffsetsGPOS runs the attachment propagation pass.
// Running it twice is a no-op: propagation clears the chains.
func positionFinishOffsetsGPOS(buffer *Buffer) {
	if buffer.scratchFlags&bsfHasGPOSAttachment == 0 {
		return
	}
	pos := buffer.Pos
	direction := buffer.Props.Direction
	for i := range pos {
		propagateAttachmentOffsets(pos, i, direction)
	}
}

// applyGPOS applies one GPOS subtable at the buffer cursor.
func (c *applyContext) applyGPOS(table tables.GPOSLookup) bool {
	buffer := c.buffer
	glyph := buffer.cur(0).Glyph
	glyphPos := buffer.curPos(0)
	index, ok := table.Cov().Index(gID(glyph))
	if !ok {
		return false
	}

	switch data := table.(type) {
	case tables.SinglePos:
		switch inner := data.Data.(type) {
		case tables.SinglePosData1:
			c.applyGPOSValueRecord(inner.ValueFormat, inner.ValueRecord, glyphPos)
		case tables.SinglePosData2:
			if index >= len(inner.ValueRecords) {
				return false
			}
			c.applyGPOSValueRecord(inner.ValueFormat, inner.ValueRecords[index], glyphPos)
		}
		buffer.idx++
		return true

	case tables.PairPos:
		iter := &c.iterInput
		iter.reset(buffer.idx, 1)
		ok, unsafeTo := iter.next()
		if !ok {
			buffer.unsafeToConcat(buffer.idx, unsafeTo)
			return false
		}
		switch inner := data.Data.(type) {
		case tables.PairPosData1:
			return c.applyGPOSPair1(inner, index)
		case tables.PairPosData2:
			return c.applyGPOSPair2(inner)
		}

	case tables.CursivePos:
		return c.applyGPOSCursive(data, index)
	case tables.MarkBasePos:
		return c.applyGPOSMarkToBase(data, index)
	case tables.MarkLigPos:
		return c.applyGPOSMarkToLigature(data, index)
	case tables.MarkMarkPos:
		return c.applyGPOSMarkToMark(data, index)

	case tables.ContextualPos:
		switch inner := data.Data.(type) {
		case tables.ContextualPos1:
			return c.applyLookupContext1(tables.SequenceContextFormat1(inner), index)
		case tables.ContextualPos2:
			return c.applyLookupContext2(tables.SequenceContextFormat2(inner), index, glyph)
		case tables.ContextualPos3:
			return c.applyLookupContext3(tables.SequenceContextFormat3(inner), index)
		}

	case tables.ChainedContextualPos:
		switch inner := data.Data.(type) {
		case tables.ChainedContextualPos1:
			return c.applyLookupChainedContext1(tables.ChainedSequenceContextFormat1(inner), index)
		case tables.ChainedContextualPos2:
			return c.applyLookupChainedContext2(tables.ChainedSequenceContextFormat2(inner), index, glyph)
		case tables.ChainedContextualPos3:
			return c.applyLookupChainedContext3(tables.ChainedSequenceContextFormat3(inner), index)
		}
	}
	return true
}

// applyGPOSValueRecord adds a value record to glyphPos, including
// device and variation deltas. Vertical advances grow downward while
// font space grows upward, hence the negations.
func (c *applyContext) applyGPOSValueRecord(format tables.ValueFormat, v tables.ValueRecord, glyphPos *GlyphPosition) bool {
	var ret bool
	if format == 0 {
		return ret
	}
	font := c.font
	horizontal := c.direction.isHorizontal()

	if format&tables.XPlacement != 0 {
		glyphPos.XOffset += font.emScaleX(v.XPlacement)
		ret = ret || v.XPlacement != 0
	}
	if format&tables.YPlacement != 0 {
		glyphPos.YOffset += font.emScaleY(v.YPlacement)
		ret = ret || v.YPlacement != 0
	}
	if format&tables.XAdvance != 0 && horizontal {
		glyphPos.XAdvance += font.emScaleX(v.XAdvance)
		ret = ret || v.XAdvance != 0
	}
	if format&tables.YAdvance != 0 && !horizontal {
		glyphPos.YAdvance -= font.emScaleY(v.YAdvance)
		ret = ret || v.YAdvance != 0
	}

	if format&tables.Devices == 0 {
		return ret
	}
	xp, yp := font.ppem()
	useXDevice := xp != 0 || len(font.varCoords()) != 0
	useYDevice := yp != 0 || len(font.varCoords()) != 0
	if !useXDevice && !useYDevice {
		return ret
	}
	if format&tables.XPlaDevice != 0 && useXDevice {
		glyphPos.XOffset += font.getXDelta(c.varStore, v.XPlaDevice)
		ret = ret || v.XPlaDevice != nil
	}
	if format&tables.YPlaDevice != 0 && useYDevice {
		glyphPos.YOffset += font.getYDelta(c.varStore, v.YPlaDevice)
		ret = ret || v.YPlaDevice != nil
	}
	if format&tables.XAdvDevice != 0 && horizontal && useXDevice {
		glyphPos.XAdvance += font.getXDelta(c.varStore, v.XAdvDevice)
		ret = ret || v.XAdvDevice != nil
	}
	if format&tables.YAdvDevice != 0 && !horizontal && useYDevice {
		glyphPos.YAdvance -= font.getYDelta(c.varStore, v.YAdvDevice)
		ret = ret || v.YAdvDevice != nil
	}
	return ret
}

func (c *applyContext) applyGPOSPair1(inner tables.PairPosData1, index int) bool {
	buffer := c.buffer
	pos := c.iterInput.idx
	if index >= len(inner.PairSets) {
		return false
	}
	set := inner.PairSets[index]
	// pair sets are sorted by second glyph; FindGlyph bisects
	record, ok := set.FindGlyph(gID(buffer.Info[pos].Glyph))
	if !ok {
		buffer.unsafeToConcat(buffer.idx, pos+1)
		return false
	}

	ap1 := c.applyGPOSValueRecord(inner.ValueFormat1, record.ValueRecord1, buffer.curPos(0))
	ap2 := c.applyGPOSValueRecord(inner.ValueFormat2, record.ValueRecord2, &buffer.Pos[pos])
	if ap1 || ap2 {
		buffer.unsafeToBreak(buffer.idx, pos+1)
	}
	if inner.ValueFormat2 != 0 {
		// skip the second glyph to prevent double application
		pos++
		buffer.unsafeToBreak(buffer.idx, pos+1)
	}
	buffer.idx = pos
	return true
}

func (c *applyContext) applyGPOSPair2(inner tables.PairPosData2) bool {
	buffer := c.buffer
	secondPos := c.iterInput.idx

	glyph := buffer.cur(0).Glyph
	class2, ok2 := inner.ClassDef2.Class(gID(buffer.Info[secondPos].Glyph))
	if !ok2 {
		buffer.unsafeToConcat(buffer.idx, secondPos+1)
		return false
	}
	class1, _ := inner.ClassDef1.Class(gID(glyph))
	vals := inner.Record(class1, class2)

	ap1 := c.applyGPOSValueRecord(inner.ValueFormat1, vals.ValueRecord1, buffer.curPos(0))
	ap2 := c.applyGPOSValueRecord(inner.ValueFormat2, vals.ValueRecord2, &buffer.Pos[secondPos])
	if ap1 || ap2 {
		buffer.unsafeToBreak(buffer.idx, secondPos+1)
	} else {
		buffer.unsafeToConcat(buffer.idx, secondPos+1)
	}
	if inner.ValueFormat2 != 0 {
		secondPos++
		buffer.unsafeToBreak(buffer.idx, secondPos+1)
	}
	buffer.idx = secondPos
	return true
}

// reverseCursiveMinorOffset re-roots an existing cursive chain so the
// whole previously attached tree hangs off the new parent.
func reverseCursiveMinorOffset(pos []GlyphPosition, i int, direction Direction, newParent int) {
	chain, kind := pos[i].attachChain, pos[i].attachType
	if chain == 0 || kind&attachTypeCursive == 0 {
		return
	}
	pos[i].attachChain = 0
	j := i + int(chain)
	if j == newParent || j < 0 || j >= len(pos) {
		return
	}
	reverseCursiveMinorOffset(pos, j, direction, newParent)

	if direction.isHorizontal() {
		pos[j].YOffset = -pos[i].YOffset
	} else {
		pos[j].XOffset = -pos[i].XOffset
	}
	pos[j].attachChain = -chain
	pos[j].attachType = kind
}

func (c *applyContext) applyGPOSCursive(data tables.CursivePos, covIndex int) bool {
	buffer := c.buffer
	if covIndex >= len(data.EntryExits) {
		return false
	}
	thisRecord := data.EntryExits[covIndex]
	if thisRecord.EntryAnchor == nil {
		return false
	}

	iter := &c.iterInput
	iter.reset(buffer.idx, 1)
	ok, unsafeFrom := iter.prev()
	if !ok {
		buffer.unsafeToConcatFromOutbuffer(unsafeFrom, buffer.idx+1)
		return false
	}
	prevIndex, ok := data.Cov().Index(gID(buffer.Info[iter.idx].Glyph))
	if !ok || prevIndex >= len(data.EntryExits) {
		buffer.unsafeToConcatFromOutbuffer(iter.idx, buffer.idx+1)
		return false
	}
	prevRecord := data.EntryExits[prevIndex]
	if prevRecord.ExitAnchor == nil {
		buffer.unsafeToConcatFromOutbuffer(iter.idx, buffer.idx+1)
		return false
	}

	i := iter.idx
	j := buffer.idx
	buffer.unsafeToBreak(i, j+1)
	exitX, exitY := c.getAnchor(prevRecord.ExitAnchor, buffer.Info[i].Glyph)
	entryX, entryY := c.getAnchor(thisRecord.EntryAnchor, buffer.Info[j].Glyph)

	pos := buffer.Pos
	var d Position
	// main-direction adjustment
	switch c.direction {
	case LeftToRight:
		pos[i].XAdvance = roundf(exitX) + pos[i].XOffset
		d = roundf(entryX) + pos[j].XOffset
		pos[j].XAdvance -= d
		pos[j].XOffset -= d
	case RightToLeft:
		d = roundf(exitX) + pos[i].XOffset
		pos[i].XAdvance -= d
		pos[i].XOffset -= d
		pos[j].XAdvance = roundf(entryX) + pos[j].XOffset
	case TopToBottom:
		pos[i].YAdvance = roundf(exitY) + pos[i].YOffset
		d = roundf(entryY) + pos[j].YOffset
		pos[j].YAdvance -= d
		pos[j].YOffset -= d
	case BottomToTop:
		d = roundf(exitY) + pos[i].YOffset
		pos[i].YAdvance -= d
		pos[i].YOffset -= d
		pos[j].YAdvance = roundf(entryY)
	}

	// Cross-direction adjustment: attach child to parent, the root
	// stays on the baseline. In RTL (the common cursive case) the
	// earlier glyph is the child.
	child := i
	parent := j
	xOffset := Position(entryX - exitX)
	yOffset := Position(entryY - exitY)
	if uint16(c.lookupProps)&otRightToLeft == 0 {
		child, parent = parent, child
		xOffset = -xOffset
		yOffset = -yOffset
	}

	// if the child was attached elsewhere, re-root its old chain onto
	// the new parent
	reverseCursiveMinorOffset(pos, child, c.direction, parent)

	pos[child].attachType = attachTypeCursive
	pos[child].attachChain = int16(parent - child)
	buffer.scratchFlags |= bsfHasGPOSAttachment
	if c.direction.isHorizontal() {
		pos[child].YOffset = yOffset
	} else {
		pos[child].XOffset = xOffset
	}

	// if the parent was attached to the child, separate them
	if pos[parent].attachChain == -pos[child].attachChain {
		pos[parent].attachChain = 0
		if c.direction.isHorizontal() {
			pos[parent].YOffset = 0
		} else {
			pos[parent].XOffset = 0
		}
	}

	buffer.idx++
	return true
}

// getAnchor resolves an anchor table to scaled coordinates.
func (c *applyContext) getAnchor(anchor tables.Anchor, glyph GID) (x, y float32) {
	font := c.font
	switch anchor := anchor.(type) {
	case tables.AnchorFormat1:
		return font.emFscaleX(anchor.XCoordinate), font.emFscaleY(anchor.YCoordinate)
	case tables.AnchorFormat2:
		xPpem, yPpem := font.ppem()
		var cx, cy Position
		ok := xPpem != 0 || yPpem != 0
		if ok {
			cx, cy, ok = font.getGlyphContourPointForOrigin(glyph, anchor.AnchorPoint, LeftToRight)
		}
		if ok && xPpem != 0 {
			x = float32(cx)
		} else {
			x = font.emFscaleX(anchor.XCoordinate)
		}
		if ok && yPpem != 0 {
			y = float32(cy)
		} else {
			y = font.emFscaleY(anchor.YCoordinate)
		}
		return x, y
	case tables.AnchorFormat3:
		xPpem, yPpem := font.ppem()
		x, y = font.emFscaleX(anchor.XCoordinate), font.emFscaleY(anchor.YCoordinate)
		if xPpem != 0 || len(font.varCoords()) != 0 {
			x += float32(font.getXDelta(c.varStore, anchor.XDevice))
		}
		if yPpem != 0 || len(font.varCoords()) != 0 {
			y += float32(font.getYDelta(c.varStore, anchor.YDevice))
		}
		return x, y
	}
	return 0, 0
}

// applyGPOSMarks positions the current mark against the anchor of
// glyphPos and records the attachment chain.
func (c *applyContext) applyGPOSMarks(marks tables.MarkArray, markIndex, glyphIndex int, anchors tables.AnchorMatrix, glyphPos int) bool {
	buffer := c.buffer
	if markIndex >= len(marks.MarkRecords) || markIndex >= len(marks.MarkAnchors) {
		return false
	}
	markClass := marks.MarkRecords[markIndex].MarkClass
	markAnchor := marks.MarkAnchors[markIndex]

	glyphAnchor := anchors.Anchor(glyphIndex, int(markClass))
	// absent anchors leave the position to later subtables
	if glyphAnchor == nil {
		return false
	}

	buffer.unsafeToBreak(glyphPos, buffer.idx+1)
	markX, markY := c.getAnchor(markAnchor, buffer.cur(0).Glyph)
	baseX, baseY := c.getAnchor(glyphAnchor, buffer.Info[glyphPos].Glyph)

	o := buffer.curPos(0)
	o.XOffset = roundf(baseX - markX)
	o.YOffset = roundf(baseY - markY)
	o.attachType = attachTypeMark
	o.attachChain = int16(glyphPos - buffer.idx)
	buffer.scratchFlags |= bsfHasGPOSAttachment

	buffer.idx++
	return true
}

func (c *applyContext) applyGPOSMarkToBase(data tables.MarkBasePos, markIndex int) bool {
	buffer := c.buffer

	// Search backwards for a base glyph. The walk is bounded by the
	// last-base cache so repeated applications stay linear.
	iter := &c.iterInput
	iter.matcher.lookupProps = uint32(otIgnoreMarks)

	if c.lastBaseUntil > buffer.idx {
		c.lastBaseUntil = 0
		c.lastBase = -1
	}
	for j := buffer.idx; j > c.lastBaseUntil; j-- {
		ma := iter.match(&buffer.Info[j-1])
		if ma == matched {
			// only attach to the first glyph of a multiple-substitution
			// sequence, but stop at marks inside it
			idx := j - 1
			accept := !buffer.Info[idx].multiplied() || buffer.Info[idx].ligComp() == 0 ||
				idx == 0 || buffer.Info[idx-1].isMark() ||
				buffer.Info[idx].ligID() != buffer.Info[idx-1].ligID() ||
				buffer.Info[idx].ligComp() != buffer.Info[idx-1].ligComp()+1
			_, covered := data.BaseCoverage.Index(gID(buffer.Info[idx].Glyph))
			if !accept && !covered {
				ma = skipped
			}
		}
		if ma == matched {
			c.lastBase = j - 1
			break
		}
	}
	c.lastBaseUntil = buffer.idx
	if c.lastBase == -1 {
		buffer.unsafeToConcatFromOutbuffer(0, buffer.idx+1)
		return false
	}

	idx := c.lastBase
	baseIndex, ok := data.BaseCoverage.Index(gID(buffer.Info[idx].Glyph))
	if !ok {
		buffer.unsafeToConcatFromOutbuffer(idx, buffer.idx+1)
		return false
	}
	return c.applyGPOSMarks(data.MarkArray, markIndex, baseIndex, data.BaseArray.Anchors(), idx)
}

func (c *applyContext) applyGPOSMarkToLigature(data tables.MarkLigPos, markIndex int) bool {
	buffer := c.buffer

	iter := &c.iterInput
	iter.matcher.lookupProps = uint32(otIgnoreMarks)
	if c.lastBaseUntil > buffer.idx {
		c.lastBaseUntil = 0
		c.lastBase = -1
	}
	for j := buffer.idx; j > c.lastBaseUntil; j-- {
		if iter.match(&buffer.Info[j-1]) == matched {
			c.lastBase = j - 1
			break
		}
	}
	c.lastBaseUntil = buffer.idx
	if c.lastBase == -1 {
		buffer.unsafeToConcatFromOutbuffer(0, buffer.idx+1)
		return false
	}

	idx := c.lastBase
	ligIndex, ok := data.LigatureCoverage.Index(gID(buffer.Info[idx].Glyph))
	if !ok || ligIndex >= len(data.LigatureArray.LigatureAttachs) {
		buffer.unsafeToConcatFromOutbuffer(idx, buffer.idx+1)
		return false
	}
	ligAttach := data.LigatureArray.LigatureAttachs[ligIndex].Anchors()

	compCount := ligAttach.Len()
	if compCount == 0 {
		return false
	}

	// If the mark belongs to this very ligature (matching ligature id,
	// component > 0), attach to that component, capped; otherwise to
	// the last component.
	ligID := buffer.Info[idx].ligID()
	markID := buffer.cur(0).ligID()
	markComp := buffer.cur(0).ligComp()
	compIndex := compCount - 1
	if ligID != 0 && ligID == markID && markComp > 0 {
		compIndex = minInt2(compCount, int(markComp)) - 1
	}
	return c.applyGPOSMarks(data.MarkArray, markIndex, compIndex, ligAttach, idx)
}

func (c *applyContext) applyGPOSMarkToMark(data tables.MarkMarkPos, mark1Index int) bool {
	buffer := c.buffer

	// search backwards for a suitable mark, stopping at non-marks
	iter := &c.iterInput
	iter.reset(buffer.idx, 1)
	iter.matcher.lookupProps = c.lookupProps &^ otIgnoreFlags
	if ok, _ := iter.prev(); !ok {
		return false
	}
	if !buffer.Info[iter.idx].isMark() {
		return false
	}
	j := iter.idx

	id1 := buffer.cur(0).ligID()
	id2 := buffer.Info[j].ligID()
	comp1 := buffer.cur(0).ligComp()
	comp2 := buffer.Info[j].ligComp()

	// marks must belong to the same base or the same ligature
	// component; a ligature-forming mark matches anything of its group
	good := false
	if id1 == id2 {
		good = id1 == 0 || comp1 == comp2
	} else {
		good = (id1 > 0 && comp1 == 0) || (id2 > 0 && comp2 == 0)
	}
	if !good {
		return false
	}

	mark2Index, ok := data.Mark2Coverage.Index(gID(buffer.Info[j].Glyph))
	if !ok {
		return false
	}
	return c.applyGPOSMarks(data.Mark1Array, mark1Index, mark2Index, data.Mark2Array.Anchors(), j)
}
