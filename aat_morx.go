package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// morx: chains of substitution subtables, each gated by the chain's
// resolved feature flags and the subtable coverage byte.

// Coverage bits of a morx subtable.
const (
	morxCoverageVertical      = 0x80
	morxCoverageBackwards     = 0x40
	morxCoverageAllDirections = 0x20
	morxCoverageLogical       = 0x10
)

// aatLayoutSubstitute drives all morx chains over the buffer.
func aatLayoutSubstitute(plan *shapePlan, fnt *Font, buffer *Buffer, features []Feature) {
	builder := newAatMapBuilder(fnt.face.Font)
	for _, feature := range features {
		builder.addFeature(feature)
	}
	var map_ aatMap
	builder.compile(&map_)

	c := newAatApplyContext(plan, fnt, buffer)
	buffer.unsafeToConcat(0, len(buffer.Info))
	for i, chain := range fnt.face.Morx {
		if i < len(map_.chainFlags) {
			c.rangeFlags = map_.chainFlags[i]
		} else {
			c.rangeFlags = nil
		}
		c.applyMorxChain(chain)
	}
}

func (c *aatApplyContext) applyMorxChain(chain font.MorxChain) {
	for i, subtable := range chain.Subtables {
		if !c.hasAnyFlags(subtable.Flags) {
			continue
		}
		c.subtableFlags = subtable.Flags

		if subtable.Coverage&morxCoverageAllDirections == 0 &&
			c.buffer.Props.Direction.isVertical() != (subtable.Coverage&morxCoverageVertical != 0) {
			continue
		}

		// The buffer is in logical order. The coverage byte decides
		// whether the subtable runs in logical or layout order, forward
		// or backward; reverse around the application when needed.
		var reverse bool
		if subtable.Coverage&morxCoverageLogical != 0 {
			reverse = subtable.Coverage&morxCoverageBackwards != 0
		} else {
			reverse = (subtable.Coverage&morxCoverageBackwards != 0) != c.buffer.Props.Direction.isBackward()
		}

		tracer().Debugf("morx: chain subtable %d (%T)", i, subtable.Data)
		if reverse {
			c.buffer.Reverse()
		}
		c.applyMorxSubtable(subtable)
		if reverse {
			c.buffer.Reverse()
		}
	}
}

func (c *aatApplyContext) applyMorxSubtable(subtable font.MorxSubtable) bool {
	switch data := subtable.Data.(type) {
	case font.MorxRearrangementSubtable:
		var dc morxRearrangementDriver
		newStateTableDriver(font.AATStateTable(data), c.buffer).drive(&dc, c)
	case font.MorxContextualSubtable:
		dc := morxContextualDriver{
			table:         data,
			gdef:          c.gdef,
			hasGlyphClass: c.gdef.GlyphClassDef != nil,
		}
		newStateTableDriver(data.Machine, c.buffer).drive(&dc, c)
		return dc.ret
	case font.MorxLigatureSubtable:
		dc := morxLigatureDriver{table: data}
		newStateTableDriver(data.Machine, c.buffer).drive(&dc, c)
	case font.MorxInsertionSubtable:
		dc := morxInsertionDriver{insertions: data.Insertions}
		newStateTableDriver(data.Machine, c.buffer).drive(&dc, c)
	case font.MorxNonContextualSubtable:
		return c.applyMorxNonContextual(data)
	}
	return false
}

// --- rearrangement -----------------------------------------------------

// Rearrangement entry flags.
const (
	mrMarkFirst = 0x8000
	mrMarkLast  = 0x2000
	mrVerb      = 0x000F
)

// rearrangement verbs, two nibbles: how many glyphs move from the
// start side and the end side; 3 means "move two and flip them".
var morxRearrangementMap = [16]int{
	0x00, // 0  no change
	0x10, // 1  Ax => xA
	0x01, // 2  xD => Dx
	0x11, // 3  AxD => DxA
	0x20, // 4  ABx => xAB
	0x30, // 5  ABx => xBA
	0x02, // 6  xCD => CDx
	0x03, // 7  xCD => DCx
	0x12, // 8  AxCD => CDxA
	0x13, // 9  AxCD => DCxA
	0x21, // 10 ABxD => DxAB
	0x31, // 11 ABxD => DxBA
	0x22, // 12 ABxCD => CDxAB
	0x32, // 13 ABxCD => CDxBA
	0x23, // 14 ABxCD => DCxAB
	0x33, // 15 ABxCD => DCxBA
}

type morxRearrangementDriver struct {
	start, end int
}

func (morxRearrangementDriver) inPlace() bool { return true }

func (d *morxRearrangementDriver) isActionable(_ *stateTableDriver, entry tables.AATStateEntry) bool {
	return entry.Flags&mrVerb != 0 && d.start < d.end
}

func (d *morxRearrangementDriver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer
	flags := entry.Flags

	if flags&mrMarkFirst != 0 {
		d.start = buffer.idx
	}
	if flags&mrMarkLast != 0 {
		d.end = minInt2(buffer.idx+1, len(buffer.Info))
	}
	if flags&mrVerb == 0 || d.start >= d.end {
		return
	}

	m := morxRearrangementMap[flags&mrVerb]
	l := minInt2(2, m>>4)
	r := minInt2(2, m&0x0F)
	reverseL := m>>4 == 3
	reverseR := m&0x0F == 3

	if d.end-d.start < l+r || d.end-d.start > maxContextLength {
		return
	}
	buffer.mergeClusters(d.start, minInt2(buffer.idx+1, len(buffer.Info)))
	buffer.mergeClusters(d.start, d.end)

	info := buffer.Info
	var tmp [4]GlyphInfo
	copy(tmp[:2], info[d.start:d.start+l])
	copy(tmp[2:], info[d.end-r:d.end])
	if l != r {
		copy(info[d.start+r:], info[d.start+l:d.end-r])
	}
	copy(info[d.start:d.start+r], tmp[2:])
	copy(info[d.end-l:d.end], tmp[:])
	if reverseL {
		tmp[0] = info[d.end-1]
		info[d.end-1] = info[d.end-2]
		info[d.end-2] = tmp[0]
	}
	if reverseR {
		tmp[0] = info[d.start]
		info[d.start] = info[d.start+1]
		info[d.start+1] = tmp[0]
	}
}

// --- contextual --------------------------------------------------------

// Contextual entry flags.
const mcSetMark = 0x8000

type morxContextualDriver struct {
	gdef          *tables.GDEF
	table         font.MorxContextualSubtable
	mark          int
	markSet       bool
	ret           bool
	hasGlyphClass bool
}

func (morxContextualDriver) inPlace() bool { return true }

func (d *morxContextualDriver) isActionable(driver *stateTableDriver, entry tables.AATStateEntry) bool {
	buffer := driver.buffer
	if buffer.idx == len(buffer.Info) && !d.markSet {
		return false
	}
	markIndex, currentIndex := entry.AsMorxContextual()
	return markIndex != 0xFFFF || currentIndex != 0xFFFF
}

func (d *morxContextualDriver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer

	// without an explicit mark, no substitution fires at end-of-text
	if buffer.idx == len(buffer.Info) && !d.markSet {
		return
	}

	var (
		replacement             uint16
		hasRep                  bool
		markIndex, currentIndex = entry.AsMorxContextual()
	)
	if markIndex != 0xFFFF && int(markIndex) < len(d.table.Substitutions) {
		lookup := d.table.Substitutions[markIndex]
		replacement, hasRep = lookup.Class(gID(buffer.Info[d.mark].Glyph))
	}
	if hasRep {
		buffer.unsafeToBreak(d.mark, minInt2(buffer.idx+1, len(buffer.Info)))
		buffer.Info[d.mark].Glyph = GID(replacement)
		if d.hasGlyphClass {
			buffer.Info[d.mark].glyphProps = d.gdef.GlyphProps(gID(replacement))
		}
		d.ret = true
	}

	hasRep = false
	idx := minInt2(buffer.idx, len(buffer.Info)-1)
	if currentIndex != 0xFFFF && int(currentIndex) < len(d.table.Substitutions) {
		lookup := d.table.Substitutions[currentIndex]
		replacement, hasRep = lookup.Class(gID(buffer.Info[idx].Glyph))
	}
	if hasRep {
		buffer.Info[idx].Glyph = GID(replacement)
		if d.hasGlyphClass {
			buffer.Info[idx].glyphProps = d.gdef.GlyphProps(gID(replacement))
		}
		d.ret = true
	}

	if entry.Flags&mcSetMark != 0 {
		d.markSet = true
		d.mark = buffer.idx
	}
}

// --- ligature ----------------------------------------------------------

type morxLigatureDriver struct {
	table          font.MorxLigatureSubtable
	matchLength    int
	matchPositions [maxContextLength]int
}

func (morxLigatureDriver) inPlace() bool { return false }

func (morxLigatureDriver) isActionable(_ *stateTableDriver, entry tables.AATStateEntry) bool {
	return entry.Flags&tables.MLOffset != 0
}

func (d *morxLigatureDriver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer

	if entry.Flags&tables.MLSetComponent != 0 {
		// never push the same output position twice; DontAdvance loops
		// would otherwise grow the stack
		if d.matchLength != 0 &&
			d.matchPositions[(d.matchLength-1)%len(d.matchPositions)] == len(buffer.outInfo) {
			d.matchLength--
		}
		d.matchPositions[d.matchLength%len(d.matchPositions)] = len(buffer.outInfo)
		d.matchLength++
	}

	if !d.isActionable(driver, entry) {
		return
	}
	end := len(buffer.outInfo)
	if d.matchLength == 0 || buffer.idx >= len(buffer.Info) {
		return
	}
	cursor := d.matchLength

	actionIdx := entry.AsMorxLigature()
	if int(actionIdx) >= len(d.table.LigatureAction) {
		return
	}
	actionData := d.table.LigatureAction[actionIdx:]

	ligatureIdx := 0
	var action uint32
	for do := true; do; do = action&tables.MLActionLast == 0 {
		if cursor == 0 {
			// stack underflow: drop the match entirely
			tracer().Debugf("morx ligature: component stack underflow")
			d.matchLength = 0
			break
		}
		cursor--
		buffer.moveTo(d.matchPositions[cursor%len(d.matchPositions)])

		if len(actionData) == 0 {
			break
		}
		action = actionData[0]

		uoffset := action & tables.MLActionOffset
		if uoffset&0x20000000 != 0 {
			uoffset |= 0xC0000000 // sign-extend
		}
		offset := int32(uoffset)
		componentIdx := int32(buffer.cur(0).Glyph) + offset
		if int(componentIdx) >= len(d.table.Components) || componentIdx < 0 {
			break
		}
		ligatureIdx += int(d.table.Components[componentIdx])

		if action&(tables.MLActionStore|tables.MLActionLast) != 0 {
			if ligatureIdx >= len(d.table.Ligatures) {
				break
			}
			lig := d.table.Ligatures[ligatureIdx]
			buffer.replaceGlyphIndex(lig)

			ligEnd := d.matchPositions[(d.matchLength-1)%len(d.matchPositions)] + 1
			// delete all subsequent components
			for d.matchLength-1 > cursor {
				d.matchLength--
				buffer.moveTo(d.matchPositions[d.matchLength%len(d.matchPositions)])
				buffer.replaceGlyphIndex(glyphDeleted)
			}
			buffer.moveTo(ligEnd)
			buffer.mergeOutClusters(d.matchPositions[cursor%len(d.matchPositions)], len(buffer.outInfo))
		}
		actionData = actionData[1:]
	}
	buffer.moveTo(end)
}

// --- noncontextual -----------------------------------------------------

func (c *aatApplyContext) applyMorxNonContextual(data font.MorxNonContextualSubtable) bool {
	var ret bool
	gdef := c.gdef
	hasGlyphClass := gdef.GlyphClassDef != nil
	info := c.buffer.Info
	lastRange := -1
	if len(c.rangeFlags) > 1 {
		lastRange = 0
	}
	for i := range info {
		if lastRange != -1 {
			rangeIdx := lastRange
			cluster := info[i].Cluster
			for cluster < c.rangeFlags[rangeIdx].clusterFirst {
				rangeIdx--
			}
			for cluster > c.rangeFlags[rangeIdx].clusterLast {
				rangeIdx++
			}
			lastRange = rangeIdx
			if c.rangeFlags[rangeIdx].flags&c.subtableFlags == 0 {
				continue
			}
		}
		replacement, has := data.Class.Class(gID(info[i].Glyph))
		if has {
			info[i].Glyph = GID(replacement)
			if hasGlyphClass {
				info[i].glyphProps = gdef.GlyphProps(gID(replacement))
			}
			ret = true
		}
	}
	return ret
}

// --- insertion ---------------------------------------------------------

// Insertion entry flags. The kashida-like bits are accepted and
// ignored; insertions always behave split-vowel-like.
const (
	miSetMark             = 0x8000
	miDontAdvance         = 0x4000
	miCurrentIsKashida    = 0x2000
	miMarkedIsKashida     = 0x1000
	miCurrentInsertBefore = 0x0800
	miMarkedInsertBefore  = 0x0400
	miCurrentInsertCount  = 0x03E0
	miMarkedInsertCount   = 0x001F
)

type morxInsertionDriver struct {
	insertions []GID
	mark       int
}

func (morxInsertionDriver) inPlace() bool { return false }

func (morxInsertionDriver) isActionable(_ *stateTableDriver, entry tables.AATStateEntry) bool {
	current, marked := entry.AsMorxInsertion()
	return entry.Flags&(miCurrentInsertCount|miMarkedInsertCount) != 0 &&
		(current != 0xFFFF || marked != 0xFFFF)
}

func (d *morxInsertionDriver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer
	flags := entry.Flags

	markLoc := len(buffer.outInfo)
	currentInsertIndex, markedInsertIndex := entry.AsMorxInsertion()

	if markedInsertIndex != 0xFFFF {
		count := int(flags & miMarkedInsertCount)
		buffer.maxOps -= count
		if buffer.maxOps <= 0 {
			return
		}
		if int(markedInsertIndex)+count > len(d.insertions) {
			return
		}
		glyphs := d.insertions[markedInsertIndex : int(markedInsertIndex)+count]
		before := flags&miMarkedInsertBefore != 0

		end := len(buffer.outInfo)
		buffer.moveTo(d.mark)

		if buffer.idx < len(buffer.Info) && !before {
			buffer.copyGlyph()
		}
		buffer.replaceGlyphs(0, nil, glyphs)
		if buffer.idx < len(buffer.Info) && !before {
			buffer.skipGlyph()
		}
		buffer.moveTo(end + count)
		buffer.unsafeToBreakFromOutbuffer(d.mark, minInt2(buffer.idx+1, len(buffer.Info)))
	}

	if flags&miSetMark != 0 {
		d.mark = markLoc
	}

	if currentInsertIndex != 0xFFFF {
		count := int(flags&miCurrentInsertCount) >> 5
		buffer.maxOps -= count
		if buffer.maxOps <= 0 {
			return
		}
		if int(currentInsertIndex)+count > len(d.insertions) {
			return
		}
		glyphs := d.insertions[currentInsertIndex : int(currentInsertIndex)+count]
		before := flags&miCurrentInsertBefore != 0

		end := len(buffer.outInfo)
		if buffer.idx < len(buffer.Info) && !before {
			buffer.copyGlyph()
		}
		buffer.replaceGlyphs(0, nil, glyphs)
		if buffer.idx < len(buffer.Info) && !before {
			buffer.skipGlyph()
		}
		// Without DontAdvance the new glyphs are behind us; with it,
		// they are processed next.
		moveTo := end
		if flags&miDontAdvance == 0 {
			moveTo = end + count
		}
		buffer.moveTo(moveTo)
	}
}

// --- deleted-glyph cleanup ---------------------------------------------

func aatLayoutZeroWidthDeletedGlyphs(buffer *Buffer) {
	pos := buffer.Pos
	for i := range buffer.Info {
		if buffer.Info[i].Glyph == glyphDeleted {
			pos[i] = GlyphPosition{}
		}
	}
}

func aatLayoutRemoveDeletedGlyphs(buffer *Buffer) {
	buffer.deleteGlyphsInplace(func(info *GlyphInfo) bool { return info.Glyph == glyphDeleted })
}
