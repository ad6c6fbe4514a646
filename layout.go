package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
)

// Lookup flags, per the OpenType LookupFlag word. The low byte of the
// ignore bits intentionally matches the GDEF glyph class bits so a
// single AND decides skipping.
const (
	otRightToLeft         uint16 = 0x0001
	otIgnoreBaseGlyphs    uint16 = 0x0002
	otIgnoreLigatures     uint16 = 0x0004
	otIgnoreMarks         uint16 = 0x0008
	otUseMarkFilteringSet uint16 = 0x0010
	otMarkAttachmentType  uint16 = 0xFF00
)

const otIgnoreFlags = uint32(otIgnoreBaseGlyphs | otIgnoreLigatures | otIgnoreMarks)

// Extra glyph property bits layered over the GDEF class bits.
const (
	glyphPropSubstituted uint16 = 0x10
	glyphPropLigated     uint16 = 0x20
	glyphPropMultiplied  uint16 = 0x40

	glyphPropPreserve = glyphPropSubstituted | glyphPropLigated | glyphPropMultiplied
)

// layoutLookup is one GSUB or GPOS lookup as the engine drives it.
type layoutLookup interface {
	// props returns the lookup flag word (with mark-filtering-set index
	// in the high half).
	props() uint32
	// collectCoverage unions all subtable primary coverages.
	collectCoverage(*setDigest)
	// subtables returns the per-subtable appliers, in font order.
	subtables() []subtableApp
	// dispatchApply tries the subtables at the current position,
	// stopping at the first success.
	dispatchApply(c *applyContext) bool
	// isReverse reports a backward-scanning lookup (GSUB type 8).
	isReverse() bool
}

// subtableApp is one layout subtable with its own coverage digest.
type subtableApp struct {
	apply  func(c *applyContext) bool
	digest setDigest
}

func (st subtableApp) tryApply(c *applyContext) bool {
	return st.digest.mayHave(gID(c.buffer.cur(0).Glyph)) && st.apply(c)
}

// lookupAccel caches one lookup's subtable list and union digest on the
// font, so buffers can be fast-rejected per lookup and per subtable.
type lookupAccel struct {
	lookup    layoutLookup
	subtables []subtableApp
	digest    setDigest
}

func (ac *lookupAccel) init(lookup layoutLookup) {
	ac.lookup = lookup
	ac.digest = setDigest{}
	lookup.collectCoverage(&ac.digest)
	ac.subtables = lookup.subtables()
}

// apply runs the subtables in font order, stopping at the first match.
func (ac *lookupAccel) apply(c *applyContext) bool {
	for _, st := range ac.subtables {
		if st.tryApply(c) {
			return true
		}
	}
	return false
}

// --- matchers ----------------------------------------------------------

// matcherFunc decides whether a glyph satisfies one match datum, whose
// interpretation (glyph id, class, coverage index) is fixed per call
// site.
type matcherFunc = func(g gID, value uint16) bool

func matchGlyph(g gID, value uint16) bool { return g == gID(value) }

func matchClass(class tables.ClassDef) matcherFunc {
	return func(g gID, value uint16) bool {
		c, _ := class.Class(g)
		return uint16(c) == value
	}
}

func matchCoverage(covs []tables.Coverage) matcherFunc {
	return func(g gID, value uint16) bool {
		_, covered := covs[value].Index(g)
		return covered
	}
}

const (
	decisionNo uint8 = iota
	decisionYes
	decisionMaybe
)

type glyphMatcher struct {
	matchFunc   matcherFunc
	lookupProps uint32
	mask        GlyphMask
	ignoreZWNJ  bool
	ignoreZWJ   bool
	perSyllable bool
	syllable    uint8
}

func (m *glyphMatcher) setSyllable(syllable uint8) {
	if m.perSyllable {
		m.syllable = syllable
	} else {
		m.syllable = 0
	}
}

func (m glyphMatcher) mayMatch(info *GlyphInfo, glyphData []uint16) uint8 {
	if info.Mask&m.mask == 0 || (m.syllable != 0 && m.syllable != info.syllable) {
		return decisionNo
	}
	if m.matchFunc != nil {
		if m.matchFunc(gID(info.Glyph), glyphData[0]) {
			return decisionYes
		}
		return decisionNo
	}
	return decisionMaybe
}

func (m glyphMatcher) maySkip(c *applyContext, info *GlyphInfo) uint8 {
	if !c.checkGlyphProperty(info, m.lookupProps) {
		return decisionYes
	}
	if info.isDefaultIgnorableAndNotHidden() &&
		(m.ignoreZWNJ || !info.isZwnj()) && (m.ignoreZWJ || !info.isZwj()) {
		return decisionMaybe
	}
	return decisionNo
}

// skipIterator walks the buffer while skipping glyphs the active lookup
// flags make invisible. On a failed walk, the second return value is
// the position up to which the scan is unsafe.
type skipIterator struct {
	c       *applyContext
	matcher glyphMatcher

	matchGlyphData []uint16
	matchDataStart int

	idx      int
	numItems int
	end      int
}

func (it *skipIterator) init(c *applyContext, contextMatch bool) {
	it.c = c
	it.setMatchFunc(nil, nil)
	it.matcher.matchFunc = nil
	it.matcher.lookupProps = c.lookupProps
	// GPOS matching, and GSUB context matching with auto-ZWNJ, skip ZWNJ
	it.matcher.ignoreZWNJ = c.table == tableGPOS || (contextMatch && c.autoZWNJ)
	// context matching always skips ZWJ
	it.matcher.ignoreZWJ = contextMatch || c.autoZWJ
	if contextMatch {
		it.matcher.mask = ^GlyphMask(0)
	} else {
		it.matcher.mask = c.lookupMask
	}
	it.matcher.perSyllable = c.table == tableGSUB && c.perSyllable
	it.matcher.setSyllable(0)
}

func (it *skipIterator) setMatchFunc(matchFunc matcherFunc, glyphData []uint16) {
	it.matcher.matchFunc = matchFunc
	it.matchGlyphData = glyphData
	it.matchDataStart = 0
}

func (it *skipIterator) reset(startIndex, numItems int) {
	it.idx = startIndex
	it.numItems = numItems
	it.end = len(it.c.buffer.Info)
	if startIndex == it.c.buffer.idx {
		it.matcher.setSyllable(it.c.buffer.cur(0).syllable)
	} else {
		it.matcher.setSyllable(0)
	}
}

func (it *skipIterator) maySkip(info *GlyphInfo) uint8 { return it.matcher.maySkip(it.c, info) }

type matchResult uint8

const (
	matched matchResult = iota
	notMatched
	skipped
)

func (it *skipIterator) match(info *GlyphInfo) matchResult {
	skip := it.matcher.maySkip(it.c, info)
	if skip == decisionYes {
		return skipped
	}
	match := it.matcher.mayMatch(info, it.matchGlyphData[it.matchDataStart:])
	if match == decisionYes || (match == decisionMaybe && skip == decisionNo) {
		return matched
	}
	if skip == decisionNo {
		return notMatched
	}
	return skipped
}

func (it *skipIterator) next() (ok bool, unsafeTo int) {
	// stopping one early is faster at boundaries but yields coarser
	// unsafe-to-concat spans, so only do it when concat flags are off
	stop := it.end - it.numItems
	if it.c.buffer.Flags&ProduceUnsafeToConcat != 0 {
		stop = it.end - 1
	}
	for it.idx < stop {
		it.idx++
		info := &it.c.buffer.Info[it.idx]
		switch it.match(info) {
		case matched:
			it.numItems--
			if len(it.matchGlyphData) != 0 {
				it.matchDataStart++
			}
			return true, 0
		case notMatched:
			return false, it.idx + 1
		case skipped:
			continue
		}
	}
	return false, it.end
}

func (it *skipIterator) prev() (ok bool, unsafeFrom int) {
	stop := it.numItems - 1
	if it.c.buffer.Flags&ProduceUnsafeToConcat != 0 {
		stop = 0
	}
	outLen := len(it.c.buffer.outInfo)
	for it.idx > stop {
		it.idx--
		var info *GlyphInfo
		if it.idx < outLen {
			info = &it.c.buffer.outInfo[it.idx]
		} else {
			// position mode: the output array is no longer in play
			info = &it.c.buffer.Info[it.idx]
		}
		switch it.match(info) {
		case matched:
			it.numItems--
			if len(it.matchGlyphData) != 0 {
				it.matchDataStart++
			}
			return true, 0
		case notMatched:
			return false, maxInt2(1, it.idx) - 1
		case skipped:
			continue
		}
	}
	return false, 0
}

// --- apply context -----------------------------------------------------

type layoutTableIndex uint8

const (
	tableGSUB layoutTableIndex = iota
	tableGPOS
)

type recurseFunc = func(c *applyContext, lookupIndex uint16) bool

// applyContext is the per-table application state threaded through
// every lookup and subtable.
type applyContext struct {
	font   *Font
	buffer *Buffer

	recurseFunc recurseFunc
	gdef        *tables.GDEF
	varStore    tables.ItemVarStore
	indices     []uint16 // scratch for coverage-index sequences

	digest setDigest

	iterContext skipIterator
	iterInput   skipIterator

	nestingLevelLeft int
	table            layoutTableIndex
	lookupMask       GlyphMask
	lookupProps      uint32
	lookupIndex      uint16
	direction        Direction

	hasGlyphClasses bool
	autoZWNJ        bool
	autoZWJ         bool
	perSyllable     bool
	newSyllables    uint8 // 0xFF means "keep"
	random          bool

	lastBase      int // mark-to-base attachment cache
	lastBaseUntil int
}

func (c *applyContext) reset(table layoutTableIndex, font *Font, buffer *Buffer) {
	c.font = font
	c.buffer = buffer
	c.recurseFunc = nil
	c.gdef = font.gdef()
	c.varStore = c.gdef.ItemVarStore
	c.indices = c.indices[:0]
	c.digest = buffer.digest()
	c.nestingLevelLeft = maxNestingLevel
	c.table = table
	c.lookupMask = 1
	c.lookupProps = 0
	c.lookupIndex = 0
	c.direction = buffer.Props.Direction
	c.hasGlyphClasses = c.gdef.GlyphClassDef != nil
	c.autoZWNJ = true
	c.autoZWJ = true
	c.perSyllable = false
	c.newSyllables = 0xFF
	c.random = false
	c.lastBase = -1
	c.lastBaseUntil = 0
	c.initIters()
}

func (c *applyContext) initIters() {
	c.iterInput.init(c, false)
	c.iterContext.init(c, true)
}

func (c *applyContext) setLookupMask(mask GlyphMask) {
	c.lookupMask = mask
	c.initIters()
}

func (c *applyContext) setLookupProps(lookupProps uint32) {
	c.lookupProps = lookupProps
	c.initIters()
}

// checkGlyphProperty applies the lookup-flag skipping rules to one
// glyph.
func (c *applyContext) checkGlyphProperty(info *GlyphInfo, matchProps uint32) bool {
	glyphProps := info.glyphProps
	// not visible if, e.g., the glyph class is ligature and matchProps
	// includes IgnoreLigatures
	if uint32(glyphProps)&matchProps&otIgnoreFlags != 0 {
		return false
	}
	if glyphProps&tables.GPMark != 0 {
		return c.matchPropertiesMark(info.Glyph, glyphProps, matchProps)
	}
	return true
}

func (c *applyContext) matchPropertiesMark(glyph GID, glyphProps uint16, matchProps uint32) bool {
	// with mark filtering sets, the high half of matchProps carries the
	// set index
	if uint16(matchProps)&otUseMarkFilteringSet != 0 {
		sets := c.gdef.MarkGlyphSetsDef
		setIndex := matchProps >> 16
		if sets == nil || int(setIndex) >= len(sets.Coverages) {
			return false
		}
		_, has := sets.Coverages[setIndex].Index(gID(glyph))
		return has
	}
	// the second byte means "ignore marks of a different attachment
	// type than specified"
	if uint16(matchProps)&otMarkAttachmentType != 0 {
		return uint16(matchProps)&otMarkAttachmentType == glyphProps&otMarkAttachmentType
	}
	return true
}

func (c *applyContext) setGlyphClass(glyph GID) {
	c.setGlyphClassExt(glyph, 0, false, false)
}

func (c *applyContext) setGlyphClassExt(glyph GID, classGuess uint16, ligature, component bool) {
	c.digest.add(gID(glyph))

	if c.newSyllables != 0xFF {
		c.buffer.cur(0).syllable = c.newSyllables
	}
	props := c.buffer.cur(0).glyphProps | glyphPropSubstituted
	if ligature {
		props |= glyphPropLigated
		// only the last of ligation vs. multiplication is remembered
		props &^= glyphPropMultiplied
	}
	if component {
		props |= glyphPropMultiplied
	}
	switch {
	case c.hasGlyphClasses:
		props &= glyphPropPreserve
		c.buffer.cur(0).glyphProps = props | c.gdef.GlyphProps(gID(glyph))
	case classGuess != 0:
		props &= glyphPropPreserve
		c.buffer.cur(0).glyphProps = props | classGuess
	default:
		c.buffer.cur(0).glyphProps = props
	}
}

func (c *applyContext) replaceGlyph(glyph GID) {
	c.setGlyphClass(glyph)
	c.buffer.replaceGlyphIndex(glyph)
}

func (c *applyContext) recurse(subLookupIndex uint16) bool {
	if c.nestingLevelLeft == 0 || c.recurseFunc == nil || c.buffer.maxOps <= 0 {
		c.buffer.maxOps--
		return false
	}
	c.buffer.maxOps--
	c.nestingLevelLeft--
	ret := c.recurseFunc(c, subLookupIndex)
	c.nestingLevelLeft++
	return ret
}

func (c *applyContext) applyRecurseLookup(lookupIndex uint16, l layoutLookup) bool {
	savedProps := c.lookupProps
	savedIndex := c.lookupIndex
	c.lookupIndex = lookupIndex
	c.setLookupProps(l.props())
	ret := l.dispatchApply(c)
	c.lookupIndex = savedIndex
	c.setLookupProps(savedProps)
	return ret
}

// --- string application driver -----------------------------------------

func (c *applyContext) applyString(inplace bool, accel *lookupAccel) {
	buffer := c.buffer
	if len(buffer.Info) == 0 || c.lookupMask == 0 {
		return
	}
	if !accel.lookup.isReverse() {
		if !inplace {
			buffer.clearOutput()
		}
		buffer.idx = 0
		c.applyForward(accel)
		if !inplace {
			buffer.sync()
		}
		return
	}
	// reverse lookups scan right to left, strictly in place, and do not
	// nest
	assert(!buffer.haveOutput, "reverse lookup found buffer in output mode")
	buffer.idx = len(buffer.Info) - 1
	c.applyBackward(accel)
}

func (c *applyContext) applyForward(accel *lookupAccel) bool {
	ret := false
	buffer := c.buffer
	for buffer.idx < len(buffer.Info) && buffer.successful {
		applied := false
		cur := buffer.cur(0)
		if accel.digest.mayHave(gID(cur.Glyph)) &&
			cur.Mask&c.lookupMask != 0 &&
			c.checkGlyphProperty(cur, c.lookupProps) {
			applied = accel.apply(c)
		}
		if applied {
			ret = true
		} else {
			buffer.nextGlyph()
		}
	}
	return ret
}

func (c *applyContext) applyBackward(accel *lookupAccel) bool {
	ret := false
	buffer := c.buffer
	for {
		cur := buffer.cur(0)
		if accel.digest.mayHave(gID(cur.Glyph)) &&
			cur.Mask&c.lookupMask != 0 &&
			c.checkGlyphProperty(cur, c.lookupProps) {
			ret = accel.apply(c) || ret
		}
		// the reverse substitution never changes glyph count
		if buffer.idx == 0 {
			break
		}
		buffer.idx--
	}
	return ret
}

// --- contextual matching -----------------------------------------------

// matchInput matches input (which starts at the glyph after the
// current one) and records the matched positions.
func (c *applyContext) matchInput(input []uint16, matchFunc matcherFunc,
	matchPositions *[maxContextLength]int,
) (ok bool, endPosition int, totalComponentCount uint8) {
	count := len(input) + 1
	if count > maxContextLength {
		return false, 0, 0
	}
	buffer := c.buffer
	iter := &c.iterInput
	iter.reset(buffer.idx, count-1)
	iter.setMatchFunc(matchFunc, input)

	// Ligature-component bookkeeping: components of a match must either
	// all hang off the same component of an earlier ligature, or not be
	// attached to one at all. Two escapes: marks that belong to the
	// matched ligature itself, and marks whose base ligature is skipped
	// by mark-filtering rules.
	firstLigID := buffer.cur(0).ligID()
	firstLigComp := buffer.cur(0).ligComp()

	const (
		ligbaseNotChecked = iota
		ligbaseMayNotSkip
		ligbaseMaySkip
	)
	ligbase := ligbaseNotChecked
	for i := 1; i < count; i++ {
		ok, unsafeTo := iter.next()
		if !ok {
			return false, unsafeTo, 0
		}
		matchPositions[i] = iter.idx

		thisLigID := buffer.Info[iter.idx].ligID()
		thisLigComp := buffer.Info[iter.idx].ligComp()
		if firstLigID != 0 && firstLigComp != 0 {
			if firstLigID != thisLigID || firstLigComp != thisLigComp {
				if ligbase == ligbaseNotChecked {
					found := false
					out := buffer.outInfo
					j := len(out)
					for j != 0 && out[j-1].ligID() == firstLigID {
						if out[j-1].ligComp() == 0 {
							j--
							found = true
							break
						}
						j--
					}
					if found && j < len(out) && iter.maySkip(&out[j]) == decisionYes {
						ligbase = ligbaseMaySkip
					} else {
						ligbase = ligbaseMayNotSkip
					}
				}
				if ligbase == ligbaseMayNotSkip {
					return false, 0, 0
				}
			}
		} else if thisLigID != 0 && thisLigComp != 0 && thisLigID != firstLigID {
			return false, 0, 0
		}
		totalComponentCount += buffer.Info[iter.idx].ligNumComps()
	}
	endPosition = iter.idx + 1
	totalComponentCount += buffer.cur(0).ligNumComps()
	matchPositions[0] = buffer.idx
	return true, endPosition, totalComponentCount
}

func (c *applyContext) matchBacktrack(backtrack []uint16, matchFunc matcherFunc) (ok bool, matchStart int) {
	iter := &c.iterContext
	iter.reset(c.buffer.backtrackLen(), len(backtrack))
	iter.setMatchFunc(matchFunc, backtrack)
	for range backtrack {
		ok, unsafeFrom := iter.prev()
		if !ok {
			return false, unsafeFrom
		}
	}
	return true, iter.idx
}

func (c *applyContext) matchLookahead(lookahead []uint16, matchFunc matcherFunc, startIndex int) (ok bool, endIndex int) {
	iter := &c.iterContext
	iter.reset(startIndex-1, len(lookahead))
	iter.setMatchFunc(matchFunc, lookahead)
	for range lookahead {
		ok, unsafeTo := iter.next()
		if !ok {
			return false, unsafeTo
		}
	}
	return true, iter.idx + 1
}

// ligateInput forms a ligature over the matched positions: clusters
// merge, skipped marks between components get re-attached to the new
// ligature with adjusted component indices.
func (c *applyContext) ligateInput(count int, matchPositions [maxContextLength]int,
	matchEnd int, ligGlyph gID, totalComponentCount uint8,
) {
	buffer := c.buffer
	buffer.mergeClusters(buffer.idx, matchEnd)

	// A base ligated with marks only stays a base so following marks
	// can still attach. A ligature made only of marks keeps its old
	// ligature id so it can attach to a base ligature in GPOS.
	isBaseLigature := buffer.Info[matchPositions[0]].isBaseGlyph()
	isMarkLigature := buffer.Info[matchPositions[0]].isMark()
	for i := 1; i < count; i++ {
		if !buffer.Info[matchPositions[i]].isMark() {
			isBaseLigature = false
			isMarkLigature = false
			break
		}
	}
	isLigature := !isBaseLigature && !isMarkLigature

	klass, ligID := uint16(0), uint8(0)
	if isLigature {
		klass = tables.GPLigature
		ligID = buffer.allocateLigID()
	}
	lastLigID := buffer.cur(0).ligID()
	lastNumComponents := buffer.cur(0).ligNumComps()
	componentsSoFar := lastNumComponents

	if isLigature {
		buffer.cur(0).setLigPropsForLigature(ligID, totalComponentCount)
		if buffer.cur(0).generalCategory() == nonSpacingMark {
			buffer.cur(0).setGeneralCategory(otherLetter)
		}
	}

	c.setGlyphClassExt(GID(ligGlyph), klass, true, false)
	buffer.replaceGlyphIndex(GID(ligGlyph))

	for i := 1; i < count; i++ {
		for buffer.idx < matchPositions[i] && buffer.successful {
			if isLigature {
				thisComp := buffer.cur(0).ligComp()
				if thisComp == 0 {
					thisComp = lastNumComponents
				}
				newLigComp := componentsSoFar - lastNumComponents + min8(thisComp, lastNumComponents)
				buffer.cur(0).setLigPropsForMark(ligID, newLigComp)
			}
			buffer.nextGlyph()
		}
		lastLigID = buffer.cur(0).ligID()
		lastNumComponents = buffer.cur(0).ligNumComps()
		componentsSoFar += lastNumComponents
		// the consumed component disappears
		buffer.skipGlyph()
	}

	if !isMarkLigature && lastLigID != 0 {
		// re-adjust components of any marks following the match
		for i := buffer.idx; i < len(buffer.Info); i++ {
			if lastLigID != buffer.Info[i].ligID() {
				break
			}
			thisComp := buffer.Info[i].ligComp()
			if thisComp == 0 {
				break
			}
			newLigComp := componentsSoFar - lastNumComponents + min8(thisComp, lastNumComponents)
			buffer.Info[i].setLigPropsForMark(ligID, newLigComp)
		}
	}
}

// applyLookup executes the nested-lookup actions of a context match,
// repairing match positions as nested lookups insert or delete glyphs.
func (c *applyContext) applyLookup(count int, matchPositions *[maxContextLength]int,
	lookupRecord []tables.SequenceLookupRecord, matchLength int,
) {
	buffer := c.buffer
	var end int

	// convert match positions to output-buffer indexing
	{
		bl := buffer.backtrackLen()
		end = bl + matchLength - buffer.idx
		delta := bl - buffer.idx
		for j := 0; j < count; j++ {
			matchPositions[j] += delta
		}
	}

	for _, lk := range lookupRecord {
		idx := int(lk.SequenceIndex)
		if idx >= count {
			continue
		}
		origLen := buffer.backtrackLen() + buffer.lookaheadLen()
		// earlier recursions may have deleted this position entirely
		if matchPositions[idx] >= origLen {
			continue
		}
		if !buffer.moveTo(matchPositions[idx]) {
			break
		}
		if buffer.maxOps <= 0 {
			break
		}
		tracer().Debugf("OT context: nested lookup %d at %d", lk.LookupListIndex, matchPositions[idx])
		if !c.recurse(lk.LookupListIndex) {
			continue
		}
		newLen := buffer.backtrackLen() + buffer.lookaheadLen()
		delta := newLen - origLen
		if delta == 0 {
			continue
		}

		// The recursed lookup changed the buffer length. Growth is
		// assumed to be right after the current position; shrinkage is
		// assumed to have removed following match positions.
		end += delta
		if end < matchPositions[idx] {
			// never rewind past the current position
			delta += matchPositions[idx] - end
			end = matchPositions[idx]
		}
		next := idx + 1
		if delta > 0 {
			if delta+count > maxContextLength {
				break
			}
		} else {
			delta = maxInt2(delta, next-count)
			next -= delta
		}
		// shift
		copy(matchPositions[next+delta:], matchPositions[next:count])
		next += delta
		count += delta
		// fill in new entries
		for j := idx + 1; j < next; j++ {
			matchPositions[j] = matchPositions[j-1] + 1
		}
		// and fix up the rest
		for ; next < count; next++ {
			matchPositions[next] += delta
		}
	}
	buffer.moveTo(end)
}

// contextApplyLookup matches input at the current position and runs the
// action list on success.
func (c *applyContext) contextApplyLookup(input []uint16,
	lookupRecord []tables.SequenceLookupRecord, lookupContext matcherFunc,
) bool {
	var matchPositions [maxContextLength]int
	hasMatch, matchEnd, _ := c.matchInput(input, lookupContext, &matchPositions)
	if !hasMatch {
		c.buffer.unsafeToConcat(c.buffer.idx, matchEnd)
		return false
	}
	c.buffer.unsafeToBreak(c.buffer.idx, matchEnd)
	c.applyLookup(len(input)+1, &matchPositions, lookupRecord, matchEnd)
	return true
}

// chainContextApplyLookup matches backtrack + input + lookahead and
// runs the action list on success. lookupContexts order is backtrack,
// input, lookahead.
func (c *applyContext) chainContextApplyLookup(backtrack, input, lookahead []uint16,
	lookupRecord []tables.SequenceLookupRecord, lookupContexts [3]matcherFunc,
) bool {
	var matchPositions [maxContextLength]int

	hasMatch, matchEnd, _ := c.matchInput(input, lookupContexts[1], &matchPositions)
	endIndex := matchEnd
	if !(hasMatch && endIndex != 0) {
		c.buffer.unsafeToConcat(c.buffer.idx, endIndex)
		return false
	}
	hasMatch, endIndex = c.matchLookahead(lookahead, lookupContexts[2], matchEnd)
	if !hasMatch {
		c.buffer.unsafeToConcat(c.buffer.idx, endIndex)
		return false
	}
	hasMatch, startIndex := c.matchBacktrack(backtrack, lookupContexts[0])
	if !hasMatch {
		c.buffer.unsafeToConcatFromOutbuffer(startIndex, endIndex)
		return false
	}
	c.buffer.unsafeToBreakFromOutbuffer(startIndex, endIndex)
	c.applyLookup(len(input)+1, &matchPositions, lookupRecord, matchEnd)
	return true
}

func (c *applyContext) applyRuleSet(ruleSet tables.SequenceRuleSet, match matcherFunc) bool {
	for _, rule := range ruleSet.SeqRule {
		if c.contextApplyLookup(rule.InputSequence, rule.SeqLookupRecords, match) {
			return true
		}
	}
	return false
}

func (c *applyContext) applyChainRuleSet(ruleSet tables.ChainedClassSequenceRuleSet, match [3]matcherFunc) bool {
	for _, rule := range ruleSet.ChainedSeqRules {
		if c.chainContextApplyLookup(rule.BacktrackSequence, rule.InputSequence,
			rule.LookaheadSequence, rule.SeqLookupRecords, match) {
			return true
		}
	}
	return false
}

func (c *applyContext) applyLookupContext1(data tables.SequenceContextFormat1, index int) bool {
	if index >= len(data.SeqRuleSet) {
		return false
	}
	return c.applyRuleSet(data.SeqRuleSet[index], matchGlyph)
}

func (c *applyContext) applyLookupContext2(data tables.SequenceContextFormat2, index int, glyph GID) bool {
	class, _ := data.ClassDef.Class(gID(glyph))
	var ruleSet tables.SequenceRuleSet
	if int(class) < len(data.ClassSeqRuleSet) {
		ruleSet = data.ClassSeqRuleSet[class]
	}
	return c.applyRuleSet(ruleSet, matchClass(data.ClassDef))
}

func (c *applyContext) applyLookupContext3(data tables.SequenceContextFormat3, index int) bool {
	covIndices := seq1N(&c.indices, 1, len(data.Coverages))
	return c.contextApplyLookup(covIndices, data.SeqLookupRecords, matchCoverage(data.Coverages))
}

func (c *applyContext) applyLookupChainedContext1(data tables.ChainedSequenceContextFormat1, index int) bool {
	if index >= len(data.ChainedSeqRuleSet) {
		return false
	}
	ruleSet := data.ChainedSeqRuleSet[index]
	for _, rule := range ruleSet.ChainedSeqRules {
		if c.chainContextApplyLookup(rule.BacktrackSequence, rule.InputSequence,
			rule.LookaheadSequence, rule.SeqLookupRecords,
			[3]matcherFunc{matchGlyph, matchGlyph, matchGlyph}) {
			return true
		}
	}
	return false
}

func (c *applyContext) applyLookupChainedContext2(data tables.ChainedSequenceContextFormat2, index int, glyph GID) bool {
	class, _ := data.InputClassDef.Class(gID(glyph))
	var ruleSet tables.ChainedClassSequenceRuleSet
	if int(class) < len(data.ChainedClassSeqRuleSet) {
		ruleSet = data.ChainedClassSeqRuleSet[class]
	}
	return c.applyChainRuleSet(ruleSet, [3]matcherFunc{
		matchClass(data.BacktrackClassDef),
		matchClass(data.InputClassDef),
		matchClass(data.LookaheadClassDef),
	})
}

func (c *applyContext) applyLookupChainedContext3(data tables.ChainedSequenceContextFormat3, index int) bool {
	lB, lI, lL := len(data.BacktrackCoverages), len(data.InputCoverages), len(data.LookaheadCoverages)
	return c.chainContextApplyLookup(
		seq1N(&c.indices, 0, lB), seq1N(&c.indices, 1, lI), seq1N(&c.indices, 0, lL),
		data.SeqLookupRecords,
		[3]matcherFunc{
			matchCoverage(data.BacktrackCoverages),
			matchCoverage(data.InputCoverages),
			matchCoverage(data.LookaheadCoverages),
		})
}

// seq1N returns [start, start+1, ..., end-1], reusing indices as
// backing storage. Coverage-format contexts use it as the identity
// match data.
func seq1N(indices *[]uint16, start, end int) []uint16 {
	if end > cap(*indices) {
		*indices = make([]uint16, end)
		for i := range *indices {
			(*indices)[i] = uint16(i)
		}
	}
	return (*indices)[start:end]
}

// --- substitution prologue ---------------------------------------------

// layoutSubstituteStart seeds per-glyph GDEF properties before GSUB.
func layoutSubstituteStart(font *Font, buffer *Buffer) {
	gdef := font.gdef()
	hasClasses := gdef.GlyphClassDef != nil
	for i := range buffer.Info {
		if hasClasses {
			buffer.Info[i].glyphProps = gdef.GlyphProps(gID(buffer.Info[i].Glyph))
		} else {
			buffer.Info[i].glyphProps = 0
		}
		buffer.Info[i].ligProps = 0
		buffer.Info[i].syllable = 0
	}
}

func min8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

func maxInt2(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
