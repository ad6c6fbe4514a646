package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
)

// The shaping pipeline. One call runs, in order: segment-property
// guessing, character-property setup, cluster forming, native-direction
// normalization, shaper text preprocessing, normalization plus glyph
// mapping, mask setup, GSUB (or morx), default positioning, GPOS (or
// kerx/kern/fallback), attachment propagation, postprocessing, and
// glyph-flag propagation.

// Shape shapes buffer with font, applying the requested features on
// top of the plan defaults. On return the buffer holds glyphs and
// positions, in visual order for backward runs.
//
// The plan compiled for (font, properties, features) is cached on the
// font and reused for buffers with matching properties.
func Shape(font *Font, buffer *Buffer, features []Feature) error {
	if font == nil {
		return errShaping("nil font")
	}
	if buffer == nil {
		return errShaping("nil buffer")
	}
	if len(buffer.Info) == 0 {
		return nil // nothing to do, the face is not touched
	}
	buffer.GuessSegmentProperties()
	if !buffer.Props.Direction.isValid() {
		return errShaping("buffer direction could not be resolved")
	}
	plan := font.shapePlanCached(buffer.Props, features, font.varCoords())
	sc := &shapeContext{plan: plan, font: font, buffer: buffer, userFeatures: features}
	sc.shape()
	if !buffer.successful {
		return errShaping("shaping exceeded buffer budgets; result is partial")
	}
	return nil
}

type shapeContext struct {
	plan         *shapePlan
	font         *Font
	buffer       *Buffer
	userFeatures []Feature

	targetDirection Direction
}

func (c *shapeContext) shape() {
	buffer := c.buffer

	buffer.scratchFlags = bsfDefault
	buffer.maxOps = maxInt2(len(buffer.Info)*maxOpsFactor, maxOpsMin)
	buffer.maxLen = maxInt2(len(buffer.Info)*maxLenFactor, maxLenMin)

	// seed the 'rand' generator from the input so shaping is
	// reproducible per buffer
	buffer.random = uint32(len(buffer.Info))*16807 + uint32(buffer.Info[0].codepoint) + 1

	// save the original direction, we use it later
	c.targetDirection = buffer.Props.Direction

	buffer.resetMasks(c.plan.map_.globalMask)
	buffer.setUnicodeProps()
	buffer.insertDottedCircle(c.font)
	buffer.formClusters()
	buffer.ensureNativeDirection()

	c.plan.shaper.preprocessText(c.plan, buffer, c.font)

	c.substituteBeforePosition()
	c.position()
	c.substituteAfterPosition()

	propagateFlags(buffer)

	buffer.Props.Direction = c.targetDirection
	buffer.maxOps = maxOpsDefault
}

// --- substitution ------------------------------------------------------

// vertCharFor maps punctuation to its vertical presentation form, used
// when a vertical run has no 'vert' feature to do the job.
func vertCharFor(u rune) rune {
	switch u >> 8 {
	case 0x20:
		switch u {
		case 0x2013:
			return 0xfe32 // EN DASH
		case 0x2014:
			return 0xfe31 // EM DASH
		case 0x2025:
			return 0xfe30 // TWO DOT LEADER
		case 0x2026:
			return 0xfe19 // HORIZONTAL ELLIPSIS
		}
	case 0x30:
		switch u {
		case 0x3001:
			return 0xfe11 // IDEOGRAPHIC COMMA
		case 0x3002:
			return 0xfe12 // IDEOGRAPHIC FULL STOP
		case 0x3008:
			return 0xfe3f
		case 0x3009:
			return 0xfe40
		case 0x300a:
			return 0xfe3d
		case 0x300b:
			return 0xfe3e
		case 0x300c:
			return 0xfe41
		case 0x300d:
			return 0xfe42
		case 0x300e:
			return 0xfe43
		case 0x300f:
			return 0xfe44
		case 0x3010:
			return 0xfe3b
		case 0x3011:
			return 0xfe3c
		case 0x3014:
			return 0xfe39
		case 0x3015:
			return 0xfe3a
		case 0x3016:
			return 0xfe17
		case 0x3017:
			return 0xfe18
		}
	case 0xfe:
		if u == 0xfe4f {
			return 0xfe34 // WAVY LOW LINE
		}
	case 0xff:
		switch u {
		case 0xff01:
			return 0xfe15
		case 0xff08:
			return 0xfe35
		case 0xff09:
			return 0xfe36
		case 0xff0c:
			return 0xfe10
		case 0xff1a:
			return 0xfe13
		case 0xff1b:
			return 0xfe14
		case 0xff1f:
			return 0xfe16
		case 0xff3b:
			return 0xfe47
		case 0xff3d:
			return 0xfe48
		case 0xff3f:
			return 0xfe33
		case 0xff5b:
			return 0xfe37
		case 0xff5d:
			return 0xfe38
		}
	}
	return u
}

// rotateChars mirrors codepoints in backward runs (or flags them for
// 'rtlm') and substitutes vertical forms in vertical runs without a
// 'vert' feature.
func (c *shapeContext) rotateChars() {
	info := c.buffer.Info
	if c.targetDirection.isBackward() {
		rtlmMask := c.plan.rtlmMask
		for i := range info {
			mirrored := mirrorChar(info[i].codepoint)
			if mirrored != info[i].codepoint && c.font.hasGlyph(mirrored) {
				info[i].codepoint = mirrored
			} else {
				info[i].Mask |= rtlmMask
			}
		}
	}
	if c.targetDirection.isVertical() && !c.plan.hasVert {
		for i := range info {
			vert := vertCharFor(info[i].codepoint)
			if vert != info[i].codepoint && c.font.hasGlyph(vert) {
				info[i].codepoint = vert
			}
		}
	}
}

// setupMasksFraction assigns numr/dnom/frac masks around U+2044.
func (c *shapeContext) setupMasksFraction() {
	if c.buffer.scratchFlags&bsfHasNonASCII == 0 || !c.plan.hasFrac {
		return
	}
	buffer := c.buffer

	var preMask, postMask GlyphMask
	if buffer.Props.Direction.isForward() {
		preMask = c.plan.numrMask | c.plan.fracMask
		postMask = c.plan.fracMask | c.plan.dnomMask
	} else {
		preMask = c.plan.fracMask | c.plan.dnomMask
		postMask = c.plan.numrMask | c.plan.fracMask
	}

	count := len(buffer.Info)
	info := buffer.Info
	for i := 0; i < count; i++ {
		if info[i].codepoint != 0x2044 { // FRACTION SLASH
			continue
		}
		start, end := i, i+1
		for start != 0 && info[start-1].generalCategory() == decimalNumber {
			start--
		}
		for end < count && info[end].generalCategory() == decimalNumber {
			end++
		}
		buffer.unsafeToBreak(start, end)
		for j := start; j < i; j++ {
			info[j].Mask |= preMask
		}
		info[i].Mask |= c.plan.fracMask
		for j := i + 1; j < end; j++ {
			info[j].Mask |= postMask
		}
		i = end - 1
	}
}

func (c *shapeContext) setupMasks() {
	map_ := &c.plan.map_
	buffer := c.buffer

	c.setupMasksFraction()
	c.plan.shaper.setupMasks(c.plan, buffer, c.font)

	for _, feature := range c.userFeatures {
		if feature.isGlobal() {
			continue
		}
		mask, shift := map_.getMask(feature.Tag)
		buffer.setMasks(feature.Value<<uint(shift), mask, feature.Start, feature.End)
	}
}

// synthesizeGlyphClasses assigns base/mark classes from the general
// category when GDEF is absent. Default-ignorables stay bases so
// lookup-flag skipping never hides them outright.
func synthesizeGlyphClasses(buffer *Buffer) {
	for i := range buffer.Info {
		klass := tables.GPMark
		if buffer.Info[i].generalCategory() != nonSpacingMark ||
			buffer.Info[i].isDefaultIgnorable() {
			klass = tables.GPBaseGlyph
		}
		buffer.Info[i].glyphProps = klass
	}
}

func (c *shapeContext) substituteBeforePosition() {
	buffer := c.buffer

	c.rotateChars()
	shapeNormalize(c.plan, buffer, c.font)
	c.setupMasks()

	// has to happen before GSUB touches categories
	if c.plan.fallbackMarkPositioning {
		fallbackMarkPositionRecategorizeMarks(buffer)
	}

	layoutSubstituteStart(c.font, buffer)
	if c.plan.fallbackGlyphClasses {
		synthesizeGlyphClasses(buffer)
	}

	if c.plan.applyMorx {
		aatLayoutSubstitute(c.plan, c.font, buffer, c.userFeatures)
	}
	c.plan.map_.substitute(c.plan, c.font, buffer)

	if c.plan.applyMorx && c.plan.applyGpos {
		aatLayoutRemoveDeletedGlyphs(buffer)
	}
}

func (c *shapeContext) substituteAfterPosition() {
	if c.plan.applyMorx && !c.plan.applyGpos {
		aatLayoutRemoveDeletedGlyphs(c.buffer)
	}
	hideDefaultIgnorables(c.buffer, c.font)
	c.plan.shaper.postprocessGlyphs(c.plan, c.buffer, c.font)
}

func zeroWidthDefaultIgnorables(buffer *Buffer) {
	if buffer.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buffer.Flags&PreserveDefaultIgnorables != 0 ||
		buffer.Flags&RemoveDefaultIgnorables != 0 {
		return
	}
	pos := buffer.Pos
	for i := range buffer.Info {
		if buffer.Info[i].isDefaultIgnorable() {
			pos[i] = GlyphPosition{}
		}
	}
}

func hideDefaultIgnorables(buffer *Buffer, font *Font) {
	if buffer.scratchFlags&bsfHasDefaultIgnorables == 0 ||
		buffer.Flags&PreserveDefaultIgnorables != 0 {
		return
	}
	info := buffer.Info

	invisible := buffer.Invisible
	ok := invisible != 0
	if !ok {
		invisible, ok = font.nominalGlyph(' ')
	}
	if buffer.Flags&RemoveDefaultIgnorables == 0 && ok {
		// replace default-ignorables with a zero-advance invisible glyph
		for i := range info {
			if info[i].isDefaultIgnorable() {
				info[i].Glyph = invisible
			}
		}
		return
	}
	buffer.deleteGlyphsInplace((*GlyphInfo).isDefaultIgnorable)
}

// --- positioning -------------------------------------------------------

func zeroMarkWidthsByGdef(buffer *Buffer, adjustOffsets bool) {
	for i := range buffer.Info {
		if !buffer.Info[i].isMark() {
			continue
		}
		pos := &buffer.Pos[i]
		if adjustOffsets {
			pos.XOffset -= pos.XAdvance
			pos.YOffset -= pos.YAdvance
		}
		pos.XAdvance = 0
		pos.YAdvance = 0
	}
}

// positionDefault fills Pos with nominal advances and origins before
// any table runs; GPOS, kerx, kern or fallback positioning adjust them
// afterwards.
func (c *shapeContext) positionDefault() {
	direction := c.buffer.Props.Direction
	info := c.buffer.Info
	pos := c.buffer.Pos

	if direction.isHorizontal() {
		for i := range info {
			pos[i].XAdvance = c.font.GlyphHAdvance(info[i].Glyph)
			pos[i].YAdvance = 0
			pos[i].XOffset, pos[i].YOffset = c.font.subtractGlyphHOrigin(info[i].Glyph, 0, 0)
		}
	} else {
		for i := range info {
			pos[i].XAdvance = 0
			pos[i].YAdvance = c.font.glyphVAdvance(info[i].Glyph)
			pos[i].XOffset, pos[i].YOffset = c.font.subtractGlyphVOrigin(info[i].Glyph, 0, 0)
		}
	}
	if c.buffer.scratchFlags&bsfHasSpaceFallback != 0 {
		fallbackSpaces(c.font, c.buffer)
	}
}

func (c *shapeContext) positionComplex() {
	info := c.buffer.Info
	pos := c.buffer.Pos

	// Without GPOS and in a forward run, zeroed marks shift with their
	// base so they hang over the previous glyph. Backward runs resolve
	// after the final reordering instead.
	adjustOffsetsWhenZeroing := c.plan.adjustMarkPositioningWhenZeroing &&
		c.buffer.Props.Direction.isForward()

	// glyph origins move to what GPOS expects (horizontal), then back
	for i := range info {
		pos[i].XOffset, pos[i].YOffset = c.font.addGlyphHOrigin(info[i].Glyph, pos[i].XOffset, pos[i].YOffset)
	}

	positionStartGPOS(c.buffer)
	markBehavior, _ := c.plan.shaper.marksBehavior()

	if c.plan.zeroMarks && markBehavior == zeroWidthMarksByGdefEarly {
		zeroMarkWidthsByGdef(c.buffer, adjustOffsetsWhenZeroing)
	}

	if c.plan.applyGpos {
		c.plan.map_.position(c.plan, c.font, c.buffer)
	} else if c.plan.applyKerx {
		aatLayoutPosition(c.plan, c.font, c.buffer)
	}
	if c.plan.applyKern {
		layoutKern(c.plan, c.font, c.buffer)
	} else if c.plan.applyFallbackKern {
		fallbackKern(c.plan, c.font, c.buffer)
	}
	if c.plan.applyTrak {
		aatLayoutTrack(c.plan, c.font, c.buffer)
	}

	if c.plan.zeroMarks && markBehavior == zeroWidthMarksByGdefLate {
		zeroMarkWidthsByGdef(c.buffer, adjustOffsetsWhenZeroing)
	}

	// finishing order matters
	zeroWidthDefaultIgnorables(c.buffer)
	if c.plan.applyMorx {
		aatLayoutZeroWidthDeletedGlyphs(c.buffer)
	}
	positionFinishOffsetsGPOS(c.buffer)

	for i := range info {
		pos[i].XOffset, pos[i].YOffset = c.font.subtractGlyphHOrigin(info[i].Glyph, pos[i].XOffset, pos[i].YOffset)
	}

	if c.plan.fallbackMarkPositioning {
		fallbackMarkPosition(c.plan, c.font, c.buffer, adjustOffsetsWhenZeroing)
	}
}

func (c *shapeContext) position() {
	c.buffer.clearPositions()
	c.positionDefault()
	c.positionComplex()
	if c.buffer.Props.Direction.isBackward() {
		c.buffer.Reverse()
	}
}

// propagateFlags spreads glyph flags over whole clusters and resolves
// the tatweel/unsafe interaction, which can only be decided here.
func propagateFlags(buffer *Buffer) {
	if buffer.scratchFlags&bsfHasGlyphFlags == 0 {
		return
	}
	flipTatweel := buffer.Flags&ProduceSafeToInsertTatweel != 0
	clearConcat := buffer.Flags&ProduceUnsafeToConcat == 0
	info := buffer.Info

	iter, count := buffer.clusterIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		var mask GlyphMask
		for i := start; i < end; i++ {
			mask |= info[i].Mask & glyphFlagDefined
		}
		if flipTatweel {
			if mask&GlyphUnsafeToBreak != 0 {
				mask &^= GlyphSafeToInsertTatweel
			}
			if mask&GlyphSafeToInsertTatweel != 0 {
				mask |= GlyphUnsafeToBreak | GlyphUnsafeToConcat
			}
		}
		if clearConcat {
			mask &^= GlyphUnsafeToConcat
		}
		for i := start; i < end; i++ {
			info[i].Mask = mask
		}
	}
}
