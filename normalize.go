package shaping

// The normalizer prepares codepoints for the font: it decomposes where
// the font prefers parts, keeps composed forms where the font has
// them, sorts combining marks into a canonical order, and recomposes
// diacritics per shaper policy. It is font-aware throughout: no
// decomposition is taken whose parts the font cannot render, and
// composition only happens into glyphs the font actually has.
//
// Glyph mapping happens here as a side effect: every slot leaves the
// normalizer with its nominal glyph resolved (NOTDEF when unmapped).

// maxCombiningMarks bounds mark reordering to keep pathological input
// linear.
const maxCombiningMarks = 32

type normalizeContext struct {
	plan   *shapePlan
	buffer *Buffer
	font   *Font
}

func (c *normalizeContext) decomposeRune(ab rune) (a, b rune, ok bool) {
	return c.plan.shaper.decompose(c, ab)
}

func (c *normalizeContext) composeRunes(a, b rune) (ab rune, ok bool) {
	return c.plan.shaper.compose(c, a, b)
}

func (c *normalizeContext) outputChar(ch rune, glyph GID) {
	b := c.buffer
	b.outputRune(ch)
	p := b.prev()
	p.Glyph = glyph
	p.setUProps(b)
}

func (c *normalizeContext) nextChar(glyph GID) {
	c.buffer.cur(0).Glyph = glyph
	c.buffer.nextGlyph()
}

// shapeNormalize runs the three normalization phases over the buffer.
func shapeNormalize(plan *shapePlan, buffer *Buffer, font *Font) {
	if len(buffer.Info) == 0 {
		return
	}
	mode := plan.shaper.normalizationPreference()
	if mode == nmAuto {
		if plan.hasGposMark {
			// the font positions marks; prefer precomposed forms but
			// inspect every cluster
			mode = nmComposedDiacriticsNoShortCircuit
		} else {
			mode = nmComposedDiacritics
		}
	}
	if mode == nmNone {
		// still resolve nominal glyphs
		for i := range buffer.Info {
			buffer.Info[i].Glyph, _ = font.nominalGlyph(buffer.Info[i].codepoint)
		}
		return
	}

	c := &normalizeContext{plan: plan, buffer: buffer, font: font}

	mightShortCircuit := mode == nmComposedDiacritics
	alwaysShortCircuit := false
	if mode == nmDecomposed {
		mightShortCircuit, alwaysShortCircuit = false, false
	}

	// phase 1: decompose, cluster by cluster
	buffer.clearOutput()
	count := len(buffer.Info)
	for buffer.idx < count && buffer.successful {
		// a run of simple (markless) slots decomposes with the short
		// circuit the mode allows
		end := buffer.idx + 1
		for end < count && !buffer.Info[end].isUnicodeMark() &&
			!buffer.Info[end].isContinuation() {
			end++
		}
		if end < count {
			end-- // leave one base for the mark cluster
		}
		for buffer.idx < end && buffer.successful {
			c.decomposeCurrentCharacter(mightShortCircuit)
		}
		if buffer.idx == count || !buffer.successful {
			break
		}
		// now the cluster with marks, never short-circuited
		end = buffer.idx + 1
		for end < count && (buffer.Info[end].isUnicodeMark() || buffer.Info[end].isContinuation()) {
			end++
		}
		c.decomposeMultiCharCluster(end, alwaysShortCircuit)
	}
	buffer.sync()

	// phase 2: reorder marks by combining class, in bounded chunks
	if buffer.scratchFlags&bsfHasNonASCII != 0 {
		info := buffer.Info
		i := 0
		for i < len(info) {
			if infoCC(&info[i]) == 0 {
				i++
				continue
			}
			start := i
			for i < len(info) && infoCC(&info[i]) != 0 {
				i++
			}
			end := i
			if end-start > maxCombiningMarks {
				continue
			}
			buffer.sortMarks(start, end)
			plan.shaper.reorderMarks(plan, buffer, start, end)
		}
	}
	if buffer.scratchFlags&bsfHasCGJ != 0 {
		unhideCGJ(buffer.Info)
	}

	if mode == nmDecomposed || mode == nmNone {
		return
	}

	// phase 3: recompose diacritics onto their starter where the font
	// has the composed glyph
	buffer.clearOutput()
	count = len(buffer.Info)
	starter := 0
	buffer.nextGlyph()
	for buffer.idx < count && buffer.successful {
		if infoCC(buffer.cur(0)) == 0 {
			starter = len(buffer.outInfo)
			buffer.nextGlyph()
			continue
		}
		// composition is possible against the starter when nothing
		// with an equal-or-higher class sits in between
		if len(buffer.outInfo)-1 == starter || infoCC(buffer.prev()) < infoCC(buffer.cur(0)) {
			if composed, ok := c.composeRunes(buffer.outInfo[starter].codepoint, buffer.cur(0).codepoint); ok {
				if glyph, has := font.nominalGlyph(composed); has {
					buffer.nextGlyph()
					buffer.mergeOutClusters(starter, len(buffer.outInfo))
					buffer.outInfo = buffer.outInfo[:len(buffer.outInfo)-1]
					s := &buffer.outInfo[starter]
					s.codepoint = composed
					s.Glyph = glyph
					s.setUProps(buffer)
					continue
				}
			}
		}
		// blocked or doesn't compose
		buffer.nextGlyph()
	}
	buffer.sync()
}

// decompose recursively decomposes ab, emitting parts the font can
// render. Returns the number of characters written (0 means "leave
// composed").
func (c *normalizeContext) decompose(shortest bool, ab rune) int {
	a, b, ok := c.decomposeRune(ab)
	if !ok {
		return 0
	}
	var bGlyph GID
	if b != 0 {
		bGlyph, ok = c.font.nominalGlyph(b)
		if !ok {
			return 0
		}
	}
	aGlyph, hasA := c.font.nominalGlyph(a)
	if shortest && hasA {
		// the font has the first part, we are done
		c.outputChar(a, aGlyph)
		if b != 0 {
			c.outputChar(b, bGlyph)
			return 2
		}
		return 1
	}
	if ret := c.decompose(shortest, a); ret != 0 {
		if b != 0 {
			c.outputChar(b, bGlyph)
			return ret + 1
		}
		return ret
	}
	if hasA {
		c.outputChar(a, aGlyph)
		if b != 0 {
			c.outputChar(b, bGlyph)
			return 2
		}
		return 1
	}
	return 0
}

func (c *normalizeContext) decomposeCurrentCharacter(shortest bool) {
	buffer := c.buffer
	u := buffer.cur(0).codepoint
	glyph, hasGlyph := c.font.nominalGlyph(u)

	if shortest && hasGlyph {
		c.nextChar(glyph)
		return
	}
	if c.decompose(shortest, u) != 0 {
		buffer.skipGlyph()
		return
	}
	if !shortest && hasGlyph {
		c.nextChar(glyph)
		return
	}

	if buffer.cur(0).isUnicodeSpace() {
		// synthesize a width later if the font has at least a space
		spaceType := fallbackSpaceType(u)
		if spaceType != notSpace {
			if spaceGlyph, ok := c.font.nominalGlyph(0x0020); ok {
				buffer.cur(0).setSpaceFallbackType(spaceType)
				buffer.scratchFlags |= bsfHasSpaceFallback
				c.nextChar(spaceGlyph)
				return
			}
		}
	}
	if u == 0x2011 {
		// NO-BREAK HYPHEN renders as HYPHEN
		if otherGlyph, ok := c.font.nominalGlyph(0x2010); ok {
			c.nextChar(otherGlyph)
			return
		}
	}
	// no glyph: keep the codepoint, it maps to .notdef
	c.nextChar(glyph)
}

func isVariationSelector(r rune) bool {
	return (0xFE00 <= r && r <= 0xFE0F) || (0xE0100 <= r && r <= 0xE01EF) ||
		(0x180B <= r && r <= 0x180D) || r == 0x180F
}

func (c *normalizeContext) decomposeMultiCharCluster(end int, shortCircuit bool) {
	buffer := c.buffer
	for i := buffer.idx; i < end; i++ {
		if isVariationSelector(buffer.Info[i].codepoint) {
			c.handleVariationSelectorCluster(end)
			return
		}
	}
	for buffer.idx < end && buffer.successful {
		c.decomposeCurrentCharacter(shortCircuit)
	}
}

func (c *normalizeContext) handleVariationSelectorCluster(end int) {
	buffer := c.buffer
	font := c.font
	for buffer.idx < end-1 && buffer.successful {
		if isVariationSelector(buffer.Info[buffer.idx+1].codepoint) {
			if glyph, ok := font.variationGlyph(buffer.cur(0).codepoint, buffer.Info[buffer.idx+1].codepoint); ok {
				buffer.replaceGlyphIndex(glyph)
				// the selector itself passes through as a
				// default-ignorable and is hidden later
				vsGlyph, _ := font.nominalGlyph(buffer.cur(0).codepoint)
				c.nextChar(vsGlyph)
			} else {
				// the font knows neither the pair nor the selector
				c.decomposeCurrentCharacter(false)
				vsGlyph, _ := font.nominalGlyph(buffer.cur(0).codepoint)
				c.nextChar(vsGlyph)
			}
			continue
		}
		c.decomposeCurrentCharacter(false)
	}
	if buffer.idx < end && buffer.successful {
		c.decomposeCurrentCharacter(false)
	}
}

// infoCC is the effective combining class of a slot.
func infoCC(info *GlyphInfo) uint8 { return info.modifiedCombiningClass() }

// sortMarks stable-sorts Info[start:end) by combining class, merging
// clusters whenever two slots exchange relative order.
func (b *Buffer) sortMarks(start, end int) {
	info := b.Info
	for i := start + 1; i < end; i++ {
		cc := infoCC(&info[i])
		j := i
		for j > start && infoCC(&info[j-1]) > cc {
			j--
		}
		if i == j {
			continue
		}
		// clusters merge over the moved range
		b.mergeClusters(j, i+1)
		t := info[i]
		copy(info[j+1:i+1], info[j:i])
		info[j] = t
	}
}

// unhideCGJ makes COMBINING GRAPHEME JOINER skippable by context
// matching when the marks around it are already in canonical order, so
// it only blocks reordering, not substitution.
func unhideCGJ(info []GlyphInfo) {
	for i := 1; i+1 < len(info); i++ {
		if info[i].codepoint != 0x034F {
			continue
		}
		ccBefore := infoCC(&info[i-1])
		ccAfter := infoCC(&info[i+1])
		if ccAfter == 0 || ccBefore <= ccAfter {
			info[i].unhide()
		}
	}
}
