package shaping

// The Hangul shaper decomposes modern syllables into L/V/T jamo when
// the font shapes jamo (ljmo/vjmo/tjmo), and recomposes LV/LVT when it
// does not. Old-Hangul tone marks are not reordered: a supported tone
// mark stays after its syllable and joins its cluster.

const (
	hangulSBase  = 0xAC00
	hangulLBase  = 0x1100
	hangulVBase  = 0x1161
	hangulTBase  = 0x11A7
	hangulLCount = 19
	hangulVCount = 21
	hangulTCount = 28
	hangulNCount = hangulVCount * hangulTCount
	hangulSCount = hangulLCount * hangulNCount
)

func isHangulLJamo(r rune) bool { return hangulLBase <= r && r < hangulLBase+hangulLCount }
func isHangulVJamo(r rune) bool { return hangulVBase <= r && r < hangulVBase+hangulVCount }

func isHangulTJamo(r rune) bool {
	return hangulTBase < r && r < hangulTBase+hangulTCount
}

func isHangulSyllable(r rune) bool { return hangulSBase <= r && r < hangulSBase+hangulSCount }

func isHangulToneMark(r rune) bool { return r == 0x302E || r == 0x302F }

// jamo feature masks, stored per glyph during setup
const (
	hangulMaskNone = 0
	hangulMaskLjmo = 1
	hangulMaskVjmo = 2
	hangulMaskTjmo = 3
)

type hangulPlan struct {
	maskArray [4]GlyphMask
}

type shaperHangul struct {
	shaperDefaults
}

func (*shaperHangul) name() string { return "hangul" }

func (*shaperHangul) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksNone, false
}

// the shaper does its own composition work
func (*shaperHangul) normalizationPreference() normalizationMode { return nmNone }

func (*shaperHangul) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_
	map_.addFeature(otTag('l', 'j', 'm', 'o'))
	map_.addFeature(otTag('v', 'j', 'm', 'o'))
	map_.addFeature(otTag('t', 'j', 'm', 'o'))
}

func (*shaperHangul) overrideFeatures(planner *shapePlanner) {
	// contextual alternates interfere with jamo composition, so 'calt'
	// is turned off
	planner.map_.disableFeature(otTag('c', 'a', 'l', 't'))
}

func (sh *shaperHangul) dataCreate(plan *shapePlan) {
	data := &hangulPlan{}
	data.maskArray[hangulMaskLjmo] = plan.map_.getMask1(otTag('l', 'j', 'm', 'o'))
	data.maskArray[hangulMaskVjmo] = plan.map_.getMask1(otTag('v', 'j', 'm', 'o'))
	data.maskArray[hangulMaskTjmo] = plan.map_.getMask1(otTag('t', 'j', 'm', 'o'))
	plan.shaperData = data
}

func (sh *shaperHangul) preprocessText(plan *shapePlan, buffer *Buffer, font *Font) {
	// Decompose syllables the font can render as jamo; compose jamo
	// sequences the font renders precomposed. Tone marks stay with
	// their syllable; a tone mark with no glyph support gets a dotted
	// circle inserted before it.
	count := len(buffer.Info)
	buffer.clearOutput()
	for buffer.idx = 0; buffer.idx < count && buffer.successful; {
		u := buffer.cur(0).codepoint

		if isHangulToneMark(u) {
			if font.hasGlyph(u) {
				// the mark rides along with its preceding syllable
				if buffer.idx > 0 {
					buffer.mergeClusters(buffer.idx-1, buffer.idx+1)
				}
				buffer.nextGlyph()
				continue
			}
			// unsupported tone mark: keep it and place a dotted circle
			// before it, so it has something to attach to
			if _, ok := font.nominalGlyph(0x25CC); ok {
				buffer.outputRune(0x25CC)
			}
			buffer.nextGlyph()
			continue
		}

		if isHangulSyllable(u) {
			si := u - hangulSBase
			l := rune(hangulLBase + si/hangulNCount)
			v := rune(hangulVBase + (si%hangulNCount)/hangulTCount)
			t := rune(0)
			if si%hangulTCount != 0 {
				t = rune(hangulTBase + si%hangulTCount)
			}
			if font.hasGlyph(l) && font.hasGlyph(v) && (t == 0 || font.hasGlyph(t)) {
				// decompose; but prefer the precomposed form when the
				// font maps it and can't shape jamo
				if !font.hasGlyph(u) || sh.fontShapesJamo(plan) {
					buffer.replaceGlyphs(1, []rune{l, v}, nil)
					if t != 0 {
						buffer.outputRune(t)
					}
					continue
				}
			}
			buffer.nextGlyph()
			continue
		}

		// compose L+V(+T) when the font has the syllable
		if isHangulLJamo(u) && buffer.idx+1 < count {
			v := buffer.Info[buffer.idx+1].codepoint
			if isHangulVJamo(v) {
				t := rune(0)
				if buffer.idx+2 < count && isHangulTJamo(buffer.Info[buffer.idx+2].codepoint) {
					t = buffer.Info[buffer.idx+2].codepoint
				}
				s := hangulSBase + (u-hangulLBase)*hangulNCount + (v-hangulVBase)*hangulTCount
				if t != 0 {
					s += t - hangulTBase
				}
				if font.hasGlyph(s) {
					numIn := 2
					if t != 0 {
						numIn = 3
					}
					buffer.replaceGlyphs(numIn, []rune{s}, nil)
					continue
				}
			}
		}
		buffer.nextGlyph()
	}
	buffer.sync()
}

// fontShapesJamo reports whether the font carries jamo shaping
// features, in which case decomposed jamo render better.
func (sh *shaperHangul) fontShapesJamo(plan *shapePlan) bool {
	data, _ := plan.shaperData.(*hangulPlan)
	if data == nil {
		return false
	}
	return data.maskArray[hangulMaskLjmo] != 0 || data.maskArray[hangulMaskVjmo] != 0 ||
		data.maskArray[hangulMaskTjmo] != 0
}

func (sh *shaperHangul) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	data, _ := plan.shaperData.(*hangulPlan)
	if data == nil {
		return
	}
	for i := range buffer.Info {
		u := buffer.Info[i].codepoint
		var jamo int
		switch {
		case isHangulLJamo(u):
			jamo = hangulMaskLjmo
		case isHangulVJamo(u):
			jamo = hangulMaskVjmo
		case isHangulTJamo(u):
			jamo = hangulMaskTjmo
		default:
			continue
		}
		buffer.Info[i].Mask |= data.maskArray[jamo]
	}
}
