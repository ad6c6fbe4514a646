package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
)

// The Khmer shaper is a lighter cousin of Indic: no reph, no
// repositioning machine. Split matras decompose into a pre-base part
// plus the remainder; a COENG+RO pair moves to the cluster start with
// the 'pref' mask, and trailing COENG consonants after a vowel take
// 'cfar'.

// Khmer cluster kinds.
const (
	khmerConsonantSyllable = iota
	khmerBrokenCluster
	khmerNonKhmerCluster
)

func khmerCategorize(u rune) (uint8, uint8) {
	switch {
	case u == 0x200C:
		return icZWNJ, iposEnd
	case u == 0x200D:
		return icZWJ, iposEnd
	case u == 0x25CC:
		return icDottedCircle, iposEnd
	case 0x1780 <= u && u <= 0x17A2:
		if u == 0x179A { // RO
			return icRa, iposBaseC
		}
		return icC, iposBaseC
	case 0x17A3 <= u && u <= 0x17B3:
		return icV, iposEnd
	case u == 0x17B6: // AA
		return icM, iposPostC
	case 0x17B7 <= u && u <= 0x17BA: // I, II, Y, YY
		return icM, iposAboveC
	case 0x17BB <= u && u <= 0x17BD: // U, UU, UA
		return icM, iposBelowC
	case 0x17BE <= u && u <= 0x17C5: // split and pre-base vowels
		if u == 0x17C1 || u == 0x17C2 || u == 0x17C3 {
			return icM, iposPreM
		}
		return icM, iposPostC
	case u == 0x17C6:
		return icSM, iposSMVD // NIKAHIT
	case u == 0x17C7 || u == 0x17C8:
		return icSM, iposSMVD // REAHMUK, YUUKALEAPINTU
	case u == 0x17C9 || u == 0x17CA:
		return icRS, iposAboveC // register shifters
	case u == 0x17CC:
		return icRobat, iposAboveC
	case 0x17CB <= u && u <= 0x17D1 && u != 0x17CC:
		return icA, iposSMVD // various signs
	case u == 0x17D2:
		return icCoeng, iposEnd
	case u == 0x17DD:
		return icA, iposSMVD
	case 0x17E0 <= u && u <= 0x17E9:
		return icPlaceholder, iposEnd
	}
	return icX, iposEnd
}

type khmerPlan struct {
	maskArray map[tables.Tag]GlyphMask
}

var khmerFeatures = []tables.Tag{
	otTag('p', 'r', 'e', 'f'),
	otTag('b', 'l', 'w', 'f'),
	otTag('a', 'b', 'v', 'f'),
	otTag('p', 's', 't', 'f'),
	otTag('c', 'f', 'a', 'r'),
}

type shaperKhmer struct {
	shaperDefaults
}

func (*shaperKhmer) name() string { return "khmer" }

func (*shaperKhmer) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksNone, false
}

func (*shaperKhmer) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

// decompose splits the split matras the way the font expects: the
// pre-base part U+17C1 comes out first, the original stays as the
// second half. Unicode does not encode these decompositions.
func (*shaperKhmer) decompose(c *normalizeContext, ab rune) (rune, rune, bool) {
	switch ab {
	case 0x17BE, 0x17BF, 0x17C0, 0x17C4, 0x17C5:
		return 0x17C1, ab, true
	}
	return unicodeDecompose(ab)
}

func (*shaperKhmer) compose(c *normalizeContext, a, b rune) (rune, bool) {
	// avoid recomposition onto bases
	if generalCategoryOf(a).isMark() {
		return 0, false
	}
	return unicodeCompose(a, b)
}

func (*shaperKhmer) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_
	map_.enableFeatureExt(otTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	map_.enableFeatureExt(otTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)
	map_.addGSUBPause(khmerSetupSyllablesPause)
	map_.addGSUBPause(khmerReorderPause)

	for _, tag := range khmerFeatures {
		map_.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
	map_.addGSUBPause(nil)
	for _, tag := range []tables.Tag{
		otTag('p', 'r', 'e', 's'),
		otTag('a', 'b', 'v', 's'),
		otTag('b', 'l', 'w', 's'),
		otTag('p', 's', 't', 's'),
	} {
		map_.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
}

func (*shaperKhmer) overrideFeatures(planner *shapePlanner) {
	// standard ligatures ('liga') are not applied in Khmer
	planner.map_.disableFeature(otTag('l', 'i', 'g', 'a'))
}

func (sh *shaperKhmer) dataCreate(plan *shapePlan) {
	data := &khmerPlan{maskArray: make(map[tables.Tag]GlyphMask)}
	for _, tag := range khmerFeatures {
		data.maskArray[tag] = plan.map_.getMask1(tag)
	}
	plan.shaperData = data
}

func (sh *shaperKhmer) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	for i := range buffer.Info {
		cat, pos := khmerCategorize(buffer.Info[i].codepoint)
		buffer.Info[i].complexCategory = cat
		buffer.Info[i].complexAux = pos
	}
}

// scanKhmerSyllable: cluster = C (Coeng C | RS | M | SM | A | Robat |
// ZWJ/ZWNJ)*, broken when marks lead.
func scanKhmerSyllable(s *syllabicScanner) uint8 {
	tail := func() {
		for {
			m := s.save()
			if s.accept(icCoeng) {
				if s.accept(icC, icRa, icV) {
					continue
				}
				s.restore(m)
				break
			}
			if s.accept(icRS, icRobat, icM, icSM, icA, icZWJ, icZWNJ, icN) {
				continue
			}
			break
		}
	}
	switch s.peek() {
	case icC, icRa, icV, icPlaceholder, icDottedCircle:
		s.accept(icC, icRa, icV, icPlaceholder, icDottedCircle)
		tail()
		return khmerConsonantSyllable
	case icCoeng, icM, icSM, icA, icRS, icRobat, icN:
		tail()
		if !s.atEnd() && s.peek() == icCoeng {
			s.accept(icCoeng)
		}
		return khmerBrokenCluster
	default:
		s.accept(s.peek())
		return khmerNonKhmerCluster
	}
}

func khmerSetupSyllablesPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	cats := make([]uint8, len(buffer.Info))
	for i := range buffer.Info {
		cats[i] = buffer.Info[i].complexCategory
	}
	tagSyllables(buffer, cats, scanKhmerSyllable)
	return false
}

func khmerReorderPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data, _ := plan.shaperData.(*khmerPlan)
	if data == nil {
		return false
	}
	insertDottedCircles(font, buffer, khmerBrokenCluster, icDottedCircle, 0xFF, iposEnd)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		khmerReorderSyllable(data, buffer, start, end)
	}
	return false
}

// khmerReorderSyllable moves the pre-base vowel (and a COENG+RO pair)
// to the cluster start and distributes the feature masks.
func khmerReorderSyllable(data *khmerPlan, buffer *Buffer, start, end int) {
	info := buffer.Info
	if syllableKind(info[start].syllable) == khmerNonKhmerCluster {
		return
	}

	prefMask := data.maskArray[otTag('p', 'r', 'e', 'f')]
	blwfMask := data.maskArray[otTag('b', 'l', 'w', 'f')]
	abvfMask := data.maskArray[otTag('a', 'b', 'v', 'f')]
	pstfMask := data.maskArray[otTag('c', 'f', 'a', 'r')] | data.maskArray[otTag('p', 's', 't', 'f')]

	numCoengs := 0
	sawPreVowel := false
	for i := start + 1; i < end; i++ {
		// a COENG+RO pair moves to the front and takes 'pref'
		if info[i].complexCategory == icCoeng && numCoengs <= 2 && i+1 < end {
			numCoengs++
			if info[i+1].complexCategory == icRa {
				for j := 0; j < 2; j++ {
					info[i+j].Mask |= prefMask
				}
				// move the pair to the start
				pair := [2]GlyphInfo{info[i], info[i+1]}
				copy(info[start+2:i+2], info[start:i])
				info[start] = pair[0]
				info[start+1] = pair[1]
				buffer.mergeClusters(start, i+2)
				buffer.unsafeToBreak(start, end)
				continue
			}
			// other below-base consonants: blwf, or cfar after a
			// pre-base vowel
			mask := blwfMask
			if sawPreVowel {
				mask = pstfMask
			}
			info[i].Mask |= mask
			if i+1 < end {
				info[i+1].Mask |= mask
			}
			continue
		}
		if info[i].complexAux == iposPreM && !sawPreVowel {
			// pre-base vowel moves to the front
			sawPreVowel = true
			v := info[i]
			copy(info[start+1:i+1], info[start:i])
			info[start] = v
			buffer.mergeClusters(start, i+1)
			buffer.unsafeToBreak(start, end)
			continue
		}
		if info[i].complexAux == iposAboveC {
			info[i].Mask |= abvfMask
		}
	}
}
