package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
)

// The Universal Shaping Engine: the net for complex scripts without a
// dedicated engine. Characters classify into a small category set from
// their general category, combining class and per-script vowel data;
// clusters scan as base + stacked consonants + vowels + marks; the
// reorder pass moves a pre-base vowel (and a repha formed by 'rphf')
// into shaping order.

// USE categories (a condensed set).
const (
	useO     = iota // other
	useB            // base
	useH            // halant / stacker (combining class 9)
	useZWJ
	useZWNJ
	useVPre // pre-base vowel
	useVAbv
	useVBlw
	useVPst
	useSMAbv // syllable modifier above
	useSMBlw
	useCMAbv // consonant modifier above
	useCMBlw
	useGB // generic base (placeholder)
	useR  // repha
	useSub // subjoined consonant (Tibetan-style)
)

// USE cluster kinds.
const (
	useStandardCluster = iota
	useBrokenCluster
	useNonCluster
)

// useScriptCovered lists scripts routed to the universal engine.
func useScriptCovered(script language.Script) bool {
	switch script {
	case language.Balinese, language.Batak, language.Brahmi, language.Buginese,
		language.Buhid, language.Chakma, language.Cham, language.Grantha,
		language.Hanunoo, language.Javanese, language.Kaithi, language.Kharoshthi,
		language.Khojki, language.Khudawadi, language.Lepcha, language.Limbu,
		language.Mahajani, language.Meetei_Mayek, language.Modi, language.Multani,
		language.Newa, language.Rejang, language.Saurashtra, language.Sharada,
		language.Siddham, language.Sinhala, language.Sundanese, language.Syloti_Nagri,
		language.Tagalog, language.Tagbanwa, language.Tai_Le, language.Tai_Tham,
		language.Tai_Viet, language.Takri, language.Tirhuta, language.Tibetan:
		return true
	}
	return false
}

// usePreBaseVowel lists the encoded left-side dependent vowels of the
// covered scripts.
func usePreBaseVowel(u rune) bool {
	switch u {
	case 0x0DD9, 0x0DDA, 0x0DDB, // Sinhala E, EE, AI
		0x1B3E, 0x1B3F, // Balinese (left parts)
		0xA9BA, 0xA9BB, // Javanese TALING, DIRGA MURE
		0x19B5, 0x19B6, 0x19B7, // New Tai Lue E, AE, O
		0xAAB5, 0xAAB6, 0xAAB9, 0xAABB, 0xAABC, // Tai Viet
		0x1A6E, 0x1A6F, 0x1A70, 0x1A71, 0x1A72: // Tai Tham E, AE, OO, AI, THAM AI
		return true
	}
	return false
}

func useCategorize(u rune) uint8 {
	switch u {
	case 0x200C:
		return useZWNJ
	case 0x200D:
		return useZWJ
	case 0x25CC, 0x00A0:
		return useGB
	case 0x0F7F: // Tibetan sign rnam bcad behaves as a base-bound sign
		return useVPst
	}
	gc := generalCategoryOf(u)
	cc := combiningClass(u)
	switch {
	case cc == 9:
		return useH
	case usePreBaseVowel(u):
		return useVPre
	case 0x0F90 <= u && u <= 0x0FBC: // Tibetan subjoined letters
		return useSub
	case gc == nonSpacingMark || gc == enclosingMark:
		if cc >= 220 && cc < 230 {
			return useVBlw
		}
		if cc != 0 {
			return useVAbv
		}
		return useCMAbv
	case gc == spacingMark:
		return useVPst
	case gc.isLetter() || gc == otherNumber:
		return useB
	case gc == decimalNumber:
		return useGB
	}
	return useO
}

type usePlan struct {
	maskArray map[tables.Tag]GlyphMask
}

var useBasicFeatures = []tables.Tag{
	otTag('r', 'k', 'r', 'f'),
	otTag('a', 'b', 'v', 'f'),
	otTag('b', 'l', 'w', 'f'),
	otTag('h', 'a', 'l', 'f'),
	otTag('p', 's', 't', 'f'),
	otTag('v', 'a', 't', 'u'),
	otTag('c', 'j', 'c', 't'),
}

var useOtherFeatures = []tables.Tag{
	otTag('a', 'b', 'v', 's'),
	otTag('b', 'l', 'w', 's'),
	otTag('h', 'a', 'l', 'n'),
	otTag('p', 'r', 'e', 's'),
	otTag('p', 's', 't', 's'),
}

type shaperUSE struct {
	shaperDefaults
}

func (*shaperUSE) name() string { return "use" }

func (*shaperUSE) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksByGdefEarly, false
}

func (*shaperUSE) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

func (*shaperUSE) compose(c *normalizeContext, a, b rune) (rune, bool) {
	// keep marks decomposed, the cluster model wants the parts
	if generalCategoryOf(a).isMark() {
		return 0, false
	}
	return unicodeCompose(a, b)
}

func (*shaperUSE) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_
	map_.enableFeatureExt(otTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	map_.enableFeatureExt(otTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)
	map_.enableFeatureExt(otTag('n', 'u', 'k', 't'), ffPerSyllable, 1)
	map_.enableFeatureExt(otTag('a', 'k', 'h', 'n'), ffManualZWJ|ffPerSyllable, 1)
	map_.addGSUBPause(useSetupSyllablesPause)

	map_.enableFeatureExt(otTag('r', 'p', 'h', 'f'), ffManualZWJ|ffPerSyllable, 1)
	map_.addGSUBPause(useRecordRphfPause)
	map_.enableFeatureExt(otTag('p', 'r', 'e', 'f'), ffManualZWJ|ffPerSyllable, 1)
	map_.addGSUBPause(useReorderPause)

	for _, tag := range useBasicFeatures {
		map_.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}
	map_.addGSUBPause(nil)
	for _, tag := range useOtherFeatures {
		map_.enableFeatureExt(tag, ffManualZWJ|ffPerSyllable, 1)
	}
}

func (sh *shaperUSE) dataCreate(plan *shapePlan) {
	data := &usePlan{maskArray: make(map[tables.Tag]GlyphMask)}
	data.maskArray[otTag('r', 'p', 'h', 'f')] = plan.map_.getMask1(otTag('r', 'p', 'h', 'f'))
	data.maskArray[otTag('p', 'r', 'e', 'f')] = plan.map_.getMask1(otTag('p', 'r', 'e', 'f'))
	plan.shaperData = data
}

func (sh *shaperUSE) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	for i := range buffer.Info {
		buffer.Info[i].complexCategory = useCategorize(buffer.Info[i].codepoint)
	}
}

// scanUSECluster: cluster = (B|GB) (H (B|GB) | Sub)* (joiners, vowels, marks)* H?.
func scanUSECluster(s *syllabicScanner) uint8 {
	tail := func() {
		for {
			if s.accept(useZWJ, useZWNJ) {
				continue
			}
			if s.accept(useVPre, useVAbv, useVBlw, useVPst) {
				continue
			}
			if s.accept(useCMAbv, useCMBlw, useSMAbv, useSMBlw) {
				continue
			}
			break
		}
	}
	switch s.peek() {
	case useB, useGB:
		s.accept(useB, useGB)
		for {
			m := s.save()
			if s.accept(useH) {
				if s.accept(useB, useGB) {
					continue
				}
				s.restore(m)
				break
			}
			if s.accept(useSub) {
				continue
			}
			break
		}
		tail()
		s.accept(useH) // cluster-final halant
		return useStandardCluster
	case useH, useVPre, useVAbv, useVBlw, useVPst, useCMAbv, useCMBlw,
		useSMAbv, useSMBlw, useSub:
		tail()
		s.accept(useH)
		return useBrokenCluster
	default:
		s.accept(s.peek())
		return useNonCluster
	}
}

func useSetupSyllablesPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	cats := make([]uint8, len(buffer.Info))
	for i := range buffer.Info {
		cats[i] = buffer.Info[i].complexCategory
	}
	tagSyllables(buffer, cats, scanUSECluster)
	// the rphf mask goes on a cluster head that may form a repha
	data, _ := plan.shaperData.(*usePlan)
	if data != nil {
		iter, count := buffer.syllableIterator()
		for start, end := iter.next(); start < count; start, end = iter.next() {
			if end-start > 2 && buffer.Info[start].complexCategory == useB &&
				buffer.Info[start+1].complexCategory == useH {
				// a possible repha: base + halant at cluster start with
				// more bases following
				hasMoreBases := false
				for i := start + 2; i < end; i++ {
					if buffer.Info[i].complexCategory == useB {
						hasMoreBases = true
						break
					}
				}
				if hasMoreBases {
					buffer.Info[start].Mask |= data.maskArray[otTag('r', 'p', 'h', 'f')]
					buffer.Info[start+1].Mask |= data.maskArray[otTag('r', 'p', 'h', 'f')]
				}
			}
		}
	}
	return false
}

// useRecordRphfPause tags glyphs the rphf feature actually substituted
// as rephas so the reorder pass can move them.
func useRecordRphfPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data, _ := plan.shaperData.(*usePlan)
	if data == nil {
		return false
	}
	mask := data.maskArray[otTag('r', 'p', 'h', 'f')]
	if mask == 0 {
		return false
	}
	for i := range buffer.Info {
		if buffer.Info[i].Mask&mask != 0 && buffer.Info[i].ligatedAndDidntMultiply() {
			buffer.Info[i].complexCategory = useR
		}
	}
	return false
}

func useReorderPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	insertDottedCircles(font, buffer, useBrokenCluster, useGB, 0xFF, 0)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		useReorderCluster(buffer, start, end)
	}
	return false
}

// useReorderCluster moves the first pre-base vowel of a cluster to its
// start (further pre-base vowels stay in place); a repha glyph formed
// by rphf moves after the last base of its cluster.
func useReorderCluster(buffer *Buffer, start, end int) {
	info := buffer.Info
	if syllableKind(info[start].syllable) == useNonCluster {
		return
	}

	// the first pre-base vowel moves to the cluster start
	for i := start + 1; i < end; i++ {
		if info[i].complexCategory != useVPre {
			continue
		}
		v := info[i]
		copy(info[start+1:i+1], info[start:i])
		info[start] = v
		buffer.mergeClusters(start, i+1)
		buffer.unsafeToBreak(start, end)
		break
	}

	// a substituted repha moves after the last base
	if info[start].complexCategory == useR {
		lastBase := start
		for i := start + 1; i < end; i++ {
			if info[i].complexCategory == useB || info[i].complexCategory == useGB {
				lastBase = i
			}
		}
		if lastBase > start {
			r := info[start]
			copy(info[start:], info[start+1:lastBase+1])
			info[lastBase] = r
			buffer.mergeClusters(start, lastBase+1)
			buffer.unsafeToBreak(start, end)
		}
	}
}
