package shaping

import (
	"sort"

	"github.com/go-text/typesetting/font/opentype/tables"
)

// The Myanmar shaper (the 2012 'mym2' specification): clusters scan
// like Indic without base search complexity, pre-base vowels and
// medial RA reorder before the base, everything else sorts by
// position.

// Myanmar cluster kinds.
const (
	myanmarConsonantSyllable = iota
	myanmarBrokenCluster
	myanmarNonMyanmarCluster
)

// Extra Myanmar categories layered on the shared ones.
const (
	mcAsat = iota + 32 // ASAT, kills the inherent vowel
	mcMedialY
	mcMedialR
	mcMedialW
	mcMedialH
	mcVisarga
	mcAnusvara
	mcToneSgaw
)

func myanmarCategorize(u rune) (uint8, uint8) {
	switch {
	case u == 0x200C:
		return icZWNJ, iposEnd
	case u == 0x200D:
		return icZWJ, iposEnd
	case u == 0x25CC:
		return icDottedCircle, iposEnd
	case 0x1000 <= u && u <= 0x1020:
		if u == 0x101B { // RA
			return icRa, iposBaseC
		}
		return icC, iposBaseC
	case 0x1021 <= u && u <= 0x102A:
		return icV, iposEnd
	case u == 0x1031: // pre-base vowel E
		return icM, iposPreM
	case u == 0x102D || u == 0x102E || u == 0x1032 || u == 0x1033 ||
		u == 0x1034 || u == 0x1035 || u == 0x1071 || u == 0x1072 ||
		u == 0x1073 || u == 0x1074:
		return icM, iposAboveC
	case u == 0x102F || u == 0x1030:
		return icM, iposBelowC
	case u == 0x102B || u == 0x102C || u == 0x1056 || u == 0x1057:
		return icM, iposPostC
	case u == 0x1036:
		return mcAnusvara, iposSMVD
	case u == 0x1037: // dot below
		return icSM, iposSMVD
	case u == 0x1038:
		return mcVisarga, iposSMVD
	case u == 0x1039: // virama (stacker)
		return icH, iposEnd
	case u == 0x103A:
		return mcAsat, iposSMVD
	case u == 0x103B:
		return mcMedialY, iposPostC
	case u == 0x103C:
		return mcMedialR, iposPreC
	case u == 0x103D:
		return mcMedialW, iposBelowC
	case u == 0x103E:
		return mcMedialH, iposBelowC
	case u == 0x103F: // great SA
		return icC, iposBaseC
	case 0x1040 <= u && u <= 0x1049:
		return icPlaceholder, iposEnd
	case u == 0x104A || u == 0x104B:
		return icPlaceholder, iposEnd
	case 0x1050 <= u && u <= 0x1055:
		return icC, iposBaseC
	case 0x1058 <= u && u <= 0x1059:
		return icM, iposBelowC
	case 0x105A <= u && u <= 0x105D:
		return icC, iposBaseC
	case u == 0x105E || u == 0x105F:
		return mcMedialY, iposPostC
	case u == 0x1060:
		return mcMedialH, iposBelowC
	case 0x1062 <= u && u <= 0x1064:
		return icSM, iposSMVD
	case 0x1065 <= u && u <= 0x1066:
		return icC, iposBaseC
	case 0x1067 <= u && u <= 0x106D:
		return icSM, iposSMVD
	case 0x106E <= u && u <= 0x1070:
		return icC, iposBaseC
	case 0x1075 <= u && u <= 0x1081:
		return icC, iposBaseC
	case u == 0x1082:
		return mcMedialW, iposBelowC
	case u == 0x1083:
		return icM, iposPostC
	case u == 0x1084:
		return icM, iposPreM
	case u == 0x1085 || u == 0x1086:
		return icM, iposAboveC
	case 0x1087 <= u && u <= 0x108D:
		return icSM, iposSMVD
	case u == 0x108E:
		return icC, iposBaseC
	case u == 0x108F:
		return icSM, iposSMVD
	case 0x1090 <= u && u <= 0x1099:
		return icPlaceholder, iposEnd
	case 0x109A <= u && u <= 0x109D:
		return icSM, iposSMVD
	case 0xAA60 <= u && u <= 0xAA7B:
		return icC, iposBaseC
	case u == 0xAA7C:
		return mcToneSgaw, iposSMVD
	case u == 0xAA7D:
		return icSM, iposSMVD
	}
	return icX, iposEnd
}

type shaperMyanmar struct {
	shaperDefaults
}

func (*shaperMyanmar) name() string { return "myanmar" }

func (*shaperMyanmar) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksByGdefEarly, false
}

func (*shaperMyanmar) normalizationPreference() normalizationMode {
	return nmComposedDiacritics
}

var myanmarBasicFeatures = []tables.Tag{
	otTag('r', 'p', 'h', 'f'),
	otTag('p', 'r', 'e', 'f'),
	otTag('b', 'l', 'w', 'f'),
	otTag('p', 's', 't', 'f'),
}

func (*shaperMyanmar) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_
	map_.enableFeatureExt(otTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	map_.enableFeatureExt(otTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)
	map_.addGSUBPause(myanmarSetupSyllablesPause)
	map_.addGSUBPause(myanmarReorderPause)

	for _, tag := range myanmarBasicFeatures {
		map_.enableFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
		map_.addGSUBPause(nil)
	}
	map_.addGSUBPause(nil)
	for _, tag := range []tables.Tag{
		otTag('p', 'r', 'e', 's'),
		otTag('a', 'b', 'v', 's'),
		otTag('b', 'l', 'w', 's'),
		otTag('p', 's', 't', 's'),
	} {
		map_.enableFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
}

func (sh *shaperMyanmar) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	for i := range buffer.Info {
		cat, pos := myanmarCategorize(buffer.Info[i].codepoint)
		buffer.Info[i].complexCategory = cat
		buffer.Info[i].complexAux = pos
	}
}

func isMyanmarConsonant(cat uint8) bool {
	return cat == icC || cat == icRa || cat == icDottedCircle || cat == icPlaceholder
}

func isMyanmarMedial(cat uint8) bool {
	return cat == mcMedialY || cat == mcMedialR || cat == mcMedialW || cat == mcMedialH
}

// scanMyanmarSyllable: consonant_syllable = (C|V|D) (H (C|V))* tail,
// where tail is asat/medials/matras/signs in any sequence.
func scanMyanmarSyllable(s *syllabicScanner) uint8 {
	tail := func() {
		for {
			if s.accept(icZWJ, icZWNJ, mcAsat, icN) {
				continue
			}
			if s.accept(mcMedialY, mcMedialR, mcMedialW, mcMedialH) {
				continue
			}
			if s.accept(icM) {
				continue
			}
			if s.accept(icSM, mcAnusvara, mcVisarga, mcToneSgaw, icA) {
				continue
			}
			break
		}
	}
	switch s.peek() {
	case icC, icRa, icV, icPlaceholder, icDottedCircle:
		s.accept(icC, icRa, icV, icPlaceholder, icDottedCircle)
		for {
			m := s.save()
			if s.accept(icH) {
				if s.accept(icC, icRa, icV) {
					continue
				}
				s.restore(m)
			}
			break
		}
		tail()
		return myanmarConsonantSyllable
	case icH, icM, icSM, icN, mcAsat, mcAnusvara, mcVisarga,
		mcMedialY, mcMedialR, mcMedialW, mcMedialH, mcToneSgaw:
		tail()
		s.accept(icH)
		return myanmarBrokenCluster
	default:
		s.accept(s.peek())
		return myanmarNonMyanmarCluster
	}
}

func myanmarSetupSyllablesPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	cats := make([]uint8, len(buffer.Info))
	for i := range buffer.Info {
		cats[i] = buffer.Info[i].complexCategory
	}
	tagSyllables(buffer, cats, scanMyanmarSyllable)
	return false
}

func myanmarReorderPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	insertDottedCircles(font, buffer, myanmarBrokenCluster, icDottedCircle, 0xFF, iposEnd)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		myanmarReorderSyllable(buffer, start, end)
	}
	return false
}

// myanmarReorderSyllable tags visual positions and stable-sorts the
// cluster by them: pre-base vowel and medial RA go in front of the
// base, the rest is ordered by position.
func myanmarReorderSyllable(buffer *Buffer, start, end int) {
	info := buffer.Info
	if syllableKind(info[start].syllable) == myanmarNonMyanmarCluster {
		return
	}

	base := end
	for i := start; i < end; i++ {
		if isMyanmarConsonant(info[i].complexCategory) || info[i].complexCategory == icV {
			base = i
			break
		}
	}
	if base == end {
		return
	}
	info[base].complexAux = iposBaseC

	for i := base + 1; i < end; i++ {
		switch {
		case info[i].complexCategory == mcMedialR:
			info[i].complexAux = iposPreC
		case info[i].complexCategory == icH && i+1 < end &&
			(isMyanmarConsonant(info[i+1].complexCategory) || info[i+1].complexCategory == icV):
			// stacked consonant stays with its virama, after the base
			info[i].complexAux = iposBelowC
			info[i+1].complexAux = iposBelowC
		case info[i].complexAux == iposEnd:
			info[i].complexAux = iposAfterMain
		}
	}
	// glyphs before the base that are not the pre-base vowel stay put
	for i := start; i < base; i++ {
		if info[i].complexAux == iposPreM {
			continue
		}
		info[i].complexAux = iposPreC
	}

	buffer.mergeClusters(start, end)
	sub := info[start:end]
	sort.SliceStable(sub, func(a, b int) bool {
		return sub[a].complexAux < sub[b].complexAux
	})
	buffer.unsafeToBreak(start, end)
}
